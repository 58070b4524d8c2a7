package identity

import (
	"context"
	"time"
)

// User is a row of sys_user.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Salt         string

	Name      string
	Phone     string
	Avatar    string
	CompanyID *int64

	CreatedAt time.Time
}

// DisplayName is Name, or Username when no name was provisioned.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// CreateUserInput provisions a user. PasswordHash/Salt are produced by
// security/password; the store never sees a plain password.
type CreateUserInput struct {
	Username     string
	PasswordHash string
	Salt         string
	Name         string
	Phone        string
	Avatar       string
	CompanyID    *int64
	Now          time.Time
}

// Store is the Credential Store boundary.
//
// Lookups return an error matching ErrNotFound when the user is absent and
// ErrUnavailable when the backing store fails.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, userID int64) (User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
}
