package identity

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used when no database is configured and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]User
	byName map[string]int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[int64]User),
		byName: make(map[string]int64),
	}
}

// GetUserByUsername implements Store.
func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[NormalizeUsername(username)]
	if !ok {
		return User{}, notFound("identity.GetUserByUsername")
	}
	return s.byID[id], nil
}

// GetUserByID implements Store.
func (s *MemoryStore) GetUserByID(ctx context.Context, userID int64) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return User{}, notFound("identity.GetUserByID")
	}
	return u, nil
}

// CreateUser implements Store.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := validateCreate(op, &in); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := NormalizeUsername(in.Username)
	if _, exists := s.byName[key]; exists {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	s.nextID++
	u := User{
		ID:           s.nextID,
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Salt:         in.Salt,
		Name:         in.Name,
		Phone:        in.Phone,
		Avatar:       in.Avatar,
		CompanyID:    in.CompanyID,
		CreatedAt:    in.Now,
	}
	s.byID[u.ID] = u
	s.byName[key] = u.ID
	return u, nil
}
