package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over sys_user.
//
// The pgx pool is owned by the caller; this store never closes it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema holding sys_user (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "public"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `user_id, username, password, salt, name, phone, avatar, company_id, create_time`

// GetUserByUsername loads a user by case-folded username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const op = "identity.GetUserByUsername"

	norm := NormalizeUsername(username)
	if norm == "" {
		return User{}, notFound(op)
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+pgIdent(s.schema, "sys_user")+` WHERE lower(username) = $1`,
		norm,
	)
	return scanUser(op, row)
}

// GetUserByID loads a user by primary key.
func (s *PostgresStore) GetUserByID(ctx context.Context, userID int64) (User, error) {
	const op = "identity.GetUserByID"

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+pgIdent(s.schema, "sys_user")+` WHERE user_id = $1`,
		userID,
	)
	return scanUser(op, row)
}

// CreateUser inserts a new user and returns it with the generated id.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := validateCreate(op, &in); err != nil {
		return User{}, err
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+pgIdent(s.schema, "sys_user")+` (
		     username, password, salt, name, phone, avatar, company_id, create_time
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		   RETURNING user_id`,
		in.Username, in.PasswordHash, in.Salt, in.Name, in.Phone, in.Avatar, in.CompanyID, in.Now,
	).Scan(&id)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		if pgIsForeignKeyViolation(err) {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "company does not exist"}
		}
		return User{}, unavailable(op, err)
	}

	return User{
		ID:           id,
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Salt:         in.Salt,
		Name:         in.Name,
		Phone:        in.Phone,
		Avatar:       in.Avatar,
		CompanyID:    in.CompanyID,
		CreatedAt:    in.Now,
	}, nil
}

func scanUser(op string, row pgx.Row) (User, error) {
	var (
		u       User
		name    *string
		phone   *string
		avatar  *string
		company *int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &name, &phone, &avatar, &company, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, notFound(op)
	}
	if err != nil {
		return User{}, unavailable(op, err)
	}
	u.Name = deref(name)
	u.Phone = deref(phone)
	u.Avatar = deref(avatar)
	u.CompanyID = company
	return u, nil
}

func validateCreate(op string, in *CreateUserInput) error {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "username is required"}
	}
	if in.PasswordHash == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgIsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}
	if strings.Contains(strings.ToLower(pgErr.ConstraintName), "username") {
		return "username", true
	}
	return "unique", true
}
