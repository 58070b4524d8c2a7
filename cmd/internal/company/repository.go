package company

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository is the storage boundary for companies.
type Repository interface {
	Count(ctx context.Context, name string) (int64, error)
	List(ctx context.Context, name string, limit, offset int) ([]Company, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, c Company) (Company, error)
}

// DBTX is the subset of *sql.DB the repository needs.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRepository implements Repository over database/sql (pgx stdlib driver).
type PostgresRepository struct {
	db    DBTX
	table string
}

// NewPostgresRepository wraps db. An empty schema means "public".
func NewPostgresRepository(db DBTX, schema string) *PostgresRepository {
	if schema == "" {
		schema = "public"
	}
	return &PostgresRepository{db: db, table: pgx.Identifier{schema, "sys_company"}.Sanitize()}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func nameFilter(name string) (string, []any) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	return ` WHERE name ILIKE '%' || $1 || '%'`, []any{likeEscaper.Replace(name)}
}

func (r *PostgresRepository) Count(ctx context.Context, name string) (int64, error) {
	where, args := nameFilter(name)

	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM `+r.table+where, args...).Scan(&n)
	if err != nil {
		return 0, unavailable("company.Count", err)
	}
	return n, nil
}

func (r *PostgresRepository) List(ctx context.Context, name string, limit, offset int) ([]Company, error) {
	if offset < 0 || limit < 1 {
		return nil, ErrInvalidInput
	}
	where, args := nameFilter(name)
	n := len(args)
	args = append(args, limit, offset)

	query := `SELECT company_id, name, contact, phone, create_time FROM ` + r.table + where +
		` ORDER BY company_id LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("company.List", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, unavailable("company.List", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("company.List", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Company, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT company_id, name, contact, phone, create_time FROM `+r.table+` WHERE company_id = $1`, id)

	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	if err != nil {
		return Company{}, unavailable("company.Get", err)
	}
	return c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c Company) (Company, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO `+r.table+` (name, contact, phone, create_time) VALUES ($1, $2, $3, $4) RETURNING company_id`,
		c.Name, nullIfEmpty(c.Contact), nullIfEmpty(c.Phone), c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return Company{}, unavailable("company.Create", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompany(s scanner) (Company, error) {
	var (
		c       Company
		contact sql.NullString
		phone   sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &contact, &phone, &c.CreatedAt); err != nil {
		return Company{}, err
	}
	c.Contact = contact.String
	c.Phone = phone.String
	return c, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
