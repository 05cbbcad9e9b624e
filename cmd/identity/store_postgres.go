package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"authcore/cmd/identity/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are quoted via pgx.Identifier.
// - Unique violations are classified to the logical field.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "public").
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

const principalColumns = `
	id, first_name, middle_name, last_name, age, state, country,
	email, phone_number, role, is_verified, password_hash, created_at, updated_at`

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "principals"}.Sanitize()
}

func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := in.check(op); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.New(now)
	if err != nil {
		return User{}, err
	}

	email := NormalizeEmail(in.Email)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table()+` (
			id, first_name, middle_name, last_name, age, state, country,
			email, email_norm, phone_number, role, is_verified, password_hash,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $8, $9, $10, $11, $12,
			$13, $13
		)
		RETURNING `+principalColumns,
		id,
		strings.TrimSpace(in.FirstName),
		in.MiddleName,
		strings.TrimSpace(in.LastName),
		in.Age,
		in.State,
		in.Country,
		email,
		NormalizePhone(in.PhoneNumber),
		string(in.role()),
		in.IsVerified,
		in.PasswordHash,
		now,
	)

	u, err := scanUser(row)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM `+s.table()+` WHERE email_norm = $1`, NormalizeEmail(email))
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: "identity.FindByEmail", Key: "email"}
	}
	return u, err
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM `+s.table()+` WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: "identity.FindByID", Key: "id"}
	}
	return u, err
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id, hash string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.table()+`
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, hash, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: "identity.UpdatePasswordHash", Key: "id"}
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role string
		age  *int32
	)
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.MiddleName,
		&u.LastName,
		&age,
		&u.State,
		&u.Country,
		&u.Email,
		&u.PhoneNumber,
		&role,
		&u.IsVerified,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	if age != nil {
		v := int(*age)
		u.Age = &v
	}
	u.Role = Role(role)
	return u, nil
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_principals_email_norm", strings.Contains(c, "email"):
		return "email", true
	case c == "uq_principals_phone_number", strings.Contains(c, "phone"):
		return "phone_number", true
	default:
		return "unique", true
	}
}
