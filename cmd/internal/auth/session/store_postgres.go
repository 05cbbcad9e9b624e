package session

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

// PostgresStore implements Store using PostgreSQL (the sessions table).
//
// The pool is owned by the caller. Rotation relies on a single conditional
// UPDATE, so no explicit transaction is needed.
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
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("session: invalid schema identifier %q", schema)
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "public"}
	for _, opt := range opts {
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("session: nil pool")
	}
	return st, nil
}

const sessionColumns = `id, principal_id, token_fingerprint, user_agent, origin_address, expires_at, created_at, updated_at`

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "sessions"}.Sanitize()
}

// Create inserts a new session row with a fresh ULID.
func (s *PostgresStore) Create(ctx context.Context, in NewSession) (Session, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.New(now)
	if err != nil {
		return Session{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table()+` (
			id, principal_id, token_fingerprint, user_agent, origin_address,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING `+sessionColumns,
		id, in.PrincipalID, in.Fingerprint,
		nullIfEmpty(in.Provenance.UserAgent), nullIfEmpty(in.Provenance.OriginAddress),
		in.ExpiresAt, now,
	)

	sess, err := scanSession(row)
	if isUniqueViolation(err) {
		return Session{}, ErrDuplicateFingerprint
	}
	return sess, err
}

// FindByFingerprint loads the session bound to fp.
func (s *PostgresStore) FindByFingerprint(ctx context.Context, fp string) (Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM `+s.table()+`
		WHERE token_fingerprint = $1
	`, fp)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return sess, err
}

// Rotate replaces the fingerprint only if the row still carries oldFP.
func (s *PostgresStore) Rotate(ctx context.Context, id, oldFP, newFP string, expiresAt, now time.Time) (Session, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE `+s.table()+`
		SET token_fingerprint = $3,
		    expires_at = $4,
		    updated_at = $5
		WHERE id = $1 AND token_fingerprint = $2
		RETURNING `+sessionColumns,
		id, oldFP, newFP, expiresAt, now,
	)

	sess, err := scanSession(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Session{}, ErrRotateConflict
	case isUniqueViolation(err):
		return Session{}, ErrDuplicateFingerprint
	}
	return sess, err
}

// DeleteByFingerprint removes a session (idempotent).
func (s *PostgresStore) DeleteByFingerprint(ctx context.Context, fp string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE token_fingerprint = $1`, fp)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpired purges rows whose expiry has passed.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		sess   Session
		ua     *string
		origin *string
	)
	err := row.Scan(
		&sess.ID,
		&sess.PrincipalID,
		&sess.Fingerprint,
		&ua,
		&origin,
		&sess.ExpiresAt,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return Session{}, err
	}
	if ua != nil {
		sess.UserAgent = *ua
	}
	if origin != nil {
		sess.OriginAddress = *origin
	}
	return sess, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
