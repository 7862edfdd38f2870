package accounts

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/session"
)

// Store persists accounts and visitor codes in SQL. It implements
// session.VersionStore and session.StatusLookup.
type Store struct {
	db *sql.DB

	// Now is the clock used for timestamps and expiry checks. Overridable
	// in tests.
	Now func() time.Time
}

// NewStore creates a store over the given database handle
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		Now: time.Now,
	}
}

// Migrate creates the account tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			token_version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS visitor_codes (
			id TEXT PRIMARY KEY,
			secret_hash TEXT NOT NULL,
			token_version BIGINT NOT NULL DEFAULT 0,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visitor_codes_expires_at ON visitor_codes(expires_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run account migration: %w", err)
		}
	}
	return nil
}

// CreateUser registers a durable account. The password is hashed here; the
// record starts at token version 0 with an unverified email.
func (s *Store) CreateUser(ctx context.Context, email, password string, role principal.Role) (*User, error) {
	if !role.Durable() {
		return nil, fmt.Errorf("role %q cannot own a durable account", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, email_verified, token_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, 0, $5, $6)`,
		user.ID, user.Email, user.PasswordHash, string(user.Role), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UserByEmail fetches an account by email, or session.ErrAccountNotFound
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, email_verified, token_version, created_at, updated_at
		FROM users WHERE email = $1`, email))
}

// UserByID fetches an account by id, or session.ErrAccountNotFound
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, email_verified, token_version, created_at, updated_at
		FROM users WHERE id = $1`, id))
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords return the same ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.UserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SetEmailVerified marks an account's email as verified
func (s *Store) SetEmailVerified(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET email_verified = TRUE, updated_at = $1 WHERE id = $2`,
		s.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return requireRowAffected(result)
}

// UpdatePassword replaces an account's password hash, used by the
// password-reset flow
func (s *Store) UpdatePassword(ctx context.Context, id, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		hash, s.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRowAffected(result)
}

// CountUsers returns the number of durable accounts, used by the bootstrap
// path to detect an empty installation
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CreateVisitorCode mints a visitor code valid until expiresAt and returns
// the record plus the one-time "<id>:<secret>" credential. The secret is
// never stored in plaintext.
func (s *Store) CreateVisitorCode(ctx context.Context, expiresAt time.Time) (*VisitorCode, string, error) {
	secretBytes := make([]byte, 24)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, "", fmt.Errorf("failed to generate visitor secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	hash, err := HashPassword(secret)
	if err != nil {
		return nil, "", err
	}

	now := s.Now().UTC()
	code := &VisitorCode{
		ID:         uuid.NewString(),
		SecretHash: hash,
		ExpiresAt:  expiresAt.UTC(),
		CreatedAt:  now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO visitor_codes (id, secret_hash, token_version, expires_at, created_at)
		VALUES ($1, $2, 0, $3, $4)`,
		code.ID, code.SecretHash, code.ExpiresAt, code.CreatedAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create visitor code: %w", err)
	}

	return code, code.ID + ":" + secret, nil
}

// AuthenticateVisitor checks an "<id>:<secret>" credential against a stored,
// unexpired visitor code
func (s *Store) AuthenticateVisitor(ctx context.Context, credential string) (*VisitorCode, error) {
	id, secret, err := ParseVisitorCredential(credential)
	if err != nil {
		return nil, err
	}

	code := &VisitorCode{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, secret_hash, token_version, expires_at, created_at
		FROM visitor_codes WHERE id = $1`, id,
	).Scan(&code.ID, &code.SecretHash, &code.TokenVersion, &code.ExpiresAt, &code.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("failed to load visitor code: %w", err)
	}

	if code.Expired(s.Now()) {
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(code.SecretHash, secret) {
		return nil, ErrInvalidCredentials
	}
	return code, nil
}

// DeleteExpiredVisitorCodes removes codes past their expiration and returns
// how many were swept
func (s *Store) DeleteExpiredVisitorCodes(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM visitor_codes WHERE expires_at < $1`, s.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep visitor codes: %w", err)
	}
	swept, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return swept, nil
}

// Version returns the stored token version for an account or visitor code,
// implementing session.VersionStore
func (s *Store) Version(ctx context.Context, id string, visitor bool) (int64, error) {
	query := `SELECT token_version FROM users WHERE id = $1`
	if visitor {
		// An expired code is as good as deleted even before the sweeper runs
		query = `SELECT token_version FROM visitor_codes WHERE id = $1 AND expires_at >= $2`
	}

	var version int64
	var err error
	if visitor {
		err = s.db.QueryRowContext(ctx, query, id, s.Now().UTC()).Scan(&version)
	} else {
		err = s.db.QueryRowContext(ctx, query, id).Scan(&version)
	}
	if err == sql.ErrNoRows {
		return 0, session.ErrAccountNotFound
	} else if err != nil {
		return 0, fmt.Errorf("failed to read token version: %w", err)
	}
	return version, nil
}

// Increment atomically bumps the token version by one in a single UPDATE,
// implementing session.VersionStore
func (s *Store) Increment(ctx context.Context, id string, visitor bool) (int64, error) {
	query := `UPDATE users SET token_version = token_version + 1, updated_at = $1 WHERE id = $2 RETURNING token_version`
	args := []interface{}{s.Now().UTC(), id}
	if visitor {
		// Same expiry filter as Version: an expired code must not look
		// revocable while reads already treat it as gone
		query = `UPDATE visitor_codes SET token_version = token_version + 1 WHERE id = $1 AND expires_at >= $2 RETURNING token_version`
		args = []interface{}{id, s.Now().UTC()}
	}

	var version int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, session.ErrAccountNotFound
	} else if err != nil {
		return 0, fmt.Errorf("failed to increment token version: %w", err)
	}
	return version, nil
}

// EmailVerified reports an account's verification state, implementing
// session.StatusLookup. Visitor codes have no email to verify.
func (s *Store) EmailVerified(ctx context.Context, id string, visitor bool) (bool, error) {
	if visitor {
		return false, nil
	}
	var verified bool
	err := s.db.QueryRowContext(ctx, `SELECT email_verified FROM users WHERE id = $1`, id).Scan(&verified)
	if err == sql.ErrNoRows {
		return false, session.ErrAccountNotFound
	} else if err != nil {
		return false, fmt.Errorf("failed to read account status: %w", err)
	}
	return verified, nil
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var role string
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &role,
		&user.EmailVerified, &user.TokenVersion, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, session.ErrAccountNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	user.Role = principal.Role(role)
	return user, nil
}

// isUniqueViolation detects duplicate-key errors across lib/pq and
// go-sqlite3 without importing driver error types
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return session.ErrAccountNotFound
	}
	return nil
}
