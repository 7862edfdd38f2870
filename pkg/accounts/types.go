package accounts

import (
	"errors"
	"time"

	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
)

// User is a durable account record
type User struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"-"`
	Role          principal.Role `json:"role"`
	EmailVerified bool           `json:"email_verified"`
	TokenVersion  int64          `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// VisitorCode is a disposable code-based identity. The credential handed out
// is "<id>:<secret>"; only the secret's bcrypt hash is stored.
type VisitorCode struct {
	ID           string    `json:"id"`
	SecretHash   string    `json:"-"`
	TokenVersion int64     `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired reports whether the code is past its expiration at the given time
func (v *VisitorCode) Expired(now time.Time) bool {
	return !v.ExpiresAt.IsZero() && now.After(v.ExpiresAt)
}

var (
	// ErrEmailTaken indicates an account already exists for the email
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials indicates a failed password or visitor-code
	// check. Deliberately indistinguishable from an unknown email so login
	// responses never leak which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
