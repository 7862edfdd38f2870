package api

import (
	"context"
	"time"

	"github.com/jschmidtnj/ewaab-sub000/pkg/accounts"
	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
)

// AccountStore is the slice of the account storage the handlers need.
// *accounts.Store satisfies it; tests substitute a fake.
type AccountStore interface {
	Authenticate(ctx context.Context, email, password string) (*accounts.User, error)
	AuthenticateVisitor(ctx context.Context, credential string) (*accounts.VisitorCode, error)
	UserByID(ctx context.Context, id string) (*accounts.User, error)
	UserByEmail(ctx context.Context, email string) (*accounts.User, error)
	CreateUser(ctx context.Context, email, password string, role principal.Role) (*accounts.User, error)
	CreateVisitorCode(ctx context.Context, expiresAt time.Time) (*accounts.VisitorCode, string, error)
	SetEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, password string) error
	CountUsers(ctx context.Context) (int64, error)
}

// loginRequest is the body of POST /auth/login
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// visitorLoginRequest is the body of POST /auth/login/visitor
type visitorLoginRequest struct {
	Code string `json:"code"`
}

// loginResponse carries the tokens issued by a successful login. The refresh
// token additionally travels in an httpOnly cookie so browser clients never
// touch it from script.
type loginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	MediaToken   string         `json:"mediaToken,omitempty"`
	Role         principal.Role `json:"role"`
}

// refreshRequest is the body of POST /auth/refresh. The token may instead
// arrive in the refreshToken cookie.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// revokeRequest is the body of POST /auth/revoke. An empty ID revokes the
// caller's own sessions; naming another account requires admin.
type revokeRequest struct {
	ID      string `json:"id,omitempty"`
	Visitor bool   `json:"visitor,omitempty"`
}

// meResponse is the body of GET /auth/me
type meResponse struct {
	ID            string         `json:"id"`
	Role          principal.Role `json:"role"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"emailVerified"`
}

// mediaTokenRequest is the body of POST /auth/media-token. A zero TTL issues
// a non-expiring token scoped to one object or, with no mediaId, to the
// caller's own profile media.
type mediaTokenRequest struct {
	MediaID    string `json:"mediaId,omitempty"`
	TTLSeconds int64  `json:"ttlSeconds,omitempty"`
}

// mediaTokenResponse is the body returned by POST /auth/media-token
type mediaTokenResponse struct {
	MediaToken string `json:"mediaToken"`
}

// actionTokenRequest is the body of POST /auth/tokens/action
type actionTokenRequest struct {
	Purpose string `json:"purpose"`
	Email   string `json:"email"`
}

// actionTokenResponse is the body returned by POST /auth/tokens/action
type actionTokenResponse struct {
	Token string `json:"token"`
}

// verifyEmailRequest is the body of POST /auth/verify-email
type verifyEmailRequest struct {
	Token string `json:"token"`
}

// passwordResetRequest is the body of POST /auth/password-reset
type passwordResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// registerRequest is the body of POST /auth/register; the token must be a
// valid invite token carrying the invitee's email
type registerRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// createUserRequest is the body of POST /admin/users
type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// createVisitorCodeRequest is the body of POST /admin/visitor-codes
type createVisitorCodeRequest struct {
	TTLSeconds int64 `json:"ttlSeconds"`
}

// createVisitorCodeResponse returns the one-time credential; the secret half
// is not recoverable afterwards
type createVisitorCodeResponse struct {
	ID         string    `json:"id"`
	Credential string    `json:"credential"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
