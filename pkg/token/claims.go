package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose identifies what a token is good for. It is embedded in every
// payload as the "type" claim and checked on verification.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeMedia         Purpose = "media"
	PurposeVerifyEmail   Purpose = "verifyEmail"
	PurposeInvite        Purpose = "invite"
	PurposePasswordReset Purpose = "passwordReset"
)

// Default token lifetimes. Access tokens are deliberately short; refresh
// tokens must outlive them or clients end up re-authenticating on every
// access-token expiry.
const (
	AccessTokenTTL  = 2 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
	MediaTokenTTL   = time.Hour
)

// purposed is implemented by every claims type so the codec can check the
// discriminator generically.
type purposed interface {
	jwt.Claims
	purpose() Purpose
}

// AccessClaims is the payload of an access token, presented on every request.
// Field names are part of the wire contract with already-issued tokens.
type AccessClaims struct {
	jwt.RegisteredClaims

	Purpose       Purpose `json:"type"`
	ID            string  `json:"id"`
	Role          string  `json:"role"`
	EmailVerified bool    `json:"emailVerified"`
}

func (c *AccessClaims) purpose() Purpose { return c.Purpose }

// RefreshClaims is the payload of a refresh token. TokenVersion must match
// the version currently stored against the account for the token to be
// honored; bumping the stored version revokes every outstanding refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims

	Purpose      Purpose `json:"type"`
	ID           string  `json:"id"`
	TokenVersion int64   `json:"tokenVersion"`
	Role         string  `json:"role"`
}

func (c *RefreshClaims) purpose() Purpose { return c.Purpose }

// MediaClaims is the payload of a media-access token. A non-empty MediaID
// scopes the token to that one object; an empty MediaID authorizes access to
// the bearer's own profile media only.
type MediaClaims struct {
	jwt.RegisteredClaims

	Purpose Purpose `json:"type"`
	ID      string  `json:"id"`
	Role    string  `json:"role"`
	MediaID string  `json:"mediaId,omitempty"`
}

func (c *MediaClaims) purpose() Purpose { return c.Purpose }

// ActionClaims is the payload of single-action tokens: email verification,
// invites, and password resets. Invite tokens identify the invitee by email
// before an account id exists.
type ActionClaims struct {
	jwt.RegisteredClaims

	Purpose Purpose `json:"type"`
	ID      string  `json:"id,omitempty"`
	Email   string  `json:"email,omitempty"`
}

func (c *ActionClaims) purpose() Purpose { return c.Purpose }
