package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialsProvider supplies the signing secret and issuer. Implementations
// are consulted on every sign/verify call so secret rotation takes effect
// without restarting the process.
type CredentialsProvider interface {
	TokenSecret() []byte
	TokenIssuer() string
}

// StaticCredentials is a fixed-value CredentialsProvider, used in tests and
// single-secret deployments.
type StaticCredentials struct {
	Secret []byte
	Issuer string
}

// TokenSecret returns the configured secret
func (s StaticCredentials) TokenSecret() []byte { return s.Secret }

// TokenIssuer returns the configured issuer
func (s StaticCredentials) TokenIssuer() string { return s.Issuer }

// Codec signs and verifies all platform tokens. It is safe for concurrent
// use; signing and verification are pure functions of the inputs and the
// credentials from the provider.
type Codec struct {
	creds CredentialsProvider

	// Now is the clock used for expiration math. Overridable in tests.
	Now func() time.Time
}

// NewCodec creates a codec backed by the given credentials provider
func NewCodec(creds CredentialsProvider) *Codec {
	return &Codec{
		creds: creds,
		Now:   time.Now,
	}
}

// SignAccess issues an access token for the given account
func (c *Codec) SignAccess(id, role string, emailVerified bool, ttl time.Duration) (string, error) {
	claims := &AccessClaims{
		Purpose:       PurposeAccess,
		ID:            id,
		Role:          role,
		EmailVerified: emailVerified,
	}
	return c.sign(&claims.RegisteredClaims, claims, ttl)
}

// SignRefresh issues a refresh token bound to the account's current token version
func (c *Codec) SignRefresh(id string, tokenVersion int64, role string, ttl time.Duration) (string, error) {
	claims := &RefreshClaims{
		Purpose:      PurposeRefresh,
		ID:           id,
		TokenVersion: tokenVersion,
		Role:         role,
	}
	return c.sign(&claims.RegisteredClaims, claims, ttl)
}

// SignMedia issues a media-access token. An empty mediaID scopes the token to
// the bearer's own profile media. A zero ttl produces a non-expiring token.
func (c *Codec) SignMedia(id, role, mediaID string, ttl time.Duration) (string, error) {
	claims := &MediaClaims{
		Purpose: PurposeMedia,
		ID:      id,
		Role:    role,
		MediaID: mediaID,
	}
	return c.sign(&claims.RegisteredClaims, claims, ttl)
}

// SignAction issues a single-action token (verifyEmail, invite, passwordReset)
func (c *Codec) SignAction(purpose Purpose, id, email string, ttl time.Duration) (string, error) {
	switch purpose {
	case PurposeVerifyEmail, PurposeInvite, PurposePasswordReset:
	default:
		return "", fmt.Errorf("%w: %q is not an action purpose", ErrMalformedPayload, purpose)
	}
	claims := &ActionClaims{
		Purpose: purpose,
		ID:      id,
		Email:   email,
	}
	return c.sign(&claims.RegisteredClaims, claims, ttl)
}

// VerifyAccess verifies an access token and returns its claims
func (c *Codec) VerifyAccess(tok string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(tok, claims, PurposeAccess); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: access token missing account id", ErrMalformedPayload)
	}
	return claims, nil
}

// VerifyRefresh verifies a refresh token and returns its claims. Version
// matching against the stored account version is the caller's job.
func (c *Codec) VerifyRefresh(tok string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(tok, claims, PurposeRefresh); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: refresh token missing account id", ErrMalformedPayload)
	}
	return claims, nil
}

// VerifyMedia verifies a media-access token and returns its claims
func (c *Codec) VerifyMedia(tok string) (*MediaClaims, error) {
	claims := &MediaClaims{}
	if err := c.verify(tok, claims, PurposeMedia); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyAction verifies a single-action token against the expected purpose
func (c *Codec) VerifyAction(tok string, purpose Purpose) (*ActionClaims, error) {
	claims := &ActionClaims{}
	if err := c.verify(tok, claims, purpose); err != nil {
		return nil, err
	}
	return claims, nil
}

// sign serializes the claims with standard registered claims attached.
// A zero ttl omits the expiration claim entirely (non-expiring token).
func (c *Codec) sign(reg *jwt.RegisteredClaims, claims jwt.Claims, ttl time.Duration) (string, error) {
	secret := c.creds.TokenSecret()
	issuer := c.creds.TokenIssuer()
	if len(secret) == 0 || issuer == "" {
		return "", ErrSigningUnavailable
	}

	now := c.Now()
	reg.Issuer = issuer
	reg.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		reg.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// verify parses the token into claims and checks signature, expiry, issuer,
// and the purpose discriminator.
func (c *Codec) verify(tok string, claims purposed, expected Purpose) error {
	secret := c.creds.TokenSecret()
	issuer := c.creds.TokenIssuer()
	if len(secret) == 0 || issuer == "" {
		return ErrSigningUnavailable
	}

	_, err := jwt.ParseWithClaims(tok, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return c.Now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.purpose() == "" {
		return fmt.Errorf("%w: missing purpose discriminator", ErrMalformedPayload)
	}
	if claims.purpose() != expected {
		return fmt.Errorf("%w: purpose %q, expected %q", ErrMalformedPayload, claims.purpose(), expected)
	}
	return nil
}
