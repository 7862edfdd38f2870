package principal

import (
	"fmt"
	"strings"

	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

// Resolver turns an Authorization header value into a Principal
type Resolver struct {
	codec *token.Codec
}

// NewResolver creates a resolver backed by the given token codec
func NewResolver(codec *token.Codec) *Resolver {
	return &Resolver{codec: codec}
}

// Resolve produces the principal for a request.
//
// An empty header yields the guest principal with no error. A present header
// must be a well-formed "Bearer <token>" carrying a valid access token;
// verification failures propagate unchanged so callers can distinguish
// expiry from tampering.
func (r *Resolver) Resolve(authorizationHeader string) (Principal, error) {
	if authorizationHeader == "" {
		return Guest(), nil
	}

	parts := strings.SplitN(authorizationHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return Guest(), fmt.Errorf("%w: authorization header is not a bearer token", token.ErrInvalidToken)
	}

	claims, err := r.codec.VerifyAccess(parts[1])
	if err != nil {
		return Guest(), err
	}

	role := Role(claims.Role)
	if !role.Valid() || role == RoleGuest {
		return Guest(), fmt.Errorf("%w: unknown role %q", token.ErrMalformedPayload, claims.Role)
	}

	return Principal{
		ID:            claims.ID,
		Role:          role,
		EmailVerified: claims.EmailVerified,
	}, nil
}
