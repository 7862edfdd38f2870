package token

import "errors"

var (
	// ErrSigningUnavailable indicates no signing secret or issuer is configured
	ErrSigningUnavailable = errors.New("token signing unavailable: no secret or issuer configured")

	// ErrInvalidToken indicates a token with a bad signature or format
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates a token past its expiration
	ErrExpiredToken = errors.New("token expired")

	// ErrMalformedPayload indicates a token whose payload is missing required
	// claims or carries the wrong purpose discriminator
	ErrMalformedPayload = errors.New("malformed token payload")
)
