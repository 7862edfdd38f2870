package session

import (
	"context"
	"errors"
)

var (
	// ErrAccountNotFound indicates the account or visitor code behind a
	// refresh token no longer exists
	ErrAccountNotFound = errors.New("account not found")

	// ErrStaleToken indicates a refresh token whose embedded version no
	// longer matches the stored one; the account's sessions were revoked
	ErrStaleToken = errors.New("refresh token superseded by revocation")
)

// VersionStore holds the per-account token version, the counter whose
// mismatch invalidates refresh tokens. Durable accounts and visitor codes
// are separate namespaces, selected by the visitor flag.
type VersionStore interface {
	// Version returns the current stored version, or ErrAccountNotFound
	Version(ctx context.Context, id string, visitor bool) (int64, error)

	// Increment atomically bumps the stored version by one and returns the
	// new value. Must be a single atomic operation at the store, never an
	// application-level read-modify-write.
	Increment(ctx context.Context, id string, visitor bool) (int64, error)
}

// StatusLookup supplies the access-token fields a refresh token does not
// carry. Visitor codes have no email, so implementations report false for
// them.
type StatusLookup interface {
	EmailVerified(ctx context.Context, id string, visitor bool) (bool, error)
}
