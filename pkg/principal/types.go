// Package principal derives the per-request authenticated identity from an
// incoming access token.
package principal

// Role is the coarse permission class attached to every principal
type Role string

const (
	// RoleGuest is an unauthenticated request (no token at all)
	RoleGuest Role = "guest"
	// RoleVisitor is a disposable code-authenticated identity with no
	// durable account
	RoleVisitor Role = "visitor"
	// RoleUser is a registered member
	RoleUser Role = "user"
	// RoleMentor is a member with mentor privileges
	RoleMentor Role = "mentor"
	// RoleThirdParty is an external partner account
	RoleThirdParty Role = "thirdParty"
	// RoleAdmin has full access to everything
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleVisitor, RoleUser, RoleMentor, RoleThirdParty, RoleAdmin:
		return true
	}
	return false
}

// Durable reports whether r identifies a durable account (as opposed to a
// guest or a disposable visitor code)
func (r Role) Durable() bool {
	switch r {
	case RoleUser, RoleMentor, RoleThirdParty, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated identity attached to a request. It is fully
// derived from a verified access-token payload and never mutated after
// construction.
type Principal struct {
	// ID is the opaque account identifier; empty for guests
	ID string
	// Role is the principal's permission class
	Role Role
	// EmailVerified gates operations for durable accounts whose email is
	// still unverified
	EmailVerified bool
}

// Guest returns the anonymous principal used for requests with no token
func Guest() Principal {
	return Principal{Role: RoleGuest}
}

// IsGuest reports whether the principal is unauthenticated
func (p Principal) IsGuest() bool { return p.Role == RoleGuest || p.Role == "" }

// IsAdmin reports whether the principal bypasses ownership checks
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Authenticated reports whether the principal carries a verified identity
func (p Principal) Authenticated() bool { return !p.IsGuest() }
