// Package session implements refresh-token rotation and stateless revocation.
//
// # Overview
//
// Refresh tokens embed the per-account token version current at issue time.
// The stored version is the sole revocation mechanism: bumping it invalidates
// every outstanding refresh token for the account without any server-side
// token storage, so instances scale horizontally with no shared session
// table. Access tokens simply age out.
//
// # Usage Example
//
// Refresh a session:
//
//	result, err := manager.HandleRefresh(ctx, refreshToken)
//	if errors.Is(err, session.ErrStaleToken) {
//		// all sessions for this account were revoked; re-authenticate
//	}
//
// Log out everywhere:
//
//	err := manager.Revoke(ctx, accountID, false)
//
// # Version Stores
//
// Two VersionStore implementations ship here: Redis (INCR, shared across
// instances) and SQL (single atomic UPDATE, Postgres or SQLite). The
// increment must be atomic at the store; concurrent revokes must each take
// effect and never regress the counter.
//
// # Related Packages
//
//   - pkg/token: signs and verifies the tokens themselves
//   - pkg/accounts: durable account and visitor-code records
package session
