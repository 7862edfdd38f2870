// Package accounts stores durable user accounts and disposable visitor codes.
//
// # Overview
//
// Accounts carry a bcrypt password hash, a role, an email-verification flag,
// and the token version used for stateless session revocation. Visitor codes
// are short-lived credential records of the form "id:secret" that yield
// visitor-role sessions without an email or password.
//
// The Store implements session.VersionStore and session.StatusLookup over the
// same tables, so the refresh manager and the login path share one source of
// truth.
//
// # Storage
//
// SQL statements use $N placeholders, which both lib/pq and go-sqlite3
// accept; production runs Postgres, tests and dev mode run in-memory SQLite.
//
// # Related Packages
//
//   - pkg/session: consumes the token-version columns
//   - pkg/api: login and account-management handlers
package accounts
