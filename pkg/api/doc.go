// Package api exposes the authentication service over HTTP.
//
// # Overview
//
// The server mounts the login, refresh, revocation and token-issuance
// endpoints on a gorilla/mux router behind a shared middleware chain:
// request ids, panic recovery, optional tracing and metrics, request
// logging, and principal resolution from the Authorization header.
//
// Endpoints:
//
//	POST /auth/login            email + password login
//	POST /auth/login/visitor    visitor code exchange
//	POST /auth/refresh          rotate an access token off a refresh token
//	POST /auth/revoke           revoke all sessions for an account
//	GET  /auth/me               the caller's identity
//	POST /auth/media-token      mint a scoped media-access token
//	POST /auth/tokens/action    mint invite / verify-email / reset tokens (admin)
//	POST /auth/register         consume an invite token, create an account
//	POST /auth/verify-email     consume a verification token
//	POST /auth/password-reset   consume a reset token, revoke old sessions
//	POST /admin/users           create an account directly (admin)
//	POST /admin/visitor-codes   mint a disposable visitor code (admin)
//
// While the account store is empty, the configured bootstrap credentials
// log in as an admin so the first real account can be created. Bootstrap
// sessions get no refresh token and expire with the access token.
//
// # Usage
//
//	server := api.NewServer(cfg, api.Deps{
//		Store:    store,
//		Sessions: sessions,
//		Codec:    codec,
//		Media:    media.NewIssuer(codec),
//		Trail:    trail,
//		Metrics:  metrics,
//		Logger:   logger,
//		LoginLimit: middleware.NewLoginLimit(ctx, redisClient, middleware.LoginRateLimitConfig()),
//	})
//	httpServer := api.NewHTTPServer(cfg.Server, server)
//	httpServer.ListenAndServe()
//
// # Related Packages
//
//   - pkg/accounts: account and visitor-code storage
//   - pkg/session: refresh token validation and revocation
//   - pkg/middleware: the chain assembled here
//   - pkg/audit: the trail the handlers write to
package api
