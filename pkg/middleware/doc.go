// Package middleware provides HTTP middleware for authentication, request
// context, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware including principal
// resolution from bearer tokens, request IDs, structured request logging,
// panic recovery, and login rate limiting (in-memory and Redis-backed).
//
// # Middleware Components
//
// AuthMiddleware: resolves the principal from the Authorization header
//
//	authMW := middleware.NewAuthMiddleware(resolver)
//	router.Use(authMW.Handler)
//	// Requests without a header proceed as guest; invalid tokens get 401
//
// Role gates for endpoints:
//
//	router.Handle("/auth/tokens/action", middleware.RequireAdmin(handler))
//	router.Handle("/mentor-news", middleware.RequireRole(principal.RoleMentor, principal.RoleAdmin)(handler))
//
// Request plumbing:
//
//	chain := middleware.Chain(
//		middleware.RequestID,
//		middleware.RequestLogger(logger),
//		middleware.Recovery(logger),
//		middleware.MaxBytes(1<<20),
//	)
//
// Login rate limiting (per client IP):
//
//	limiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig())
//	loginHandler = middleware.LoginRateLimit(limiter)(loginHandler)
//
// With Redis for multi-instance deployments:
//
//	dl := middleware.NewDistributedRateLimiter(redisClient, nil, "ratelimit:login")
//	loginHandler = middleware.DistributedLoginRateLimit(dl)(loginHandler)
//
// # Related Packages
//
//   - pkg/principal: Token-to-principal resolution
//   - pkg/contextkeys: Context key definitions
//   - pkg/httputil: Response helpers
package middleware
