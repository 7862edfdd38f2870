package middleware

import (
	"errors"
	"net/http"

	"github.com/jschmidtnj/ewaab-sub000/pkg/contextkeys"
	"github.com/jschmidtnj/ewaab-sub000/pkg/httputil"
	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

// AuthMiddleware resolves the request principal from the Authorization header
type AuthMiddleware struct {
	resolver *principal.Resolver
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver *principal.Resolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Handler wraps an HTTP handler with principal resolution.
//
// Requests without an Authorization header proceed as the guest principal;
// endpoint-level checks decide what guests may do. A present but invalid
// header is rejected here, expired tokens with a distinct message so clients
// know to refresh.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.resolver.Resolve(r.Header.Get("Authorization"))
		if err != nil {
			if errors.Is(err, token.ErrExpiredToken) {
				httputil.WriteUnauthorized(w, "token expired")
				return
			}
			httputil.WriteUnauthorized(w, "invalid token")
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), p)
		if p.Authenticated() {
			ctx = contextkeys.WithUserID(ctx, p.ID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Principal extracts the resolved principal from the request, defaulting to
// guest when the auth middleware did not run
func Principal(r *http.Request) principal.Principal {
	if p, ok := r.Context().Value(contextkeys.PrincipalKey).(principal.Principal); ok {
		return p
	}
	return principal.Guest()
}

// RequireAuthenticated creates middleware that rejects guest requests
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Principal(r).Authenticated() {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin creates middleware that only admits admin principals
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := Principal(r)
		if !p.Authenticated() {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if !p.IsAdmin() {
			httputil.WriteForbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole creates middleware that admits only the listed roles
func RequireRole(roles ...principal.Role) func(http.Handler) http.Handler {
	allowed := make(map[principal.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := Principal(r)
			if !p.Authenticated() {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				httputil.WriteForbidden(w, "insufficient role permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
