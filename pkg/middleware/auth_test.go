package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jschmidtnj/ewaab-sub000/pkg/contextkeys"
	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

func testCodec() *token.Codec {
	return token.NewCodec(&token.StaticCredentials{
		Secret: []byte("middleware-test-secret"),
		Issuer: "ewaab",
	})
}

func echoPrincipal(t *testing.T, captured *principal.Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = Principal(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareGuestPassthrough(t *testing.T) {
	codec := testCodec()
	mw := NewAuthMiddleware(principal.NewResolver(codec))

	var got principal.Principal
	handler := mw.Handler(echoPrincipal(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.IsGuest())
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	codec := testCodec()
	mw := NewAuthMiddleware(principal.NewResolver(codec))

	access, err := codec.SignAccess("u1", string(principal.RoleMentor), true, time.Hour)
	require.NoError(t, err)

	var got principal.Principal
	handler := mw.Handler(echoPrincipal(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, principal.RoleMentor, got.Role)
	assert.True(t, got.EmailVerified)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	codec := testCodec()
	mw := NewAuthMiddleware(principal.NewResolver(codec))

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	codec := testCodec()
	codec.Now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	access, err := codec.SignAccess("u1", string(principal.RoleUser), true, time.Hour)
	require.NoError(t, err)

	verifier := testCodec()
	mw := NewAuthMiddleware(principal.NewResolver(verifier))
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func withPrincipal(r *http.Request, p principal.Principal) *http.Request {
	return r.WithContext(contextkeys.WithPrincipal(r.Context(), p))
}

func TestRequireAuthenticated(t *testing.T) {
	handler := RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = withPrincipal(httptest.NewRequest(http.MethodGet, "/auth/me", nil),
		principal.Principal{ID: "u1", Role: principal.RoleUser})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/auth/tokens/action", nil),
		principal.Principal{ID: "u1", Role: principal.RoleUser})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = withPrincipal(httptest.NewRequest(http.MethodPost, "/auth/tokens/action", nil),
		principal.Principal{ID: "a1", Role: principal.RoleAdmin})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(principal.RoleMentor, principal.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/mentor-news", nil),
		principal.Principal{ID: "u1", Role: principal.RoleVisitor})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = withPrincipal(httptest.NewRequest(http.MethodGet, "/mentor-news", nil),
		principal.Principal{ID: "m1", Role: principal.RoleMentor})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
