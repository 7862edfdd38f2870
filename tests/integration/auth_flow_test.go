//go:build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jschmidtnj/ewaab-sub000/pkg/accounts"
	"github.com/jschmidtnj/ewaab-sub000/pkg/api"
	"github.com/jschmidtnj/ewaab-sub000/pkg/config"
	"github.com/jschmidtnj/ewaab-sub000/pkg/media"
	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/session"
	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

// setupPostgres starts a throwaway PostgreSQL container and returns a
// migrated database handle
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("auth_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(cleanupCtx)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	store := accounts.NewStore(db)
	require.NoError(t, store.Migrate(ctx))

	return db
}

type env struct {
	db     *sql.DB
	store  *accounts.Store
	codec  *token.Codec
	server *httptest.Server
}

func setupEnv(t *testing.T) *env {
	t.Helper()

	db := setupPostgres(t)
	store := accounts.NewStore(db)
	codec := token.NewCodec(token.StaticCredentials{
		Secret: []byte("integration-secret"),
		Issuer: "ewaab",
	})

	cfg := &config.Config{
		Auth: config.AuthConfig{
			Issuer:     "ewaab",
			AccessTTL:  2 * time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
			MediaTTL:   time.Hour,
			ActionTTL:  24 * time.Hour,
		},
		Bootstrap: config.BootstrapConfig{
			AdminEmail:    "root@example.com",
			AdminPassword: "bootstrap-secret",
		},
	}

	sessions := session.NewManager(codec, store, store, session.Config{
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		MediaTTL:   cfg.Auth.MediaTTL,
	}, nil)

	server := api.NewServer(cfg, api.Deps{
		Store:    store,
		Sessions: sessions,
		Codec:    codec,
		Media:    media.NewIssuer(codec),
	})

	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)

	return &env{db: db, store: store, codec: codec, server: ts}
}

func (e *env) post(t *testing.T, path, accessToken string, body interface{}) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", e.server.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// TestFullAccountLifecycle walks bootstrap, account creation, login,
// refresh and revocation against a real database.
func TestFullAccountLifecycle(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	// Bootstrap login while the store is empty
	resp := e.post(t, "/auth/login", "", map[string]string{
		"email":    "root@example.com",
		"password": "bootstrap-secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bootstrap struct {
		AccessToken string `json:"accessToken"`
		Role        string `json:"role"`
	}
	decode(t, resp, &bootstrap)
	require.Equal(t, "admin", bootstrap.Role)

	// The bootstrap admin creates the first real account
	resp = e.post(t, "/admin/users", bootstrap.AccessToken, map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse",
		"role":     "admin",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Bootstrap credentials are dead now
	resp = e.post(t, "/auth/login", "", map[string]string{
		"email":    "root@example.com",
		"password": "bootstrap-secret",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Real login round-trips through bcrypt in the database
	resp = e.post(t, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decode(t, resp, &login)
	require.NotEmpty(t, login.RefreshToken)

	// Refresh works against the stored version
	resp = e.post(t, "/auth/refresh", "", map[string]string{"refreshToken": login.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Revocation bumps the version atomically in SQL
	resp = e.post(t, "/auth/revoke", login.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.post(t, "/auth/refresh", "", map[string]string{"refreshToken": login.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	user, err := e.store.UserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.TokenVersion)
}

// TestVisitorCodeLifecycle exercises code minting, exchange, revocation and
// the expiry sweep against a real database.
func TestVisitorCodeLifecycle(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	admin, err := e.store.CreateUser(ctx, "admin@example.com", "pw", principal.RoleAdmin)
	require.NoError(t, err)
	adminToken, err := e.codec.SignAccess(admin.ID, "admin", true, time.Hour)
	require.NoError(t, err)

	resp := e.post(t, "/admin/visitor-codes", adminToken, map[string]int{"ttlSeconds": 3600})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var minted struct {
		ID         string `json:"id"`
		Credential string `json:"credential"`
	}
	decode(t, resp, &minted)

	resp = e.post(t, "/auth/login/visitor", "", map[string]string{"code": minted.Credential})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		Role         string `json:"role"`
	}
	decode(t, resp, &login)
	assert.Equal(t, "visitor", login.Role)

	// Admin revokes the visitor's sessions
	resp = e.post(t, "/auth/revoke", adminToken, map[string]interface{}{
		"id": minted.ID, "visitor": true,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.post(t, "/auth/refresh", "", map[string]string{"refreshToken": login.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Expired codes disappear on sweep
	expired, _, err := e.store.CreateVisitorCode(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	swept, err := e.store.DeleteExpiredVisitorCodes(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, swept, int64(1))

	_, err = e.store.Version(ctx, expired.ID, true)
	assert.ErrorIs(t, err, session.ErrAccountNotFound)
}

// TestConcurrentRevocation checks the version bump is atomic under
// concurrent writers.
func TestConcurrentRevocation(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	user, err := e.store.CreateUser(ctx, "bob@example.com", "pw", principal.RoleUser)
	require.NoError(t, err)

	const writers = 10
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			_, err := e.store.Increment(ctx, user.ID, false)
			errs <- err
		}()
	}
	for i := 0; i < writers; i++ {
		require.NoError(t, <-errs)
	}

	version, err := e.store.Version(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), version)
}
