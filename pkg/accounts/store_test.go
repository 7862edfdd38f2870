package accounts

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestStore_CreateAndAuthenticate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice@example.com", "hunter22", principal.RoleUser)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.EmailVerified)
	assert.Equal(t, int64(0), user.TokenVersion)

	got, err := store.Authenticate(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// Wrong password and unknown email fail identically
	_, err = store.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = store.Authenticate(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStore_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, "alice@example.com", "hunter22", principal.RoleUser)
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, "alice@example.com", "other", principal.RoleMentor)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestStore_NonDurableRoleRejected(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateUser(context.Background(), "v@example.com", "pw", principal.RoleVisitor)
	assert.Error(t, err)
}

func TestStore_EmailVerification(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice@example.com", "hunter22", principal.RoleUser)
	require.NoError(t, err)

	verified, err := store.EmailVerified(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, verified)

	require.NoError(t, store.SetEmailVerified(ctx, user.ID))

	verified, err = store.EmailVerified(ctx, user.ID, false)
	require.NoError(t, err)
	assert.True(t, verified)

	assert.ErrorIs(t, store.SetEmailVerified(ctx, "missing"), session.ErrAccountNotFound)
}

func TestStore_PasswordReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice@example.com", "oldpw", principal.RoleUser)
	require.NoError(t, err)

	require.NoError(t, store.UpdatePassword(ctx, user.ID, "newpw"))

	_, err = store.Authenticate(ctx, "alice@example.com", "oldpw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = store.Authenticate(ctx, "alice@example.com", "newpw")
	assert.NoError(t, err)
}

func TestStore_VersionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice@example.com", "hunter22", principal.RoleUser)
	require.NoError(t, err)

	version, err := store.Version(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	bumped, err := store.Increment(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bumped)

	version, err = store.Version(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	_, err = store.Version(ctx, "missing", false)
	assert.ErrorIs(t, err, session.ErrAccountNotFound)
	_, err = store.Increment(ctx, "missing", false)
	assert.ErrorIs(t, err, session.ErrAccountNotFound)
}

func TestStore_VisitorCodeFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	code, credential, err := store.CreateVisitorCode(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, credential)

	got, err := store.AuthenticateVisitor(ctx, credential)
	require.NoError(t, err)
	assert.Equal(t, code.ID, got.ID)

	// Visitor codes live in their own version namespace
	version, err := store.Version(ctx, code.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	_, err = store.Version(ctx, code.ID, false)
	assert.ErrorIs(t, err, session.ErrAccountNotFound)

	// Revoking the code invalidates version-0 tokens
	bumped, err := store.Increment(ctx, code.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bumped)
}

func TestStore_VisitorCodeBadCredential(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, credential, err := store.CreateVisitorCode(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)

	id, _, err := ParseVisitorCredential(credential)
	require.NoError(t, err)

	for _, bad := range []string{"", "no-separator", id + ":wrong-secret", "unknown:secret"} {
		_, err := store.AuthenticateVisitor(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "credential %q", bad)
	}
}

func TestStore_ExpiredVisitorCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, credential, err := store.CreateVisitorCode(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)

	// Move past expiry: login and version reads both fail
	store.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = store.AuthenticateVisitor(ctx, credential)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	id, _, err := ParseVisitorCredential(credential)
	require.NoError(t, err)
	_, err = store.Version(ctx, id, true)
	assert.ErrorIs(t, err, session.ErrAccountNotFound)

	// Revocation agrees with reads: the expired code is already gone
	_, err = store.Increment(ctx, id, true)
	assert.ErrorIs(t, err, session.ErrAccountNotFound)
}

func TestStore_SweepExpiredVisitorCodes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.CreateVisitorCode(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, keepCredential, err := store.CreateVisitorCode(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)

	swept, err := store.DeleteExpiredVisitorCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	_, err = store.AuthenticateVisitor(ctx, keepCredential)
	assert.NoError(t, err)
}

func TestStore_CountUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = store.CreateUser(ctx, "alice@example.com", "pw", principal.RoleUser)
	require.NoError(t, err)

	count, err = store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestParseVisitorCredential(t *testing.T) {
	id, secret, err := ParseVisitorCredential("abc123:s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, "s3cr3t", secret)

	// Secrets may themselves contain colons
	id, secret, err = ParseVisitorCredential("abc123:with:colons")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, "with:colons", secret)

	for _, bad := range []string{"", "abc123", ":secret", "abc123:"} {
		_, _, err := ParseVisitorCredential(bad)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "credential %q", bad)
	}
}
