package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

func newTestIssuer() *Issuer {
	codec := token.NewCodec(token.StaticCredentials{
		Secret: []byte("test-secret-0123456789abcdef"),
		Issuer: "ewaab-test",
	})
	return NewIssuer(codec)
}

func TestIssuer_ScopedToken(t *testing.T) {
	issuer := newTestIssuer()
	p := principal.Principal{ID: "u1", Role: principal.RoleUser}

	tok, err := issuer.Issue(p, "media-42", token.MediaTokenTTL)
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)

	assert.True(t, Authorized(claims, "media-42", "u9"))
	assert.False(t, Authorized(claims, "media-43", "u9"))
	// A scoped token never falls back to profile-media access
	assert.False(t, Authorized(claims, "media-43", "u1"))
}

func TestIssuer_UnscopedProfileToken(t *testing.T) {
	issuer := newTestIssuer()
	p := principal.Principal{ID: "u1", Role: principal.RoleUser}

	tok, err := issuer.Issue(p, "", 0)
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)

	// Unscoped tokens cover only objects the bearer owns
	assert.True(t, Authorized(claims, "avatar-1", "u1"))
	assert.False(t, Authorized(claims, "avatar-2", "u2"))
}

func TestIssuer_RejectsOtherPurposes(t *testing.T) {
	codec := token.NewCodec(token.StaticCredentials{
		Secret: []byte("test-secret-0123456789abcdef"),
		Issuer: "ewaab-test",
	})
	issuer := NewIssuer(codec)

	accessToken, err := codec.SignAccess("u1", "user", true, time.Hour)
	require.NoError(t, err)

	_, err = issuer.Verify(accessToken)
	assert.ErrorIs(t, err, token.ErrMalformedPayload)
}
