package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
)

func quietLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
}

func TestNewCredentialsInline(t *testing.T) {
	creds, err := NewCredentials(AuthConfig{Issuer: "ewaab", Secret: "inline-secret"}, quietLogger())
	require.NoError(t, err)
	defer creds.Close()

	assert.Equal(t, []byte("inline-secret"), creds.TokenSecret())
	assert.Equal(t, "ewaab", creds.TokenIssuer())
}

func TestNewCredentialsNoSecret(t *testing.T) {
	_, err := NewCredentials(AuthConfig{Issuer: "ewaab"}, quietLogger())
	assert.Error(t, err)
}

func TestNewCredentialsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("file-secret\n"), 0o600))

	creds, err := NewCredentials(AuthConfig{Issuer: "ewaab", SecretFile: path}, quietLogger())
	require.NoError(t, err)
	defer creds.Close()

	// Trailing whitespace is stripped
	assert.Equal(t, []byte("file-secret"), creds.TokenSecret())
}

func TestNewCredentialsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := NewCredentials(AuthConfig{Issuer: "ewaab", SecretFile: path}, quietLogger())
	assert.Error(t, err)
}

func TestCredentialsRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("old-secret"), 0o600))

	creds, err := NewCredentials(AuthConfig{Issuer: "ewaab", SecretFile: path}, quietLogger())
	require.NoError(t, err)
	defer creds.Close()

	require.NoError(t, os.WriteFile(path, []byte("new-secret"), 0o600))

	assert.Eventually(t, func() bool {
		return bytes.Equal(creds.TokenSecret(), []byte("new-secret"))
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCredentialsRotationKeepsOldOnEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("good-secret"), 0o600))

	creds, err := NewCredentials(AuthConfig{Issuer: "ewaab", SecretFile: path}, quietLogger())
	require.NoError(t, err)
	defer creds.Close()

	// An empty write must not wipe the in-memory secret
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, []byte("good-secret"), creds.TokenSecret())
}
