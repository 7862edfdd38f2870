package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
)

// Credentials supplies the token signing secret and issuer. The secret may be
// rotated at runtime when backed by a watched file.
type Credentials struct {
	issuer string

	mu     sync.RWMutex
	secret []byte

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// TokenSecret returns the current signing secret. A nil return means signing
// is unavailable.
func (c *Credentials) TokenSecret() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.secret
}

// TokenIssuer returns the expected token issuer
func (c *Credentials) TokenIssuer() string {
	return c.issuer
}

// Close stops the file watcher, if any
func (c *Credentials) Close() error {
	if c.watcher == nil {
		return nil
	}
	close(c.done)
	return c.watcher.Close()
}

// NewCredentials builds a Credentials from the auth configuration. When
// SecretFile is set the file contents are loaded and watched for rotation;
// otherwise the inline secret is used as-is.
func NewCredentials(cfg AuthConfig, logger *observability.Logger) (*Credentials, error) {
	creds := &Credentials{issuer: cfg.Issuer}

	if cfg.SecretFile == "" {
		if cfg.Secret == "" {
			return nil, fmt.Errorf("no token secret configured")
		}
		creds.secret = []byte(cfg.Secret)
		return creds, nil
	}

	secret, err := readSecretFile(cfg.SecretFile)
	if err != nil {
		return nil, err
	}
	creds.secret = secret

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create secret watcher: %w", err)
	}

	// Watch the directory rather than the file itself so atomic
	// rename-into-place rotation (and kubernetes secret mounts) are seen.
	dir := filepath.Dir(cfg.SecretFile)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch secret directory %s: %w", dir, err)
	}

	creds.watcher = watcher
	creds.done = make(chan struct{})

	go creds.watch(cfg.SecretFile, logger)

	return creds, nil
}

func (c *Credentials) watch(path string, logger *observability.Logger) {
	for {
		select {
		case <-c.done:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			secret, err := readSecretFile(path)
			if err != nil {
				logger.WithError(err).Warn("secret reload failed, keeping previous secret")
				continue
			}
			c.mu.Lock()
			changed := !bytes.Equal(c.secret, secret)
			c.secret = secret
			c.mu.Unlock()
			if changed {
				logger.Info("token signing secret rotated")
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			logger.WithError(err).Warn("secret watcher error")
		}
	}
}

func readSecretFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	secret := bytes.TrimSpace(data)
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}
