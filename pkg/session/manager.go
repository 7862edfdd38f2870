package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

// Manager issues rotating refresh tokens and validates presented ones against
// the stored per-account version
type Manager struct {
	codec    *token.Codec
	versions VersionStore
	status   StatusLookup
	metrics  *observability.Metrics

	accessTTL  time.Duration
	refreshTTL time.Duration
	mediaTTL   time.Duration
}

// Config holds manager construction parameters. Zero TTLs fall back to the
// package defaults in pkg/token.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	MediaTTL   time.Duration
}

// NewManager creates a refresh/revocation manager. metrics may be nil.
func NewManager(codec *token.Codec, versions VersionStore, status StatusLookup, cfg Config, metrics *observability.Metrics) *Manager {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = token.AccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = token.RefreshTokenTTL
	}
	if cfg.MediaTTL <= 0 {
		cfg.MediaTTL = token.MediaTokenTTL
	}
	return &Manager{
		codec:      codec,
		versions:   versions,
		status:     status,
		metrics:    metrics,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		mediaTTL:   cfg.MediaTTL,
	}
}

// RefreshResult carries the tokens issued by a successful refresh. The
// refresh token itself travels via an httpOnly cookie managed by the caller;
// the access token goes in the response body.
type RefreshResult struct {
	AccessToken string `json:"accessToken"`
	MediaToken  string `json:"mediaToken"`

	// AccountID identifies the refreshed account for audit purposes; it
	// never goes over the wire
	AccountID string `json:"-"`
}

// IssueRefreshToken wraps the codec, binding the token to the account's
// current version
func (m *Manager) IssueRefreshToken(id string, tokenVersion int64, role principal.Role) (string, error) {
	return m.codec.SignRefresh(id, tokenVersion, string(role), m.refreshTTL)
}

// HandleRefresh validates a presented refresh token and, when its embedded
// version matches the stored one, issues a fresh access token and a
// one-hour media-access token.
func (m *Manager) HandleRefresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := m.codec.VerifyRefresh(refreshToken)
	if err != nil {
		m.count("invalid")
		return nil, err
	}

	role := principal.Role(claims.Role)
	visitor := role == principal.RoleVisitor

	stored, err := m.versions.Version(ctx, claims.ID, visitor)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			m.count("account_missing")
			return nil, err
		}
		m.count("store_error")
		return nil, fmt.Errorf("failed to read token version: %w", err)
	}

	if stored != claims.TokenVersion {
		m.count("stale")
		return nil, fmt.Errorf("%w: stored version %d, token version %d", ErrStaleToken, stored, claims.TokenVersion)
	}

	emailVerified := false
	if !visitor && m.status != nil {
		emailVerified, err = m.status.EmailVerified(ctx, claims.ID, visitor)
		if err != nil {
			m.count("store_error")
			return nil, fmt.Errorf("failed to read account status: %w", err)
		}
	}

	accessToken, err := m.codec.SignAccess(claims.ID, claims.Role, emailVerified, m.accessTTL)
	if err != nil {
		m.count("sign_error")
		return nil, err
	}

	mediaToken, err := m.codec.SignMedia(claims.ID, claims.Role, "", m.mediaTTL)
	if err != nil {
		m.count("sign_error")
		return nil, err
	}

	m.count("ok")
	return &RefreshResult{
		AccessToken: accessToken,
		MediaToken:  mediaToken,
		AccountID:   claims.ID,
	}, nil
}

// Revoke invalidates every outstanding refresh token for the account by
// atomically incrementing its stored version
func (m *Manager) Revoke(ctx context.Context, id string, visitor bool) error {
	if _, err := m.versions.Increment(ctx, id, visitor); err != nil {
		return fmt.Errorf("failed to revoke sessions for %q: %w", id, err)
	}
	if m.metrics != nil {
		m.metrics.SessionRevocationsTotal.Inc()
	}
	return nil
}

func (m *Manager) count(outcome string) {
	if m.metrics != nil {
		m.metrics.TokenRefreshTotal.WithLabelValues(outcome).Inc()
	}
}
