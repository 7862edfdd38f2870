package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jschmidtnj/ewaab-sub000/pkg/accounts"
	"github.com/jschmidtnj/ewaab-sub000/pkg/audit"
	"github.com/jschmidtnj/ewaab-sub000/pkg/config"
	"github.com/jschmidtnj/ewaab-sub000/pkg/httputil"
	"github.com/jschmidtnj/ewaab-sub000/pkg/media"
	"github.com/jschmidtnj/ewaab-sub000/pkg/middleware"
	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/session"
	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

// refreshCookieName is the httpOnly cookie carrying the refresh token for
// browser clients
const refreshCookieName = "refreshToken"

// bootstrapID is the synthetic account id used by pseudo-admin bootstrap
// logins. No such row exists in the store, so bootstrap sessions cannot be
// refreshed; they live exactly one access-token lifetime.
const bootstrapID = "bootstrap"

// AuthHandlers handles the authentication and token-lifecycle endpoints
type AuthHandlers struct {
	store     AccountStore
	sessions  *session.Manager
	codec     *token.Codec
	media     *media.Issuer
	trail     *audit.Trail
	metrics   *observability.Metrics
	logger    *observability.Logger
	auth      config.AuthConfig
	bootstrap config.BootstrapConfig

	// loginLimit, when set, rate limits the login endpoints per client IP
	loginLimit func(http.Handler) http.Handler
}

// NewAuthHandlers creates the auth handler set. trail and metrics may be nil.
func NewAuthHandlers(store AccountStore, sessions *session.Manager, codec *token.Codec,
	mediaIssuer *media.Issuer, trail *audit.Trail, metrics *observability.Metrics,
	logger *observability.Logger, authCfg config.AuthConfig, bootstrapCfg config.BootstrapConfig) *AuthHandlers {
	if trail == nil {
		trail = audit.NewTrail(nil)
	}
	return &AuthHandlers{
		store:     store,
		sessions:  sessions,
		codec:     codec,
		media:     mediaIssuer,
		trail:     trail,
		metrics:   metrics,
		logger:    logger,
		auth:      authCfg,
		bootstrap: bootstrapCfg,
	}
}

// RegisterRoutes registers the authentication routes. Login endpoints are
// the brute-force surface, so they alone go through the rate limiter.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	limit := func(next http.Handler) http.Handler { return next }
	if h.loginLimit != nil {
		limit = h.loginLimit
	}

	router.Handle("/auth/login", limit(http.HandlerFunc(h.login))).Methods("POST")
	router.Handle("/auth/login/visitor", limit(http.HandlerFunc(h.visitorLogin))).Methods("POST")
	router.HandleFunc("/auth/refresh", h.refresh).Methods("POST")
	router.HandleFunc("/auth/register", h.register).Methods("POST")
	router.HandleFunc("/auth/verify-email", h.verifyEmail).Methods("POST")
	router.HandleFunc("/auth/password-reset", h.passwordReset).Methods("POST")

	router.Handle("/auth/revoke",
		middleware.RequireAuthenticated(http.HandlerFunc(h.revoke))).Methods("POST")
	router.Handle("/auth/me",
		middleware.RequireAuthenticated(http.HandlerFunc(h.me))).Methods("GET")
	router.Handle("/auth/media-token",
		middleware.RequireAuthenticated(http.HandlerFunc(h.mediaToken))).Methods("POST")
	router.Handle("/auth/tokens/action",
		middleware.RequireAdmin(http.HandlerFunc(h.actionToken))).Methods("POST")
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	ctx := r.Context()

	if h.bootstrapLogin(w, r, req) {
		return
	}

	user, err := h.store.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.countLogin("password", "failure")
		h.trail.LoginFailed(ctx, r, req.Email, err)
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "invalid credentials")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	resp, err := h.issueSession(user.ID, string(user.Role), user.EmailVerified, user.TokenVersion)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.setRefreshCookie(w, resp.RefreshToken)
	h.countLogin("password", "success")
	h.trail.LoginSucceeded(ctx, r, user.ID, string(user.Role))
	httputil.WriteSuccess(w, resp)
}

// bootstrapLogin handles the pseudo-admin path: while the account store is
// empty, the configured bootstrap credentials log in as an admin principal.
// Returns true when it wrote a response.
func (h *AuthHandlers) bootstrapLogin(w http.ResponseWriter, r *http.Request, req loginRequest) bool {
	if h.bootstrap.AdminEmail == "" || req.Email != h.bootstrap.AdminEmail {
		return false
	}

	count, err := h.store.CountUsers(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return true
	}
	if count > 0 {
		// A populated store retires the bootstrap credentials entirely;
		// fall through to the ordinary lookup, which will reject them
		return false
	}

	if req.Password != h.bootstrap.AdminPassword {
		h.countLogin("bootstrap", "failure")
		h.trail.LoginFailed(r.Context(), r, req.Email, accounts.ErrInvalidCredentials)
		httputil.WriteUnauthorized(w, "invalid credentials")
		return true
	}

	// No backing row means no token version to bind a refresh token to, so
	// a bootstrap session gets an access token only
	accessToken, err := h.codec.SignAccess(bootstrapID, string(principal.RoleAdmin), true, h.auth.AccessTTL)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return true
	}

	h.countLogin("bootstrap", "success")
	h.countIssued("access")
	h.trail.BootstrapLogin(r.Context(), r)
	httputil.WriteSuccess(w, loginResponse{
		AccessToken: accessToken,
		Role:        principal.RoleAdmin,
	})
	return true
}

// visitorLogin handles POST /auth/login/visitor
func (h *AuthHandlers) visitorLogin(w http.ResponseWriter, r *http.Request) {
	var req visitorLoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Code == "" {
		httputil.WriteBadRequest(w, "code is required")
		return
	}

	ctx := r.Context()

	code, err := h.store.AuthenticateVisitor(ctx, req.Code)
	if err != nil {
		h.countLogin("visitor", "failure")
		h.trail.VisitorLogin(ctx, r, "", audit.EventStatusFailure)
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "invalid credentials")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	resp, err := h.issueSession(code.ID, string(principal.RoleVisitor), false, code.TokenVersion)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.setRefreshCookie(w, resp.RefreshToken)
	h.countLogin("visitor", "success")
	h.trail.VisitorLogin(ctx, r, code.ID, audit.EventStatusSuccess)
	httputil.WriteSuccess(w, resp)
}

// issueSession signs the access/refresh/media token triple for a fresh login
func (h *AuthHandlers) issueSession(id, role string, emailVerified bool, tokenVersion int64) (*loginResponse, error) {
	accessToken, err := h.codec.SignAccess(id, role, emailVerified, h.auth.AccessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := h.sessions.IssueRefreshToken(id, tokenVersion, principal.Role(role))
	if err != nil {
		return nil, err
	}
	mediaToken, err := h.codec.SignMedia(id, role, "", h.auth.MediaTTL)
	if err != nil {
		return nil, err
	}

	h.countIssued("access")
	h.countIssued("refresh")
	h.countIssued("media")

	return &loginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		MediaToken:   mediaToken,
		Role:         principal.Role(role),
	}, nil
}

// refresh handles POST /auth/refresh. The refresh token comes from the
// request body or, for browser clients, the refreshToken cookie.
func (h *AuthHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !httputil.ParseJSONOrError(w, r, &req) {
			return
		}
	}
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "refresh token is required")
		return
	}

	ctx := r.Context()

	result, err := h.sessions.HandleRefresh(ctx, req.RefreshToken)
	if err != nil {
		h.trail.RefreshRejected(ctx, r, err)
		switch {
		case errors.Is(err, token.ErrExpiredToken):
			httputil.WriteUnauthorized(w, "refresh token expired")
		case errors.Is(err, token.ErrInvalidToken),
			errors.Is(err, token.ErrMalformedPayload),
			errors.Is(err, session.ErrStaleToken),
			errors.Is(err, session.ErrAccountNotFound):
			httputil.WriteUnauthorized(w, "invalid refresh token")
		default:
			httputil.WriteInternalError(w, err)
		}
		return
	}

	h.trail.Refreshed(ctx, r, result.AccountID)
	h.countIssued("access")
	h.countIssued("media")
	httputil.WriteSuccess(w, result)
}

// revoke handles POST /auth/revoke. Without a body it revokes the caller's
// own sessions; revoking another account requires admin.
func (h *AuthHandlers) revoke(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r)

	var req revokeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !httputil.ParseJSONOrError(w, r, &req) {
			return
		}
	}

	targetID := req.ID
	visitor := req.Visitor
	if targetID == "" {
		targetID = p.ID
		visitor = p.Role == principal.RoleVisitor
	}

	if targetID != p.ID && !p.IsAdmin() {
		httputil.WriteForbidden(w, "only admins may revoke other accounts")
		return
	}
	if targetID == "" {
		httputil.WriteBadRequest(w, "no account to revoke")
		return
	}

	ctx := r.Context()
	if err := h.sessions.Revoke(ctx, targetID, visitor); err != nil {
		if errors.Is(err, session.ErrAccountNotFound) {
			httputil.WriteNotFound(w, "account not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.trail.Revoked(ctx, r, p.ID, targetID)
	httputil.WriteNoContent(w)
}

// me handles GET /auth/me
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r)

	resp := meResponse{
		ID:            p.ID,
		Role:          p.Role,
		EmailVerified: p.EmailVerified,
	}

	// Durable accounts get their stored profile; visitors and the bootstrap
	// principal have no row to read
	if p.Role.Durable() && p.ID != bootstrapID {
		user, err := h.store.UserByID(r.Context(), p.ID)
		if err == nil {
			resp.Email = user.Email
			resp.EmailVerified = user.EmailVerified
		} else if !errors.Is(err, session.ErrAccountNotFound) {
			httputil.WriteInternalError(w, err)
			return
		}
	}

	httputil.WriteSuccess(w, resp)
}

// mediaToken handles POST /auth/media-token
func (h *AuthHandlers) mediaToken(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r)

	var req mediaTokenRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !httputil.ParseJSONOrError(w, r, &req) {
			return
		}
	}
	if req.TTLSeconds < 0 {
		httputil.WriteBadRequest(w, "ttlSeconds must not be negative")
		return
	}

	// Zero TTL is deliberate here: an explicitly requested media token does
	// not expire, its scope is the only limit
	ttl := time.Duration(req.TTLSeconds) * time.Second

	tok, err := h.media.Issue(p, req.MediaID, ttl)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.countIssued("media")
	h.trail.TokenIssued(r.Context(), r, p.ID, "media")
	httputil.WriteSuccess(w, mediaTokenResponse{MediaToken: tok})
}

// actionToken handles POST /auth/tokens/action (admin only)
func (h *AuthHandlers) actionToken(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r)

	var req actionTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}

	var purpose token.Purpose
	switch req.Purpose {
	case string(token.PurposeInvite):
		purpose = token.PurposeInvite
	case string(token.PurposeVerifyEmail):
		purpose = token.PurposeVerifyEmail
	case string(token.PurposePasswordReset):
		purpose = token.PurposePasswordReset
	default:
		httputil.WriteBadRequest(w, "purpose must be invite, verifyEmail or passwordReset")
		return
	}

	ctx := r.Context()

	// Invites identify the invitee by email alone; the other purposes act
	// on an existing account and embed its id
	id := ""
	if purpose != token.PurposeInvite {
		user, err := h.store.UserByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, session.ErrAccountNotFound) {
				httputil.WriteNotFound(w, "no account for that email")
				return
			}
			httputil.WriteInternalError(w, err)
			return
		}
		id = user.ID
	}

	tok, err := h.codec.SignAction(purpose, id, req.Email, h.auth.ActionTTL)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.countIssued(string(purpose))
	h.trail.TokenIssued(ctx, r, p.ID, string(purpose))
	httputil.WriteSuccess(w, actionTokenResponse{Token: tok})
}

// register handles POST /auth/register, consuming an invite token
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Token == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "token and password are required")
		return
	}

	claims, err := h.codec.VerifyAction(req.Token, token.PurposeInvite)
	if err != nil {
		h.writeActionTokenError(w, err)
		return
	}
	if claims.Email == "" {
		httputil.WriteUnauthorized(w, "invalid invite token")
		return
	}

	ctx := r.Context()

	user, err := h.store.CreateUser(ctx, claims.Email, req.Password, principal.RoleUser)
	if err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			httputil.WriteConflict(w, "email already registered")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	// Holding the invite token proves control of the mailbox
	if err := h.store.SetEmailVerified(ctx, user.ID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	user.EmailVerified = true

	h.trail.UserCreated(ctx, r, "", user.ID, string(user.Role))
	httputil.WriteCreated(w, user)
}

// verifyEmail handles POST /auth/verify-email
func (h *AuthHandlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Token == "" {
		httputil.WriteBadRequest(w, "token is required")
		return
	}

	claims, err := h.codec.VerifyAction(req.Token, token.PurposeVerifyEmail)
	if err != nil {
		h.writeActionTokenError(w, err)
		return
	}

	ctx := r.Context()
	if err := h.store.SetEmailVerified(ctx, claims.ID); err != nil {
		if errors.Is(err, session.ErrAccountNotFound) {
			httputil.WriteNotFound(w, "account not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.trail.EmailVerified(ctx, r, claims.ID)
	httputil.WriteNoContent(w)
}

// passwordReset handles POST /auth/password-reset. A successful reset also
// revokes every outstanding refresh token for the account.
func (h *AuthHandlers) passwordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Token == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "token and password are required")
		return
	}

	claims, err := h.codec.VerifyAction(req.Token, token.PurposePasswordReset)
	if err != nil {
		h.writeActionTokenError(w, err)
		return
	}

	ctx := r.Context()
	if err := h.store.UpdatePassword(ctx, claims.ID, req.Password); err != nil {
		if errors.Is(err, session.ErrAccountNotFound) {
			httputil.WriteNotFound(w, "account not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	// A stolen refresh token must not survive the reset that was meant to
	// lock the thief out
	if err := h.sessions.Revoke(ctx, claims.ID, false); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.trail.PasswordReset(ctx, r, claims.ID)
	httputil.WriteNoContent(w)
}

func (h *AuthHandlers) writeActionTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		httputil.WriteUnauthorized(w, "token expired")
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrMalformedPayload):
		httputil.WriteUnauthorized(w, "invalid token")
	default:
		httputil.WriteInternalError(w, err)
	}
}

func (h *AuthHandlers) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	if refreshToken == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/auth/refresh",
		MaxAge:   int(h.auth.RefreshTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) countLogin(method, outcome string) {
	if h.metrics != nil {
		h.metrics.LoginTotal.WithLabelValues(method, outcome).Inc()
	}
}

func (h *AuthHandlers) countIssued(purpose string) {
	if h.metrics != nil {
		h.metrics.TokensIssuedTotal.WithLabelValues(purpose).Inc()
	}
}
