package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jschmidtnj/ewaab-sub000/pkg/accounts"
	"github.com/jschmidtnj/ewaab-sub000/pkg/audit"
	"github.com/jschmidtnj/ewaab-sub000/pkg/httputil"
	"github.com/jschmidtnj/ewaab-sub000/pkg/middleware"
	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
)

// defaultVisitorCodeTTL bounds codes minted without an explicit lifetime
const defaultVisitorCodeTTL = 24 * time.Hour

// AdminHandlers handles the admin-only account management endpoints
type AdminHandlers struct {
	store   AccountStore
	trail   *audit.Trail
	metrics *observability.Metrics

	// now is the clock for visitor-code expiry. Overridable in tests.
	now func() time.Time
}

// NewAdminHandlers creates the admin handler set. trail and metrics may be nil.
func NewAdminHandlers(store AccountStore, trail *audit.Trail, metrics *observability.Metrics) *AdminHandlers {
	if trail == nil {
		trail = audit.NewTrail(nil)
	}
	return &AdminHandlers{
		store:   store,
		trail:   trail,
		metrics: metrics,
		now:     time.Now,
	}
}

// RegisterRoutes registers the admin routes, all behind the admin gate
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/admin/users",
		middleware.RequireAdmin(http.HandlerFunc(h.createUser))).Methods("POST")
	router.Handle("/admin/visitor-codes",
		middleware.RequireAdmin(http.HandlerFunc(h.createVisitorCode))).Methods("POST")
}

// createUser handles POST /admin/users
func (h *AdminHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r)

	var req createUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	role := principal.Role(req.Role)
	if req.Role == "" {
		role = principal.RoleUser
	}
	if !role.Durable() {
		httputil.WriteBadRequest(w, "role must be user, mentor, thirdParty or admin")
		return
	}

	ctx := r.Context()

	user, err := h.store.CreateUser(ctx, req.Email, req.Password, role)
	if err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			httputil.WriteConflict(w, "email already registered")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.UsersTotal.Inc()
	}
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"account": user.ID,
		"role":    string(user.Role),
	}).Info("account created")
	h.trail.UserCreated(ctx, r, p.ID, user.ID, string(user.Role))
	httputil.WriteCreated(w, user)
}

// createVisitorCode handles POST /admin/visitor-codes. The returned
// credential is shown exactly once; only its hash is stored.
func (h *AdminHandlers) createVisitorCode(w http.ResponseWriter, r *http.Request) {
	var req createVisitorCodeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !httputil.ParseJSONOrError(w, r, &req) {
			return
		}
	}
	if req.TTLSeconds < 0 {
		httputil.WriteBadRequest(w, "ttlSeconds must not be negative")
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl == 0 {
		ttl = defaultVisitorCodeTTL
	}

	code, credential, err := h.store.CreateVisitorCode(r.Context(), h.now().Add(ttl))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.VisitorCodesActive.Inc()
	}
	httputil.WriteCreated(w, createVisitorCodeResponse{
		ID:         code.ID,
		Credential: credential,
		ExpiresAt:  code.ExpiresAt,
	})
}
