package api

import (
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jschmidtnj/ewaab-sub000/pkg/audit"
	"github.com/jschmidtnj/ewaab-sub000/pkg/config"
	"github.com/jschmidtnj/ewaab-sub000/pkg/media"
	"github.com/jschmidtnj/ewaab-sub000/pkg/middleware"
	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/session"
	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

// maxRequestBody caps request bodies; no auth request legitimately
// approaches this
const maxRequestBody = 1 << 20

// Deps carries everything the server needs. Trail, Metrics and LoginLimit
// may be nil; Tracing is off unless ServiceName is set.
type Deps struct {
	Store    AccountStore
	Sessions *session.Manager
	Codec    *token.Codec
	Media    *media.Issuer
	Trail    *audit.Trail
	Metrics  *observability.Metrics
	Logger   *observability.Logger

	// LoginLimit wraps the credential endpoints, usually built with
	// middleware.NewLoginLimit
	LoginLimit func(http.Handler) http.Handler

	// ServiceName enables OTel tracing of every request when non-empty
	ServiceName string
}

// Server is the authentication API server
type Server struct {
	router *mux.Router
	logger *observability.Logger
}

// NewServer assembles the router, middleware chain and handler sets
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: deps.Logger,
	}

	resolver := principal.NewResolver(deps.Codec)

	authHandlers := NewAuthHandlers(deps.Store, deps.Sessions, deps.Codec, deps.Media,
		deps.Trail, deps.Metrics, deps.Logger, cfg.Auth, cfg.Bootstrap)
	authHandlers.loginLimit = deps.LoginLimit
	adminHandlers := NewAdminHandlers(deps.Store, deps.Trail, deps.Metrics)

	authHandlers.RegisterRoutes(s.router)
	adminHandlers.RegisterRoutes(s.router)

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Recovery(deps.Logger),
	}
	if deps.ServiceName != "" {
		chain = append(chain, middleware.Tracing(deps.ServiceName))
	}
	if deps.Metrics != nil {
		chain = append(chain, observability.HTTPMetricsMiddleware(deps.Metrics))
	}
	chain = append(chain,
		middleware.RequestLogger(deps.Logger),
		middleware.NewAuthMiddleware(resolver).Handler,
		middleware.MaxBytes(maxRequestBody),
	)
	s.router.Use(middleware.Chain(chain...))

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RouteRegistrar is implemented by handler sets that attach their own routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes attaches an additional handler set to the server's router
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}

// NewHTTPServer wraps the server in an http.Server with the configured
// listen address and timeouts
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
