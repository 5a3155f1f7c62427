package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/tasklist/pkg/audit"
	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/httputil"
	"github.com/platinummonkey/tasklist/pkg/middleware"
	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/todo"
)

// DefaultMaxBodyBytes caps request bodies when Config leaves it unset
const DefaultMaxBodyBytes int64 = 1 << 20

// Config wires the server's collaborators. Authenticator, Gate and Todos are
// required; everything else is optional.
type Config struct {
	Authenticator *auth.Authenticator
	Gate          *auth.Gate
	Todos         *todo.Service

	Logger      *observability.Logger
	Audit       audit.Logger
	Metrics     *observability.Metrics
	OTelMetrics *observability.OTelMetrics
	Tracing     bool

	// AuthLimiter throttles /auth by client address, APILimiter throttles
	// /todo by identity. Nil disables the limiter.
	AuthLimiter middleware.Limiter
	APILimiter  middleware.Limiter
	FailOpen    bool

	CORSOrigins  []string
	MaxBodyBytes int64
}

// Server represents the tasklist HTTP API
type Server struct {
	router  *mux.Router
	handler http.Handler

	authHandlers *AuthHandlers
	todoHandlers *TodoHandlers
}

// NewServer creates the API server and its routes
func NewServer(cfg Config) (*Server, error) {
	if cfg.Authenticator == nil || cfg.Gate == nil || cfg.Todos == nil {
		return nil, errors.New("api: authenticator, gate and todo service are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NoOp()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		router:       mux.NewRouter(),
		authHandlers: NewAuthHandlers(cfg.Authenticator, cfg.Metrics, cfg.OTelMetrics),
		todoHandlers: NewTodoHandlers(cfg.Todos),
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, msgRouteNotFound)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	if cfg.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(cfg.Metrics))
	}
	if cfg.OTelMetrics != nil {
		s.router.Use(observability.OTelHTTPMiddleware(cfg.OTelMetrics))
	}

	s.setupRoutes(cfg)

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware(cfg.Logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(cfg.CORSOrigins),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)(s.router)

	if cfg.Tracing {
		s.handler = otelhttp.NewHandler(s.handler, "tasklist",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	return s, nil
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(cfg Config) {
	var authChain []func(http.Handler) http.Handler
	if cfg.AuthLimiter != nil {
		authChain = append(authChain, middleware.NewRateLimitMiddleware(
			"auth", cfg.AuthLimiter, middleware.KeyByClientIP, cfg.FailOpen, cfg.Metrics).Handler)
	}
	s.authHandlers.RegisterRoutes(s.router, httputil.Chain(authChain...))

	protected := []func(http.Handler) http.Handler{
		middleware.NewAuthMiddleware(cfg.Gate, cfg.Audit, cfg.Metrics).Handler,
	}
	if cfg.APILimiter != nil {
		protected = append(protected, middleware.NewRateLimitMiddleware(
			"api", cfg.APILimiter, middleware.KeyByIdentity, cfg.FailOpen, cfg.Metrics).Handler)
	}
	s.todoHandlers.RegisterRoutes(s.router,
		httputil.Chain(protected...),
		middleware.RequireRole(auth.RoleAdmin, cfg.Audit, cfg.Metrics),
	)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}
