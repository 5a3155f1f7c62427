package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/httputil"
	"github.com/platinummonkey/tasklist/pkg/observability"
)

// Credentials is the body of register and login requests
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the body of a successful login
type TokenResponse struct {
	Token string `json:"token"`
}

// AuthHandlers handles registration and login
type AuthHandlers struct {
	authenticator *auth.Authenticator
	metrics       *observability.Metrics
	otelMetrics   *observability.OTelMetrics
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authenticator *auth.Authenticator, metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) *AuthHandlers {
	return &AuthHandlers{
		authenticator: authenticator,
		metrics:       metrics,
		otelMetrics:   otelMetrics,
	}
}

// RegisterRoutes registers authentication routes behind wrap
func (h *AuthHandlers) RegisterRoutes(router *mux.Router, wrap func(http.Handler) http.Handler) {
	router.Handle("/auth/register", wrap(http.HandlerFunc(h.register))).Methods("POST")
	router.Handle("/auth/login", wrap(http.HandlerFunc(h.login))).Methods("POST")
}

func (h *AuthHandlers) record(r *http.Request, operation, outcome string) {
	h.metrics.RecordAuth(operation, outcome)
	h.otelMetrics.RecordAuth(r.Context(), operation, outcome)
}

// register handles POST /auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.record(r, "register", observability.OutcomeInvalid)
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	identity, err := h.authenticator.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			h.record(r, "register", observability.OutcomeInvalid)
			observability.FromContext(r.Context()).WithField("reason", auth.ValidationMessage(err, "")).Warn("Registration rejected")
		case errors.Is(err, auth.ErrDuplicateIdentity):
			h.record(r, "register", observability.OutcomeDuplicate)
			observability.FromContext(r.Context()).Warn("Registration for existing email")
		default:
			h.record(r, "register", observability.OutcomeError)
		}
		writeError(w, r, err)
		return
	}

	h.record(r, "register", observability.OutcomeSuccess)
	observability.FromContext(r.Context()).WithField("user_id", identity.ID).Info("Registered new identity")
	httputil.WriteOK(w)
}

// login handles POST /auth/login. Every credential failure gets the same
// status and message.
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.record(r, "login", observability.OutcomeInvalid)
		httputil.WriteUnauthorized(w, msgBadCredentials)
		return
	}

	token, err := h.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if auth.IsCredentialError(err) {
			h.record(r, "login", observability.OutcomeRejected)
			httputil.WriteUnauthorized(w, msgBadCredentials)
			return
		}
		h.record(r, "login", observability.OutcomeError)
		writeError(w, r, err)
		return
	}

	h.record(r, "login", observability.OutcomeSuccess)
	_ = httputil.WriteSuccess(w, TokenResponse{Token: token.Token})
}
