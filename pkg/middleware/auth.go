package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/tasklist/pkg/audit"
	"github.com/platinummonkey/tasklist/pkg/auth"
	"github.com/platinummonkey/tasklist/pkg/contextkeys"
	"github.com/platinummonkey/tasklist/pkg/httputil"
	"github.com/platinummonkey/tasklist/pkg/observability"
)

// AuthMiddleware authenticates bearer tokens and resolves the requester
type AuthMiddleware struct {
	gate        *auth.Gate
	auditLogger audit.Logger
	metrics     *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(gate *auth.Gate, auditLogger audit.Logger, metrics *observability.Metrics) *AuthMiddleware {
	if auditLogger == nil {
		auditLogger = audit.NoOp()
	}
	return &AuthMiddleware{
		gate:        gate,
		auditLogger: auditLogger,
		metrics:     metrics,
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Handler verifies the token, loads the identity it names and stores both in
// the request context. Any failure is a 401.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := observability.FromContext(ctx)

		token, ok := BearerToken(r)
		if !ok {
			m.metrics.RecordAccess("unauthenticated")
			httputil.WriteUnauthorized(w, "missing or malformed authorization header")
			return
		}

		claims, err := m.gate.Authorize(token)
		if err != nil {
			m.reject(r, "", err.Error())
			log.WithError(err).Debug("Token rejected")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		identity, err := m.gate.ResolveIdentity(ctx, claims)
		if err != nil {
			if errors.Is(err, auth.ErrUnknownIdentity) || errors.Is(err, auth.ErrUnauthenticated) {
				m.reject(r, claims.Subject, err.Error())
				httputil.WriteUnauthorized(w, "invalid or expired token")
				return
			}
			log.WithError(err).Error("Failed to resolve identity")
			httputil.WriteInternalError(w)
			return
		}

		ctx = contextkeys.WithClaims(ctx, claims)
		ctx = contextkeys.WithIdentity(ctx, identity)
		ctx = observability.WithUserID(ctx, identity.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(r *http.Request, subject, reason string) {
	m.metrics.RecordAccess("unauthenticated")
	_ = m.auditLogger.LogAuthentication(r.Context(), audit.EventTypeAuthTokenReject, subject, "", audit.EventStatusFailure, reason)
}

// GetClaims extracts the verified claim set from the request
func GetClaims(r *http.Request) *auth.ClaimSet {
	claims, _ := contextkeys.GetClaims(r.Context())
	return claims
}

// GetIdentity extracts the requesting identity from the request
func GetIdentity(r *http.Request) *auth.Identity {
	identity, _ := contextkeys.GetIdentity(r.Context())
	return identity
}

// RequireRole rejects requests whose identity lacks role. Roles come from the
// store-resolved identity, so a revoked role takes effect before the token
// expires.
func RequireRole(role auth.Role, auditLogger audit.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	if auditLogger == nil {
		auditLogger = audit.NoOp()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if identity == nil {
				metrics.RecordAccess("unauthenticated")
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if !identity.HasRole(role) {
				metrics.RecordAccess("forbidden")
				observability.FromContext(r.Context()).
					WithField("required_role", string(role)).
					Warn("Role check failed")
				_ = auditLogger.LogAuthorization(r.Context(), audit.EventTypeAuthzAccessDenied,
					identity.ID, audit.ResourceTypeRole, string(role), audit.EventStatusDenied, "missing role "+string(role))
				httputil.WriteForbidden(w, "insufficient role permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
