package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// StoreChecker is anything that can report whether its backing store is reachable
type StoreChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker provides liveness and readiness probes
type HealthChecker struct {
	store   StoreChecker
	redis   *redis.Client
	version string
	timeout time.Duration
}

// NewHealthChecker creates a new health checker. Either dependency may be nil.
func NewHealthChecker(store StoreChecker, redis *redis.Client, version string) *HealthChecker {
	return &HealthChecker{
		store:   store,
		redis:   redis,
		version: version,
		timeout: 5 * time.Second,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness always returns 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness returns 503 when the store is unreachable. A Redis outage only
// degrades the service since the identity cache falls through to the store.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, code, status)
}

// Check runs every dependency probe
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.store != nil {
		dep := probe(func() error { return h.store.HealthCheck(ctx) })
		status.Dependencies["store"] = dep
		if dep.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
		}
	}

	if h.redis != nil {
		dep := probe(func() error { return h.redis.Ping(ctx).Err() })
		status.Dependencies["redis"] = dep
		if dep.Status == StatusUnhealthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func probe(fn func() error) DependencyStatus {
	start := time.Now()
	err := fn()
	dep := DependencyStatus{
		Status:    StatusHealthy,
		LatencyMS: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}

func writeHealthJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// RegisterHealthRoutes mounts /health/live and /health/ready on mux
func (h *HealthChecker) RegisterHealthRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health/live", h.Liveness)
	mux.HandleFunc("/health/ready", h.Readiness)
}
