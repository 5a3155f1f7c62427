package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics mirrors the key request and auth counters onto the OTel meter
// so they reach the OTLP collector alongside traces.
type OTelMetrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	authAttemptsTotal   metric.Int64Counter
}

// NewOTelMetrics creates instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/platinummonkey/tasklist")

	m := &OTelMetrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	m.authAttemptsTotal, err = meter.Int64Counter(
		"tasklist.auth.attempts",
		metric.WithDescription("Login and registration attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth attempts counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records a completed request
func (m *OTelMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAuth records a login or registration outcome
func (m *OTelMetrics) RecordAuth(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.authAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// OTelHTTPMiddleware records request metrics on the OTel meter
func OTelHTTPMiddleware(m *OTelMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			m.RecordHTTPRequest(r.Context(), r.Method, routeLabel(r), rw.statusCode, time.Since(start))
		})
	}
}
