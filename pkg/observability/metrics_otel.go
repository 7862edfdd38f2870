package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Authentication metrics
	loginTotal        metric.Int64Counter
	tokensIssuedTotal metric.Int64Counter
	refreshTotal      metric.Int64Counter
	revocationsTotal  metric.Int64Counter

	// Authorization metrics
	authzDecisionsTotal metric.Int64Counter
	authzDecisionTime   metric.Float64Histogram

	// Database metrics
	dbConnectionsActive metric.Int64UpDownCounter
	dbQueryDuration     metric.Float64Histogram
}

// NewOTelMetrics creates a new OTel metrics instance
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/jschmidtnj/ewaab-sub000")

	m := &OTelMetrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration histogram: %w", err)
	}

	m.loginTotal, err = meter.Int64Counter(
		"auth.login.total",
		metric.WithDescription("Total number of login attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login_total counter: %w", err)
	}

	m.tokensIssuedTotal, err = meter.Int64Counter(
		"auth.tokens.issued",
		metric.WithDescription("Total number of tokens issued"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens_issued counter: %w", err)
	}

	m.refreshTotal, err = meter.Int64Counter(
		"auth.tokens.refreshed",
		metric.WithDescription("Total number of refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh_total counter: %w", err)
	}

	m.revocationsTotal, err = meter.Int64Counter(
		"auth.sessions.revoked",
		metric.WithDescription("Total number of session revocations"),
		metric.WithUnit("{revocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create revocations_total counter: %w", err)
	}

	m.authzDecisionsTotal, err = meter.Int64Counter(
		"authz.decisions.total",
		metric.WithDescription("Total number of authorization decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authz_decisions counter: %w", err)
	}

	m.authzDecisionTime, err = meter.Float64Histogram(
		"authz.decision.duration",
		metric.WithDescription("Authorization decision duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authz_decision_duration histogram: %w", err)
	}

	m.dbConnectionsActive, err = meter.Int64UpDownCounter(
		"db.connections.active",
		metric.WithDescription("Number of active database connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_connections_active gauge: %w", err)
	}

	m.dbQueryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_query_duration histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *OTelMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordLogin records a login attempt
func (m *OTelMetrics) RecordLogin(ctx context.Context, method string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("auth.method", method),
		attribute.Bool("auth.success", success),
	}
	m.loginTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTokenIssued records an issued token
func (m *OTelMetrics) RecordTokenIssued(ctx context.Context, purpose string) {
	attrs := []attribute.KeyValue{
		attribute.String("token.purpose", purpose),
	}
	m.tokensIssuedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRefresh records a refresh attempt
func (m *OTelMetrics) RecordRefresh(ctx context.Context, outcome string) {
	attrs := []attribute.KeyValue{
		attribute.String("refresh.outcome", outcome),
	}
	m.refreshTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRevocation records a session revocation
func (m *OTelMetrics) RecordRevocation(ctx context.Context) {
	m.revocationsTotal.Add(ctx, 1)
}

// RecordAuthzDecision records an authorization decision
func (m *OTelMetrics) RecordAuthzDecision(ctx context.Context, resource, access, outcome string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("authz.resource", resource),
		attribute.String("authz.access", access),
		attribute.String("authz.outcome", outcome),
	}
	m.authzDecisionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.authzDecisionTime.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordDBQuery records a database query metric
func (m *OTelMetrics) RecordDBQuery(ctx context.Context, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.Bool("error", err != nil),
	}
	m.dbQueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// UpdateDBConnectionStats updates database connection pool statistics
func (m *OTelMetrics) UpdateDBConnectionStats(ctx context.Context, active int) {
	m.dbConnectionsActive.Add(ctx, int64(active))
}
