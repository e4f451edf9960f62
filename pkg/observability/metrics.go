// Package observability wires the OpenTelemetry meter to a Prometheus
// exporter and records the pipeline's metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the pipeline instruments. A nil *Metrics is a valid no-op
// recorder, so callers never need to guard their record calls.
type Metrics struct {
	searchDuration metric.Float64Histogram
	searches       metric.Int64Counter
	searchErrors   metric.Int64Counter
	degradations   metric.Int64Counter
}

// InitMetrics creates the Prometheus-backed meter and all instruments.
func InitMetrics(ctx context.Context) (*Metrics, error) {
	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("sift")

	searchDuration, err := meter.Float64Histogram(
		"sift_search_duration_seconds",
		metric.WithDescription("Search request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search duration histogram: %w", err)
	}

	searches, err := meter.Int64Counter(
		"sift_searches_total",
		metric.WithDescription("Total search requests served"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create searches counter: %w", err)
	}

	searchErrors, err := meter.Int64Counter(
		"sift_search_errors_total",
		metric.WithDescription("Total search requests that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search errors counter: %w", err)
	}

	degradations, err := meter.Int64Counter(
		"sift_stage_degradations_total",
		metric.WithDescription("Total pipeline stage degradations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create degradations counter: %w", err)
	}

	return &Metrics{
		searchDuration: searchDuration,
		searches:       searches,
		searchErrors:   searchErrors,
		degradations:   degradations,
	}, nil
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSearch records one served search request.
func (m *Metrics) RecordSearch(ctx context.Context, intent string, cacheHit bool, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("intent", intent),
		attribute.Bool("cache_hit", cacheHit),
	)
	m.searches.Add(ctx, 1, attrs)
	m.searchDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordError records a failed search request.
func (m *Metrics) RecordError(ctx context.Context) {
	if m == nil {
		return
	}
	m.searchErrors.Add(ctx, 1)
}

// RecordDegradation records a stage falling back to its degraded path.
func (m *Metrics) RecordDegradation(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.degradations.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
