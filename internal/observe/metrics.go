// Package observe provides application-wide observability primitives for
// govorun: OpenTelemetry metrics, tracing, and HTTP middleware that ties
// them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all govorun metrics.
const meterName = "github.com/govorun-bot/govorun"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// StageDuration tracks pipeline stage latency. Use with attributes:
	//   attribute.String("stage", ...), attribute.String("outcome", ...)
	StageDuration metric.Float64Histogram

	// PipelineRequests counts finished pipeline runs. Use with attribute:
	//   attribute.String("outcome", ...)
	PipelineRequests metric.Int64Counter

	// ProviderRequests counts recognition/translation provider calls.
	// Use with attributes:
	//   attribute.String("provider", ...), attribute.String("language", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider failures. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// TelegramUpdates counts inbound Telegram updates. Use with attribute:
	//   attribute.String("kind", ...)
	TelegramUpdates metric.Int64Counter

	// ActiveRequests tracks the number of pipeline runs currently in flight.
	ActiveRequests metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time on the
	// liveness server. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// media downloads, codec runs, and provider round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("govorun.stage.duration",
		metric.WithDescription("Latency of pipeline stages by stage and outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.PipelineRequests, err = m.Int64Counter("govorun.pipeline.requests",
		metric.WithDescription("Total finished pipeline runs by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("govorun.provider.requests",
		metric.WithDescription("Total provider API requests by provider, language, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("govorun.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.TelegramUpdates, err = m.Int64Counter("govorun.telegram.updates",
		metric.WithDescription("Total inbound Telegram updates by kind."),
	); err != nil {
		return nil, err
	}

	if met.ActiveRequests, err = m.Int64UpDownCounter("govorun.active_requests",
		metric.WithDescription("Number of pipeline runs currently in flight."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("govorun.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordStage records one finished pipeline stage with its duration.
func (m *Metrics) RecordStage(ctx context.Context, stage, outcome string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordPipelineRun records one finished pipeline run by outcome.
func (m *Metrics) RecordPipelineRun(ctx context.Context, outcome string) {
	m.PipelineRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordProviderRequest records a provider call with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, language, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("language", language),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider failure by provider and error kind.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordTelegramUpdate records one inbound update by kind
// (e.g. "voice", "audio", "video-note", "command").
func (m *Metrics) RecordTelegramUpdate(ctx context.Context, kind string) {
	m.TelegramUpdates.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
