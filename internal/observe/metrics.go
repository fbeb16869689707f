// Package observe provides application-wide observability primitives for
// Quizvox: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Quizvox metrics.
const meterName = "github.com/quizvox/quizvox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ResolveDuration tracks end-to-end intent resolution latency. Use with
	// attribute.String("backend", ...).
	ResolveDuration metric.Float64Histogram

	// Resolutions counts completed resolutions. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("intent", ...)
	Resolutions metric.Int64Counter

	// CacheHits and CacheMisses count result-cache lookups.
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// RemoteRequests counts calls to the remote classifier. Use with
	// attributes:
	//   attribute.String("operation", ...), attribute.String("status", ...)
	RemoteRequests metric.Int64Counter

	// RemoteErrors counts remote classifier failures by category
	// (transport, protocol).
	RemoteErrors metric.Int64Counter

	// HTTPRequestDuration tracks gateway HTTP request processing time. Use
	// with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for interactive voice-command latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ResolveDuration, err = m.Float64Histogram("quizvox.intent.resolve.duration",
		metric.WithDescription("End-to-end intent resolution latency by backend."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Resolutions, err = m.Int64Counter("quizvox.intent.resolutions",
		metric.WithDescription("Total intent resolutions by backend and intent."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("quizvox.cache.hits",
		metric.WithDescription("Result cache hits."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("quizvox.cache.misses",
		metric.WithDescription("Result cache misses."),
	); err != nil {
		return nil, err
	}
	if met.RemoteRequests, err = m.Int64Counter("quizvox.remote.requests",
		metric.WithDescription("Remote classifier requests by operation and status."),
	); err != nil {
		return nil, err
	}
	if met.RemoteErrors, err = m.Int64Counter("quizvox.remote.errors",
		metric.WithDescription("Remote classifier failures by category."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("quizvox.http.request.duration",
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordResolution records one completed resolution: the counter increment
// and the latency histogram sample, both tagged with the backend.
func (m *Metrics) RecordResolution(ctx context.Context, backend, intentName string, seconds float64) {
	m.Resolutions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("intent", intentName),
		),
	)
	m.ResolveDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("backend", backend)),
	)
}

// RecordRemoteRequest records a remote classifier call with its outcome.
func (m *Metrics) RecordRemoteRequest(ctx context.Context, operation, status string) {
	m.RemoteRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordRemoteError records a remote classifier failure by category.
func (m *Metrics) RecordRemoteError(ctx context.Context, category string) {
	m.RemoteErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("category", category)),
	)
}
