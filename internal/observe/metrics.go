// Package observe provides application-wide observability primitives for
// Clausewise: OpenTelemetry metrics, tracing helpers, and HTTP middleware
// for the metrics endpoint.
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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Clausewise metrics.
const meterName = "github.com/clausewise/clausewise"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Analysis ---

	// SectionDuration tracks per-section analysis latency. Attributes:
	//   attribute.String("section", ...), attribute.String("provider", ...)
	SectionDuration metric.Float64Histogram

	// SectionRequests counts section analysis requests. Attributes:
	//   attribute.String("section", ...), attribute.String("provider", ...),
	//   attribute.String("status", ...)
	SectionRequests metric.Int64Counter

	// --- Voice session ---

	// SessionDuration tracks live voice session length in seconds.
	SessionDuration metric.Float64Histogram

	// ActiveSessions tracks the number of open voice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// StateTransitions counts session state changes. Attributes:
	//   attribute.String("from", ...), attribute.String("to", ...)
	StateTransitions metric.Int64Counter

	// Interruptions counts barge-in events.
	Interruptions metric.Int64Counter

	// --- Audio ---

	// ChunksScheduled counts inbound audio chunks handed to the playback
	// scheduler.
	ChunksScheduled metric.Int64Counter

	// FramesDropped counts outbound capture frames dropped because the
	// transport was not ready.
	FramesDropped metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// sectionBuckets defines histogram bucket boundaries (in seconds) sized for
// generative analysis requests, which run seconds rather than milliseconds.
var sectionBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// sessionBuckets covers voice session lifetimes.
var sessionBuckets = []float64{
	5, 15, 30, 60, 120, 300, 600, 1800,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SectionDuration, err = m.Float64Histogram("clausewise.analysis.section.duration",
		metric.WithDescription("Latency of one analysis section request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sectionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SectionRequests, err = m.Int64Counter("clausewise.analysis.section.requests",
		metric.WithDescription("Total section analysis requests by section, provider, and status."),
	); err != nil {
		return nil, err
	}

	if met.SessionDuration, err = m.Float64Histogram("clausewise.voice.session.duration",
		metric.WithDescription("Length of a live voice session."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("clausewise.voice.active_sessions",
		metric.WithDescription("Number of open voice sessions."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("clausewise.voice.state_transitions",
		metric.WithDescription("Session state transitions by source and target state."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("clausewise.voice.interruptions",
		metric.WithDescription("Barge-in events that cancelled scheduled playback."),
	); err != nil {
		return nil, err
	}

	if met.ChunksScheduled, err = m.Int64Counter("clausewise.audio.chunks_scheduled",
		metric.WithDescription("Inbound audio chunks handed to the playback scheduler."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("clausewise.audio.frames_dropped",
		metric.WithDescription("Outbound capture frames dropped while the transport was not ready."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("clausewise.http.request.duration",
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

// RecordSection records one section analysis outcome with its duration in
// seconds.
func (m *Metrics) RecordSection(ctx context.Context, section, provider, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("section", section),
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.SectionRequests.Add(ctx, 1, attrs)
	m.SectionDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("section", section),
		attribute.String("provider", provider),
	))
}

// RecordTransition records one session state change.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	m.StateTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
