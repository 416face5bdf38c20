// Package observe provides application-wide observability primitives for
// voxwire: OpenTelemetry metrics, tracing helpers, and structured-logging
// glue.
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

// meterName is the instrumentation scope name used for all voxwire metrics.
const meterName = "github.com/perimetra/voxwire"

// Metrics holds all OpenTelemetry metric instruments for the voice pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ConnectDuration tracks how long establishing a realtime session takes.
	ConnectDuration metric.Float64Histogram

	// AudioChunksSent counts outbound audio-append events.
	AudioChunksSent metric.Int64Counter

	// AudioChunksReceived counts inbound audio deltas handed to playback.
	AudioChunksReceived metric.Int64Counter

	// PlaybackFailures counts chunks that failed to decode or play. The
	// queue skips these and keeps draining.
	PlaybackFailures metric.Int64Counter

	// ParseFailures counts malformed inbound envelopes. Parse failures never
	// close the channel.
	ParseFailures metric.Int64Counter

	// DroppedFrames counts capture frames discarded because the channel was
	// not open when they arrived.
	DroppedFrames metric.Int64Counter

	// PlaybackQueueDepth tracks the number of chunks waiting to be played.
	PlaybackQueueDepth metric.Int64UpDownCounter

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// connectBuckets defines histogram bucket boundaries (in seconds) for
// session establishment latency.
var connectBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ConnectDuration, err = m.Float64Histogram("voxwire.session.connect.duration",
		metric.WithDescription("Latency of realtime session establishment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(connectBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AudioChunksSent, err = m.Int64Counter("voxwire.audio.chunks.sent",
		metric.WithDescription("Total outbound audio-append events."),
	); err != nil {
		return nil, err
	}
	if met.AudioChunksReceived, err = m.Int64Counter("voxwire.audio.chunks.received",
		metric.WithDescription("Total inbound audio deltas routed to playback."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackFailures, err = m.Int64Counter("voxwire.playback.failures",
		metric.WithDescription("Total chunks skipped after a decode or playback failure."),
	); err != nil {
		return nil, err
	}
	if met.ParseFailures, err = m.Int64Counter("voxwire.envelope.parse_failures",
		metric.WithDescription("Total malformed inbound envelopes skipped."),
	); err != nil {
		return nil, err
	}
	if met.DroppedFrames, err = m.Int64Counter("voxwire.capture.dropped_frames",
		metric.WithDescription("Total capture frames dropped before the channel opened."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackQueueDepth, err = m.Int64UpDownCounter("voxwire.playback.queue_depth",
		metric.WithDescription("Number of chunks waiting in the playback queue."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxwire.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// RecordConnect records one session establishment attempt with its duration
// and outcome status ("ok" or "error").
func (m *Metrics) RecordConnect(ctx context.Context, seconds float64, status string) {
	m.ConnectDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
