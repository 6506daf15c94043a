// Package observe provides application-wide observability primitives for
// earshot: OpenTelemetry metrics, tracing, trace-aware logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported for
// Prometheus scraping by [InitProvider]. Tests should use [NewMetrics] with
// their own [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all earshot metrics.
const meterName = "github.com/MrWong99/earshot"

// Status attribute values for [Metrics.RecordAnalysis].
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// AnalysisDuration tracks the time from receiving a transcript to having
	// its annotation, correction included.
	AnalysisDuration metric.Float64Histogram

	// AnalysisRequests counts analyses. Attributes: status, label, language.
	AnalysisRequests metric.Int64Counter

	// Corrections counts vocabulary substitutions applied to transcripts.
	Corrections metric.Int64Counter

	// PublishErrors counts results that could not be published.
	PublishErrors metric.Int64Counter

	// ActiveStreams tracks the number of open websocket streams.
	ActiveStreams metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	// method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram bucket boundaries in seconds. Analysis of one
// transcript usually finishes well under a millisecond.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AnalysisDuration, err = m.Float64Histogram("earshot.analysis.duration",
		metric.WithDescription("Latency of transcript correction and analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnalysisRequests, err = m.Int64Counter("earshot.analysis.requests",
		metric.WithDescription("Total analyses by status, sentiment label and language."),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("earshot.corrections",
		metric.WithDescription("Total vocabulary corrections applied to transcripts."),
	); err != nil {
		return nil, err
	}
	if met.PublishErrors, err = m.Int64Counter("earshot.publish.errors",
		metric.WithDescription("Total analysis results that failed to publish."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("earshot.active_streams",
		metric.WithDescription("Number of open transcript streams."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("earshot.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level [Metrics] created from
// [otel.GetMeterProvider] on first use. Call it after [InitProvider].
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

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAnalysis records one finished analysis. label and language are empty
// for failed analyses.
func (m *Metrics) RecordAnalysis(ctx context.Context, seconds float64, status, label, language string) {
	m.AnalysisDuration.Record(ctx, seconds, metric.WithAttributes(Attr("status", status)))
	m.AnalysisRequests.Add(ctx, 1,
		metric.WithAttributes(
			Attr("status", status),
			Attr("label", label),
			Attr("language", language),
		),
	)
}

// RecordCorrections adds n vocabulary corrections. Zero is not recorded.
func (m *Metrics) RecordCorrections(ctx context.Context, n int) {
	if n > 0 {
		m.Corrections.Add(ctx, int64(n))
	}
}

// RecordPublishError counts a failed publish to subject.
func (m *Metrics) RecordPublishError(ctx context.Context, subject string) {
	m.PublishErrors.Add(ctx, 1, metric.WithAttributes(Attr("subject", subject)))
}
