package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records flowhub metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPost records an event posted to the hub and the number of flows
	// it was fed to.
	RecordPost(ctx context.Context, channel string, recipients int)

	// RecordHandler records one handler execution.
	RecordHandler(ctx context.Context, flow string, duration time.Duration, err error)

	// RecordDispatch records the chain length built for one event.
	RecordDispatch(ctx context.Context, flow string, chainLen int)

	// RecordQueueLength records a queue flow's backlog.
	RecordQueueLength(ctx context.Context, flow string, length int)
}

type otelMetrics struct {
	posted      metric.Int64Counter
	executions  metric.Int64Counter
	latency     metric.Float64Histogram
	errors      metric.Int64Counter
	chainLength metric.Int64Histogram
	queueLength metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("flowhub")

	posted, err := meter.Int64Counter("flowhub.events.posted",
		metric.WithDescription("Number of events posted to the hub"),
	)
	if err != nil {
		return nil, err
	}

	executions, err := meter.Int64Counter("flowhub.handler.executions",
		metric.WithDescription("Number of handler executions"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("flowhub.handler.latency_ms",
		metric.WithDescription("Handler execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter("flowhub.handler.errors",
		metric.WithDescription("Number of failed handler executions"),
	)
	if err != nil {
		return nil, err
	}

	chainLength, err := meter.Int64Histogram("flowhub.dispatch.chain_length",
		metric.WithDescription("Handlers per dispatched event"),
	)
	if err != nil {
		return nil, err
	}

	queueLength, err := meter.Int64Histogram("flowhub.flow.queue_length",
		metric.WithDescription("Queue flow backlog sampled on feed"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		posted:      posted,
		executions:  executions,
		latency:     latency,
		errors:      errs,
		chainLength: chainLength,
		queueLength: queueLength,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses the global OTel meter
// provider. If initialization fails it returns a no-op recorder.
//
//	otel.SetMeterProvider(yourProvider)
//	hub := flowhub.New(flowhub.WithHubMetrics(observability.NewMetricsRecorder()))
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordPost(ctx context.Context, channel string, recipients int) {
	m.posted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.Bool("delivered", recipients > 0),
	))
}

func (m *otelMetrics) RecordHandler(ctx context.Context, flow string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("flow", flow))

	m.executions.Add(ctx, 1, attrs)
	m.latency.Record(ctx, ms(duration), attrs)
	if err != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordDispatch(ctx context.Context, flow string, chainLen int) {
	m.chainLength.Record(ctx, int64(chainLen), metric.WithAttributes(attribute.String("flow", flow)))
}

func (m *otelMetrics) RecordQueueLength(ctx context.Context, flow string, length int) {
	m.queueLength.Record(ctx, int64(length), metric.WithAttributes(attribute.String("flow", flow)))
}
