// Package observability provides structured logging, metrics and tracing for
// flowhub.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// Every helper accepts a nil logger, and both metrics and tracing have no-op
// implementations.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// EnrichLogger returns logger with the flow name attached.
func EnrichLogger(logger *slog.Logger, flow string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("flow", flow))
}

// LogFlowStart logs a flow starting.
func LogFlowStart(logger *slog.Logger, flow string, bindings int) {
	if logger == nil {
		return
	}
	logger.Info("flow starting",
		slog.String("flow", flow),
		slog.Int("bindings", bindings),
	)
}

// LogFlowStop logs a flow stopped after dispatching its last event.
func LogFlowStop(logger *slog.Logger, flow string, dispatched int64) {
	if logger == nil {
		return
	}
	logger.Info("flow stopped",
		slog.String("flow", flow),
		slog.Int64("events_dispatched", dispatched),
	)
}

// LogHubStartup logs the hub starting its flows.
func LogHubStartup(logger *slog.Logger, flows int, heartbeat time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("hub starting",
		slog.Int("flows", flows),
		slog.Duration("heartbeat", heartbeat),
	)
}

// LogHubShutdown logs the hub stopping its flows.
func LogHubShutdown(logger *slog.Logger, flows int, failures int) {
	if logger == nil {
		return
	}
	logger.Info("hub shut down",
		slog.Int("flows", flows),
		slog.Int("failures", failures),
	)
}

// LogSlowHandler logs a handler that ran longer than the threshold.
func LogSlowHandler(logger *slog.Logger, level slog.Level, handler, evt string, d time.Duration) {
	if logger == nil {
		return
	}
	logger.Log(context.Background(), level, "slow handler",
		slog.String("handler", handler),
		slog.String("event", evt),
		slog.Float64("duration_ms", ms(d)),
	)
}

// LogSlowDispatch logs a handler chain that ran longer than the threshold.
func LogSlowDispatch(logger *slog.Logger, level slog.Level, evt string, chainLen int, d time.Duration) {
	if logger == nil {
		return
	}
	logger.Log(context.Background(), level, "slow dispatch",
		slog.String("event", evt),
		slog.Int("chain_length", chainLen),
		slog.Float64("duration_ms", ms(d)),
	)
}

// LogLongQueue logs a queue that grew past the threshold.
func LogLongQueue(logger *slog.Logger, level slog.Level, length int) {
	if logger == nil {
		return
	}
	logger.Log(context.Background(), level, "long queue",
		slog.Int("length", length),
	)
}

// LogHandlerError logs a failed handler.
func LogHandlerError(logger *slog.Logger, handler, evt string, err error) {
	if logger == nil {
		return
	}
	logger.Error("handler failed",
		slog.String("handler", handler),
		slog.String("event", evt),
		slog.String("error", err.Error()),
	)
}

// LogTeardownError logs a lifecycle failure that was swallowed so that
// shutdown can continue.
func LogTeardownError(logger *slog.Logger, flow, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("teardown failed",
		slog.String("flow", flow),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogDispatchDropped logs an event that could not be delivered to a flow.
func LogDispatchDropped(logger *slog.Logger, flow, evt, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped",
		slog.String("flow", flow),
		slog.String("event", evt),
		slog.String("reason", reason),
	)
}

// TimedOperation measures the duration of an operation.
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
