package flowhub

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/journal"
	"github.com/randalmurphal/flowhub/pkg/flowhub/observability"
)

// ErrorHandler receives handler failures of a flow. It runs on the
// dispatching goroutine; a panic escapes the flow.
type ErrorHandler func(ctx context.Context, err *HandlerError)

// FatalErrorHandler logs the failure and panics with it. It is the default.
func FatalErrorHandler(logger *slog.Logger) ErrorHandler {
	return func(_ context.Context, err *HandlerError) {
		observability.LogHandlerError(logger, err.Handler, event.Describe(err.Event), err.Err)
		panic(err)
	}
}

// LogErrorHandler logs the failure and continues with the next handler.
func LogErrorHandler(logger *slog.Logger) ErrorHandler {
	return func(_ context.Context, err *HandlerError) {
		observability.LogHandlerError(logger, err.Handler, event.Describe(err.Event), err.Err)
	}
}

// DeadLetterHandler records each failure to store, then calls next when it
// is not nil. Journal failures are logged through logger.
func DeadLetterHandler(store journal.Store, logger *slog.Logger, next ErrorHandler) ErrorHandler {
	return func(ctx context.Context, err *HandlerError) {
		entry, jerr := journal.NewEntry(err.Flow, err.Handler, err.Event, err.Err)
		if jerr == nil {
			jerr = store.Append(entry)
		}
		if jerr != nil && logger != nil {
			logger.Error("dead letter not recorded",
				slog.String("flow", err.Flow),
				slog.String("handler", err.Handler),
				slog.String("error", jerr.Error()),
			)
		}
		if next != nil {
			next(ctx, err)
		}
	}
}
