package flowhub

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
)

// Sentinel errors for flow and hub lifecycle.
var (
	// ErrNotAttached indicates a flow is not attached to the hub it used.
	ErrNotAttached = errors.New("flow not attached to hub")

	// ErrAlreadyStarted indicates Start was called on a running flow.
	ErrAlreadyStarted = errors.New("flow already started")

	// ErrFlowStopped indicates the flow was stopped and cannot restart.
	ErrFlowStopped = errors.New("flow stopped")

	// ErrHubClosed indicates the hub was closed.
	ErrHubClosed = errors.New("hub closed")
)

// HandlerError wraps a handler failure with its flow and event.
type HandlerError struct {
	// Flow is the name of the dispatching flow.
	Flow string
	// Handler describes the failed handler.
	Handler string
	// Event is the event being dispatched.
	Event event.Event
	// Err is the error returned by the handler, or a *PanicError.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("flow %s: handler %s: %s: %v", e.Flow, e.Handler, event.Describe(e.Event), e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by a handler.
type PanicError struct {
	// Flow is the name of the dispatching flow.
	Flow string
	// Handler describes the handler that panicked.
	Handler string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("flow %s: handler %s panicked: %v", e.Flow, e.Handler, e.Value)
}

// LifecycleError wraps a failed case setup or teardown.
type LifecycleError struct {
	Flow string
	// Op is "setup" or "teardown".
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("flow %s: %s: %v", e.Flow, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *LifecycleError) Unwrap() error {
	return e.Err
}
