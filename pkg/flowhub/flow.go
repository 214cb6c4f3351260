package flowhub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/flowhub/pkg/flowhub/binder"
	"github.com/randalmurphal/flowhub/pkg/flowhub/config"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/observability"
)

// Flow is a dispatch context owning a binder. Events reach a flow through
// Feed, directly or via a Hub, and are dispatched to the handlers whose
// templates they match.
//
// Flows are built by NewQueueFlow, NewPoolFlow and NewTimeFlow. Custom flows
// embed one of those.
type Flow interface {
	// Name returns the flow name.
	Name() string

	// Hub returns the hub the flow is attached to, or nil.
	Hub() *Hub

	// Feed hands e to this flow only. It reports false when the event was
	// dropped because the flow is stopped.
	Feed(e event.Event) bool

	// Post sends e through the attached hub, or feeds this flow when
	// detached.
	Post(e event.Event)

	// Start begins dispatching. Cancelling ctx stops the flow.
	Start(ctx context.Context) error

	// Stop requests the flow to stop after draining what it already
	// accepted. It does not wait; use Done for that.
	Stop() error

	// Done is closed once the flow has stopped and drained.
	Done() <-chan struct{}

	// Subscribe binds h to template on this flow.
	Subscribe(template event.Event, h binder.Handler) binder.Token

	// SubscribeWhen binds h to template, running it only when pred accepts
	// the event.
	SubscribeWhen(template event.Event, h binder.Handler, pred func(event.Event) bool) binder.Token

	// Unsubscribe removes the binding identified by tok.
	Unsubscribe(tok binder.Token) bool

	// SubscribeTo subscribes this flow to a hub channel.
	SubscribeTo(channel string) error

	// UnsubscribeFrom drops one subscription of this flow to a hub channel.
	UnsubscribeFrom(channel string) error

	core() *flowCore
}

type flowState int32

const (
	stateCreated flowState = iota
	stateRunning
	stateStopped
)

func (s flowState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateRunning:
		return "running"
	case stateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("flowState(%d)", int32(s))
	}
}

// flowCore holds what every flow variant shares: the binder, hub link,
// thresholds, observability and case lifecycle.
type flowCore struct {
	name         string
	binder       binder.Interface
	logger       *slog.Logger
	settings     config.Settings
	metrics      observability.MetricsRecorder
	spans        observability.SpanManager
	errorHandler ErrorHandler
	cases        []Case

	// owner is the outermost Flow value, handed to CurrentFlow and the hub.
	owner Flow
	hub   atomic.Pointer[Hub]

	mu    sync.Mutex
	state flowState
	ctx   context.Context
	stop  func() bool
	done  chan struct{}

	dispatched atomic.Int64
	async      sync.WaitGroup

	setupOnce    sync.Once
	teardownOnce sync.Once
	ready        []Case
	lifecycle    []binder.Token
}

func newFlowCore(cfg flowConfig) *flowCore {
	return &flowCore{
		name:         cfg.name,
		binder:       cfg.binder,
		logger:       observability.EnrichLogger(cfg.logger, cfg.name),
		settings:     cfg.settings,
		metrics:      cfg.metrics,
		spans:        cfg.spans,
		errorHandler: cfg.errorHandler,
		cases:        cfg.cases,
		ctx:          context.Background(),
		done:         make(chan struct{}),
	}
}

func (c *flowCore) core() *flowCore {
	return c
}

// Name returns the flow name.
func (c *flowCore) Name() string {
	return c.name
}

// Hub returns the attached hub, or nil.
func (c *flowCore) Hub() *Hub {
	return c.hub.Load()
}

// Binder returns the flow's binder.
func (c *flowCore) Binder() binder.Interface {
	return c.binder
}

// Logger returns the flow logger.
func (c *flowCore) Logger() *slog.Logger {
	return c.logger
}

// Dispatched returns the number of events dispatched so far.
func (c *flowCore) Dispatched() int64 {
	return c.dispatched.Load()
}

// Done is closed once the flow has stopped and drained.
func (c *flowCore) Done() <-chan struct{} {
	return c.done
}

// Running reports whether the flow has started and not yet stopped.
func (c *flowCore) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning
}

// Subscribe binds h to template on this flow.
func (c *flowCore) Subscribe(template event.Event, h binder.Handler) binder.Token {
	return c.binder.Bind(template, h)
}

// SubscribeWhen binds h to template, running it only when pred accepts the
// event. The binding keeps h's identity.
func (c *flowCore) SubscribeWhen(template event.Event, h binder.Handler, pred func(event.Event) bool) binder.Token {
	return c.binder.Bind(template, binder.When(pred, h))
}

// Unsubscribe removes the binding identified by tok.
func (c *flowCore) Unsubscribe(tok binder.Token) bool {
	return c.binder.UnbindToken(tok)
}

// SubscribeTo subscribes this flow to a hub channel.
func (c *flowCore) SubscribeTo(channel string) error {
	h := c.hub.Load()
	if h == nil {
		return ErrNotAttached
	}
	return h.Subscribe(c.owner, channel)
}

// UnsubscribeFrom drops one subscription of this flow to a hub channel.
func (c *flowCore) UnsubscribeFrom(channel string) error {
	h := c.hub.Load()
	if h == nil {
		return ErrNotAttached
	}
	return h.Unsubscribe(c.owner, channel)
}

// Post sends e through the attached hub, or feeds this flow when detached.
func (c *flowCore) Post(e event.Event) {
	if h := c.hub.Load(); h != nil {
		h.Post(e)
		return
	}
	c.owner.Feed(e)
}

// begin moves the flow to running and binds the lifecycle handlers.
func (c *flowCore) begin(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateRunning:
		return ErrAlreadyStarted
	case stateStopped:
		return ErrFlowStopped
	}
	c.state = stateRunning

	base := context.WithValue(context.WithoutCancel(ctx), flowKey{}, c.owner)
	base = binder.WithSpawner(base, c)
	c.ctx = binder.WithReport(base, c.report)

	c.lifecycle = []binder.Token{
		c.binder.Bind(event.NewFlowStart(), binder.Func(c.onFlowStart)),
		c.binder.Bind(event.NewFlowStop(), binder.Func(c.onFlowStop)),
	}
	c.stop = context.AfterFunc(ctx, func() {
		_ = c.owner.Stop()
	})
	observability.LogFlowStart(c.logger, c.name, c.binder.Len())
	return nil
}

// end moves the flow to stopped. It reports false when it already was.
func (c *flowCore) end() (wasRunning, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateStopped {
		return false, false
	}
	wasRunning = c.state == stateRunning
	c.state = stateStopped
	if c.stop != nil {
		c.stop()
	}
	return wasRunning, true
}

// finish waits for async handlers, drops the lifecycle bindings and closes
// Done.
func (c *flowCore) finish() {
	c.teardown(c.ctx)
	c.async.Wait()
	for _, tok := range c.lifecycle {
		c.binder.UnbindToken(tok)
	}
	observability.LogFlowStop(c.logger, c.name, c.dispatched.Load())
	close(c.done)
}

func (c *flowCore) onFlowStart(ctx context.Context, _ event.Event) error {
	c.setupOnce.Do(func() {
		for _, cs := range c.cases {
			if err := cs.Setup(ctx, c.owner); err != nil {
				observability.LogTeardownError(c.logger, c.name, "setup", &LifecycleError{Flow: c.name, Op: "setup", Err: err})
				continue
			}
			c.ready = append(c.ready, cs)
		}
	})
	return nil
}

func (c *flowCore) onFlowStop(ctx context.Context, _ event.Event) error {
	c.teardown(ctx)
	return nil
}

// teardown runs Teardown on every case whose Setup succeeded, in reverse
// order, at most once.
func (c *flowCore) teardown(ctx context.Context) {
	c.teardownOnce.Do(func() {
		for i := len(c.ready) - 1; i >= 0; i-- {
			if err := safeTeardown(ctx, c.ready[i], c.owner); err != nil {
				observability.LogTeardownError(c.logger, c.name, "teardown", &LifecycleError{Flow: c.name, Op: "teardown", Err: err})
			}
		}
	})
}

func safeTeardown(ctx context.Context, cs Case, f Flow) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cs.Teardown(ctx, f)
}

// dispatch builds the handler chain for e and runs it sequentially.
func (c *flowCore) dispatch(e event.Event) {
	ctx, span := c.spans.StartDispatchSpan(c.ctx, c.name, e.EventTag().Name, e.TypeID())

	var chain []binder.Handler
	n := c.binder.BuildHandlerChain(e, &chain)
	c.metrics.RecordDispatch(ctx, c.name, n)

	start := time.Now()
	var errs []error
	defer func() {
		c.spans.EndSpanWithError(span, errors.Join(errs...))
	}()
	for _, h := range chain {
		if err := c.invoke(ctx, h, e); err != nil {
			errs = append(errs, err)
			c.fail(ctx, h, e, err)
		}
	}
	if d := time.Since(start); c.settings.SlowDispatch > 0 && d > c.settings.SlowDispatch {
		observability.LogSlowDispatch(c.logger, c.settings.SlowHandlerLevel, event.Describe(e), n, d)
	}

	c.dispatched.Add(1)
}

// invoke runs one handler, converting a panic into a *PanicError.
func (c *flowCore) invoke(ctx context.Context, h binder.Handler, e event.Event) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Flow:    c.name,
				Handler: describeHandler(h),
				Value:   r,
				Stack:   string(debug.Stack()),
			}
		}
		d := time.Since(start)
		c.metrics.RecordHandler(ctx, c.name, d, err)
		if c.settings.SlowHandler > 0 && d > c.settings.SlowHandler {
			name := describeHandler(h)
			observability.LogSlowHandler(c.logger, c.settings.SlowHandlerLevel, name, event.Describe(e), d)
			c.spans.AddSpanEvent(ctx, "handler.slow",
				attribute.String("handler", name),
				attribute.Float64("duration_ms", float64(d.Microseconds())/1000.0),
			)
		}
	}()
	return h.Handle(ctx, e)
}

func (c *flowCore) fail(ctx context.Context, h binder.Handler, e event.Event, err error) {
	c.errorHandler(ctx, &HandlerError{
		Flow:    c.name,
		Handler: describeHandler(h),
		Event:   e,
		Err:     err,
	})
}

// report receives errors from handlers spawned by binder.Async.
func (c *flowCore) report(h binder.Handler, e event.Event, err error) {
	c.fail(c.ctx, h, e, err)
}

// Spawn runs fn on its own goroutine. The flow waits for spawned work before
// closing Done.
func (c *flowCore) Spawn(fn func()) {
	c.async.Add(1)
	go func() {
		defer c.async.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("spawned handler panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		fn()
	}()
}

func (c *flowCore) drop(e event.Event, reason string) {
	observability.LogDispatchDropped(c.logger, c.name, event.Describe(e), reason)
}

type flowKey struct{}

// CurrentFlow returns the flow dispatching the handler that received ctx.
func CurrentFlow(ctx context.Context) (Flow, bool) {
	f, ok := ctx.Value(flowKey{}).(Flow)
	return f, ok
}

// describeHandler names a handler for logs and errors.
func describeHandler(h binder.Handler) string {
	if s, ok := h.(fmt.Stringer); ok {
		return s.String()
	}
	switch k := h.Key().(type) {
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprintf("%T", k)
	}
}
