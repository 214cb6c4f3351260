package flowhub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/randalmurphal/flowhub/pkg/flowhub/config"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/observability"
)

type subscription struct {
	flow Flow
	refs int
}

// Hub routes posted events to attached flows. An event with an empty channel
// goes to every attached flow; otherwise it goes to the flows subscribed to
// its channel.
//
// Hubs are created with New and released with Close. Every hub owns a
// TimeFlow, attached on creation, that carries timers and the heartbeat.
type Hub struct {
	logger   *slog.Logger
	settings config.Settings
	metrics  observability.MetricsRecorder

	mu       sync.RWMutex
	flows    []Flow
	channels map[string][]*subscription
	closed   bool

	timeFlow  *TimeFlow
	heartbeat TimerToken
}

// New creates a hub with its TimeFlow attached.
//
//	hub := flowhub.New(flowhub.WithHubLogger(logger))
//	defer hub.Close()
func New(opts ...HubOption) *Hub {
	cfg := hubConfig{
		logger:   slog.Default(),
		settings: config.DefaultSettings(),
		metrics:  observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	h := &Hub{
		logger:   cfg.logger,
		settings: cfg.settings,
		metrics:  cfg.metrics,
		channels: make(map[string][]*subscription),
	}

	timeOpts := append([]Option{
		WithName("time"),
		WithLogger(cfg.logger),
		WithSettings(cfg.settings),
		WithMetrics(cfg.metrics),
		WithErrorHandler(LogErrorHandler(cfg.logger)),
	}, cfg.timeOpts...)
	h.timeFlow = NewTimeFlow(timeOpts...)
	h.Attach(h.timeFlow)
	return h
}

// TimeFlow returns the hub's default TimeFlow.
func (h *Hub) TimeFlow() *TimeFlow {
	return h.timeFlow
}

// Attach adds f to the hub. Attaching an attached flow is a no-op; attaching
// a nil flow, a flow attached to another hub, or attaching to a closed hub
// panics.
func (h *Hub) Attach(f Flow) {
	if f == nil {
		panic("flowhub: attach nil flow")
	}
	c := f.core()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		panic(fmt.Sprintf("flowhub: attach flow %q to closed hub", c.name))
	}
	if h.indexOf(c) >= 0 {
		return
	}
	if !c.hub.CompareAndSwap(nil, h) {
		panic(fmt.Sprintf("flowhub: flow %q attached to another hub", c.name))
	}
	h.flows = append(h.flows, f)
}

// Detach removes f and all of its channel subscriptions. It reports false
// when f was not attached. Detaching does not stop the flow.
func (h *Hub) Detach(f Flow) bool {
	if f == nil {
		panic("flowhub: detach nil flow")
	}
	c := f.core()
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.indexOf(c)
	if i < 0 {
		return false
	}
	h.flows = slices.Delete(h.flows, i, i+1)
	for ch, subs := range h.channels {
		subs = slices.DeleteFunc(subs, func(s *subscription) bool {
			return s.flow.core() == c
		})
		if len(subs) == 0 {
			delete(h.channels, ch)
		} else {
			h.channels[ch] = subs
		}
	}
	c.hub.CompareAndSwap(h, nil)
	return true
}

// Flows returns a snapshot of the attached flows in attach order.
func (h *Hub) Flows() []Flow {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.flows)
}

// Flow returns the attached flow with the given name.
func (h *Hub) Flow(name string) (Flow, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, f := range h.flows {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// Subscribe adds one subscription of f to channel. Subscriptions are counted:
// f leaves the channel once Unsubscribe was called as many times. An empty
// channel is a no-op. It returns ErrHubClosed after Close.
func (h *Hub) Subscribe(f Flow, channel string) error {
	if f == nil {
		panic("flowhub: subscribe nil flow")
	}
	if channel == "" {
		return nil
	}
	c := f.core()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	if h.indexOf(c) < 0 {
		return ErrNotAttached
	}
	for _, s := range h.channels[channel] {
		if s.flow.core() == c {
			s.refs++
			return nil
		}
	}
	h.channels[channel] = append(h.channels[channel], &subscription{flow: h.flows[h.indexOf(c)], refs: 1})
	return nil
}

// Unsubscribe drops one subscription of f to channel. An empty channel, or a
// channel f is not subscribed to, is a no-op. It returns ErrHubClosed after
// Close.
func (h *Hub) Unsubscribe(f Flow, channel string) error {
	if f == nil {
		panic("flowhub: unsubscribe nil flow")
	}
	if channel == "" {
		return nil
	}
	c := f.core()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	if h.indexOf(c) < 0 {
		return ErrNotAttached
	}
	subs := h.channels[channel]
	for i, s := range subs {
		if s.flow.core() != c {
			continue
		}
		s.refs--
		if s.refs == 0 {
			subs = slices.Delete(subs, i, i+1)
			if len(subs) == 0 {
				delete(h.channels, channel)
			} else {
				h.channels[channel] = subs
			}
		}
		return nil
	}
	return nil
}

// Subscribers returns the flows subscribed to channel.
func (h *Hub) Subscribers(channel string) []Flow {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.channels[channel]
	out := make([]Flow, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.flow)
	}
	return out
}

// Post feeds e to its recipients without waiting for dispatch. A nil event
// panics.
func (h *Hub) Post(e event.Event) {
	if e == nil {
		panic("flowhub: post nil event")
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	channel := e.Channel()
	recipients := 0
	if channel == "" {
		for _, f := range h.flows {
			f.Feed(e)
		}
		recipients = len(h.flows)
	} else {
		subs := h.channels[channel]
		for _, s := range subs {
			s.flow.Feed(e)
		}
		recipients = len(subs)
	}
	h.metrics.RecordPost(context.Background(), channel, recipients)
}

// Startup starts every attached flow that is not running yet and arms the
// heartbeat when the heartbeat interval is positive. Flows are started
// outside the hub lock. It returns ErrHubClosed after Close.
func (h *Hub) Startup(ctx context.Context) error {
	h.mu.RLock()
	closed := h.closed
	flows := slices.Clone(h.flows)
	h.mu.RUnlock()
	if closed {
		return ErrHubClosed
	}

	var errs []error
	for _, f := range flows {
		if err := f.Start(ctx); err != nil && !errors.Is(err, ErrAlreadyStarted) {
			errs = append(errs, fmt.Errorf("start %s: %w", f.Name(), err))
		}
	}

	if iv := h.settings.HeartbeatInterval; iv > 0 {
		h.mu.Lock()
		if h.heartbeat == 0 && !h.closed {
			h.heartbeat = h.timeFlow.ReserveRepetition(event.NewHeartbeatEvent(), iv)
		}
		h.mu.Unlock()
	}
	observability.LogHubStartup(h.logger, len(flows), h.settings.HeartbeatInterval)
	return errors.Join(errs...)
}

// Shutdown disarms the heartbeat, stops every attached flow and waits for
// them to drain until ctx is done. Failures, panics included, are logged and
// do not keep other flows from stopping.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	tok := h.heartbeat
	h.heartbeat = 0
	h.mu.Unlock()
	if tok != 0 {
		h.timeFlow.Cancel(tok)
	}

	flows := h.Flows()
	failures := 0
	for _, f := range flows {
		if err := stopFlow(f); err != nil {
			failures++
			h.logger.Error("flow stop failed",
				slog.String("flow", f.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	var waitErr error
	for _, f := range flows {
		select {
		case <-f.Done():
		case <-ctx.Done():
			waitErr = ctx.Err()
		}
		if waitErr != nil {
			break
		}
	}
	observability.LogHubShutdown(h.logger, len(flows), failures)
	return waitErr
}

func stopFlow(f Flow) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Stop()
}

// Close shuts the hub down, detaches every flow and stops accepting posts.
// Closing a closed hub is a no-op.
func (h *Hub) Close() error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return nil
	}
	err := h.Shutdown(context.Background())
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range h.flows {
		f.core().hub.CompareAndSwap(h, nil)
	}
	h.flows = nil
	clear(h.channels)
	h.closed = true
	return err
}

func (h *Hub) indexOf(c *flowCore) int {
	return slices.IndexFunc(h.flows, func(f Flow) bool {
		return f.core() == c
	})
}
