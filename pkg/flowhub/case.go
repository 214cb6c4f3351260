package flowhub

import (
	"context"
	"sync"

	"github.com/randalmurphal/flowhub/pkg/flowhub/binder"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
)

// Case is a unit of behavior installed on a flow. Setup runs when the flow
// dispatches FlowStart and Teardown when it dispatches FlowStop, each at most
// once. Teardown only runs for cases whose Setup succeeded, in reverse order.
type Case interface {
	Setup(ctx context.Context, f Flow) error
	Teardown(ctx context.Context, f Flow) error
}

// CaseFuncs adapts a pair of functions to Case. Nil functions are skipped.
type CaseFuncs struct {
	OnSetup    func(ctx context.Context, f Flow) error
	OnTeardown func(ctx context.Context, f Flow) error
}

// Setup implements Case.
func (c CaseFuncs) Setup(ctx context.Context, f Flow) error {
	if c.OnSetup == nil {
		return nil
	}
	return c.OnSetup(ctx, f)
}

// Teardown implements Case.
func (c CaseFuncs) Teardown(ctx context.Context, f Flow) error {
	if c.OnTeardown == nil {
		return nil
	}
	return c.OnTeardown(ctx, f)
}

// Sink collects binding tokens so they can be released together.
//
//	sink := flowhub.NewSink(flow)
//	defer sink.Close()
//	sink.Subscribe(eventtest.NewLoginReq(), binder.Func(handleLogin))
type Sink struct {
	flow Flow

	mu     sync.Mutex
	tokens []binder.Token
	closed bool
}

// NewSink creates a sink binding through f.
func NewSink(f Flow) *Sink {
	return &Sink{flow: f}
}

// Subscribe binds h to template on the sink's flow and keeps the token.
// Subscribing on a closed sink panics.
func (s *Sink) Subscribe(template event.Event, h binder.Handler) binder.Token {
	tok := s.flow.Subscribe(template, h)
	s.Add(tok)
	return tok
}

// Add keeps tok for release on Close.
func (s *Sink) Add(tok binder.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic("flowhub: add to closed sink")
	}
	s.tokens = append(s.tokens, tok)
}

// Len returns the number of held tokens.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Close unbinds every held token. It is safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	tokens := s.tokens
	s.tokens = nil
	s.closed = true
	s.mu.Unlock()

	for _, tok := range tokens {
		s.flow.Unsubscribe(tok)
	}
	return nil
}

// SinkCase wraps a function that subscribes through a Sink. The bindings
// are made on Setup and released on Teardown.
type SinkCase struct {
	Bind func(ctx context.Context, s *Sink) error

	mu   sync.Mutex
	sink *Sink
}

// Setup implements Case.
func (c *SinkCase) Setup(ctx context.Context, f Flow) error {
	s := NewSink(f)
	if err := c.Bind(ctx, s); err != nil {
		_ = s.Close()
		return err
	}
	c.mu.Lock()
	c.sink = s
	c.mu.Unlock()
	return nil
}

// Teardown implements Case.
func (c *SinkCase) Teardown(context.Context, Flow) error {
	c.mu.Lock()
	s := c.sink
	c.sink = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}
