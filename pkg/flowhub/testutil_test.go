package flowhub

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowhub/pkg/flowhub/binder"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
)

// Test helpers shared across the package tests.

// recorder collects strings from handlers running on any goroutine.
type recorder struct {
	mu    sync.Mutex
	items []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.items...)
}

// reset clears the recorder and returns what it held.
func (r *recorder) reset() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items
	r.items = nil
	return items
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// recordAs returns a handler keyed by name that records name.
func recordAs(r *recorder, name string) binder.Handler {
	return binder.Keyed(name, func(context.Context, event.Event) error {
		r.add(name)
		return nil
	})
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) contains(s string) bool {
	return strings.Contains(b.String(), s)
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, buf
}

// collectErrors returns an ErrorHandler storing every failure.
func collectErrors() (ErrorHandler, func() []*HandlerError) {
	var mu sync.Mutex
	var errs []*HandlerError
	h := func(_ context.Context, err *HandlerError) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}
	get := func() []*HandlerError {
		mu.Lock()
		defer mu.Unlock()
		return append([]*HandlerError(nil), errs...)
	}
	return h, get
}

// stopAndWait stops f and waits for it to drain.
func stopAndWait(t *testing.T, f Flow) {
	t.Helper()
	require.NoError(t, f.Stop())
	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("flow %s did not stop", f.Name())
	}
}

// startFlow starts f and stops it when the test ends.
func startFlow(t *testing.T, f Flow) {
	t.Helper()
	require.NoError(t, f.Start(context.Background()))
	t.Cleanup(func() {
		_ = f.Stop()
		<-f.Done()
	})
}

// quietFlow builds a QueueFlow that logs errors instead of panicking.
func quietFlow(name string, opts ...Option) *QueueFlow {
	logger, _ := newTestLogger()
	base := []Option{
		WithName(name),
		WithLogger(logger),
		WithErrorHandler(LogErrorHandler(logger)),
	}
	return NewQueueFlow(append(base, opts...)...)
}

const eventually = 2 * time.Second
const tick = 5 * time.Millisecond

// fakeMetrics counts recorder calls.
type fakeMetrics struct {
	posts    atomic.Int64
	handlers atomic.Int64
	errors   atomic.Int64

	mu         sync.Mutex
	chainLens  []int
	recipients map[string]int
}

func (m *fakeMetrics) RecordPost(_ context.Context, channel string, recipients int) {
	m.posts.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recipients == nil {
		m.recipients = make(map[string]int)
	}
	m.recipients[channel] += recipients
}

func (m *fakeMetrics) RecordHandler(_ context.Context, _ string, _ time.Duration, err error) {
	m.handlers.Add(1)
	if err != nil {
		m.errors.Add(1)
	}
}

func (m *fakeMetrics) RecordDispatch(_ context.Context, _ string, chainLen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chainLens = append(m.chainLens, chainLen)
}

func (m *fakeMetrics) RecordQueueLength(context.Context, string, int) {}

func (m *fakeMetrics) chains() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.chainLens...)
}

func (m *fakeMetrics) posted(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recipients[channel]
}
