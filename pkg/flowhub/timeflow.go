package flowhub

import (
	"sync"
	"time"

	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
)

// TimerToken identifies a reservation on a TimeFlow. The zero token is never
// issued.
type TimerToken uint64

type reservation struct {
	timer    *time.Timer
	interval time.Duration
	evt      event.Event
}

// TimeFlow is a QueueFlow that also fires events on timers. Due events are
// posted to the attached hub, or fed to the TimeFlow itself when detached.
//
// Every hub owns one TimeFlow, which carries the heartbeat.
type TimeFlow struct {
	*QueueFlow

	mu     sync.Mutex
	next   TimerToken
	timers map[TimerToken]*reservation
	closed bool
}

// NewTimeFlow creates a stopped TimeFlow.
func NewTimeFlow(opts ...Option) *TimeFlow {
	f := &TimeFlow{
		QueueFlow: NewQueueFlow(opts...),
		timers:    make(map[TimerToken]*reservation),
	}
	f.owner = f
	return f
}

// Reserve fires e once after delay.
func (f *TimeFlow) Reserve(e event.Event, delay time.Duration) TimerToken {
	return f.schedule(e, delay, 0)
}

// ReserveRepetition fires e every interval until cancelled. The same event
// value is delivered on every firing. A non-positive interval panics.
func (f *TimeFlow) ReserveRepetition(e event.Event, interval time.Duration) TimerToken {
	if interval <= 0 {
		panic("flowhub: non-positive repetition interval")
	}
	return f.schedule(e, interval, interval)
}

// ReserveTimeout fires a TimeoutEvent carrying key and param after delay.
//
//	tok := tf.ReserveTimeout("login", attempt, 30*time.Second)
func (f *TimeFlow) ReserveTimeout(key string, param int, delay time.Duration) TimerToken {
	e := event.NewTimeoutEvent().SetKey(key).SetIntParam(param)
	return f.Reserve(e, delay)
}

// Cancel stops a reservation. It reports false when tok already fired (for
// one-shot reservations), was cancelled, or is unknown.
func (f *TimeFlow) Cancel(tok TimerToken) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.timers[tok]
	if !ok {
		return false
	}
	r.timer.Stop()
	delete(f.timers, tok)
	return true
}

// Pending returns the number of live reservations.
func (f *TimeFlow) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// Stop cancels every reservation and stops the underlying queue flow.
func (f *TimeFlow) Stop() error {
	f.mu.Lock()
	f.closed = true
	for tok, r := range f.timers {
		r.timer.Stop()
		delete(f.timers, tok)
	}
	f.mu.Unlock()
	return f.QueueFlow.Stop()
}

func (f *TimeFlow) schedule(e event.Event, delay, interval time.Duration) TimerToken {
	if e == nil {
		panic("flowhub: nil event")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.drop(e, "time flow stopped")
		return 0
	}
	f.next++
	tok := f.next
	r := &reservation{interval: interval, evt: e}
	f.timers[tok] = r
	r.timer = time.AfterFunc(delay, func() { f.due(tok) })
	return tok
}

func (f *TimeFlow) due(tok TimerToken) {
	f.mu.Lock()
	r, ok := f.timers[tok]
	if !ok {
		f.mu.Unlock()
		return
	}
	if r.interval > 0 {
		r.timer.Reset(r.interval)
	} else {
		delete(f.timers, tok)
	}
	f.mu.Unlock()

	f.Post(r.evt)
}
