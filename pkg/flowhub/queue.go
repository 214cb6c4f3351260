package flowhub

import (
	"context"
	"sync"

	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/observability"
)

// eventQueue is an unbounded FIFO. pop blocks until an event is available or
// the queue is closed and empty.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []event.Event
	head   int
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends e and returns the new length. It reports false once closed.
func (q *eventQueue) push(e event.Event) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, false
	}
	q.items = append(q.items, e)
	q.cond.Signal()
	return len(q.items) - q.head, true
}

// pushFront puts e ahead of every queued event.
func (q *eventQueue) pushFront(e event.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if q.head > 0 {
		q.head--
		q.items[q.head] = e
	} else {
		q.items = append([]event.Event{e}, q.items...)
	}
	q.cond.Signal()
	return true
}

func (q *eventQueue) pop() (event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == len(q.items) && !q.closed {
		q.cond.Wait()
	}
	if q.head == len(q.items) {
		return nil, false
	}
	e := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return e, true
}

// close stops accepting events. Queued events remain poppable.
func (q *eventQueue) close(last event.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if last != nil {
		q.items = append(q.items, last)
	}
	q.closed = true
	q.cond.Broadcast()
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// QueueFlow dispatches events one at a time, in arrival order, on a single
// goroutine draining a private unbounded queue.
//
// Events fed before Start are kept and dispatched once the flow starts.
type QueueFlow struct {
	*flowCore
	queue *eventQueue
}

// NewQueueFlow creates a stopped QueueFlow.
//
//	flow := flowhub.NewQueueFlow(flowhub.WithName("auth"), flowhub.WithLogger(logger))
func NewQueueFlow(opts ...Option) *QueueFlow {
	cfg := newFlowConfig(opts)
	f := &QueueFlow{
		flowCore: newFlowCore(cfg),
		queue:    newEventQueue(),
	}
	f.owner = f
	return f
}

// Feed enqueues e. It never blocks.
func (f *QueueFlow) Feed(e event.Event) bool {
	n, ok := f.queue.push(e)
	if !ok {
		f.drop(e, "flow stopped")
		return false
	}
	f.metrics.RecordQueueLength(context.Background(), f.name, n)
	if t := f.settings.LongQueue; t > 0 && n > t && (n-1)%t == 0 {
		observability.LogLongQueue(f.logger, f.settings.LongQueueLevel, n)
	}
	return true
}

// Len returns the number of queued events.
func (f *QueueFlow) Len() int {
	return f.queue.len()
}

// Start launches the dispatch goroutine. FlowStart is dispatched before any
// event already queued.
func (f *QueueFlow) Start(ctx context.Context) error {
	if err := f.begin(ctx); err != nil {
		return err
	}
	f.queue.pushFront(event.NewFlowStart())
	go f.run()
	return nil
}

func (f *QueueFlow) run() {
	for {
		e, ok := f.queue.pop()
		if !ok {
			break
		}
		f.dispatch(e)
	}
	f.finish()
}

// Stop closes the queue behind a final FlowStop. Events already queued are
// dispatched first; later Feeds are dropped. Stop may be called from a
// handler running on this flow.
func (f *QueueFlow) Stop() error {
	wasRunning, ok := f.end()
	if !ok {
		return nil
	}
	if !wasRunning {
		f.queue.close(nil)
		close(f.done)
		return nil
	}
	f.queue.close(event.NewFlowStop())
	return nil
}
