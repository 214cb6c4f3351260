package flowhub

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
)

// Pool errors.
var (
	// ErrPoolFull indicates the pool queue is at capacity.
	ErrPoolFull = errors.New("pool queue full")

	// ErrPoolClosed indicates the pool no longer accepts tasks.
	ErrPoolClosed = errors.New("pool closed")
)

// Pool runs tasks on goroutines it owns.
type Pool interface {
	// Submit queues task without blocking.
	Submit(task func()) error
}

// WorkerPool is a fixed set of workers draining a bounded task queue.
type WorkerPool struct {
	queueSize int
	workers   int
	logger    *slog.Logger

	mu     sync.RWMutex
	queue  chan func()
	closed bool
	wg     sync.WaitGroup

	submitted atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64
}

// PoolOption configures a WorkerPool.
type PoolOption func(*WorkerPool)

// WithWorkers sets the number of worker goroutines. Default: 10.
func WithWorkers(n int) PoolOption {
	return func(p *WorkerPool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueueSize sets the task queue capacity. Default: 10000.
func WithQueueSize(n int) PoolOption {
	return func(p *WorkerPool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithPoolLogger sets the logger used for task panics.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *WorkerPool) {
		p.logger = logger
	}
}

// NewWorkerPool creates a pool and starts its workers.
func NewWorkerPool(opts ...PoolOption) *WorkerPool {
	p := &WorkerPool{
		queueSize: 10000,
		workers:   10,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan func(), p.queueSize)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues task. It returns ErrPoolFull when the queue is at capacity
// and ErrPoolClosed after Close.
func (p *WorkerPool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		return ErrPoolFull
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error("pool task panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
		p.completed.Add(1)
	}()
	task()
}

// Close stops accepting tasks and waits for queued tasks to finish or ctx to
// be done.
func (p *WorkerPool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PoolStats contains counters for a WorkerPool.
type PoolStats struct {
	Submitted  uint64
	Completed  uint64
	Panicked   uint64
	Dropped    uint64
	QueueDepth int
}

// Stats returns pool counters.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Panicked:   p.panicked.Load(),
		Dropped:    p.dropped.Load(),
		QueueDepth: len(p.queue),
	}
}

// PoolFlow dispatches each event as a task on a Pool. The chain for one event
// runs sequentially; separate events run concurrently and in no set order.
//
// Events fed before Start or after Stop are dropped.
type PoolFlow struct {
	*flowCore
	pool     Pool
	ownsPool bool

	inflight sync.WaitGroup
}

// NewPoolFlow creates a stopped PoolFlow. Without WithPool it creates and
// owns a WorkerPool, closed when the flow stops.
func NewPoolFlow(opts ...Option) *PoolFlow {
	cfg := newFlowConfig(opts)
	f := &PoolFlow{
		flowCore: newFlowCore(cfg),
		pool:     cfg.pool,
	}
	if f.pool == nil {
		f.pool = NewWorkerPool(WithPoolLogger(f.logger))
		f.ownsPool = true
	}
	f.owner = f
	return f
}

// Feed submits the dispatch of e to the pool.
func (f *PoolFlow) Feed(e event.Event) bool {
	f.mu.Lock()
	if f.state != stateRunning {
		state := f.state
		f.mu.Unlock()
		f.drop(e, "flow "+state.String())
		return false
	}
	f.inflight.Add(1)
	f.mu.Unlock()

	err := f.pool.Submit(func() {
		defer f.inflight.Done()
		defer escalate()
		f.dispatch(e)
	})
	if err != nil {
		f.inflight.Done()
		f.drop(e, err.Error())
		return false
	}
	return true
}

// Start dispatches FlowStart on the calling goroutine, then accepts events.
func (f *PoolFlow) Start(ctx context.Context) error {
	if err := f.begin(ctx); err != nil {
		return err
	}
	f.dispatch(event.NewFlowStart())
	return nil
}

// Stop rejects new events, then in the background waits for in-flight
// dispatches, dispatches FlowStop and closes Done.
func (f *PoolFlow) Stop() error {
	wasRunning, ok := f.end()
	if !ok {
		return nil
	}
	if !wasRunning {
		f.closePool()
		close(f.done)
		return nil
	}
	go func() {
		f.inflight.Wait()
		f.dispatch(event.NewFlowStop())
		f.closePool()
		f.finish()
	}()
	return nil
}

// escalate lets a *HandlerError raised by the error handler end the process
// instead of being absorbed by the pool's panic recovery, as it would on a
// QueueFlow.
func escalate() {
	r := recover()
	if r == nil {
		return
	}
	if herr, ok := r.(*HandlerError); ok {
		go func() { panic(herr) }()
		return
	}
	panic(r)
}

func (f *PoolFlow) closePool() {
	if !f.ownsPool {
		return
	}
	if wp, ok := f.pool.(*WorkerPool); ok {
		_ = wp.Close(context.Background())
	}
}
