package corio

import (
	"context"

	"github.com/gammazero/deque"
	"golang.org/x/sync/semaphore"
)

// Dispatcher decides on which goroutine a Continuation's resumption
// callback runs. Implementations must guarantee that a submitted task
// runs to completion-or-suspension without preemption by this package.
type Dispatcher interface {
	Submit(task func())
}

// InlineDispatcher runs every submitted task synchronously on the
// calling goroutine. It is the default for RunScope and gives no
// parallelism: every coroutine resumed through it runs to its next
// suspension point before Submit returns.
type InlineDispatcher struct{}

// Submit runs task synchronously.
func (InlineDispatcher) Submit(task func()) { task() }

// SingleThreadDispatcher serializes every submitted task onto one
// dedicated worker goroutine, the analogue of a UI event loop. Tasks run
// strictly in submission order.
type SingleThreadDispatcher struct {
	q      deque.Deque[func()]
	wakeup chan struct{}
	mu     chan struct{} // 1-buffered mutex guarding q
	stop   chan struct{}
}

// NewSingleThreadDispatcher starts the worker goroutine and returns a
// ready-to-use dispatcher. Call Stop to shut the worker down once no
// further tasks will be submitted.
func NewSingleThreadDispatcher() *SingleThreadDispatcher {
	d := &SingleThreadDispatcher{
		wakeup: make(chan struct{}, 1),
		mu:     make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	d.mu <- struct{}{}
	go d.run()
	return d
}

// Submit enqueues task for execution on the worker goroutine.
func (d *SingleThreadDispatcher) Submit(task func()) {
	<-d.mu
	d.q.PushBack(task)
	d.mu <- struct{}{}

	select {
	case d.wakeup <- struct{}{}:
	default:
	}
}

// Stop terminates the worker goroutine once its queue drains. It does
// not wait for pending tasks submitted concurrently with Stop.
func (d *SingleThreadDispatcher) Stop() {
	close(d.stop)
}

func (d *SingleThreadDispatcher) run() {
	for {
		<-d.mu
		var task func()
		if d.q.Len() > 0 {
			task = d.q.PopFront()
		}
		d.mu <- struct{}{}

		if task != nil {
			task()
			continue
		}

		select {
		case <-d.wakeup:
		case <-d.stop:
			return
		}
	}
}

// PoolDispatcher forwards submitted tasks to fresh goroutines, bounded
// to at most n concurrently running at once via a weighted semaphore.
// Distinct coroutines dispatched through a PoolDispatcher may run
// simultaneously on distinct OS threads; any single coroutine's own
// continuations remain strictly serialized since it only ever has one
// outstanding continuation at a time.
type PoolDispatcher struct {
	sem *semaphore.Weighted
}

// NewPoolDispatcher returns a PoolDispatcher allowing at most n tasks to
// run concurrently. n must be positive.
func NewPoolDispatcher(n int64) *PoolDispatcher {
	return &PoolDispatcher{sem: semaphore.NewWeighted(n)}
}

// Submit schedules task to run on a pool goroutine once a slot is
// available. Submit itself does not block past the semaphore wait: it
// returns once task's goroutine has been started, not once task
// finishes.
func (d *PoolDispatcher) Submit(task func()) {
	_ = d.sem.Acquire(context.Background(), 1)
	go func() {
		defer d.sem.Release(1)
		task()
	}()
}
