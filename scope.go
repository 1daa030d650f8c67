package corio

import (
	"sync/atomic"
	"time"
)

// RunScope constructs a root Job for block, scheduled on ctx's
// Dispatcher (InlineDispatcher if ctx carries none), and blocks the
// calling goroutine until that Job and every descendant it transitively
// launched have reached a terminal state. It is the only blocking
// primitive this package exposes — every other operation either
// returns immediately or suspends a coroutine without blocking an OS
// thread. block's own failure, if any, is re-raised to the caller;
// Cancellation is returned like any other error, never panicked.
func RunScope(ctx *Context, block func(*Context) error) error {
	if _, ok := DispatcherFromContext(ctx); !ok {
		ctx = WithDispatcher(ctx, InlineDispatcher{})
	}

	root := newJob(ctx, func(c *Context) (any, error) { return nil, block(c) })

	done := make(chan jobOutcome, 1)
	_, _, _ = root.addWaiter(func(out jobOutcome) { done <- out })
	root.start()

	out := <-done
	return out.err
}

// Yield suspends the calling coroutine and immediately resubmits its
// continuation through its own Dispatcher, giving other ready
// continuations a chance to run on a SingleThreadDispatcher or
// PoolDispatcher. Under an InlineDispatcher this is effectively a
// no-op. Yield checks cancellation on entry: a cancelled coroutine's
// Yield resumes with Cancellation instead of suspending.
func Yield(ctx *Context) error {
	j := requireJob(ctx, "Yield")

	_, err := suspendHere(j, func(cont *Continuation[struct{}]) suspendSetup[struct{}] {
		return suspendSetup[struct{}]{
			onPark: func(cont *Continuation[struct{}]) {
				j.dispatcher.Submit(func() { cont.tryFire(resumeSignal{}) })
			},
			onCancel: func() {
				cont.tryFire(resumeSignal{err: Cancellation{}})
			},
		}
	})
	return err
}

// Delay suspends the calling coroutine and schedules its continuation
// to resume, through its own Dispatcher, after d elapses. Cancelling
// the Job while Delay is parked disarms the pending timer and resumes
// it with Cancellation immediately rather than waiting for d to elapse.
func Delay(ctx *Context, d time.Duration) error {
	j := requireJob(ctx, "Delay")

	var timer atomic.Pointer[time.Timer]
	_, err := suspendHere(j, func(cont *Continuation[struct{}]) suspendSetup[struct{}] {
		return suspendSetup[struct{}]{
			onPark: func(cont *Continuation[struct{}]) {
				timer.Store(time.AfterFunc(d, func() {
					j.dispatcher.Submit(func() { cont.tryFire(resumeSignal{}) })
				}))
			},
			onCancel: func() {
				if t := timer.Load(); t != nil {
					t.Stop()
				}
				cont.tryFire(resumeSignal{err: Cancellation{}})
			},
		}
	})
	return err
}
