package corio

import "sync"

// WaitGroup waits for a collection of coroutines to finish. Coroutines
// call Add(1) when they start and Done() when they finish; other
// coroutines call Wait to park until the counter returns to zero. The
// zero value is a ready-to-use WaitGroup with a zero counter.
type WaitGroup struct {
	noCopy noCopy
	mu     sync.Mutex
	v      int32
	w      uint32
	sema   sema
}

// Add adds delta to the WaitGroup counter. If the counter returns to
// zero, every parked Wait call is resumed. Add panics if the counter
// would go negative, or if it transitions away from zero while
// coroutines are already parked in Wait.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	wg.v += int32(delta)
	if wg.v < 0 {
		wg.mu.Unlock()
		panic(newUsageError("negative WaitGroup counter"))
	}
	if wg.w != 0 && delta > 0 && wg.v == int32(delta) {
		wg.mu.Unlock()
		panic(newUsageError("WaitGroup misuse: Add called concurrently with Wait"))
	}
	if wg.v > 0 || wg.w == 0 {
		wg.mu.Unlock()
		return
	}

	n := wg.w
	wg.w = 0
	wg.mu.Unlock()

	for ; n != 0; n-- {
		wg.sema.release()
	}
}

// Done decrements the WaitGroup counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait blocks the calling coroutine — the Job found in ctx — until the
// WaitGroup counter returns to zero. If the counter is already zero,
// Wait returns immediately unless the Job is already Cancelling.
func (wg *WaitGroup) Wait(ctx *Context) error {
	j := requireJob(ctx, "WaitGroup.Wait")

	_, err := suspendHere(j, func(cont *Continuation[struct{}]) suspendSetup[struct{}] {
		wg.mu.Lock()
		if wg.v == 0 {
			wg.mu.Unlock()
			return suspendSetup[struct{}]{sync: true}
		}
		wg.w++
		wg.mu.Unlock()

		wg.sema.parkWaiter(cont)

		return suspendSetup[struct{}]{onCancel: func() {
			wg.sema.removeWaiter(cont)
			cont.tryFire(resumeSignal{err: Cancellation{}})
		}}
	})
	return err
}
