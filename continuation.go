package corio

import "sync"

// resumeSignal is the value threaded through a Job's underlying
// coroutine on every resumption: either a value of whatever type the
// current suspension point expects, or a failure (ordinarily a
// Cancellation) to raise at that suspension point instead.
type resumeSignal struct {
	value any
	err   error
}

// Continuation is a one-shot, value-consuming resume callback: the
// primitive through which a paused computation is resumed. Exactly one
// of Resume or ResumeWithFailure may be called, exactly once; a second
// call is a usage error and panics with a *UsageError. A Continuation
// may be resumed from any goroutine; the Job's Dispatcher decides where
// the resumption callback that was suspended actually runs.
type Continuation[T any] struct {
	job     *Job
	mu      sync.Mutex
	fired   bool
	raw     func(resumeSignal)
	pending *resumeSignal
}

// attach installs raw as this Continuation's resume callback. If
// tryFire already ran before attach — a cancellation or other external
// event claimed the fire while raw was not yet known — the signal it
// captured is delivered immediately instead of being dropped.
func (c *Continuation[T]) attach(raw func(resumeSignal)) {
	c.mu.Lock()
	if c.pending != nil {
		sig := *c.pending
		c.pending = nil
		c.mu.Unlock()
		raw(sig)
		return
	}
	c.raw = raw
	c.mu.Unlock()
}

// tryFire delivers sig if this Continuation has not already fired,
// reporting whether it did. It never panics, so internal races between,
// e.g., a timer firing and a cancellation arriving can both attempt
// delivery safely — exactly one wins. If raw has not been attached yet
// — the owning suspension has not finished registering with whatever
// it is parked on — the signal is held as pending and delivered by the
// eventual attach instead of dereferencing a nil callback.
func (c *Continuation[T]) tryFire(sig resumeSignal) bool {
	c.mu.Lock()
	if c.fired {
		c.mu.Unlock()
		return false
	}
	c.fired = true
	raw := c.raw
	if raw == nil {
		c.pending = &sig
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()
	raw(sig)
	return true
}

// Resume delivers v as the suspension point's result.
func (c *Continuation[T]) Resume(v T) {
	if !c.tryFire(resumeSignal{value: v}) {
		panic(newUsageError("continuation resumed more than once"))
	}
}

// ResumeWithFailure delivers err as the suspension point's failure.
func (c *Continuation[T]) ResumeWithFailure(err error) {
	if !c.tryFire(resumeSignal{err: err}) {
		panic(newUsageError("continuation resumed more than once"))
	}
}

// suspendSetup is what a suspendHere caller returns after deciding
// whether a suspension resolves synchronously or must park.
type suspendSetup[T any] struct {
	// Sync, Value, and Err: when Sync is true, suspendHere returns
	// (Value, Err) immediately with no unwind — the handler resolved
	// with information already on hand.
	sync  bool
	value T
	err   error

	// onPark is invoked once the Continuation is attached and the
	// coroutine is about to block, so it is always safe for onPark to
	// resume the Continuation immediately (e.g. Yield's unconditional
	// resubmission) without racing the attach itself.
	onPark func(cont *Continuation[T])

	// onCancel, if non-nil, is invoked at most once if the owning Job
	// is cancelled while this suspension is parked; it must resolve the
	// Continuation (usually with a Cancellation failure) and unregister
	// from whatever external resource onPark registered with.
	onCancel func()
}

// suspendHere is the universal suspension primitive every higher-level
// operation (Yield, Delay, Await, Channel send/receive) is built from.
// If the owning Job is already Cancelling, suspendHere resolves to
// Cancellation immediately without even consulting setup. Otherwise
// setup is called with a fresh Continuation[T]; if it resolves
// synchronously, the coroutine continues on the same stack with no
// unwind — resume values arrive identically down either path.
func suspendHere[T any](j *Job, setup func(cont *Continuation[T]) suspendSetup[T]) (T, error) {
	if j.State() == Cancelling {
		var zero T
		return zero, Cancellation{}
	}

	cont := &Continuation[T]{job: j}
	s := setup(cont)
	if s.sync {
		return s.value, s.err
	}

	j.setOnCancel(s.onCancel)
	sig := j.parkRaw(func(resume func(resumeSignal)) {
		cont.attach(resume)
		if s.onPark != nil {
			s.onPark(cont)
		}
	})
	j.clearOnCancel()

	if sig.err != nil {
		var zero T
		return zero, sig.err
	}
	v, _ := sig.value.(T)
	return v, nil
}
