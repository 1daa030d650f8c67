package coro

import "sync/atomic"

// stopSignal is the sentinel panicked into a parked coroutine body to
// unwind it when Stop is called. It never leaves the package.
type stopSignal struct{}

var theStopSignal = &stopSignal{}

type request[In any] struct {
	value In
	stop  bool
}

type outcome[Out any] struct {
	value Out
	done  bool
	panic any
}

// C is a stackful coroutine exchanging values of type In on resume and
// values of type Out on yield/return. It runs on a dedicated goroutine
// that blocks between resumptions; Resume and Stop must never be called
// concurrently with each other on the same C — the caller holding the
// coroutine's current continuation is always the sole party resuming it,
// exactly as a suspended coroutine has exactly one outstanding
// continuation at a time.
type C[In, Out any] struct {
	req  chan request[In]
	out  chan outcome[Out]
	done atomic.Bool
}

// New starts fn on a fresh goroutine and parks it immediately; the
// goroutine does not run any of fn's body until the first Resume. yield
// hands a value to the controller and parks for the next input; suspend
// parks with no outgoing value. fn's return value is delivered as the
// Out of the final Resume.
func New[In, Out any](fn func(yield func(Out) In, suspend func() In) Out) *C[In, Out] {
	c := &C[In, Out]{
		req: make(chan request[In]),
		out: make(chan outcome[Out]),
	}

	go c.run(fn)

	return c
}

func (c *C[In, Out]) run(fn func(yield func(Out) In, suspend func() In) Out) {
	defer func() {
		if p := recover(); p != nil {
			if p == theStopSignal {
				c.out <- outcome[Out]{done: true}
				return
			}
			c.out <- outcome[Out]{panic: p, done: true}
		}
	}()

	if req := <-c.req; req.stop {
		panic(theStopSignal)
	}

	yield := func(v Out) In {
		c.out <- outcome[Out]{value: v}
		req := <-c.req
		if req.stop {
			panic(theStopSignal)
		}
		return req.value
	}

	suspend := func() In {
		c.out <- outcome[Out]{}
		req := <-c.req
		if req.stop {
			panic(theStopSignal)
		}
		return req.value
	}

	result := fn(yield, suspend)
	c.out <- outcome[Out]{value: result, done: true}
}

// Resume delivers v to the parked coroutine and blocks until it next
// yields, returns, or panics. ok is false once the coroutine has
// terminated; resuming a terminated coroutine is a no-op returning the
// zero Out.
func (c *C[In, Out]) Resume(v In) (out Out, ok bool) {
	if c.done.Load() {
		return out, false
	}

	c.req <- request[In]{value: v}
	o := <-c.out

	if o.panic != nil {
		c.done.Store(true)
		panic(o.panic)
	}
	if o.done {
		c.done.Store(true)
	}
	return o.value, !o.done
}

// Stop unwinds the coroutine, running its deferred statements, and waits
// for it to fully terminate. It is idempotent: calling Stop on an
// already-terminated coroutine is a no-op. If unwinding surfaces a panic
// from the coroutine body (as opposed to a clean unwind to the top of
// the body), Stop re-raises it, exactly as Resume would.
func (c *C[In, Out]) Stop() {
	if c.done.Swap(true) {
		return
	}

	c.req <- request[In]{stop: true}
	o := <-c.out

	if o.panic != nil {
		panic(o.panic)
	}
}

// Done reports whether the coroutine has terminated, either by
// returning, panicking, or being Stopped.
func (c *C[In, Out]) Done() bool {
	return c.done.Load()
}
