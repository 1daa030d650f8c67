package corio

import "github.com/corio-rt/corio/coro"

// genStep is the fixed Out type of a generator's internal coroutine:
// the value just yielded, or a failure to re-raise to the puller.
type genStep[T any] struct {
	value T
	err   error
}

// Yielder is the capability a generator body uses to produce values.
// It is only valid for the lifetime of the call to the block passed to
// Generate.
type Yielder[T any] struct {
	yield func(genStep[T]) struct{}
}

// Yield produces v to whichever caller is pulling via HasNext/Next,
// parking until the next pull.
func (y *Yielder[T]) Yield(v T) {
	y.yield(genStep[T]{value: v})
}

// Sequence is a demand-driven iterator over the values a generator
// block produces, one coroutine per Sequence.
type Sequence[T any] struct {
	engine  *coro.C[struct{}, genStep[T]]
	pending bool
	done    bool
	cur     T
}

// Generate builds a Sequence from block, which receives a Yielder to
// produce values through. block does not run at all until the first
// call to HasNext or Next.
func Generate[T any](block func(*Yielder[T])) *Sequence[T] {
	s := &Sequence[T]{}
	s.engine = coro.New(func(yield func(genStep[T]) struct{}, _ func() struct{}) (result genStep[T]) {
		defer func() {
			if p := recover(); p != nil {
				if ue, ok := p.(*UsageError); ok {
					panic(ue)
				}
				result = genStep[T]{err: recoverAsFailure(p, "generator")}
			}
		}()
		y := &Yielder[T]{yield: yield}
		block(y)
		return genStep[T]{}
	})
	return s
}

// HasNext reports whether another value is available, advancing the
// generator body if necessary. If the body raises a failure, HasNext
// re-raises it to the caller as a panic rather than returning false.
func (s *Sequence[T]) HasNext() bool {
	if s.done {
		return false
	}
	if s.pending {
		return true
	}

	out, ok := s.engine.Resume(struct{}{})
	if !ok {
		s.done = true
		if out.err != nil {
			panic(out.err)
		}
		return false
	}

	s.cur = out.value
	s.pending = true
	return true
}

// Next returns the value HasNext most recently made available, calling
// HasNext first if it has not yet been called. Next panics if no value
// is available.
func (s *Sequence[T]) Next() T {
	if !s.pending && !s.HasNext() {
		panic(newUsageError("generator: Next called with no value available"))
	}
	s.pending = false
	return s.cur
}

// Close unwinds the generator's coroutine if it has not already run to
// completion. Callers that abandon a Sequence before exhausting it
// should Close it to avoid leaking the underlying goroutine.
func (s *Sequence[T]) Close() {
	if !s.done {
		s.done = true
		s.engine.Stop()
	}
}
