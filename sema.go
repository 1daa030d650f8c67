package corio

import (
	"sync"

	"github.com/gammazero/deque"
)

// sema is a counting semaphore for coroutine synchronization: a count
// of available resources and a FIFO queue of continuations parked
// waiting for one.
type sema struct {
	noCopy noCopy
	mu     sync.Mutex
	v      uint32
	w      deque.Deque[*Continuation[struct{}]]
}

// acquire attempts to acquire the semaphore for the Job found in ctx.
// If no resources are available, the calling coroutine parks until
// release hands it one.
func (s *sema) acquire(ctx *Context) error {
	j := requireJob(ctx, "semaphore acquire")

	_, err := suspendHere(j, func(cont *Continuation[struct{}]) suspendSetup[struct{}] {
		s.mu.Lock()
		if s.v > 0 {
			s.v--
			s.mu.Unlock()
			return suspendSetup[struct{}]{sync: true}
		}
		s.w.PushBack(cont)
		s.mu.Unlock()

		return suspendSetup[struct{}]{onCancel: func() {
			s.removeWaiter(cont)
			cont.tryFire(resumeSignal{err: Cancellation{}})
		}}
	})
	return err
}

// release releases the semaphore. If a continuation is waiting to
// acquire it, that continuation is resumed directly rather than
// incrementing the count; otherwise the count is incremented.
func (s *sema) release() {
	s.mu.Lock()
	if s.w.Len() == 0 {
		s.v++
		s.mu.Unlock()
		return
	}
	cont := s.w.PopFront()
	s.mu.Unlock()

	cont.tryFire(resumeSignal{})
}

// parkWaiter enqueues cont to be woken by a future release, without
// consuming or reporting an available permit. WaitGroup uses this
// directly so its own Wait can run its uncontended fast path through
// suspendHere (for the sticky-cancellation check) while still sharing
// sema's release/removeWaiter machinery for the contended path.
func (s *sema) parkWaiter(cont *Continuation[struct{}]) {
	s.mu.Lock()
	s.w.PushBack(cont)
	s.mu.Unlock()
}

func (s *sema) removeWaiter(target *Continuation[struct{}]) {
	s.mu.Lock()
	for i := 0; i < s.w.Len(); i++ {
		if s.w.At(i) == target {
			s.w.Remove(i)
			break
		}
	}
	s.mu.Unlock()
}

func (s *sema) waitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Len()
}
