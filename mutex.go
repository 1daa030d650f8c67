package corio

import (
	"sync"

	"github.com/gammazero/deque"
)

// Mutex provides mutual exclusion for coroutines. It allows only one
// caller to hold the lock at a time, parking others that attempt to
// acquire it until it is released. The zero value is an unlocked
// Mutex ready to use.
type Mutex struct {
	noCopy noCopy
	mu     sync.Mutex
	held   bool
	w      deque.Deque[*Continuation[struct{}]]
}

// Lock acquires the mutex for the Job found in ctx, parking if it is
// already held.
func (m *Mutex) Lock(ctx *Context) error {
	j := requireJob(ctx, "Mutex.Lock")

	_, err := suspendHere(j, func(cont *Continuation[struct{}]) suspendSetup[struct{}] {
		m.mu.Lock()
		if !m.held {
			m.held = true
			m.mu.Unlock()
			return suspendSetup[struct{}]{sync: true}
		}
		m.w.PushBack(cont)
		m.mu.Unlock()

		return suspendSetup[struct{}]{onCancel: func() {
			m.removeWaiter(cont)
			cont.tryFire(resumeSignal{err: Cancellation{}})
		}}
	})
	return err
}

// Unlock releases the mutex. If a coroutine is waiting to acquire it,
// the lock passes directly to that coroutine without ever reporting
// itself unheld.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	if m.w.Len() == 0 {
		m.held = false
		m.mu.Unlock()
		return
	}
	next := m.w.PopFront()
	m.mu.Unlock()

	next.tryFire(resumeSignal{})
}

func (m *Mutex) removeWaiter(target *Continuation[struct{}]) {
	m.mu.Lock()
	for i := 0; i < m.w.Len(); i++ {
		if m.w.At(i) == target {
			m.w.Remove(i)
			break
		}
	}
	m.mu.Unlock()
}

// WaitCount returns the number of coroutines waiting to acquire the
// mutex.
func (m *Mutex) WaitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.w.Len()
}
