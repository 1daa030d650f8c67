package corio

import "sync"

type chanTag int

const (
	chanEmpty chanTag = iota
	chanSenderRegistered
	chanSenderWaiting
	chanReceiverWaiting
)

// Channel is a single-slot rendezvous point between exactly one
// producer and one consumer at a time. It has no buffer: Send parks
// until a Receive is ready to take the value (or hands off immediately
// if one already is), and vice versa. A second concurrent sender or
// receiver while one is already registered or parked is a usage error.
//
// The state cell is guarded by a mutex rather than a raw lock-free CAS
// loop: installing a party's Continuation into the cell and arming its
// cancellation hook must happen as one atomic step relative to a
// concurrent peer's transition, and the mutex gives that directly
// without a retry-capable suspension primitive. Exactly one party ever
// performs a given handoff, and the loser of any race always observes
// the post-handoff state under the same lock — the mutex preserves the
// transition table's exactly-once, never-reordered guarantee just as a
// compare-and-swap loop would.
type Channel[T any] struct {
	mu  sync.Mutex
	tag chanTag

	value    T
	sender   *Continuation[struct{}]
	receiver *Continuation[T]
}

// NewChannel returns a fresh, empty Channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{}
}

// RegisterSender announces intent to send without yet having a value
// ready. If a receiver is already parked, RegisterSender returns
// immediately (the receiver is left waiting for the upcoming Send).
// Otherwise it parks until a receiver arrives, at which point the
// caller should proceed to compute its value and call Send.
func (ch *Channel[T]) RegisterSender(ctx *Context) error {
	j := requireJob(ctx, "Channel.RegisterSender")

	_, err := suspendHere(j, func(cont *Continuation[struct{}]) suspendSetup[struct{}] {
		ch.mu.Lock()
		switch ch.tag {
		case chanEmpty:
			ch.tag = chanSenderRegistered
			ch.sender = cont
			ch.mu.Unlock()
			return suspendSetup[struct{}]{onCancel: func() {
				ch.clearSenderIfMatches(cont)
				cont.tryFire(resumeSignal{err: Cancellation{}})
			}}
		case chanReceiverWaiting:
			ch.mu.Unlock()
			return suspendSetup[struct{}]{sync: true}
		default:
			ch.mu.Unlock()
			panic(newUsageError("channel: concurrent sender while a sender is already registered or waiting"))
		}
	})
	return err
}

// Send hands v to the channel. If a receiver is already parked, the
// handoff completes synchronously. Otherwise Send parks until a
// receiver arrives to take v.
func (ch *Channel[T]) Send(ctx *Context, v T) error {
	j := requireJob(ctx, "Channel.Send")

	_, err := suspendHere(j, func(cont *Continuation[struct{}]) suspendSetup[struct{}] {
		ch.mu.Lock()
		switch ch.tag {
		case chanEmpty, chanSenderRegistered:
			ch.tag = chanSenderWaiting
			ch.value = v
			ch.sender = cont
			ch.mu.Unlock()
			return suspendSetup[struct{}]{onCancel: func() {
				ch.clearSenderIfMatches(cont)
				cont.tryFire(resumeSignal{err: Cancellation{}})
			}}
		case chanReceiverWaiting:
			recv := ch.receiver
			ch.tag = chanEmpty
			ch.receiver = nil
			ch.mu.Unlock()
			recv.tryFire(resumeSignal{value: v})
			return suspendSetup[struct{}]{sync: true}
		default:
			ch.mu.Unlock()
			panic(newUsageError("channel: concurrent send while a sender is already waiting"))
		}
	})
	return err
}

// Receive takes the next value sent on the channel, parking if none is
// yet available.
func (ch *Channel[T]) Receive(ctx *Context) (T, error) {
	j := requireJob(ctx, "Channel.Receive")

	return suspendHere(j, func(cont *Continuation[T]) suspendSetup[T] {
		ch.mu.Lock()
		switch ch.tag {
		case chanEmpty:
			ch.tag = chanReceiverWaiting
			ch.receiver = cont
			ch.mu.Unlock()
			return suspendSetup[T]{onCancel: func() {
				ch.clearReceiverIfMatches(cont)
				cont.tryFire(resumeSignal{err: Cancellation{}})
			}}
		case chanSenderRegistered:
			sender := ch.sender
			ch.tag = chanReceiverWaiting
			ch.sender = nil
			ch.receiver = cont
			ch.mu.Unlock()
			sender.tryFire(resumeSignal{})
			return suspendSetup[T]{onCancel: func() {
				ch.clearReceiverIfMatches(cont)
				cont.tryFire(resumeSignal{err: Cancellation{}})
			}}
		case chanSenderWaiting:
			v := ch.value
			sender := ch.sender
			var zero T
			ch.tag = chanEmpty
			ch.sender = nil
			ch.value = zero
			ch.mu.Unlock()
			sender.tryFire(resumeSignal{})
			return suspendSetup[T]{sync: true, value: v}
		default:
			ch.mu.Unlock()
			panic(newUsageError("channel: concurrent receive while a receiver is already waiting"))
		}
	})
}

func (ch *Channel[T]) clearSenderIfMatches(cont *Continuation[struct{}]) {
	ch.mu.Lock()
	if ch.sender == cont {
		var zero T
		ch.tag = chanEmpty
		ch.sender = nil
		ch.value = zero
	}
	ch.mu.Unlock()
}

func (ch *Channel[T]) clearReceiverIfMatches(cont *Continuation[T]) {
	ch.mu.Lock()
	if ch.receiver == cont {
		ch.tag = chanEmpty
		ch.receiver = nil
	}
	ch.mu.Unlock()
}
