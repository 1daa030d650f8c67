// Package corio provides structured-concurrency primitives built on
// stackful coroutines: a Job tree with cooperative cancellation, typed
// suspension via Continuation and suspendHere, pluggable Dispatchers,
// a single-slot rendezvous Channel, and a pull-based Generator.
//
// Key components:
//
//   - Job: the core unit of work. A Job has at most one parent and any
//     number of children; cancelling a Job cancels its children;
//     an unhandled failure in a child requests cancellation of its
//     parent. RunScope starts a root Job and blocks until the whole
//     tree it grows has drained.
//
//   - Deferred: a Job that additionally carries a typed result,
//     consumed with Await.
//
//   - Dispatcher: decides where a Continuation's resumption runs.
//     InlineDispatcher, SingleThreadDispatcher, and PoolDispatcher
//     are the built-in strategies.
//
//   - Channel: a single-slot rendezvous point between one sender and
//     one receiver at a time.
//
//   - Generator/Sequence: a pull-based iterator over the values a
//     suspendable block produces.
//
//   - Synchronization primitives: Mutex, WaitGroup, ErrGroup, and a
//     single-flight call deduplicator, all suspending the calling
//     Job rather than blocking its underlying goroutine.
package corio
