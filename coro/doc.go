// Package coro implements stackful coroutines on top of goroutines for
// the suspension and resuming of generalized subroutines.
//
// A coroutine is built from a function taking a yield and a suspend
// closure. yield hands a value to the controller and parks for the next
// input; suspend parks with no outgoing value. Resume and Stop drive the
// coroutine from the controlling goroutine; both may be called from any
// goroutine, but only one call is ever in flight on a given coroutine at
// a time.
package coro
