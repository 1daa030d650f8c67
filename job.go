package corio

import (
	"context"
	"fmt"
	"runtime/trace"
	"sync"
	"sync/atomic"

	"github.com/corio-rt/corio/coro"
)

var traceRoot = context.Background()

const jobTraceCategory = "job"
const jobTraceRegionType = "run"

// State is a Job's position in its lifecycle.
type State int32

const (
	// Active is a Job that has not been asked to cancel and has not
	// finished.
	Active State = iota
	// Cancelling is a Job that has been asked to cancel but whose body
	// has not yet unwound past its last suspension point.
	Cancelling
	// Completed is a terminal Job whose body ran to completion, either
	// with a value or with a non-Cancellation failure.
	Completed
	// Cancelled is a terminal Job whose outcome is a Cancellation,
	// whether requested explicitly or inherited while Cancelling.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Cancelling:
		return "Cancelling"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// jobOutcome is the fixed return type of every Job's internal
// coroutine: the value the body produced, or the failure it raised.
type jobOutcome struct {
	value any
	err   error
}

var jobSeq atomic.Uint64

// Job is a single node of the structured concurrency tree: a unit of
// cooperatively scheduled work with at most one parent, zero or more
// children, a Dispatcher that decides where its continuations run, and
// exactly one terminal outcome delivered exactly once to every waiter.
type Job struct {
	id     uint64
	ctx    *Context
	parent *Job

	dispatcher Dispatcher
	engine     *coro.C[resumeSignal, jobOutcome]
	suspendFn  func() resumeSignal

	state atomic.Int32

	mu                 sync.Mutex
	children           []*Job
	waitingForChildren bool
	childDrainWake     func(resumeSignal)
	onCancel           func()
	waiters            []func(jobOutcome)
	resultValue        any
	resultErr          error

	task     *trace.Task
	traceCtx context.Context
}

func newJob(parentCtx *Context, body func(*Context) (any, error)) *Job {
	j := &Job{id: jobSeq.Add(1)}

	if pj, ok := JobFromContext(parentCtx); ok {
		j.parent = pj
	}

	ctx := WithJob(parentCtx, j)
	j.ctx = ctx

	if d, ok := DispatcherFromContext(ctx); ok {
		j.dispatcher = d
	} else {
		j.dispatcher = InlineDispatcher{}
	}

	j.engine = coro.New(func(_ func(jobOutcome) resumeSignal, suspend func() resumeSignal) jobOutcome {
		j.suspendFn = suspend
		return j.runBody(body)
	})

	if j.parent != nil {
		j.parent.addChild(j)
	}

	return j
}

func (j *Job) runBody(body func(*Context) (any, error)) (result jobOutcome) {
	taskCtx, task := trace.NewTask(j.parentTraceContext(), j.frameLabel())
	j.task = task
	j.traceCtx = taskCtx
	defer task.End()

	region := trace.StartRegion(taskCtx, jobTraceRegionType)
	defer region.End()

	j.Log(jobTraceCategory, "RUN")

	defer func() {
		if p := recover(); p != nil {
			if ue, ok := p.(*UsageError); ok {
				j.cancelChildrenForUnwind()
				panic(ue)
			}
			result = jobOutcome{err: recoverAsFailure(p, j.frameLabel())}
		}
	}()

	j.awaitChildrenBefore(func() {
		v, err := body(j.ctx)
		result = jobOutcome{value: v, err: err}
	})
	return result
}

// awaitChildrenBefore runs fn then blocks the body until every child
// launched by fn (or earlier) has itself reached a terminal state,
// mirroring the structured-concurrency invariant that a Job is never
// terminal while it still has active children.
func (j *Job) awaitChildrenBefore(fn func()) {
	fn()
	for {
		j.mu.Lock()
		if len(j.children) == 0 {
			j.mu.Unlock()
			return
		}
		j.waitingForChildren = true
		j.mu.Unlock()

		j.parkRaw(func(resume func(resumeSignal)) {
			j.mu.Lock()
			if !j.waitingForChildren {
				// The last child finished before resume was stored.
				j.mu.Unlock()
				resume(resumeSignal{})
				return
			}
			j.childDrainWake = resume
			j.mu.Unlock()
		})
	}
}

// cancelChildrenForUnwind cancels every still-active child of j. It
// runs when a *UsageError is about to tear down j's body via panic
// rather than an ordinary return: without it, any sibling coroutine
// still parked elsewhere in the tree at that moment would never be
// resumed or cancelled, leaking its underlying goroutine forever.
func (j *Job) cancelChildrenForUnwind() {
	j.mu.Lock()
	children := append([]*Job(nil), j.children...)
	j.mu.Unlock()

	for _, c := range children {
		c.Cancel()
	}
}

func (j *Job) frameLabel() string {
	return fmt.Sprintf("job#%d", j.id)
}

// parentTraceContext returns the context.Context a new trace.Task for
// j should nest under: its parent's own trace context if it has one,
// or the package's root trace context for a top-level Job. This is the
// bridge between a Job's place in the structured-concurrency tree and
// the context.Context runtime/trace expects, keeping `go tool trace`'s
// task hierarchy aligned with the Job tree's own parent/child shape
// instead of flattening every Job to one shared root region.
func (j *Job) parentTraceContext() context.Context {
	if j.parent != nil && j.parent.traceCtx != nil {
		return j.parent.traceCtx
	}
	return traceRoot
}

// Log emits a single trace message tagged to this Job's lifecycle,
// visible in a `go tool trace` timeline alongside its suspensions. It
// is a no-op unless a trace is actually being collected.
func (j *Job) Log(category, message string) {
	if !trace.IsEnabled() {
		return
	}
	ctx := j.traceCtx
	if ctx == nil {
		ctx = traceRoot
	}
	trace.Log(ctx, category, message)
}

// Logf is Log with fmt.Sprintf-style formatting.
func (j *Job) Logf(category, format string, args ...any) {
	j.Log(category, fmt.Sprintf(format, args...))
}

// parkRaw blocks the calling coroutine until resumed, handing the
// resumption callback to register before blocking. register runs on a
// freshly spawned goroutine so that, even under a synchronous
// InlineDispatcher, a resume triggered from within register cannot
// reenter this coroutine's own Resume before it has actually parked.
func (j *Job) parkRaw(register func(resume func(resumeSignal))) resumeSignal {
	go register(func(sig resumeSignal) { j.deliver(sig) })
	return j.suspendFn()
}

func (j *Job) deliver(sig resumeSignal) {
	j.dispatcher.Submit(func() { j.driveOnce(sig) })
}

func (j *Job) driveOnce(sig resumeSignal) {
	j.Log(jobTraceCategory, "RESUME")

	defer func() {
		if p := recover(); p != nil {
			if ue, ok := p.(*UsageError); ok {
				panic(ue.withFrame(j.frameLabel()))
			}
			panic(p)
		}
	}()

	out, ok := j.engine.Resume(sig)
	if !ok {
		j.finish(out)
	}
}

// start submits the Job's first resumption. A Job does not run any of
// its body until start is called.
func (j *Job) start() {
	j.Log(jobTraceCategory, "START")
	j.deliver(resumeSignal{})
}

func (j *Job) finish(out jobOutcome) {
	j.mu.Lock()
	wasCancelling := State(j.state.Load()) == Cancelling

	finalVal := out.value
	finalErr := out.err
	if wasCancelling {
		finalVal = nil
		if finalErr == nil || !IsCancellation(finalErr) {
			finalErr = Cancellation{Cause: finalErr}
		}
	}

	j.resultValue = finalVal
	j.resultErr = finalErr
	if IsCancellation(finalErr) {
		j.state.Store(int32(Cancelled))
	} else {
		j.state.Store(int32(Completed))
	}

	waiters := j.waiters
	j.waiters = nil
	j.mu.Unlock()

	j.Logf(jobTraceCategory, "FINISH %v", j.State())

	for _, w := range waiters {
		if w != nil {
			w(jobOutcome{value: finalVal, err: finalErr})
		}
	}

	if j.parent != nil {
		if finalErr != nil && !IsCancellation(finalErr) {
			j.parent.Cancel()
		}
		j.parent.removeChild(j)
	}
}

func (j *Job) addChild(child *Job) {
	j.mu.Lock()
	j.children = append(j.children, child)
	j.mu.Unlock()
}

func (j *Job) removeChild(child *Job) {
	j.mu.Lock()
	for i, c := range j.children {
		if c == child {
			j.children = append(j.children[:i], j.children[i+1:]...)
			break
		}
	}
	var wake func(resumeSignal)
	if len(j.children) == 0 && j.waitingForChildren {
		wake = j.childDrainWake
		j.childDrainWake = nil
		j.waitingForChildren = false
	}
	j.mu.Unlock()

	if wake != nil {
		wake(resumeSignal{})
	}
}

// addWaiter registers fn to run exactly once, with this Job's terminal
// outcome, once this Job reaches a terminal state. If the Job is
// already terminal, ok is false and out already holds the terminal
// outcome; fn is not registered and will never be called. Otherwise ok
// is true and the returned token may later be passed to removeWaiter to
// cancel the registration before it fires.
func (j *Job) addWaiter(fn func(jobOutcome)) (token int, out jobOutcome, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if s := State(j.state.Load()); s == Completed || s == Cancelled {
		return -1, jobOutcome{value: j.resultValue, err: j.resultErr}, false
	}
	j.waiters = append(j.waiters, fn)
	return len(j.waiters) - 1, jobOutcome{}, true
}

func (j *Job) removeWaiter(token int) {
	if token < 0 {
		return
	}
	j.mu.Lock()
	if token < len(j.waiters) {
		j.waiters[token] = nil
	}
	j.mu.Unlock()
}

func (j *Job) setOnCancel(cb func()) {
	j.mu.Lock()
	j.onCancel = cb
	cancelling := State(j.state.Load()) == Cancelling
	j.mu.Unlock()

	if cancelling && cb != nil {
		j.mu.Lock()
		fire := j.onCancel
		j.onCancel = nil
		j.mu.Unlock()
		if fire != nil {
			fire()
		}
	}
}

func (j *Job) clearOnCancel() {
	j.mu.Lock()
	j.onCancel = nil
	j.mu.Unlock()
}

// State returns the Job's current lifecycle state.
func (j *Job) State() State { return State(j.state.Load()) }

// Result returns the Job's terminal value and failure. It is only
// meaningful once State reports Completed or Cancelled.
func (j *Job) Result() (any, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.resultValue, j.resultErr
}

// Cancel requests cancellation of this Job and, transitively, every
// descendant still active. It is idempotent: cancelling an
// already-cancelling or already-terminal Job has no further effect.
// Cancellation is cooperative — the Job's body only observes it at its
// next suspension point — except for any suspension already parked,
// which is forced toward Cancellation immediately via its onCancel
// callback.
func (j *Job) Cancel() {
	for {
		s := j.state.Load()
		if s != int32(Active) {
			return
		}
		if j.state.CompareAndSwap(s, int32(Cancelling)) {
			break
		}
	}

	j.Log(jobTraceCategory, "CANCEL")

	j.mu.Lock()
	cb := j.onCancel
	j.onCancel = nil
	children := append([]*Job(nil), j.children...)
	j.mu.Unlock()

	if cb != nil {
		cb()
	}
	for _, c := range children {
		c.Cancel()
	}
}

// Launch starts block as a new Job, a child of the Job (if any) found
// in ctx, scheduled on ctx's Dispatcher. Launch returns immediately;
// the returned Job reaches a terminal state asynchronously.
func Launch(ctx *Context, block func(*Context) error) *Job {
	j := newJob(ctx, func(c *Context) (any, error) { return nil, block(c) })
	j.start()
	return j
}

// Join blocks the calling Job — the one found in ctx — until target
// reaches a terminal state, without re-raising target's own failure.
// Join only returns a non-nil error if the calling Job itself was
// cancelled while waiting.
func (target *Job) Join(ctx *Context) error {
	_, suspendErr := awaitJobRaw(ctx, target)
	return suspendErr
}

// requireJob retrieves the current Job from ctx, panicking with a
// *UsageError if called outside of one — every suspension helper in
// this package requires a current Job to suspend.
func requireJob(ctx *Context, op string) *Job {
	j, ok := JobFromContext(ctx)
	if !ok {
		panic(newUsageError("%s called without a current Job in context", op))
	}
	return j
}

func awaitJobRaw(awaiterCtx *Context, target *Job) (jobOutcome, error) {
	awaiter := requireJob(awaiterCtx, "Await/Join")

	return suspendHere(awaiter, func(cont *Continuation[jobOutcome]) suspendSetup[jobOutcome] {
		token, out, ok := target.addWaiter(func(out jobOutcome) { cont.tryFire(resumeSignal{value: out}) })
		if !ok {
			return suspendSetup[jobOutcome]{sync: true, value: out}
		}
		return suspendSetup[jobOutcome]{
			onCancel: func() {
				target.removeWaiter(token)
				cont.tryFire(resumeSignal{err: Cancellation{}})
			},
		}
	})
}
