package corio

// Deferred is a Job that produces a typed result: the asynchronous
// analogue of a function call, started eagerly and awaited later.
type Deferred[T any] struct {
	job *Job
}

// Defer starts block as a new Job — a child of the Job found in ctx, if
// any — and returns a Deferred handle to its eventual result. block
// begins running immediately according to ctx's Dispatcher; Defer does
// not block the caller.
func Defer[T any](ctx *Context, block func(*Context) (T, error)) *Deferred[T] {
	j := newJob(ctx, func(c *Context) (any, error) {
		return block(c)
	})
	j.start()
	return &Deferred[T]{job: j}
}

// Job returns the underlying Job, e.g. to Cancel it or inspect State.
func (d *Deferred[T]) Job() *Job { return d.job }

// Cancel requests cancellation of the underlying Job.
func (d *Deferred[T]) Cancel() { d.job.Cancel() }

// Await blocks the calling Job — the one found in ctx — until d's Job
// reaches a terminal state, then returns its value and failure. A
// non-Cancellation failure from d is returned as-is, without being
// re-raised against the awaiter's own parent, even when that failure
// has already cancelled the awaiter. Otherwise the awaiter's own
// cancellation surfaces as a distinguished error here.
func Await[T any](ctx *Context, d *Deferred[T]) (T, error) {
	var zero T

	out, suspendErr := awaitJobRaw(ctx, d.job)
	if suspendErr != nil {
		if d.job.State() == Completed {
			if _, err := d.job.Result(); err != nil {
				return zero, err
			}
		}
		return zero, suspendErr
	}
	if out.err != nil {
		return zero, out.err
	}
	v, _ := out.value.(T)
	return v, nil
}
