package corio

import "sync"

// ErrGroup launches a collection of Jobs sharing one Context and
// collects the first error any of them returns, cancelling every other
// Job in the group as soon as one fails. It is the structured-
// concurrency analogue of an errgroup, rebuilt on Launch/Cancel instead
// of a cancellable stdlib context.
type ErrGroup struct {
	mu   sync.Mutex
	ctx  *Context
	wg   WaitGroup
	jobs []*Job
	err  error
}

// NewErrGroup returns an ErrGroup whose member Jobs are launched with
// ctx — ordinarily a Context already carrying the current Job, so that
// every member becomes a child of the caller.
func NewErrGroup(ctx *Context) *ErrGroup {
	return &ErrGroup{ctx: ctx}
}

// Go launches block as a new member of the group. If block returns a
// non-nil error other than a Cancellation and no earlier member has
// already failed, that error becomes the group's error and every other
// member Job is cancelled.
func (g *ErrGroup) Go(block func(*Context) error) {
	g.wg.Add(1)

	j := Launch(g.ctx, func(c *Context) error {
		defer g.wg.Done()
		err := block(c)
		if err != nil && !IsCancellation(err) {
			self, _ := JobFromContext(c)
			g.recordFailure(self, err)
		}
		return err
	})

	g.mu.Lock()
	g.jobs = append(g.jobs, j)
	g.mu.Unlock()
}

func (g *ErrGroup) recordFailure(self *Job, err error) {
	g.mu.Lock()
	first := g.err == nil
	if first {
		g.err = err
	}
	jobs := append([]*Job(nil), g.jobs...)
	g.mu.Unlock()

	if first {
		for _, j := range jobs {
			if j != self {
				j.Cancel()
			}
		}
	}
}

// Wait blocks the calling Job — the one found in ctx — until every
// member of the group has finished, then returns the first error any
// of them returned, or nil. If the calling Job is already cancelling,
// as it is once a member's failure has cancelled its parent, Wait
// returns without waiting for the remaining members; it still returns
// the group's first error if one was recorded.
func (g *ErrGroup) Wait(ctx *Context) error {
	waitErr := g.wg.Wait(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	return waitErr
}
