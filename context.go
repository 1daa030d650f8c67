package corio

// Context is an immutable mapping from opaque element keys to elements.
// It is realized as a linked element chain rather than a wrapper around
// context.Context: a CoroutineContext needs override-merge semantics
// (Merge), not just single-value attachment, and its two well-known
// elements — the current Job and the current Dispatcher — are looked up
// far more often than a typical context.Context value. Contexts compose
// by override-merge: the right-hand operand's elements win per key.
//
// The zero value is a valid, empty Context.
type Context struct {
	parent *Context
	key    any
	value  any
}

// Background returns the empty Context.
func Background() *Context { return nil }

// With returns a new Context equal to c but with key bound to value,
// shadowing any existing binding for key.
func (c *Context) With(key, value any) *Context {
	return &Context{parent: c, key: key, value: value}
}

// Value looks up key in c, searching from the most recently added
// element toward the oldest.
func (c *Context) Value(key any) (any, bool) {
	for n := c; n != nil; n = n.parent {
		if n.key == key {
			return n.value, true
		}
	}
	return nil, false
}

// Merge returns a Context containing every element of c and every
// element of other; where both chains bind the same key, other wins.
func (c *Context) Merge(other *Context) *Context {
	if other == nil {
		return c
	}

	var elems []*Context
	for n := other; n != nil; n = n.parent {
		elems = append(elems, n)
	}

	merged := c
	for i := len(elems) - 1; i >= 0; i-- {
		merged = merged.With(elems[i].key, elems[i].value)
	}
	return merged
}

type jobKeyType struct{}
type dispatcherKeyType struct{}

var (
	jobKey        = jobKeyType{}
	dispatcherKey = dispatcherKeyType{}
)

// WithJob binds j as the current Job element of ctx.
func WithJob(ctx *Context, j *Job) *Context {
	return ctx.With(jobKey, j)
}

// JobFromContext retrieves the current Job element of ctx, if any.
func JobFromContext(ctx *Context) (*Job, bool) {
	v, ok := ctx.Value(jobKey)
	if !ok {
		return nil, false
	}
	j, ok := v.(*Job)
	return j, ok
}

// WithDispatcher binds d as the current Dispatcher element of ctx.
func WithDispatcher(ctx *Context, d Dispatcher) *Context {
	return ctx.With(dispatcherKey, d)
}

// DispatcherFromContext retrieves the current Dispatcher element of
// ctx, if any.
func DispatcherFromContext(ctx *Context) (Dispatcher, bool) {
	v, ok := ctx.Value(dispatcherKey)
	if !ok {
		return nil, false
	}
	d, ok := v.(Dispatcher)
	return d, ok
}
