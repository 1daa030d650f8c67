package coro_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/corio-rt/corio/coro"
)

func TestResumeSequence(t *testing.T) {
	defer goleak.VerifyNone(t)

	var log []string

	c := coro.New(func(yield func(string) int, suspend func() int) string {
		log = append(log, "enter")
		for i := 1; i < 4; i++ {
			log = append(log, fmt.Sprint("before yield ", i))
			v := yield(fmt.Sprint("step ", i))
			log = append(log, fmt.Sprint("after yield ", i, " got ", v))
		}
		log = append(log, "leave")
		return "done"
	})

	var received []string
	for i := 0; i < 5; i++ {
		v, ok := c.Resume(i)
		if !ok {
			received = append(received, v)
			break
		}
		received = append(received, v)
	}

	assert.Equal(t, []string{"step 1", "step 2", "step 3", "done"}, received)
	assert.Equal(t, []string{
		"enter",
		"before yield 1",
		"after yield 1 got 1",
		"before yield 2",
		"after yield 2 got 2",
		"before yield 3",
		"after yield 3 got 3",
		"leave",
	}, log)
}

func TestStopIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c := coro.New(func(_ func(int) struct{}, _ func() struct{}) int { return 0 })
		c.Stop()
		c.Stop()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Stop to return")
	}
}

func TestStopUnwindsRunningBody(t *testing.T) {
	defer goleak.VerifyNone(t)

	var last int
	c := coro.New(func(yield func(int) struct{}, _ func() struct{}) int {
		for i := 1; ; i++ {
			last = i
			yield(i)
		}
	})

	for i := 0; i < 4; i++ {
		v, ok := c.Resume(struct{}{})
		assert.True(t, ok)
		assert.Equal(t, i+1, v)
	}

	assert.NotPanics(t, c.Stop)
	assert.Equal(t, 4, last)
}

func TestPanicPropagation(t *testing.T) {
	tt := []struct {
		name string
		fn   func(c *coro.C[struct{}, int])
	}{
		{"Resume", func(c *coro.C[struct{}, int]) { c.Resume(struct{}{}) }},
		{"Stop", func(c *coro.C[struct{}, int]) { c.Stop() }},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			c := coro.New(func(yield func(int) struct{}, _ func() struct{}) int {
				defer func() { panic("yikes!") }()
				yield(13)
				return 0
			})

			var (
				yielded int
				ok      bool
			)
			assert.NotPanics(t, func() {
				yielded, ok = c.Resume(struct{}{})
			})
			assert.True(t, ok)
			assert.Equal(t, 13, yielded)

			assert.Panics(t, func() { tc.fn(c) })
		})
	}
}

func TestResumeAfterDoneIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := coro.New(func(_ func(int) struct{}, _ func() struct{}) int { return 42 })

	v, ok := c.Resume(struct{}{})
	assert.False(t, ok)
	assert.Equal(t, 42, v)

	v, ok = c.Resume(struct{}{})
	assert.False(t, ok)
	assert.Equal(t, 0, v)
	assert.True(t, c.Done())

	assert.NotPanics(t, c.Stop)
}
