package corio_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	corio "github.com/corio-rt/corio"
)

func TestWaitGroupWaitsForAllDone(t *testing.T) {
	defer goleak.VerifyNone(t)

	var wg corio.WaitGroup
	var mu sync.Mutex
	done := 0
	const n = 4

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		for i := 0; i < n; i++ {
			wg.Add(1)
			corio.Launch(ctx, func(ctx *corio.Context) error {
				defer wg.Done()
				mu.Lock()
				done++
				mu.Unlock()
				return corio.Yield(ctx)
			})
		}
		return wg.Wait(ctx)
	})

	require.NoError(t, err)
	assert.Equal(t, n, done)
}

func TestWaitGroupWaitReturnsImmediatelyAtZero(t *testing.T) {
	defer goleak.VerifyNone(t)

	var wg corio.WaitGroup
	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		return wg.Wait(ctx)
	})
	require.NoError(t, err)
}

func TestWaitGroupNegativeCounterPanics(t *testing.T) {
	var wg corio.WaitGroup
	assert.Panics(t, func() { wg.Done() })
}

func TestWaitGroupWaitUnblocksAllParkedWaiters(t *testing.T) {
	defer goleak.VerifyNone(t)

	var wg corio.WaitGroup
	var mu sync.Mutex
	woken := 0

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		wg.Add(1)

		for i := 0; i < 3; i++ {
			corio.Launch(ctx, func(ctx *corio.Context) error {
				if err := wg.Wait(ctx); err != nil {
					return err
				}
				mu.Lock()
				woken++
				mu.Unlock()
				return nil
			})
		}

		wg.Done()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, woken)
}
