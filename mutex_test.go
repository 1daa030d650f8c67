package corio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	corio "github.com/corio-rt/corio"
)

func TestMutexExcludesConcurrentHolders(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu corio.Mutex
	counter := 0
	const n = 5

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		var wg corio.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			corio.Launch(ctx, func(ctx *corio.Context) error {
				defer wg.Done()
				if err := mu.Lock(ctx); err != nil {
					return err
				}
				defer mu.Unlock()
				local := counter
				require.NoError(t, corio.Yield(ctx))
				counter = local + 1
				return nil
			})
		}
		return wg.Wait(ctx)
	})

	require.NoError(t, err)
	assert.Equal(t, n, counter)
}

func TestMutexPassesLockDirectlyToWaiter(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu corio.Mutex
	var order []string

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		require.NoError(t, mu.Lock(ctx))

		waiter := corio.Launch(ctx, func(ctx *corio.Context) error {
			if err := mu.Lock(ctx); err != nil {
				return err
			}
			defer mu.Unlock()
			order = append(order, "waiter")
			return nil
		})

		require.Equal(t, 1, mu.WaitCount())
		order = append(order, "holder")
		mu.Unlock()

		return waiter.Join(ctx)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"holder", "waiter"}, order)
}

func TestMutexCancelWhileWaitingRemovesFromQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu corio.Mutex
	var job *corio.Job
	var lockErr error

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		require.NoError(t, mu.Lock(ctx))

		job = corio.Launch(ctx, func(ctx *corio.Context) error {
			lockErr = mu.Lock(ctx)
			return lockErr
		})
		require.Equal(t, 1, mu.WaitCount())

		job.Cancel()
		_ = job.Join(ctx)
		assert.Equal(t, 0, mu.WaitCount())

		mu.Unlock()
		return nil
	})

	require.NoError(t, err)
	assert.True(t, corio.IsCancellation(lockErr))
}
