package corio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	corio "github.com/corio-rt/corio"
)

func TestErrGroupWaitsForAllOnSuccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	var ran [3]bool
	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		g := corio.NewErrGroup(ctx)
		for i := 0; i < 3; i++ {
			i := i
			g.Go(func(ctx *corio.Context) error {
				ran[i] = true
				return nil
			})
		}
		return g.Wait(ctx)
	})

	require.NoError(t, err)
	assert.Equal(t, [3]bool{true, true, true}, ran)
}

func TestErrGroupCancelsSiblingsOnFirstFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	var survivorCancelled bool

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		g := corio.NewErrGroup(ctx)
		g.Go(func(ctx *corio.Context) error {
			err := corio.Delay(ctx, time.Hour)
			survivorCancelled = corio.IsCancellation(err)
			return err
		})
		g.Go(func(ctx *corio.Context) error {
			return boom
		})
		return g.Wait(ctx)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, survivorCancelled)
}
