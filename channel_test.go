package corio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	corio "github.com/corio-rt/corio"
)

func TestChannelReceiveThenSend(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := corio.NewChannel[int]()
	var got int

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		corio.Launch(ctx, func(ctx *corio.Context) error {
			v, err := ch.Receive(ctx)
			got = v
			return err
		})
		corio.Launch(ctx, func(ctx *corio.Context) error {
			return ch.Send(ctx, 7)
		})
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestChannelSendThenReceive(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := corio.NewChannel[string]()
	var got string

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		corio.Launch(ctx, func(ctx *corio.Context) error {
			return ch.Send(ctx, "hello")
		})
		corio.Launch(ctx, func(ctx *corio.Context) error {
			v, err := ch.Receive(ctx)
			got = v
			return err
		})
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestChannelRegisterSenderThenSend(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := corio.NewChannel[int]()
	var got int
	var registered bool

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		corio.Launch(ctx, func(ctx *corio.Context) error {
			if err := ch.RegisterSender(ctx); err != nil {
				return err
			}
			registered = true
			return ch.Send(ctx, 99)
		})
		corio.Launch(ctx, func(ctx *corio.Context) error {
			v, err := ch.Receive(ctx)
			got = v
			return err
		})
		return nil
	})

	require.NoError(t, err)
	assert.True(t, registered)
	assert.Equal(t, 99, got)
}

func TestChannelConcurrentSendersIsUsageError(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := corio.NewChannel[int]()

	var panicked any
	func() {
		defer func() { panicked = recover() }()
		_ = corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
			corio.Launch(ctx, func(ctx *corio.Context) error {
				return ch.Send(ctx, 1)
			})
			corio.Launch(ctx, func(ctx *corio.Context) error {
				return ch.Send(ctx, 2)
			})
			recv, err := ch.Receive(ctx)
			_ = recv
			return err
		})
	}()

	require.NotNil(t, panicked)
	ue, ok := panicked.(*corio.UsageError)
	require.True(t, ok)
	assert.Contains(t, ue.DebugString(), "concurrent send")
}

func TestChannelCancelWhileParkedSender(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := corio.NewChannel[int]()
	var job *corio.Job
	var sawCancellation bool

	err := corio.RunScope(corio.Background(), func(ctx *corio.Context) error {
		job = corio.Launch(ctx, func(ctx *corio.Context) error {
			err := ch.Send(ctx, 1)
			sawCancellation = corio.IsCancellation(err)
			return err
		})
		job.Cancel()
		return job.Join(ctx)
	})

	require.NoError(t, err)
	assert.True(t, sawCancellation)
	assert.Equal(t, corio.Cancelled, job.State())
}
