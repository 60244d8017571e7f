package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArbiter_RunsEveryTaskUntilContextCancelled(t *testing.T) {
	a := New()
	var running int32

	for i := 0; i < 3; i++ {
		a.Spawn("task", func(ctx context.Context) error {
			atomic.AddInt32(&running, 1)
			<-ctx.Done()
			atomic.AddInt32(&running, -1)
			return ctx.Err()
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&running) == 3
	}, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	require.Equal(t, int32(0), atomic.LoadInt32(&running))
}

func TestArbiter_OneTaskFailureCancelsSiblings(t *testing.T) {
	a := New()
	boom := errors.New("task exploded")

	a.Spawn("failing", func(ctx context.Context) error {
		return boom
	})

	siblingCancelled := make(chan struct{})
	a.Spawn("sibling", func(ctx context.Context) error {
		<-ctx.Done()
		close(siblingCancelled)
		return ctx.Err()
	})

	err := a.Run(context.Background())
	require.ErrorIs(t, err, boom)

	select {
	case <-siblingCancelled:
	case <-time.After(time.Second):
		t.Fatal("sibling task was never cancelled")
	}
}

func TestArbiter_ShutdownWaitsForTasksToReturn(t *testing.T) {
	a := New()
	a.Spawn("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	go func() { _ = a.Run(context.Background()) }()

	require.Eventually(t, func() bool { return a.cancel != nil }, time.Second, 10*time.Millisecond)
	require.NoError(t, a.Shutdown(time.Second))
}

func TestArbiter_ShutdownBeforeRunIsANoop(t *testing.T) {
	a := New()
	require.NoError(t, a.Shutdown(time.Second))
}
