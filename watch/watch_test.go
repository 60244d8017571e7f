package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/store/storetest"
)

func TestWatcher_DeliversPutAsChangedEvent(t *testing.T) {
	st := storetest.New()
	tm := new(v1alpha1.User).GetTypeMeta()
	rm := manager.New(st, tm, func() *v1alpha1.User { return &v1alpha1.User{} })
	require.NoError(t, rm.EnsureDatabase(context.Background()))

	w := New(st, tm, func() *v1alpha1.User { return &v1alpha1.User{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []Event[*v1alpha1.User]
	started := make(chan struct{})

	go func() {
		_ = w.Run(ctx, func(_ context.Context, ev Event[*v1alpha1.User]) error {
			mu.Lock()
			received = append(received, ev)
			mu.Unlock()
			return nil
		})
	}()

	// give Run a moment to establish its Changes subscription before the
	// mutation happens, since the fake store only fans out to subscribers
	// registered at publish time.
	time.Sleep(50 * time.Millisecond)
	close(started)
	<-started

	_, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{}))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, Changed, received[0].Kind)
	require.Equal(t, "bob", received[0].Resource.GetMetadata().Name)
}

func TestWatcher_DeliversDeleteAsDeletedEvent(t *testing.T) {
	st := storetest.New()
	tm := new(v1alpha1.User).GetTypeMeta()
	rm := manager.New(st, tm, func() *v1alpha1.User { return &v1alpha1.User{} })
	require.NoError(t, rm.EnsureDatabase(context.Background()))
	_, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{}))
	require.NoError(t, err)

	w := New(st, tm, func() *v1alpha1.User { return &v1alpha1.User{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []Event[*v1alpha1.User]

	go func() {
		_ = w.Run(ctx, func(_ context.Context, ev Event[*v1alpha1.User]) error {
			mu.Lock()
			received = append(received, ev)
			mu.Unlock()
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, rm.Delete(context.Background(), "bob"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, Deleted, received[0].Kind)
}

func TestWatcher_StopsOnContextCancellation(t *testing.T) {
	st := storetest.New()
	tm := new(v1alpha1.User).GetTypeMeta()
	w := New(st, tm, func() *v1alpha1.User { return &v1alpha1.User{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context, Event[*v1alpha1.User]) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
