package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/store/storetest"
	"github.com/forgebase/forge/watch"
)

func TestKindSweeper_SweepsOnlyTombstonedResources(t *testing.T) {
	st := storetest.New()
	tm := new(v1alpha1.User).GetTypeMeta()
	rm := manager.New(st, tm, func() *v1alpha1.User { return &v1alpha1.User{} })
	require.NoError(t, rm.EnsureDatabase(context.Background()))

	var finalized []string
	recon := newRecordingReconciler(func(name string, attempt int) error {
		finalized = append(finalized, name)
		return nil
	})
	w := watch.New(st, tm, func() *v1alpha1.User { return &v1alpha1.User{} })
	loop := New("users", w, rm, recon, Config{PollingInterval: time.Hour})

	live, err := rm.Put(context.Background(), v1alpha1.NewUser("alive", v1alpha1.UserSpec{}))
	require.NoError(t, err)
	_ = live

	dead, err := rm.Put(context.Background(), v1alpha1.NewUser("tombstoned", v1alpha1.UserSpec{}))
	require.NoError(t, err)
	_, err = rm.MarkTombstoned(context.Background(), dead)
	require.NoError(t, err)

	sweeper := NewKindSweeper("users", rm, loop)
	n, err := sweeper.sweepTombstoned(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"tombstoned"}, finalized)
}

func TestGCSweeper_RunSweepsRegisteredKindsOnTicker(t *testing.T) {
	st := storetest.New()
	tm := new(v1alpha1.User).GetTypeMeta()
	rm := manager.New(st, tm, func() *v1alpha1.User { return &v1alpha1.User{} })
	require.NoError(t, rm.EnsureDatabase(context.Background()))

	swept := make(chan string, 1)
	recon := newRecordingReconciler(func(name string, attempt int) error {
		swept <- name
		return nil
	})
	w := watch.New(st, tm, func() *v1alpha1.User { return &v1alpha1.User{} })
	loop := New("users", w, rm, recon, Config{PollingInterval: time.Hour})

	dead, err := rm.Put(context.Background(), v1alpha1.NewUser("tombstoned", v1alpha1.UserSpec{}))
	require.NoError(t, err)
	_, err = rm.MarkTombstoned(context.Background(), dead)
	require.NoError(t, err)

	gc := NewGCSweeper(GCConfig{PollingInterval: 20 * time.Millisecond})
	gc.Register("users", NewKindSweeper("users", rm, loop))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = gc.Run(ctx) }()

	select {
	case name := <-swept:
		require.Equal(t, "tombstoned", name)
	case <-time.After(time.Second):
		t.Fatal("gc sweeper never finalized the tombstoned resource")
	}
}
