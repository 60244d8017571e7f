package reconcilers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/store/storetest"
)

func newClientRM(t *testing.T) *manager.RM[*v1alpha1.Client] {
	t.Helper()
	st := storetest.New()
	rm := manager.New(st, new(v1alpha1.Client).GetTypeMeta(), func() *v1alpha1.Client { return &v1alpha1.Client{} })
	require.NoError(t, rm.EnsureDatabase(context.Background()))
	return rm
}

func TestClientReconciler_RejectsNoRedirectURIs(t *testing.T) {
	rm := newClientRM(t)
	r := &Client{RM: rm}

	c := v1alpha1.NewClient("web-app", v1alpha1.ClientSpec{})
	err := r.Reconcile(context.Background(), c)
	require.Error(t, err)
}

func TestClientReconciler_StampsAndMarksReady(t *testing.T) {
	rm := newClientRM(t)
	r := &Client{RM: rm}

	c := v1alpha1.NewClient("web-app", v1alpha1.ClientSpec{RedirectURIs: []string{"https://app.example/callback"}})
	stored, err := rm.Put(context.Background(), c)
	require.NoError(t, err)

	require.NoError(t, r.Reconcile(context.Background(), stored))

	afterFirst, err := rm.Get(context.Background(), "web-app")
	require.NoError(t, err)
	require.False(t, afterFirst.GetMetadata().IsNew())
	require.True(t, afterFirst.Status.Ready)
}

func TestClientReconciler_TombstoneDeletes(t *testing.T) {
	rm := newClientRM(t)
	r := &Client{RM: rm}

	c := v1alpha1.NewClient("web-app", v1alpha1.ClientSpec{RedirectURIs: []string{"https://app.example/callback"}})
	stored, err := rm.Put(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, r.Reconcile(context.Background(), stored))

	stored, err = rm.Get(context.Background(), "web-app")
	require.NoError(t, err)

	tombstoned, err := rm.MarkTombstoned(context.Background(), stored)
	require.NoError(t, err)
	require.NoError(t, r.Reconcile(context.Background(), tombstoned))

	gone, err := rm.Get(context.Background(), "web-app")
	require.NoError(t, err)
	require.Nil(t, gone)
}
