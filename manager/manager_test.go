package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/store/storetest"
)

func newUserRM(t *testing.T) *RM[*v1alpha1.User] {
	t.Helper()
	rm := New(storetest.New(), new(v1alpha1.User).GetTypeMeta(), func() *v1alpha1.User { return &v1alpha1.User{} })
	require.NoError(t, rm.EnsureDatabase(context.Background()))
	return rm
}

func TestRM_PutThenGetRoundTrip(t *testing.T) {
	rm := newUserRM(t)
	stored, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{Email: "bob@example.com"}))
	require.NoError(t, err)
	require.NotEmpty(t, stored.GetMetadata().Rev)

	got, err := rm.Get(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "bob@example.com", got.Spec.Email)
}

func TestRM_GetRoundTripsRevForSubsequentUpdate(t *testing.T) {
	rm := newUserRM(t)
	_, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{Email: "bob@example.com"}))
	require.NoError(t, err)

	got, err := rm.Get(context.Background(), "bob")
	require.NoError(t, err)
	require.NotEmpty(t, got.GetMetadata().Rev, "Get must recover the store's _rev, not leave it empty")

	staleRev := got.GetMetadata().Rev

	got.Spec.Email = "bob2@example.com"
	updated, err := rm.Put(context.Background(), got)
	require.NoError(t, err)
	require.NotEqual(t, staleRev, updated.GetMetadata().Rev)

	stale := v1alpha1.NewUser("bob", v1alpha1.UserSpec{Email: "conflict@example.com"})
	staleMeta := stale.GetMetadata()
	staleMeta.Rev = staleRev
	stale.SetMetadata(staleMeta)
	_, err = rm.Put(context.Background(), stale)
	require.Error(t, err, "re-using a rev already superseded by another update must conflict")
}

func TestRM_GetMissingReturnsNilNotError(t *testing.T) {
	rm := newUserRM(t)
	got, err := rm.Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRM_ListReturnsEveryStoredEntity(t *testing.T) {
	rm := newUserRM(t)
	_, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{}))
	require.NoError(t, err)
	_, err = rm.Put(context.Background(), v1alpha1.NewUser("alice", v1alpha1.UserSpec{}))
	require.NoError(t, err)

	items, err := rm.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestRM_FindFiltersBySelector(t *testing.T) {
	rm := newUserRM(t)
	_, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{}))
	require.NoError(t, err)
	_, err = rm.Put(context.Background(), v1alpha1.NewUser("alice", v1alpha1.UserSpec{}))
	require.NoError(t, err)

	matching, err := rm.Find(context.Background(), map[string]any{"kind": "User"})
	require.NoError(t, err)
	require.Len(t, matching, 2)

	none, err := rm.Find(context.Background(), map[string]any{"kind": "NoSuchKind"})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRM_DeleteRemovesEntity(t *testing.T) {
	rm := newUserRM(t)
	_, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{}))
	require.NoError(t, err)

	require.NoError(t, rm.Delete(context.Background(), "bob"))

	got, err := rm.Get(context.Background(), "bob")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRM_MarkTombstonedSetsDeletedAtButKeepsDocument(t *testing.T) {
	rm := newUserRM(t)
	stored, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{}))
	require.NoError(t, err)

	tombstoned, err := rm.MarkTombstoned(context.Background(), stored)
	require.NoError(t, err)
	require.True(t, tombstoned.GetMetadata().IsTombstoned())

	got, err := rm.Get(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.GetMetadata().IsTombstoned())
}

func TestRM_EventsPublishesCreatedUpdatedDeleted(t *testing.T) {
	rm := newUserRM(t)
	events := rm.Events(8)

	stored, err := rm.Put(context.Background(), v1alpha1.NewUser("bob", v1alpha1.UserSpec{}))
	require.NoError(t, err)
	require.Equal(t, EventCreated, (<-events).Kind)

	// Put classifies wasNew from the entity passed in, not the document's
	// prior state; stamping CreatedAt (the reconciler's job on first
	// reconcile, per reconcilers.Stamp) is what makes a subsequent Put
	// register as an update.
	meta := stored.GetMetadata()
	now := time.Now()
	meta.CreatedAt = &now
	stored.SetMetadata(meta)

	stored.Spec.Email = "bob@example.com"
	_, err = rm.Put(context.Background(), stored)
	require.NoError(t, err)
	require.Equal(t, EventUpdated, (<-events).Kind)

	require.NoError(t, rm.Delete(context.Background(), "bob"))
	require.Equal(t, EventDeleted, (<-events).Kind)
}
