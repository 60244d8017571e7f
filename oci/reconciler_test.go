package oci

import (
	"context"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/require"

	"github.com/forgebase/forge/manager"
	v1alpha1 "github.com/forgebase/forge/oci/v1alpha1"
	"github.com/forgebase/forge/store/storetest"
)

type fakeBlobStore struct {
	present map[string]bool
	err     error
}

func (f *fakeBlobStore) Exists(ctx context.Context, storeKey string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.present[storeKey], nil
}

func newBlobRM(t *testing.T) *manager.RM[*v1alpha1.Blob] {
	t.Helper()
	rm := manager.New(storetest.New(), new(v1alpha1.Blob).GetTypeMeta(), func() *v1alpha1.Blob { return &v1alpha1.Blob{} })
	require.NoError(t, rm.EnsureDatabase(context.Background()))
	return rm
}

func TestBlobReconciler_MarksVerifiedOncePresent(t *testing.T) {
	rm := newBlobRM(t)
	store := &fakeBlobStore{present: map[string]bool{"layers/sha256/abc": true}}
	r := &BlobReconciler{RM: rm, Store: store}

	dgst := digest.NewDigestFromEncoded(digest.SHA256, "abc")
	blob := v1alpha1.NewBlob(dgst, v1alpha1.BlobSpec{MediaType: "application/vnd.oci.image.layer.v1.tar", StoreKey: "layers/sha256/abc"})
	stored, err := rm.Put(context.Background(), blob)
	require.NoError(t, err)

	require.NoError(t, r.Reconcile(context.Background(), stored))

	afterFirst, err := rm.Get(context.Background(), dgst.String())
	require.NoError(t, err)
	require.True(t, afterFirst.Status.Verified)
}

func TestBlobReconciler_RetriesWhenBytesNotYetUploaded(t *testing.T) {
	rm := newBlobRM(t)
	store := &fakeBlobStore{present: map[string]bool{}}
	r := &BlobReconciler{RM: rm, Store: store}

	dgst := digest.NewDigestFromEncoded(digest.SHA256, "abc")
	blob := v1alpha1.NewBlob(dgst, v1alpha1.BlobSpec{StoreKey: "layers/sha256/abc"})
	stored, err := rm.Put(context.Background(), blob)
	require.NoError(t, err)

	err = r.Reconcile(context.Background(), stored)
	require.Error(t, err)
	require.ErrorIs(t, err, errBlobNotYetUploaded)

	afterFirst, err := rm.Get(context.Background(), dgst.String())
	require.NoError(t, err)
	require.False(t, afterFirst.Status.Verified)
}

func TestBlobReconciler_PropagatesBackendError(t *testing.T) {
	rm := newBlobRM(t)
	boom := context.DeadlineExceeded
	store := &fakeBlobStore{err: boom}
	r := &BlobReconciler{RM: rm, Store: store}

	dgst := digest.NewDigestFromEncoded(digest.SHA256, "abc")
	blob := v1alpha1.NewBlob(dgst, v1alpha1.BlobSpec{StoreKey: "layers/sha256/abc"})
	stored, err := rm.Put(context.Background(), blob)
	require.NoError(t, err)

	err = r.Reconcile(context.Background(), stored)
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
}

func TestBlobReconciler_SkipsAlreadyVerifiedBlob(t *testing.T) {
	rm := newBlobRM(t)
	store := &fakeBlobStore{present: map[string]bool{}}
	r := &BlobReconciler{RM: rm, Store: store}

	dgst := digest.NewDigestFromEncoded(digest.SHA256, "abc")
	blob := v1alpha1.NewBlob(dgst, v1alpha1.BlobSpec{StoreKey: "layers/sha256/abc"})
	blob.Status.Verified = true
	stored, err := rm.Put(context.Background(), blob)
	require.NoError(t, err)

	require.NoError(t, r.Reconcile(context.Background(), stored))
}
