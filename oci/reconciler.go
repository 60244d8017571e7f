package oci

import (
	"context"

	"github.com/forgebase/forge/controller"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/oci/v1alpha1"
	"github.com/forgebase/forge/reconcilers"
)

// blobExistence is the subset of *BlobStore the reconciler needs, narrowed
// to an interface so tests can substitute a fake backend instead of a live
// S3-compatible endpoint.
type blobExistence interface {
	Exists(ctx context.Context, storeKey string) (bool, error)
}

// BlobReconciler converges oci/v1alpha1.Blob resources: confirms the
// referenced bytes actually exist in the backend before flipping
// Status.Verified. On tombstone it hard-deletes the Blob document; the
// backend object is left in place.
type BlobReconciler struct {
	RM    *manager.RM[*v1alpha1.Blob]
	Store blobExistence
}

func (r *BlobReconciler) Reconcile(ctx context.Context, blob *v1alpha1.Blob) error {
	updated, done, err := reconcilers.Stamp(ctx, r.RM, blob, nil)
	if err != nil || done {
		return err
	}

	if !updated.Status.Verified {
		exists, err := r.Store.Exists(ctx, updated.Spec.StoreKey)
		if err != nil {
			return controller.Retryable(err, 0)
		}
		if !exists {
			return controller.Retryable(errBlobNotYetUploaded, 0)
		}
		updated.Status.Verified = true
		if _, err := r.RM.Put(ctx, updated); err != nil {
			return controller.Retryable(err, 0)
		}
	}
	return nil
}

type errBlobMissing struct{}

func (errBlobMissing) Error() string { return "oci: blob bytes not yet present in backend store" }

var errBlobNotYetUploaded = errBlobMissing{}
