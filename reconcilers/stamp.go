// Package reconcilers implements the concrete Reconciler[T] per-kind
// business logic (spec §4.5): creation-time stamping, status convergence,
// and the uniform "run finalizers, then hard-delete" tombstone contract
// (SPEC_FULL.md §9). Grounded on worker.JobProcessor's one-method-per-
// concern shape, generalized to resources.
package reconcilers

import (
	"context"
	"time"

	"github.com/forgebase/forge/controller"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/resource"
)

// Stamp implements the two mechanical halves of every kind's reconcile,
// shared across all concrete reconcilers in this package:
//
//  1. if the resource has never been reconciled (Metadata.CreatedAt == nil),
//     stamp CreatedAt and Put it.
//  2. if the resource is tombstoned (Metadata.DeletedAt != nil), this is the
//     finalizer point: the caller's finalize callback runs, then the
//     resource is hard-deleted via rm.Delete.
//
// Stamp returns (entity, done, err): done is true once the tombstone path
// has deleted the resource, signaling the caller's reconciler to return
// immediately without any further convergence work.
func Stamp[T resource.Object](ctx context.Context, rm *manager.RM[T], entity T, finalize func(context.Context, T) error) (T, bool, error) {
	meta := entity.GetMetadata()

	if meta.IsTombstoned() {
		if finalize != nil {
			if err := finalize(ctx, entity); err != nil {
				return entity, false, controller.Retryable(err, 0)
			}
		}
		if err := rm.Delete(ctx, meta.Name); err != nil {
			return entity, false, classify(err)
		}
		return entity, true, nil
	}

	if meta.IsNew() {
		now := time.Now()
		meta.CreatedAt = &now
		entity.SetMetadata(meta)
		updated, err := rm.Put(ctx, entity)
		if err != nil {
			return entity, false, classify(err)
		}
		return updated, false, nil
	}

	return entity, false, nil
}

// classify maps a Resource Manager/Store error to the Reconciler failure
// taxonomy (spec §7); store.Error already carries a Kind, so this just
// translates it into the controller package's vocabulary. Conflict and
// transient errors from the store are retried by the Loop; anything else
// is treated as Invalid and dropped rather than looping forever on a
// malformed document.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isConflict(err):
		return controller.ConflictErr(err)
	case isTransient(err):
		return controller.Retryable(err, 0)
	default:
		return controller.InvalidErr(err)
	}
}
