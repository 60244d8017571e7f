package maven

import (
	"context"

	"github.com/forgebase/forge/manager"
	v1alpha1 "github.com/forgebase/forge/maven/v1alpha1"
	"github.com/forgebase/forge/reconcilers"
)

// ArtifactReconciler stamps/finalizes Artifact resources and invalidates
// the Redis cache entry on every change, so Cache.Get never serves a
// coordinate's stale metadata past a write the Controller Loop has
// already observed.
type ArtifactReconciler struct {
	RM    *manager.RM[*v1alpha1.Artifact]
	Cache *Cache
}

func (r *ArtifactReconciler) Reconcile(ctx context.Context, artifact *v1alpha1.Artifact) error {
	name := artifact.GetMetadata().Name
	_, _, err := reconcilers.Stamp(ctx, r.RM, artifact, nil)
	r.Cache.Invalidate(ctx, name)
	return err
}
