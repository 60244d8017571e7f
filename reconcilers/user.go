package reconcilers

import (
	"context"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/controller"
	"github.com/forgebase/forge/manager"
)

// User converges auth/v1alpha1.User resources: stamps CreatedAt on first
// sight, defaults Status.Enabled to true for a newly-stamped account, and
// hard-deletes once tombstoned. There is no external system to detach a
// User from, so finalize is a no-op here.
type User struct {
	RM *manager.RM[*v1alpha1.User]
}

func (r *User) Reconcile(ctx context.Context, u *v1alpha1.User) error {
	if u.Spec.PasswordHash == "" {
		return controller.InvalidErr(errPasswordHashRequired)
	}

	wasNew := u.GetMetadata().IsNew()
	updated, done, err := Stamp(ctx, r.RM, u, nil)
	if err != nil || done {
		return err
	}

	if wasNew && !updated.Status.Enabled {
		updated.Status.Enabled = true
		if _, err := r.RM.Put(ctx, updated); err != nil {
			return classify(err)
		}
	}

	return nil
}

var errPasswordHashRequired = errPasswordHash{}

type errPasswordHash struct{}

func (errPasswordHash) Error() string { return "user: spec.passwordHash is required" }
