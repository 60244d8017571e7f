package reconcilers

import (
	"context"
	"time"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/manager"
)

// AuthCode stamps auth/v1alpha1.AuthCode resources and tombstones them
// once redeemed or expired, so a code can never be replayed past its
// single use and expired codes do not accumulate (spec §9 "supplemented
// features", grounded on the AuthCode single-use contract in
// original_source/auth/src/api/v1alpha1/client/mod.rs).
type AuthCode struct {
	RM *manager.RM[*v1alpha1.AuthCode]
}

func (r *AuthCode) Reconcile(ctx context.Context, code *v1alpha1.AuthCode) error {
	meta := code.GetMetadata()
	if !meta.IsTombstoned() && (code.Status.Redeemed || code.Expired(time.Now())) {
		tombstoned, err := r.RM.MarkTombstoned(ctx, code)
		if err != nil {
			return classify(err)
		}
		code = tombstoned
	}

	_, _, err := Stamp(ctx, r.RM, code, nil)
	return err
}
