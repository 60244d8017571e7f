package reconcilers

import (
	"context"

	aclv1alpha1 "github.com/forgebase/forge/acl/v1alpha1"
	"github.com/forgebase/forge/controller"
	"github.com/forgebase/forge/manager"
)

// Policy stamps and finalizes acl/v1alpha1.Policy resources. No cross-
// resource side effect runs here: the compiled decision model is rebuilt
// by acl.Wiring's own change-event subscription, not by this reconciler
// (spec §4.8 keeps model rebuilding a dedicated task, independent of any
// one kind's reconcile).
type Policy struct {
	RM *manager.RM[*aclv1alpha1.Policy]
}

func (r *Policy) Reconcile(ctx context.Context, p *aclv1alpha1.Policy) error {
	_, _, err := Stamp(ctx, r.RM, p, nil)
	return err
}

// PolicyAttachment stamps and finalizes acl/v1alpha1.PolicyAttachment
// resources, rejecting one whose policyRef does not resolve to a known
// Policy (original_source/acl/src/api/v1alpha1/policy_attachment/mod.rs,
// SPEC_FULL.md §8) as Invalid rather than looping on it forever.
type PolicyAttachment struct {
	RM       *manager.RM[*aclv1alpha1.PolicyAttachment]
	Policies *manager.RM[*aclv1alpha1.Policy]
}

func (r *PolicyAttachment) Reconcile(ctx context.Context, pa *aclv1alpha1.PolicyAttachment) error {
	if !pa.GetMetadata().IsTombstoned() {
		policy, err := r.Policies.Get(ctx, pa.Spec.PolicyRef)
		if err != nil {
			return classify(err)
		}
		if policy == nil {
			return controller.InvalidErr(errUnknownPolicyRef{ref: pa.Spec.PolicyRef})
		}
	}

	_, _, err := Stamp(ctx, r.RM, pa, nil)
	return err
}

type errUnknownPolicyRef struct{ ref string }

func (e errUnknownPolicyRef) Error() string {
	return "policyattachment: policyRef " + e.ref + " does not resolve to a known Policy"
}

// Role stamps and finalizes acl/v1alpha1.Role resources.
type Role struct {
	RM *manager.RM[*aclv1alpha1.Role]
}

func (r *Role) Reconcile(ctx context.Context, role *aclv1alpha1.Role) error {
	_, _, err := Stamp(ctx, r.RM, role, nil)
	return err
}

// RoleAttachment stamps and finalizes acl/v1alpha1.RoleAttachment
// resources.
type RoleAttachment struct {
	RM *manager.RM[*aclv1alpha1.RoleAttachment]
}

func (r *RoleAttachment) Reconcile(ctx context.Context, ra *aclv1alpha1.RoleAttachment) error {
	_, _, err := Stamp(ctx, r.RM, ra, nil)
	return err
}
