package reconcilers

import (
	"context"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/controller"
	"github.com/forgebase/forge/manager"
)

// Client stamps and finalizes auth/v1alpha1.Client resources (OAuth2
// client registrations). A Client needs no external detach step, so
// finalize is a no-op; it becomes Ready once it declares at least one
// redirect URI.
type Client struct {
	RM *manager.RM[*v1alpha1.Client]
}

func (r *Client) Reconcile(ctx context.Context, client *v1alpha1.Client) error {
	if len(client.Spec.RedirectURIs) == 0 && !client.GetMetadata().IsTombstoned() {
		return controller.InvalidErr(errNoRedirectURIs)
	}

	wasNew := client.GetMetadata().IsNew()
	updated, done, err := Stamp(ctx, r.RM, client, nil)
	if err != nil || done {
		return err
	}

	if wasNew && !updated.Status.Ready {
		updated.Status.Ready = true
		if _, err := r.RM.Put(ctx, updated); err != nil {
			return classify(err)
		}
	}
	return nil
}

type errClientConfig struct{}

func (errClientConfig) Error() string { return "client: spec.redirectUris must declare at least one URI" }

var errNoRedirectURIs = errClientConfig{}
