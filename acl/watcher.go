package acl

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/forgebase/forge/acl/v1alpha1"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/watch"
)

// rmSource adapts the Resource Managers of the three ACL kinds BuildModel
// reads (Policy, PolicyAttachment, RoleAttachment) into a Source for
// BuildModel/Reload.
type rmSource struct {
	policies        *manager.RM[*v1alpha1.Policy]
	attachments     *manager.RM[*v1alpha1.PolicyAttachment]
	roleAttachments *manager.RM[*v1alpha1.RoleAttachment]
}

func (s *rmSource) ListPolicies(ctx context.Context) ([]*v1alpha1.Policy, error) {
	return s.policies.List(ctx)
}

func (s *rmSource) ListPolicyAttachments(ctx context.Context) ([]*v1alpha1.PolicyAttachment, error) {
	return s.attachments.List(ctx)
}

func (s *rmSource) ListRoleAttachments(ctx context.Context) ([]*v1alpha1.RoleAttachment, error) {
	return s.roleAttachments.List(ctx)
}

// Watchers bundles the Watcher[T] instances for the four ACL-relevant
// kinds (spec §4.8: "re-invokes the loader whenever any ACL-relevant kind
// emits a change").
type Watchers struct {
	Policies         *watch.Watcher[*v1alpha1.Policy]
	PolicyAttachments *watch.Watcher[*v1alpha1.PolicyAttachment]
	Roles            *watch.Watcher[*v1alpha1.Role]
	RoleAttachments  *watch.Watcher[*v1alpha1.RoleAttachment]
}

// Wiring drives an Enforcer's reloads from Watchers' change events, with
// reload coalescing: a burst of changes across several kinds collapses
// into at most one reload in flight plus at most one queued follow-up,
// rather than one reload per event.
type Wiring struct {
	enforcer *Enforcer
	source   Source
	watchers Watchers
	log      *logrus.Entry

	signal chan struct{}
}

// NewWiring binds an Enforcer to the Resource Managers for Policy,
// PolicyAttachment and RoleAttachment and to the Watchers for all four ACL
// kinds.
func NewWiring(enforcer *Enforcer, policies *manager.RM[*v1alpha1.Policy], attachments *manager.RM[*v1alpha1.PolicyAttachment], roleAttachments *manager.RM[*v1alpha1.RoleAttachment], watchers Watchers, log *logrus.Entry) *Wiring {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Wiring{
		enforcer: enforcer,
		source:   &rmSource{policies: policies, attachments: attachments, roleAttachments: roleAttachments},
		watchers: watchers,
		log:      log,
		signal:   make(chan struct{}, 1),
	}
}

// Run starts every ACL kind's Watcher and the coalescing reloader, and
// performs one initial load before returning control to the caller's
// goroutine group (the first Enforcer.Check the process ever serves should
// not race an empty model against a populated store).
func (w *Wiring) Run(ctx context.Context) error {
	if err := w.enforcer.Reload(ctx, w.source); err != nil {
		w.log.WithError(err).Warn("acl: initial load failed, starting with empty model")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.watchers.Policies.Run(gctx, func(context.Context, watch.Event[*v1alpha1.Policy]) error {
			w.requestReload()
			return nil
		})
	})
	g.Go(func() error {
		return w.watchers.PolicyAttachments.Run(gctx, func(context.Context, watch.Event[*v1alpha1.PolicyAttachment]) error {
			w.requestReload()
			return nil
		})
	})
	g.Go(func() error {
		return w.watchers.Roles.Run(gctx, func(context.Context, watch.Event[*v1alpha1.Role]) error {
			w.requestReload()
			return nil
		})
	})
	g.Go(func() error {
		return w.watchers.RoleAttachments.Run(gctx, func(context.Context, watch.Event[*v1alpha1.RoleAttachment]) error {
			w.requestReload()
			return nil
		})
	})
	g.Go(func() error { return w.reloadLoop(gctx) })

	return g.Wait()
}

func (w *Wiring) requestReload() {
	select {
	case w.signal <- struct{}{}:
	default:
		// a reload is already queued; this change will be picked up by it
	}
}

// reloadLoop implements the dirty-flag coalescing: block for a signal,
// reload, then immediately check for one more queued signal before
// blocking again, so a burst of N changes costs at most 2 reloads instead
// of N.
func (w *Wiring) reloadLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.signal:
		}

		if err := w.enforcer.Reload(ctx, w.source); err != nil {
			w.log.WithError(err).Warn("acl: reload failed")
		}

		select {
		case <-w.signal:
			if err := w.enforcer.Reload(ctx, w.source); err != nil {
				w.log.WithError(err).Warn("acl: follow-up reload failed")
			}
		default:
		}
	}
}
