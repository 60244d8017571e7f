package acl

import (
	"context"
	"fmt"

	"github.com/forgebase/forge/acl/v1alpha1"
)

// ErrUnknownPolicy is returned (and logged, not fatal to the loader) when a
// PolicyAttachment's policyRef does not resolve to a known Policy, per
// original_source/acl/src/api/v1alpha1/policy_attachment/mod.rs
// (SPEC_FULL.md §8).
var ErrUnknownPolicy = fmt.Errorf("acl: policyRef does not resolve to a known Policy")

// ErrSourceUnavailable wraps a failure to list one of the three ACL kinds
// BuildModel reads (Policy, PolicyAttachment, RoleAttachment) from the store. Unlike ErrUnknownPolicy (a malformed attachment, safe to
// skip), this means BuildModel could not observe the current document set
// at all; the emptyModel() it returns alongside this error is a zero-
// knowledge placeholder, never a model fit to publish.
var ErrSourceUnavailable = fmt.Errorf("acl: model source unavailable")

type subjectKey struct {
	kind string
	name string
}

func userKey(name string) subjectKey { return subjectKey{kind: "User", name: name} }
func roleKey(name string) subjectKey { return subjectKey{kind: "Role", name: name} }

// grant pairs a resource pattern with an action, the unit subjectRules and
// effectiveRules are sets of (spec §3).
type grant struct {
	pattern v1alpha1.ResourcePattern
	action  string
}

// Model is the compiled decision model (spec §3): a pure function of the
// Policy/PolicyAttachment/Role/RoleAttachment document set at a revision
// cut. Model values are immutable once built; reload produces a new Model,
// never mutates an existing one.
type Model struct {
	roleMembers   map[string]map[string]struct{} // role name -> set of usernames
	subjectRules  map[subjectKey][]grant
	effectiveRules map[string][]grant // username -> resolved grants (direct + via roles)
}

// emptyModel is the zero-knowledge model: every check except user:root is
// denied. Used before the first successful load and as a safe fallback.
func emptyModel() *Model {
	return &Model{
		roleMembers:    map[string]map[string]struct{}{},
		subjectRules:   map[subjectKey][]grant{},
		effectiveRules: map[string][]grant{},
	}
}

// BuildModel compiles a Model from the current Policy/PolicyAttachment/
// RoleAttachment documents, per spec §4.6's load algorithm:
//  1. list Policy, PolicyAttachment, RoleAttachment
//  2. build roleMembers from RoleAttachments
//  3. resolve each PolicyAttachment's policyRef, fan its rules into
//     subjectRules for every listed subject
//  4. compute effectiveRules[user] = subjectRules[user] ∪ rules of every
//     role the user belongs to
//
// A PolicyAttachment referencing an unknown Policy is skipped (logged by
// the caller as Invalid, spec §7), never aborts the whole load.
func BuildModel(ctx context.Context, source Source) (*Model, []error) {
	policies, err := source.ListPolicies(ctx)
	if err != nil {
		return emptyModel(), []error{fmt.Errorf("%w: list policies: %w", ErrSourceUnavailable, err)}
	}
	attachments, err := source.ListPolicyAttachments(ctx)
	if err != nil {
		return emptyModel(), []error{fmt.Errorf("%w: list policy attachments: %w", ErrSourceUnavailable, err)}
	}
	roleAttachments, err := source.ListRoleAttachments(ctx)
	if err != nil {
		return emptyModel(), []error{fmt.Errorf("%w: list role attachments: %w", ErrSourceUnavailable, err)}
	}

	var warnings []error
	m := emptyModel()

	policyByName := make(map[string]*v1alpha1.Policy, len(policies))
	for _, p := range policies {
		policyByName[p.Metadata.Name] = p
	}

	for _, ra := range roleAttachments {
		set, ok := m.roleMembers[ra.Spec.RoleRef]
		if !ok {
			set = map[string]struct{}{}
			m.roleMembers[ra.Spec.RoleRef] = set
		}
		set[ra.Spec.UserRef] = struct{}{}
	}

	for _, pa := range attachments {
		policy, ok := policyByName[pa.Spec.PolicyRef]
		if !ok {
			warnings = append(warnings, fmt.Errorf("%w: %q (attachment %q)", ErrUnknownPolicy, pa.Spec.PolicyRef, pa.Metadata.Name))
			continue
		}
		grants := grantsOf(policy)
		for _, subj := range pa.Spec.Subjects {
			key := subjectKey{kind: subj.Kind, name: subj.Name}
			m.subjectRules[key] = append(m.subjectRules[key], grants...)
		}
	}

	m.effectiveRules = make(map[string][]grant, len(m.subjectRules))
	usersSeen := make(map[string]struct{})
	for key := range m.subjectRules {
		if key.kind == "User" {
			usersSeen[key.name] = struct{}{}
		}
	}
	for _, members := range m.roleMembers {
		for user := range members {
			usersSeen[user] = struct{}{}
		}
	}

	for user := range usersSeen {
		var rules []grant
		rules = append(rules, m.subjectRules[userKey(user)]...)
		for role, members := range m.roleMembers {
			if _, belongs := members[user]; belongs {
				rules = append(rules, m.subjectRules[roleKey(role)]...)
			}
		}
		m.effectiveRules[user] = rules
	}

	return m, warnings
}

func grantsOf(p *v1alpha1.Policy) []grant {
	var out []grant
	for _, rule := range p.Spec.Rules {
		for _, res := range rule.Resources {
			for _, action := range rule.Actions {
				out = append(out, grant{pattern: res, action: action})
			}
		}
	}
	return out
}

// Source supplies the documents BuildModel compiles. *manager.RM[T] for
// each ACL kind satisfies this via the small adapter in acl/watcher.go.
type Source interface {
	ListPolicies(ctx context.Context) ([]*v1alpha1.Policy, error)
	ListPolicyAttachments(ctx context.Context) ([]*v1alpha1.PolicyAttachment, error)
	ListRoleAttachments(ctx context.Context) ([]*v1alpha1.RoleAttachment, error)
}

// ObjectRef identifies the resource a check is performed against.
type ObjectRef struct {
	Group      string
	Version    string
	KindPlural string
	Name       string
}

func matchSegment(pattern, value string) bool {
	return pattern == "*" || pattern == value
}

func matchPattern(p v1alpha1.ResourcePattern, obj ObjectRef) bool {
	return matchSegment(p.Group, obj.Group) &&
		matchSegment(p.Version, obj.Version) &&
		matchSegment(p.KindPlural, obj.KindPlural) &&
		matchSegment(p.Name, obj.Name)
}

func matchAction(pattern, action string) bool {
	return pattern == "*" || pattern == action
}

// evaluate tests whether user's effective rules grant action on obj,
// returning the first matching grant if any (spec §4.7).
func (m *Model) evaluate(user string, obj ObjectRef, action string) (grant, bool) {
	for _, g := range m.effectiveRules[user] {
		if matchPattern(g.pattern, obj) && matchAction(g.action, action) {
			return g, true
		}
	}
	return grant{}, false
}
