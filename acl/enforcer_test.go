package acl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgebase/forge/acl/v1alpha1"
)

// failingSource errors on ListPolicies, simulating a transient store blip
// during reload.
type failingSource struct{}

func (failingSource) ListPolicies(context.Context) ([]*v1alpha1.Policy, error) {
	return nil, errors.New("store unavailable")
}
func (failingSource) ListPolicyAttachments(context.Context) ([]*v1alpha1.PolicyAttachment, error) {
	return nil, nil
}
func (failingSource) ListRoleAttachments(context.Context) ([]*v1alpha1.RoleAttachment, error) {
	return nil, nil
}

func TestEnforcer_RootShortCircuit(t *testing.T) {
	e := NewEnforcer(nil)
	err := e.Check(SubjectRef{Kind: "User", Name: "root"}, ObjectRef{Group: "anything", Name: "x"}, "delete")
	require.NoError(t, err)
}

func TestEnforcer_DeniesWithEmptyModel(t *testing.T) {
	e := NewEnforcer(nil)
	err := e.Check(SubjectRef{Kind: "User", Name: "bob"}, ObjectRef{Group: "auth", KindPlural: "users", Name: "alice"}, "get")
	require.Error(t, err)

	var denied *Denied
	require.ErrorAs(t, err, &denied)
	require.Equal(t, "bob", denied.Subject.Name)
}

func TestEnforcer_PublishIsVisibleToSubsequentChecks(t *testing.T) {
	e := NewEnforcer(nil)
	obj := ObjectRef{Group: "auth", Version: "v1alpha1", KindPlural: "users", Name: "alice"}

	require.Error(t, e.Check(SubjectRef{Kind: "User", Name: "bob"}, obj, "get"))

	m := emptyModel()
	g := grant{pattern: v1alpha1.ResourcePattern{Group: "*", Version: "*", KindPlural: "*", Name: "*"}, action: "get"}
	m.subjectRules[userKey("bob")] = []grant{g}
	m.effectiveRules["bob"] = []grant{g}
	e.Publish(m)

	require.NoError(t, e.Check(SubjectRef{Kind: "User", Name: "bob"}, obj, "get"))
}

func TestEnforcer_ReloadRetainsPreviousModelOnSourceFailure(t *testing.T) {
	e := NewEnforcer(nil)
	obj := ObjectRef{Group: "auth", Version: "v1alpha1", KindPlural: "users", Name: "alice"}
	subject := SubjectRef{Kind: "User", Name: "bob"}

	m := emptyModel()
	g := grant{pattern: v1alpha1.ResourcePattern{Group: "*", Version: "*", KindPlural: "*", Name: "*"}, action: "get"}
	m.subjectRules[userKey("bob")] = []grant{g}
	m.effectiveRules["bob"] = []grant{g}
	e.Publish(m)
	require.NoError(t, e.Check(subject, obj, "get"))

	err := e.Reload(context.Background(), failingSource{})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSourceUnavailable)

	require.NoError(t, e.Check(subject, obj, "get"), "a failed reload must not swap in the deny-all empty model")
}
