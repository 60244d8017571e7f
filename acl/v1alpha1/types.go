// Package v1alpha1 defines the ACL resource kinds (Policy, PolicyAttachment,
// Role, RoleAttachment) per spec §3, grounded on auth/storage.go's
// UserStore for how the teacher already models persisted identity/role
// entities, reshaped into the Resource (TypeMeta, Metadata, Spec) triple.
package v1alpha1

import "github.com/forgebase/forge/resource"

// Group is this package's resource group.
const Group = "acl"

// Version is this package's resource version.
const Version = "v1alpha1"

// ResourcePattern matches resources by (group, version, kindPlural, name),
// where "*" in any field matches any value in that segment (spec §3).
type ResourcePattern struct {
	Group      string `json:"group"`
	Version    string `json:"version"`
	KindPlural string `json:"kindPlural"`
	Name       string `json:"name"`
}

// Rule grants Actions on every resource matching Resources (spec §3:
// `Policy { rules: [{ resources: [...], actions: [...] }] }`).
type Rule struct {
	Resources []ResourcePattern `json:"resources"`
	Actions   []string          `json:"actions"`
}

func policyTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "Policy", KindPlural: "policies"}
}

// PolicySpec holds the set of grant rules a Policy represents.
type PolicySpec struct {
	Rules []Rule `json:"rules"`
}

// Policy is the acl/v1alpha1 grant-rule resource.
type Policy struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata `json:"metadata"`
	Spec              PolicySpec        `json:"spec"`
}

func NewPolicy(name string, spec PolicySpec) *Policy {
	return &Policy{TypeMeta: policyTypeMeta(), Metadata: resource.Metadata{Name: name}, Spec: spec}
}

func (p *Policy) GetTypeMeta() resource.TypeMeta  { return policyTypeMeta() }
func (p *Policy) GetMetadata() resource.Metadata  { return p.Metadata }
func (p *Policy) SetMetadata(m resource.Metadata) { p.Metadata = m }

func policyAttachmentTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "PolicyAttachment", KindPlural: "policyattachments"}
}

// Subject names either a User or a Role by name (spec §3).
type Subject struct {
	Kind string `json:"kind"` // "User" | "Role"
	Name string `json:"name"`
}

// PolicyAttachmentSpec binds a Policy to a set of subjects.
type PolicyAttachmentSpec struct {
	PolicyRef string    `json:"policyRef"`
	Subjects  []Subject `json:"subjects"`
}

// PolicyAttachment is the acl/v1alpha1 policy-binding resource.
type PolicyAttachment struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata    `json:"metadata"`
	Spec              PolicyAttachmentSpec `json:"spec"`
}

func NewPolicyAttachment(name string, spec PolicyAttachmentSpec) *PolicyAttachment {
	return &PolicyAttachment{TypeMeta: policyAttachmentTypeMeta(), Metadata: resource.Metadata{Name: name}, Spec: spec}
}

func (p *PolicyAttachment) GetTypeMeta() resource.TypeMeta  { return policyAttachmentTypeMeta() }
func (p *PolicyAttachment) GetMetadata() resource.Metadata  { return p.Metadata }
func (p *PolicyAttachment) SetMetadata(m resource.Metadata) { p.Metadata = m }

func roleTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "Role", KindPlural: "roles"}
}

// Role is an opaque subject type (spec §3: `Role { name }`); Metadata.Name
// carries the role's identity, Spec is intentionally empty.
type Role struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata `json:"metadata"`
}

func NewRole(name string) *Role {
	return &Role{TypeMeta: roleTypeMeta(), Metadata: resource.Metadata{Name: name}}
}

func (r *Role) GetTypeMeta() resource.TypeMeta  { return roleTypeMeta() }
func (r *Role) GetMetadata() resource.Metadata  { return r.Metadata }
func (r *Role) SetMetadata(m resource.Metadata) { r.Metadata = m }

func roleAttachmentTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "RoleAttachment", KindPlural: "roleattachments"}
}

// RoleAttachmentSpec binds a user to a role (spec §3 membership record).
type RoleAttachmentSpec struct {
	RoleRef string `json:"roleRef"`
	UserRef string `json:"userRef"`
}

// RoleAttachment is the acl/v1alpha1 role-membership resource.
type RoleAttachment struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata   `json:"metadata"`
	Spec              RoleAttachmentSpec `json:"spec"`
}

func NewRoleAttachment(name string, spec RoleAttachmentSpec) *RoleAttachment {
	return &RoleAttachment{TypeMeta: roleAttachmentTypeMeta(), Metadata: resource.Metadata{Name: name}, Spec: spec}
}

func (r *RoleAttachment) GetTypeMeta() resource.TypeMeta  { return roleAttachmentTypeMeta() }
func (r *RoleAttachment) GetMetadata() resource.Metadata  { return r.Metadata }
func (r *RoleAttachment) SetMetadata(m resource.Metadata) { r.Metadata = m }
