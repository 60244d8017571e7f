// Package v1alpha1 defines the auth resource kinds (User, Client, AuthCode)
// registered with the Resource Manager, supplementing the distilled spec
// with the resource-shaped identity model auth/src/api/v1alpha1/user/mod.rs
// and client/mod.rs show in the original (SPEC_FULL.md §8). Field names and
// validation are carried from the teacher's auth/user.go and
// auth/password.go, reshaped from a DB row into Resource's
// (TypeMeta, Metadata, Spec, Status) triple.
package v1alpha1

import (
	"time"

	"github.com/forgebase/forge/resource"
)

// Group is this package's resource group (TypeMeta.APIVersion = Group/Version).
const Group = "auth"

// Version is this package's resource version.
const Version = "v1alpha1"

func userTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "User", KindPlural: "users"}
}

// UserSpec is user-authored: the identity and credential an operator sets.
type UserSpec struct {
	Email              string `json:"email,omitempty"`
	Name               string `json:"name,omitempty"`
	PasswordHash       string `json:"passwordHash,omitempty"`
	MustChangePassword bool   `json:"mustChangePassword,omitempty"`
}

// UserStatus is controller-authored: account state derived by the User
// reconciler.
type UserStatus struct {
	Enabled      bool       `json:"enabled"`
	Locked       bool       `json:"locked"`
	FailedLogins int        `json:"failedLogins"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// User is the auth/v1alpha1 identity resource. Metadata.Name is the
// username and is immutable once set, per resource.Metadata's contract.
type User struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata `json:"metadata"`
	Spec              UserSpec          `json:"spec"`
	Status            UserStatus        `json:"status"`
}

// NewUser constructs a new, unreconciled User named name.
func NewUser(name string, spec UserSpec) *User {
	return &User{
		TypeMeta: userTypeMeta(),
		Metadata: resource.Metadata{Name: name},
		Spec:     spec,
	}
}

func (u *User) GetTypeMeta() resource.TypeMeta    { return userTypeMeta() }
func (u *User) GetMetadata() resource.Metadata    { return u.Metadata }
func (u *User) SetMetadata(m resource.Metadata)   { u.Metadata = m }

// HasFailedLogins reports whether the account has ever failed a login
// attempt (Status.FailedLogins > 0).
func (u *User) HasFailedLogins() bool { return u.Status.FailedLogins > 0 }
