package v1alpha1

import (
	"time"

	"github.com/forgebase/forge/resource"
)

func authCodeTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "AuthCode", KindPlural: "authcodes"}
}

// AuthCodeSpec is a short-lived OAuth2 authorization code. Metadata.Name is
// the code value itself (opaque, generated by the oauth package).
type AuthCodeSpec struct {
	ClientRef   string    `json:"clientRef"`
	UserRef     string    `json:"userRef"`
	RedirectURI string    `json:"redirectUri"`
	Scopes      []string  `json:"scopes,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AuthCodeStatus records whether the code has already been exchanged;
// AuthCode is single-use, so the oauth reconciler tombstones it once
// Redeemed flips true.
type AuthCodeStatus struct {
	Redeemed bool `json:"redeemed"`
}

// AuthCode is the auth/v1alpha1 authorization-code resource.
type AuthCode struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata `json:"metadata"`
	Spec              AuthCodeSpec      `json:"spec"`
	Status            AuthCodeStatus    `json:"status"`
}

// NewAuthCode constructs a new, unreconciled AuthCode named code.
func NewAuthCode(code string, spec AuthCodeSpec) *AuthCode {
	return &AuthCode{TypeMeta: authCodeTypeMeta(), Metadata: resource.Metadata{Name: code}, Spec: spec}
}

func (a *AuthCode) GetTypeMeta() resource.TypeMeta  { return authCodeTypeMeta() }
func (a *AuthCode) GetMetadata() resource.Metadata  { return a.Metadata }
func (a *AuthCode) SetMetadata(m resource.Metadata) { a.Metadata = m }

// Expired reports whether the code has passed its expiry.
func (a *AuthCode) Expired(now time.Time) bool { return now.After(a.Spec.ExpiresAt) }
