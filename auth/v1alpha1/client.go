package v1alpha1

import "github.com/forgebase/forge/resource"

func clientTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "Client", KindPlural: "clients"}
}

// ClientSpec describes an OAuth2 client registration.
type ClientSpec struct {
	SecretHash   string   `json:"secretHash,omitempty"`
	RedirectURIs []string `json:"redirectUris,omitempty"`
	GrantTypes   []string `json:"grantTypes,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Public       bool     `json:"public,omitempty"`
}

// ClientStatus tracks whether a client registration has been confirmed
// usable by the oauth reconciler (e.g. redirect URIs validated).
type ClientStatus struct {
	Ready bool `json:"ready"`
}

// Client is the auth/v1alpha1 OAuth2 client resource.
type Client struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata `json:"metadata"`
	Spec              ClientSpec        `json:"spec"`
	Status            ClientStatus      `json:"status"`
}

// NewClient constructs a new, unreconciled Client named name.
func NewClient(name string, spec ClientSpec) *Client {
	return &Client{TypeMeta: clientTypeMeta(), Metadata: resource.Metadata{Name: name}, Spec: spec}
}

func (c *Client) GetTypeMeta() resource.TypeMeta  { return clientTypeMeta() }
func (c *Client) GetMetadata() resource.Metadata  { return c.Metadata }
func (c *Client) SetMetadata(m resource.Metadata) { c.Metadata = m }
