// Package v1alpha1 defines the maven resource kind: Artifact, one
// groupId:artifactId:version coordinate pointing at bytes in a backend
// store, modeled the same TypeMeta/Metadata/Spec/Status way as the other
// resource packages in this module.
package v1alpha1

import "github.com/forgebase/forge/resource"

const (
	Group   = "maven"
	Version = "v1alpha1"
)

func artifactTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "Artifact", KindPlural: "artifacts"}
}

// ArtifactSpec names a Maven coordinate and where its bytes live.
// Metadata.Name is the coordinate string "groupId:artifactId:version".
type ArtifactSpec struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
	Packaging  string `json:"packaging,omitempty"`
	StoreKey   string `json:"storeKey"`
	SHA1       string `json:"sha1,omitempty"`
}

// ArtifactStatus tracks checksum verification.
type ArtifactStatus struct {
	Verified bool `json:"verified"`
}

// Artifact is the maven/v1alpha1 coordinate resource.
type Artifact struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata `json:"metadata"`
	Spec              ArtifactSpec      `json:"spec"`
	Status            ArtifactStatus    `json:"status"`
}

func NewArtifact(coordinate string, spec ArtifactSpec) *Artifact {
	return &Artifact{TypeMeta: artifactTypeMeta(), Metadata: resource.Metadata{Name: coordinate}, Spec: spec}
}

func (a *Artifact) GetTypeMeta() resource.TypeMeta  { return artifactTypeMeta() }
func (a *Artifact) GetMetadata() resource.Metadata  { return a.Metadata }
func (a *Artifact) SetMetadata(m resource.Metadata) { a.Metadata = m }
