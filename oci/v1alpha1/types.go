// Package v1alpha1 defines the oci resource kinds: Repository (a named
// collection of image tags) and Blob (one content-addressed layer or
// config object), modeled the way auth/v1alpha1 models its resources —
// TypeMeta/Metadata/Spec/Status over the generic Resource Manager.
package v1alpha1

import (
	"github.com/opencontainers/go-digest"

	"github.com/forgebase/forge/resource"
)

const (
	Group   = "oci"
	Version = "v1alpha1"
)

func repositoryTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "Repository", KindPlural: "repositories"}
}

// RepositorySpec names a repository and the tags currently pointing into
// it; Metadata.Name is the repository name (e.g. "library/alpine").
type RepositorySpec struct {
	Tags map[string]digest.Digest `json:"tags,omitempty"` // tag -> manifest digest
}

// RepositoryStatus tracks how many blobs this repository references. No
// reconciler in this module sets it.
type RepositoryStatus struct {
	BlobCount int `json:"blobCount"`
}

// Repository is the oci/v1alpha1 repository resource.
type Repository struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata `json:"metadata"`
	Spec              RepositorySpec    `json:"spec"`
	Status            RepositoryStatus  `json:"status"`
}

func NewRepository(name string, spec RepositorySpec) *Repository {
	return &Repository{TypeMeta: repositoryTypeMeta(), Metadata: resource.Metadata{Name: name}, Spec: spec}
}

func (r *Repository) GetTypeMeta() resource.TypeMeta  { return repositoryTypeMeta() }
func (r *Repository) GetMetadata() resource.Metadata  { return r.Metadata }
func (r *Repository) SetMetadata(m resource.Metadata) { r.Metadata = m }

func blobTypeMeta() resource.TypeMeta {
	return resource.TypeMeta{APIVersion: Group + "/" + Version, Kind: "Blob", KindPlural: "blobs"}
}

// BlobSpec records a content-addressed layer or config object.
// Metadata.Name is the digest string (e.g. "sha256:abc...").
type BlobSpec struct {
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	StoreKey  string `json:"storeKey"` // object key in the blob store backend
}

// BlobStatus tracks whether the referenced bytes have been confirmed
// present in the store backend.
type BlobStatus struct {
	Verified bool `json:"verified"`
}

// Blob is the oci/v1alpha1 content-addressed object resource.
type Blob struct {
	resource.TypeMeta `json:",inline"`
	Metadata          resource.Metadata `json:"metadata"`
	Spec              BlobSpec          `json:"spec"`
	Status            BlobStatus        `json:"status"`
}

func NewBlob(dgst digest.Digest, spec BlobSpec) *Blob {
	return &Blob{TypeMeta: blobTypeMeta(), Metadata: resource.Metadata{Name: dgst.String()}, Spec: spec}
}

func (b *Blob) GetTypeMeta() resource.TypeMeta  { return blobTypeMeta() }
func (b *Blob) GetMetadata() resource.Metadata  { return b.Metadata }
func (b *Blob) SetMetadata(m resource.Metadata) { b.Metadata = m }
