package store

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/google/uuid"
)

// Kind identifies the type of a persisted artifact.
type Kind string

const (
	KindImage    Kind = "image"
	KindTexture  Kind = "texture"
	KindMaterial Kind = "material"
	KindMesh     Kind = "mesh"
	KindPrefab   Kind = "prefab"
)

// Handle references one persisted artifact.
type Handle struct {
	// ID is the unique identifier assigned when the artifact was first written.
	ID uuid.UUID `yaml:"id"`

	// Kind is the artifact type.
	Kind Kind `yaml:"kind"`

	// Name is the artifact's display name.
	Name string `yaml:"name"`

	// Path is the slash-separated location inside the store's file system.
	Path string `yaml:"path"`
}

// IsZero reports whether h references nothing.
func (h Handle) IsZero() bool {
	return h.ID == uuid.Nil
}

// Store is the asset collaborator the importer persists its outputs through.
// Every operation is idempotent per (kind, key) for the lifetime of the store: repeating a request
// returns the handle of the first write without writing again.
type Store interface {
	// RegisterImage persists the encoded bytes of one document image.
	//
	// Parameters:
	//   - index: the image index, or a negative value to key the image by name (generated images)
	//   - name: the image name
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - Handle: the handle of the stored image
	//   - error: error if the image cannot be written
	RegisterImage(index int, name string, data []byte) (Handle, error)

	// RegisterTexture persists a texture descriptor binding an image to a sampler.
	//
	// Parameters:
	//   - index: the texture index, or a negative value to key the texture by name
	//   - name: the texture name
	//   - image: the handle of the texture's image
	//   - sampler: the sampler configuration
	//
	// Returns:
	//   - Handle: the handle of the stored texture
	//   - error: error if the descriptor cannot be written
	RegisterTexture(index int, name string, image Handle, sampler common.SamplerStagingData) (Handle, error)

	// SaveMaterial persists a constructed material.
	//
	// Parameters:
	//   - index: the material index, or a negative value for the shared default material
	//   - name: the material name
	//   - material: the value to serialize
	//
	// Returns:
	//   - Handle: the handle of the stored material
	//   - error: error if the material cannot be written
	SaveMaterial(index int, name string, material any) (Handle, error)

	// SaveMesh persists a constructed mesh keyed by its unique name.
	//
	// Parameters:
	//   - name: the mesh name
	//   - mesh: the value to serialize
	//
	// Returns:
	//   - Handle: the handle of the stored mesh
	//   - error: error if the mesh cannot be written
	SaveMesh(name string, mesh any) (Handle, error)

	// SavePrefab persists the scene root at the destination path.
	//
	// Parameters:
	//   - destination: the slash-separated path of the prefab inside the store
	//   - root: the value to serialize
	//
	// Returns:
	//   - Handle: the handle of the stored prefab
	//   - error: error if the prefab cannot be written
	SavePrefab(destination string, root any) (Handle, error)

	// Artifacts returns the paths written by this store that have not been committed or cleaned.
	Artifacts() []string

	// Clean deletes every artifact written since the last Commit.
	Clean() error

	// Commit keeps every artifact written so far and forgets them in the journal.
	Commit() error

	// Close releases the journal. The store cannot be used afterward.
	Close() error
}
