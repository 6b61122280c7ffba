package model

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/animation"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithPath is an option builder that records the source document path.
func WithPath(path string) ModelBuilderOption {
	return func(m *model) {
		m.path = path
	}
}

// WithRoot is an option builder that sets the root of the instantiated scene.
//
// Parameters:
//   - root: the root container
//
// Returns:
//   - ModelBuilderOption: a function that applies the root option to a model
func WithRoot(root *scene.Node) ModelBuilderOption {
	return func(m *model) {
		m.root = root
	}
}

// WithMeshes is an option builder that sets the constructed meshes.
//
// Parameters:
//   - meshes: the meshes to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the meshes option to a model
func WithMeshes(meshes []*mesh.Mesh) ModelBuilderOption {
	return func(m *model) {
		m.meshes = meshes
	}
}

// WithMaterials is an option builder that sets the constructed materials.
//
// Parameters:
//   - materials: the materials to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the materials option to a model
func WithMaterials(materials []*material.Material) ModelBuilderOption {
	return func(m *model) {
		m.materials = materials
	}
}

// WithAnimations is an option builder that sets the animation clips of the Model.
//
// Parameters:
//   - clips: the animation clips to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the animations option to a model
func WithAnimations(clips []*animation.Clip) ModelBuilderOption {
	return func(m *model) {
		m.clips = clips
	}
}

// WithSkins is an option builder that sets the decoded skins.
//
// Parameters:
//   - skins: the skins to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the skins option to a model
func WithSkins(skins []*skeleton.Skin) ModelBuilderOption {
	return func(m *model) {
		m.skins = skins
	}
}

// WithPrefab is an option builder that sets the persisted prefab handle.
func WithPrefab(prefab store.Handle) ModelBuilderOption {
	return func(m *model) {
		m.prefab = prefab
	}
}

// WithArtifacts is an option builder that records the store paths written by the import.
func WithArtifacts(paths []string) ModelBuilderOption {
	return func(m *model) {
		m.artifacts = paths
	}
}

// WithBoundingRadius is an option builder that manually sets the bounding radius.
// Use this to override the value ComputeBoundingRadius derives from the meshes.
//
// Parameters:
//   - radius: the bounding radius to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the bounding radius option to a model
func WithBoundingRadius(radius float32) ModelBuilderOption {
	return func(m *model) {
		m.boundingRadius = radius
	}
}
