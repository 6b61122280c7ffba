package model

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animation"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// model is the implementation of the Model interface.
type model struct {
	name           string
	path           string
	root           *scene.Node
	meshes         []*mesh.Mesh
	materials      []*material.Material
	clips          []*animation.Clip
	skins          []*skeleton.Skin
	prefab         store.Handle
	artifacts      []string
	boundingRadius float32
}

// Model is the result of one completed import: the instantiated node hierarchy plus every
// constructed mesh, material, clip and skin, and the persisted prefab.
type Model interface {
	// Name retrieves the model identifier, also the name of the root node.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Path retrieves the source document path.
	//
	// Returns:
	//   - string: the path the model was imported from
	Path() string

	// Root retrieves the root container of the instantiated scene.
	//
	// Returns:
	//   - *scene.Node: the root node
	Root() *scene.Node

	// Meshes retrieves every constructed mesh, split parts included, in build order.
	//
	// Returns:
	//   - []*mesh.Mesh: the meshes
	Meshes() []*mesh.Mesh

	// Materials retrieves the constructed materials in document order, followed by the
	// default material when a primitive used it.
	//
	// Returns:
	//   - []*material.Material: the materials
	Materials() []*material.Material

	// Skinned reports whether any skin was bound.
	//
	// Returns:
	//   - bool: true if the model has skins
	Skinned() bool

	// Skins retrieves the decoded skins.
	//
	// Returns:
	//   - []*skeleton.Skin: the skins
	Skins() []*skeleton.Skin

	// Animations retrieves the animation clips.
	//
	// Returns:
	//   - []*animation.Clip: the clips
	Animations() []*animation.Clip

	// AnimationCount returns the number of clips.
	AnimationCount() int

	// AnimationNames returns the names of all clips.
	//
	// Returns:
	//   - []string: the clip names
	AnimationNames() []string

	// GetAnimationIndex returns the index of a clip by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the clip name to search for
	//
	// Returns:
	//   - int: the clip index, or -1 if not found
	GetAnimationIndex(name string) int

	// Prefab retrieves the handle of the persisted prefab.
	//
	// Returns:
	//   - store.Handle: the prefab handle
	Prefab() store.Handle

	// Artifacts lists the store paths written by the import.
	//
	// Returns:
	//   - []string: the artifact paths
	Artifacts() []string

	// BoundingRadius returns the largest distance from the origin of any mesh bounds corner.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// The bounding radius is computed from the meshes unless set explicitly.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{boundingRadius: -1}
	for _, opt := range options {
		opt(m)
	}
	if m.boundingRadius < 0 {
		m.boundingRadius = ComputeBoundingRadius(m.meshes)
	}
	return m
}

// ComputeBoundingRadius returns the largest origin distance of any corner of the mesh bounds.
//
// Parameters:
//   - meshes: the meshes to bound
//
// Returns:
//   - float32: the radius, 0 without meshes
func ComputeBoundingRadius(meshes []*mesh.Mesh) float32 {
	var r float32
	for _, m := range meshes {
		for _, x := range [2]float32{m.BoundsMin[0], m.BoundsMax[0]} {
			for _, y := range [2]float32{m.BoundsMin[1], m.BoundsMax[1]} {
				for _, z := range [2]float32{m.BoundsMin[2], m.BoundsMax[2]} {
					r = max(r, common.Length3([3]float32{x, y, z}))
				}
			}
		}
	}
	return r
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Path() string {
	return m.path
}

func (m *model) Root() *scene.Node {
	return m.root
}

func (m *model) Meshes() []*mesh.Mesh {
	return m.meshes
}

func (m *model) Materials() []*material.Material {
	return m.materials
}

func (m *model) Skinned() bool {
	return len(m.skins) > 0
}

func (m *model) Skins() []*skeleton.Skin {
	return m.skins
}

func (m *model) Animations() []*animation.Clip {
	return m.clips
}

func (m *model) AnimationCount() int {
	return len(m.clips)
}

func (m *model) AnimationNames() []string {
	names := make([]string, len(m.clips))
	for i, clip := range m.clips {
		names[i] = clip.Name
	}
	return names
}

func (m *model) GetAnimationIndex(name string) int {
	for i, clip := range m.clips {
		if clip.Name == name {
			return i
		}
	}
	return -1
}

func (m *model) Prefab() store.Handle {
	return m.prefab
}

func (m *model) Artifacts() []string {
	return m.artifacts
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}
