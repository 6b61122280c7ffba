package scene

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
)

// ComponentKind classifies the renderable component attached to a node.
type ComponentKind int

const (
	// ComponentStatic is a mesh without skin or morph targets.
	ComponentStatic ComponentKind = iota
	// ComponentSkinned is a mesh deformed by a skin; bones are bound after the scene is walked.
	ComponentSkinned
	// ComponentMorphOnly is a mesh with morph targets and no skin.
	ComponentMorphOnly
)

func (k ComponentKind) String() string {
	switch k {
	case ComponentSkinned:
		return "skinned"
	case ComponentMorphOnly:
		return "morph"
	default:
		return "static"
	}
}

// Component is the mesh renderer attached to a node: one glTF primitive and the meshes built from it.
type Component struct {
	// Kind selects how the meshes are rendered.
	Kind ComponentKind

	// Mesh and Primitive locate the source primitive in the document.
	Mesh, Primitive int

	// Parts are the constructed meshes, more than one when the primitive was split.
	Parts []*mesh.Mesh

	// Skin is the skin index, -1 when not skinned.
	Skin int

	// Bones, BindPoses and RootBone are filled when the skin is bound.
	Bones     []*Node
	BindPoses [][16]float32
	RootBone  *Node

	// MorphWeights are the default morph target weights from the node or the mesh.
	MorphWeights []float32
}

// Node is one instantiated scene node.
type Node struct {
	// Name is the cleaned glTF name, or a generated one.
	Name string

	// Index is the document node index, -1 for the root container and primitive children.
	Index int

	// Transform is the local TRS relative to the parent.
	Transform common.Transform

	// Camera records the camera index; cameras are not constructed.
	Camera *int

	// Component is the attached mesh renderer, nil for empty nodes.
	Component *Component

	Parent   *Node
	Children []*Node
}

// NodeName returns the instance name of a document node.
//
// Parameters:
//   - name: the glTF node name
//   - index: the node index
//
// Returns:
//   - string: the cleaned name, or GLTFNode_<index> when nothing remains
func NodeName(name string, index int) string {
	if clean := common.CleanName(name); clean != "" {
		return clean
	}
	return fmt.Sprintf("GLTFNode_%d", index)
}

// Path returns the slash-separated names from below the root container down to n.
// The root container itself has an empty path.
func (n *Node) Path() string {
	var names []string
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		names = append(names, cur.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

// Walk calls fn for n and every descendant, depth first in child order.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// NodeLookup resolves document node indices to instances.
type NodeLookup interface {
	Get(index int) (*Node, bool)
}

// NodeTable records instances by document node index.
type NodeTable interface {
	NodeLookup
	Set(index int, n *Node) bool
}

// MeshLookup returns the built parts of every primitive of a document mesh.
// A nil entry marks a primitive that was skipped.
type MeshLookup func(meshIndex int) ([][]*mesh.Mesh, bool)
