package scene

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
)

// DefaultRootName names the root container when no model name is configured.
const DefaultRootName = "GLTFScene"

// frame is a pending node instantiation.
type frame struct {
	index  int
	parent *Node
}

// walker is the implementation of the Walker interface.
type walker struct {
	doc        *gltf.Document
	handedness common.Handedness
	rootName   string
	meshes     MeshLookup
	nodes      NodeTable
	logger     *slog.Logger

	root    *Node
	stack   []frame
	visited []bool
	created int
}

// Walker instantiates the node hierarchy of one scene, one node per step.
type Walker interface {
	// Step instantiates the next node in depth-first order.
	//
	// Returns:
	//   - bool: true when every node of the scene has been instantiated
	//   - error: ErrInvalidSceneReference (wrapped) on an out-of-range child, mesh or skin index or a cycle
	Step() (bool, error)

	// Root returns the root container. Its children are the scene's root nodes.
	//
	// Returns:
	//   - *Node: the root container
	Root() *Node

	// Created returns the number of nodes instantiated so far.
	Created() int

	// Total returns the number of document nodes, an upper bound on Created.
	Total() int
}

var _ Walker = &walker{}

// NewWalker creates a Walker over one scene of a document.
//
// Parameters:
//   - doc: the parsed document
//   - sceneIndex: the scene to instantiate, as returned by SelectScene
//   - options: variadic list of WalkerBuilderOption to configure the walker
//
// Returns:
//   - Walker: the new walker
//   - error: ErrNoDefaultScene (wrapped) if sceneIndex is out of range, ErrInvalidSceneReference for an invalid root
func NewWalker(doc *gltf.Document, sceneIndex int, options ...WalkerBuilderOption) (Walker, error) {
	if !common.InRange(sceneIndex, len(doc.Scenes)) {
		return nil, fmt.Errorf("scene %d: %w", sceneIndex, gltf.ErrNoDefaultScene)
	}

	w := &walker{
		doc:        doc,
		handedness: common.RightHanded,
		rootName:   DefaultRootName,
		nodes:      newNodeMap(),
		logger:     slog.Default(),
		visited:    make([]bool, len(doc.Nodes)),
	}
	for _, opt := range options {
		opt(w)
	}

	w.root = &Node{Name: w.rootName, Index: -1, Transform: common.IdentityTransform()}
	roots := doc.Scenes[sceneIndex].Nodes
	for i := len(roots) - 1; i >= 0; i-- {
		if !common.InRange(roots[i], len(doc.Nodes)) {
			return nil, fmt.Errorf("scene %d root node %d: %w", sceneIndex, roots[i], gltf.ErrInvalidSceneReference)
		}
		w.stack = append(w.stack, frame{index: roots[i], parent: w.root})
	}
	return w, nil
}

func (w *walker) Root() *Node {
	return w.root
}

func (w *walker) Created() int {
	return w.created
}

func (w *walker) Total() int {
	return len(w.doc.Nodes)
}

func (w *walker) Step() (bool, error) {
	if len(w.stack) == 0 {
		return true, nil
	}
	f := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]

	if w.visited[f.index] {
		return false, fmt.Errorf("node %d reached twice: %w", f.index, gltf.ErrInvalidSceneReference)
	}
	w.visited[f.index] = true

	gn := &w.doc.Nodes[f.index]
	n := &Node{
		Name:      NodeName(gn.Name, f.index),
		Index:     f.index,
		Transform: w.localTransform(gn),
		Camera:    gn.Camera,
		Parent:    f.parent,
	}
	f.parent.Children = append(f.parent.Children, n)

	if err := w.attach(n, gn); err != nil {
		return false, fmt.Errorf("node %d: %w", f.index, err)
	}
	w.nodes.Set(f.index, n)
	w.created++

	for i := len(gn.Children) - 1; i >= 0; i-- {
		child := gn.Children[i]
		if !common.InRange(child, len(w.doc.Nodes)) {
			return false, fmt.Errorf("node %d child %d: %w", f.index, child, gltf.ErrInvalidSceneReference)
		}
		w.stack = append(w.stack, frame{index: child, parent: n})
	}

	if len(w.stack) == 0 {
		w.logger.Debug("scene instantiated", "root", w.root.Name, "nodes", w.created)
		return true, nil
	}
	return false, nil
}

// localTransform reads TRS fields or decomposes the node matrix.
func (w *walker) localTransform(gn *gltf.Node) common.Transform {
	var t common.Transform
	if gn.Matrix != nil {
		t = common.DecomposeMatrix(*gn.Matrix)
	} else {
		t = common.IdentityTransform()
		if gn.Translation != nil {
			t.Translation = *gn.Translation
		}
		if gn.Rotation != nil {
			t.Rotation = common.NormalizeQuaternion(*gn.Rotation)
		}
		if gn.Scale != nil {
			t.Scale = *gn.Scale
		}
	}
	if w.handedness == common.LeftHanded {
		t = common.FlipTransformZ(t)
	}
	return t
}

// attach adds the mesh component of a node. Primitives after the first become child nodes <node>_<k>.
func (w *walker) attach(n *Node, gn *gltf.Node) error {
	if gn.Mesh == nil {
		if gn.Skin != nil {
			w.logger.Warn("skin on node without mesh, ignoring", "node", n.Name, "skin", *gn.Skin)
		}
		return nil
	}

	meshIndex := *gn.Mesh
	if !common.InRange(meshIndex, len(w.doc.Meshes)) {
		return fmt.Errorf("mesh %d: %w", meshIndex, gltf.ErrInvalidSceneReference)
	}
	skin := -1
	if gn.Skin != nil {
		if !common.InRange(*gn.Skin, len(w.doc.Skins)) {
			return fmt.Errorf("skin %d: %w", *gn.Skin, gltf.ErrInvalidSceneReference)
		}
		skin = *gn.Skin
	}

	gm := &w.doc.Meshes[meshIndex]
	weights := gn.Weights
	if weights == nil {
		weights = gm.Weights
	}

	var built [][]*mesh.Mesh
	if w.meshes != nil {
		built, _ = w.meshes(meshIndex)
	}

	for k := range gm.Primitives {
		target := n
		if k > 0 {
			target = &Node{
				Name:      fmt.Sprintf("%s_%d", n.Name, k),
				Index:     -1,
				Transform: common.IdentityTransform(),
				Parent:    n,
			}
			n.Children = append(n.Children, target)
		}

		c := &Component{Kind: ComponentStatic, Mesh: meshIndex, Primitive: k, Skin: skin}
		switch {
		case skin >= 0:
			c.Kind = ComponentSkinned
		case len(gm.Primitives[k].Targets) > 0:
			c.Kind = ComponentMorphOnly
		}
		if c.Kind != ComponentStatic && weights != nil {
			c.MorphWeights = append([]float32(nil), weights...)
		}
		if k < len(built) {
			c.Parts = built[k]
		}
		target.Component = c
	}
	return nil
}

// nodeMap is the NodeTable used when none is configured.
type nodeMap map[int]*Node

func newNodeMap() nodeMap {
	return make(nodeMap)
}

func (m nodeMap) Get(index int) (*Node, bool) {
	n, ok := m[index]
	return n, ok
}

func (m nodeMap) Set(index int, n *Node) bool {
	m[index] = n
	return true
}
