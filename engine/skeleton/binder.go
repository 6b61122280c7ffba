package skeleton

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
)

// binder is the implementation of the Binder interface.
type binder struct {
	handedness common.Handedness
	logger     *slog.Logger

	// owners maps each bound mesh part to the skin whose bind poses it carries.
	owners map[*mesh.Mesh]int
}

// Binder attaches decoded skins to the instantiated scene. It must run after the scene is walked.
// One binder serves one import: it remembers which skin each mesh part was bound to.
type Binder interface {
	// Bind resolves the joints of a skin and writes bones, bind poses and root bone onto every
	// skinned component under root that references the skin. A mesh part already bound to another
	// skin is cloned, so each (mesh, skin) pair carries its own bind poses.
	//
	// Parameters:
	//   - skin: the decoded skin
	//   - nodes: the instances by document node index
	//   - root: the root of the instantiated scene
	//
	// Returns:
	//   - int: the number of components bound
	//   - error: ErrUnresolvedJoint (wrapped) if a joint was never instantiated
	Bind(skin *Skin, nodes scene.NodeLookup, root *scene.Node) (int, error)
}

var _ Binder = &binder{}

// BinderBuilderOption is a functional option for configuring a Binder.
type BinderBuilderOption func(*binder)

// WithHandedness sets the coordinate convention bind poses are converted to.
//
// Parameters:
//   - h: the target handedness
//
// Returns:
//   - BinderBuilderOption: option function to set the handedness
func WithHandedness(h common.Handedness) BinderBuilderOption {
	return func(b *binder) {
		b.handedness = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BinderBuilderOption {
	return func(b *binder) {
		b.logger = logger
	}
}

// NewBinder creates a Binder.
//
// Parameters:
//   - options: variadic list of BinderBuilderOption to configure the binder
//
// Returns:
//   - Binder: the new binder
func NewBinder(options ...BinderBuilderOption) Binder {
	b := &binder{
		handedness: common.RightHanded,
		logger:     slog.Default(),
		owners:     make(map[*mesh.Mesh]int),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *binder) Bind(skin *Skin, nodes scene.NodeLookup, root *scene.Node) (int, error) {
	bones := make([]*scene.Node, len(skin.Joints))
	isBone := make(map[*scene.Node]bool, len(skin.Joints))
	for i, j := range skin.Joints {
		n, ok := nodes.Get(j)
		if !ok {
			return 0, fmt.Errorf("skin %d joint %d (node %d): %w", skin.Index, i, j, gltf.ErrUnresolvedJoint)
		}
		bones[i] = n
		isBone[n] = true
	}

	bindPoses := make([][16]float32, len(skin.InverseBindMatrices))
	for i, m := range skin.InverseBindMatrices {
		if b.handedness == common.LeftHanded {
			m = common.FlipMatrixZ(m)
		}
		bindPoses[i] = m
	}

	rootBone := b.rootBone(skin, nodes, bones, isBone)

	bound := 0
	scene.Walk(root, func(n *scene.Node) {
		c := n.Component
		if c == nil || c.Kind != scene.ComponentSkinned || c.Skin != skin.Index {
			return
		}
		c.Bones = bones
		c.BindPoses = bindPoses
		c.RootBone = rootBone

		cloned := false
		for i, part := range c.Parts {
			if owner, ok := b.owners[part]; ok && owner != skin.Index {
				if !cloned {
					// Parts is shared with every instance of the mesh
					c.Parts = slices.Clone(c.Parts)
					cloned = true
				}
				b.logger.Debug("mesh shared by several skins, cloning", "mesh", part.Name, "skin", skin.Index, "bound", owner)
				part = part.Clone()
				c.Parts[i] = part
			}
			b.owners[part] = skin.Index
			part.BindPoses = bindPoses
		}
		bound++
	})

	b.logger.Debug("skin bound", "skin", skin.Index, "joints", len(bones), "components", bound)
	return bound, nil
}

// rootBone returns the declared skeleton node, or the first joint whose parent is not a joint.
func (b *binder) rootBone(skin *Skin, nodes scene.NodeLookup, bones []*scene.Node, isBone map[*scene.Node]bool) *scene.Node {
	if skin.Skeleton >= 0 {
		if n, ok := nodes.Get(skin.Skeleton); ok {
			return n
		}
		b.logger.Warn("skeleton root was not instantiated, deriving it from joints", "skin", skin.Index, "node", skin.Skeleton)
	}
	for _, n := range bones {
		if !isBone[n.Parent] {
			return n
		}
	}
	return nil
}
