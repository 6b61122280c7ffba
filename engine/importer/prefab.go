package importer

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animation"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// prefabDocument is the persisted form of the instantiated hierarchy.
type prefabDocument struct {
	Name       string            `yaml:"name"`
	Root       *prefabNode       `yaml:"root"`
	Animations []*animation.Clip `yaml:"animations,omitempty"`
}

type prefabNode struct {
	Name      string           `yaml:"name"`
	Transform common.Transform `yaml:"transform"`
	Camera    *int             `yaml:"camera,omitempty"`
	Renderer  *prefabRenderer  `yaml:"renderer,omitempty"`
	Children  []*prefabNode    `yaml:"children,omitempty"`
}

// prefabRenderer references meshes and materials by handle and bones by node path.
type prefabRenderer struct {
	Kind         string         `yaml:"kind"`
	Meshes       []store.Handle `yaml:"meshes"`
	Materials    []store.Handle `yaml:"materials"`
	Bones        []string       `yaml:"bones,omitempty"`
	RootBone     string         `yaml:"rootBone,omitempty"`
	BindPoses    [][16]float32  `yaml:"bindPoses,flow,omitempty"`
	MorphWeights []float32      `yaml:"morphWeights,flow,omitempty"`
}

func (im *importer) prefabDocument() *prefabDocument {
	return &prefabDocument{
		Name:       im.modelName,
		Root:       im.prefabNode(im.walker.Root()),
		Animations: im.converter.Clips(),
	}
}

func (im *importer) prefabNode(n *scene.Node) *prefabNode {
	out := &prefabNode{
		Name:      n.Name,
		Transform: n.Transform,
		Camera:    n.Camera,
	}
	if c := n.Component; c != nil {
		r := &prefabRenderer{
			Kind:         c.Kind.String(),
			BindPoses:    c.BindPoses,
			MorphWeights: c.MorphWeights,
		}
		for _, part := range c.Parts {
			r.Meshes = append(r.Meshes, im.cache.MeshHandles[part])
			r.Materials = append(r.Materials, im.materialHandle(part.Material))
		}
		for _, bone := range c.Bones {
			r.Bones = append(r.Bones, bone.Path())
		}
		if c.RootBone != nil {
			r.RootBone = c.RootBone.Path()
		}
		out.Renderer = r
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, im.prefabNode(child))
	}
	return out
}
