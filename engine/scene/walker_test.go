package scene_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf/gltftest"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walkAll steps the walker to completion and returns the number of steps taken.
func walkAll(t *testing.T, w scene.Walker) int {
	t.Helper()
	steps := 0
	for {
		done, err := w.Step()
		require.NoError(t, err)
		steps++
		if done {
			return steps
		}
		require.Less(t, steps, 1000)
	}
}

func TestSelectScene(t *testing.T) {
	tests := []struct {
		name     string
		scenes   int
		def      *int
		explicit int
		want     int
		wantErr  bool
	}{
		{"explicit", 2, gltftest.Ptr(1), 0, 0, false},
		{"document default", 2, gltftest.Ptr(1), -1, 1, false},
		{"first scene", 2, nil, -1, 0, false},
		{"explicit out of range", 2, nil, 5, 0, true},
		{"default out of range", 2, gltftest.Ptr(3), -1, 0, true},
		{"no scenes", 0, nil, -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &gltf.Document{Scenes: make([]gltf.Scene, tt.scenes), Scene: tt.def}
			got, err := scene.SelectScene(d, tt.explicit)
			if tt.wantErr {
				assert.ErrorIs(t, err, gltf.ErrNoDefaultScene)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWalkHierarchy(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	prim := gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}}
	morph := gltf.Primitive{
		Attributes: map[string]int{gltf.AttributePosition: pos},
		Targets:    []map[string]int{{gltf.AttributePosition: pos}},
	}
	b.AddMesh("Body", prim, morph)
	b.AddSkin(gltf.Skin{Joints: []int{2}})

	leaf := b.AddNode(gltf.Node{Name: "Bone", Translation: &[3]float32{0, 2, 0}})
	body := b.AddNode(gltf.Node{Name: "Body<1>", Mesh: gltftest.Ptr(0)})
	skinned := b.AddNode(gltf.Node{Mesh: gltftest.Ptr(0), Skin: gltftest.Ptr(0), Children: []int{leaf}})
	b.AddScene(body, skinned)
	doc := b.Document()
	require.Equal(t, []int{0, 1, 2}, []int{leaf, body, skinned})

	built := []*mesh.Mesh{{Name: "Body_0"}}
	nodes := map[int]*scene.Node{}
	w, err := scene.NewWalker(doc, 0,
		scene.WithRootName("Model"),
		scene.WithMeshes(func(i int) ([][]*mesh.Mesh, bool) { return [][]*mesh.Mesh{built}, i == 0 }),
		scene.WithNodeTable(mapTable(nodes)),
	)
	require.NoError(t, err)

	assert.Equal(t, 3, walkAll(t, w), "one node per step")
	assert.Equal(t, 3, w.Created())

	root := w.Root()
	assert.Equal(t, "Model", root.Name)
	require.Len(t, root.Children, 2)

	bodyNode := root.Children[0]
	assert.Equal(t, "Body1", bodyNode.Name)
	require.NotNil(t, bodyNode.Component)
	assert.Equal(t, scene.ComponentStatic, bodyNode.Component.Kind)
	assert.Equal(t, built, bodyNode.Component.Parts)
	require.Len(t, bodyNode.Children, 1)
	assert.Equal(t, "Body1_1", bodyNode.Children[0].Name)
	assert.Equal(t, scene.ComponentMorphOnly, bodyNode.Children[0].Component.Kind)
	assert.Equal(t, 1, bodyNode.Children[0].Component.Primitive)

	skinnedNode := root.Children[1]
	assert.Equal(t, "GLTFNode_2", skinnedNode.Name)
	assert.Equal(t, scene.ComponentSkinned, skinnedNode.Component.Kind)
	assert.Equal(t, 0, skinnedNode.Component.Skin)
	assert.Equal(t, scene.ComponentSkinned, skinnedNode.Children[0].Component.Kind)

	bone, ok := nodes[leaf]
	require.True(t, ok)
	assert.Equal(t, "GLTFNode_2/Bone", bone.Path())
	assert.Equal(t, [3]float32{0, 2, 0}, bone.Transform.Translation)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, bone.Transform.Rotation)
}

func TestWalkMatrixAndHandedness(t *testing.T) {
	b := gltftest.New()
	m := common.ComposeMatrix(common.Transform{
		Translation: [3]float32{1, 2, 3},
		Rotation:    [4]float32{0, 0, 0, 1},
		Scale:       [3]float32{2, 2, 2},
	})
	n := b.AddNode(gltf.Node{Matrix: &m, Camera: gltftest.Ptr(4)})
	b.AddScene(n)

	w, err := scene.NewWalker(b.Document(), 0, scene.WithHandedness(common.LeftHanded))
	require.NoError(t, err)
	walkAll(t, w)

	node := w.Root().Children[0]
	assert.InDeltaSlice(t, []float32{1, 2, -3}, node.Transform.Translation[:], 1e-5)
	assert.InDeltaSlice(t, []float32{2, 2, 2}, node.Transform.Scale[:], 1e-5)
	require.NotNil(t, node.Camera)
	assert.Equal(t, 4, *node.Camera)
	assert.Nil(t, node.Component)
}

func TestWalkInvalidReferences(t *testing.T) {
	tests := []struct {
		name  string
		nodes []gltf.Node
	}{
		{"child out of range", []gltf.Node{{Children: []int{7}}}},
		{"mesh out of range", []gltf.Node{{Mesh: gltftest.Ptr(3)}}},
		{"cycle", []gltf.Node{{Children: []int{1}}, {Children: []int{0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &gltf.Document{Nodes: tt.nodes, Scenes: []gltf.Scene{{Nodes: []int{0}}}}
			w, err := scene.NewWalker(doc, 0)
			require.NoError(t, err)

			for range 10 {
				var done bool
				done, err = w.Step()
				if err != nil || done {
					break
				}
			}
			assert.ErrorIs(t, err, gltf.ErrInvalidSceneReference)
		})
	}
}

func TestWalkerRejectsBadRoot(t *testing.T) {
	doc := &gltf.Document{Scenes: []gltf.Scene{{Nodes: []int{0}}}}
	_, err := scene.NewWalker(doc, 0)
	assert.ErrorIs(t, err, gltf.ErrInvalidSceneReference)

	_, err = scene.NewWalker(doc, 1)
	assert.ErrorIs(t, err, gltf.ErrNoDefaultScene)
}

func TestEmptyScene(t *testing.T) {
	doc := &gltf.Document{Scenes: []gltf.Scene{{}}}
	w, err := scene.NewWalker(doc, 0)
	require.NoError(t, err)

	done, err := w.Step()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, scene.DefaultRootName, w.Root().Name)
}

type mapTable map[int]*scene.Node

func (m mapTable) Get(i int) (*scene.Node, bool) {
	n, ok := m[i]
	return n, ok
}

func (m mapTable) Set(i int, n *scene.Node) bool {
	m[i] = n
	return true
}
