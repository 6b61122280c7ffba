package mesh_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf/gltftest"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var triangle = [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

func resolve(t *testing.T, b *gltftest.Builder, meshIndex, primIndex int) mesh.Primitive {
	t.Helper()
	prim, err := mesh.ResolvePrimitive(b.Document(), meshIndex, primIndex, b.Lookup())
	require.NoError(t, err)
	return prim
}

func TestSingleTriangle(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(triangle)
	b.AddMesh("Tri", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}})

	meshes, err := mesh.NewBuilder().Build(resolve(t, b, 0, 0))
	require.NoError(t, err)
	require.Len(t, meshes, 1)

	m := meshes[0]
	assert.Equal(t, "Tri", m.Name)
	assert.Equal(t, -1, m.Material)
	assert.Equal(t, 3, m.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2}, m.Indices)
	assert.Equal(t, [3]float32{0, 0, 0}, m.BoundsMin)
	assert.Equal(t, [3]float32{1, 1, 0}, m.BoundsMax)

	require.Len(t, m.Normals, 3)
	for _, n := range m.Normals {
		assert.InDelta(t, 1, n[2], 1e-6)
	}
	assert.Nil(t, m.Tangents, "no UV0 means no tangents")
}

func TestMissingPosition(t *testing.T) {
	b := gltftest.New()
	nrm := b.AddVec3(triangle)
	b.AddMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributeNormal: nrm}})

	_, err := mesh.NewBuilder().Build(resolve(t, b, 0, 0))
	assert.ErrorIs(t, err, gltf.ErrMissingRequiredAttribute)
}

func TestMismatchedStreams(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(triangle)
	uv := b.AddVec2([][2]float32{{0, 0}, {1, 0}})
	b.AddMesh("", gltf.Primitive{Attributes: map[string]int{
		gltf.AttributePosition:       pos,
		gltf.AttributeTexCoord + "0": uv,
	}})

	_, err := mesh.NewBuilder().Build(resolve(t, b, 0, 0))
	assert.ErrorIs(t, err, gltf.ErrMalformedAccessor)
}

func TestIndexOutOfRange(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(triangle)
	idx := b.AddIndices([]uint32{0, 1, 3})
	b.AddMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}, Indices: &idx})

	_, err := mesh.NewBuilder().Build(resolve(t, b, 0, 0))
	assert.ErrorIs(t, err, gltf.ErrMalformedAccessor)
}

func TestNonIndexedPartialTriangle(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(append(append([][3]float32{}, triangle...), [3]float32{1, 1, 0}, [3]float32{2, 1, 0}))
	b.AddMesh("Tail", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}})

	meshes, err := mesh.NewBuilder().Build(resolve(t, b, 0, 0))
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Equal(t, 5, meshes[0].VertexCount())
	assert.Equal(t, []uint32{0, 1, 2}, meshes[0].Indices)
	assert.Equal(t, 1, meshes[0].TriangleCount())
}

func TestUnsupportedMode(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(triangle)
	b.AddMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}, Mode: gltftest.Ptr(1)})

	_, err := mesh.NewBuilder().Build(resolve(t, b, 0, 0))
	assert.ErrorIs(t, err, mesh.ErrUnsupportedMode)
}

func TestSkinWeightsSumToOne(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(triangle)
	joints := b.AddJoints([][4]uint8{{0, 1, 0, 0}, {2, 0, 0, 0}, {1, 2, 3, 0}})
	weights := b.AddVec4([][4]float32{{0.5, 0.3, 0, 0}, {0, 0, 0, 0}, {1, 1, 1, 1}})
	b.AddMesh("Skinned", gltf.Primitive{Attributes: map[string]int{
		gltf.AttributePosition: pos,
		gltf.AttributeJoints:   joints,
		gltf.AttributeWeights:  weights,
	}})

	meshes, err := mesh.NewBuilder().Build(resolve(t, b, 0, 0))
	require.NoError(t, err)
	m := meshes[0]

	require.True(t, m.IsSkinned())
	require.Len(t, m.Weights, 3)
	for i, w := range m.Weights {
		assert.InDelta(t, 1, w[0]+w[1]+w[2]+w[3], 1e-5, "vertex %d", i)
	}
	assert.Equal(t, [4]float32{1, 0, 0, 0}, m.Weights[1])
	assert.Equal(t, [4]uint32{1, 2, 3, 0}, m.Joints[2])
	assert.Len(t, m.BindPoses, 4)
	assert.Equal(t, common.IdentityMatrix(), m.BindPoses[3])
}

func TestSkinSizeMismatch(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(triangle)
	joints := b.AddJoints([][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}})
	weights := b.AddVec4([][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}})
	b.AddMesh("", gltf.Primitive{Attributes: map[string]int{
		gltf.AttributePosition: pos,
		gltf.AttributeJoints:   joints,
		gltf.AttributeWeights:  weights,
	}})

	_, err := mesh.NewBuilder().Build(resolve(t, b, 0, 0))
	assert.ErrorIs(t, err, gltf.ErrSkinDataSizeMismatch)
}

func TestMorphTargetNames(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(triangle)
	d0 := b.AddVec3([][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	d1 := b.AddVec3([][3]float32{{1, 0, 0}, {0, 0, 0}, {0, 0, 0}})
	b.AddMesh("Face", gltf.Primitive{
		Attributes: map[string]int{gltf.AttributePosition: pos},
		Targets: []map[string]int{
			{gltf.AttributePosition: d0},
			{gltf.AttributePosition: d1},
		},
	})
	b.Document().Meshes[0].Extras = &gltf.MeshExtras{TargetNames: []string{"Smile"}}

	meshes, err := mesh.NewBuilder().Build(resolve(t, b, 0, 0))
	require.NoError(t, err)
	m := meshes[0]

	require.Len(t, m.MorphTargets, 2)
	assert.Equal(t, "Smile", m.MorphTargets[0].Name)
	assert.Equal(t, "0_blendshape_1", m.MorphTargets[1].Name)
	assert.Equal(t, [3]float32{0, 0, 1}, m.MorphTargets[0].DeltaPositions[2])
	assert.Len(t, m.MorphTargets[1].DeltaNormals, 3)
	assert.Len(t, m.MorphTargets[1].DeltaTangents, 3)
}

func TestLeftHanded(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3([][3]float32{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}})
	b.AddMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}})

	meshes, err := mesh.NewBuilder(mesh.WithHandedness(common.LeftHanded)).Build(resolve(t, b, 0, 0))
	require.NoError(t, err)
	m := meshes[0]

	assert.Equal(t, [3]float32{1, 0, -1}, m.Positions[1])
	assert.Equal(t, []uint32{0, 2, 1}, m.Indices)
	for _, n := range m.Normals {
		assert.InDelta(t, -1, n[2], 1e-6)
	}
}

func TestGeneratedNormalsDisabled(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(triangle)
	b.AddMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}})

	meshes, err := mesh.NewBuilder(mesh.WithGeneratedNormals(false)).Build(resolve(t, b, 0, 0))
	require.NoError(t, err)
	assert.Nil(t, meshes[0].Normals)
}

func TestPrimitiveNames(t *testing.T) {
	b := gltftest.New()
	pos := b.AddVec3(triangle)
	p := gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}}
	b.AddMesh("Body/Main", p, p)
	b.AddMesh("", p)
	doc := b.Document()

	assert.Equal(t, "BodyMain_0", mesh.PrimitiveName(doc, 0, 0))
	assert.Equal(t, "BodyMain_1", mesh.PrimitiveName(doc, 0, 1))
	assert.Equal(t, "GLTFMesh_1", mesh.PrimitiveName(doc, 1, 0))

	_, err := mesh.ResolvePrimitive(doc, 0, 2, b.Lookup())
	assert.Error(t, err)
}
