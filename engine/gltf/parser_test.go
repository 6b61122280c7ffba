package gltf_test

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf/gltftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangleBuilder() *gltftest.Builder {
	b := gltftest.New()
	pos := b.AddVec3([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	mesh := b.AddMesh("Tri", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}})
	node := b.AddNode(gltf.Node{Name: "TriNode", Mesh: &mesh})
	b.AddScene(node)
	return b
}

func TestParseGLB(t *testing.T) {
	b := triangleBuilder()
	p := gltf.NewParser()

	glb := b.GLB()
	require.True(t, gltf.IsGLB(glb))

	doc, err := p.ParseBytes(glb, "")
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Asset.Version)
	require.Len(t, doc.Meshes, 1)
	assert.Equal(t, "Tri", doc.Meshes[0].Name)
	assert.GreaterOrEqual(t, len(doc.GLBChunk), 36)

	buf, err := gltf.NewSource(nil).Buffer(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, b.Bin(), buf[:len(b.Bin())])
}

func TestParseReaderJSON(t *testing.T) {
	b := triangleBuilder()
	doc, err := gltf.NewParser().ParseReader(bytes.NewReader(b.JSON()), false)
	require.NoError(t, err)
	require.Len(t, doc.Buffers, 1)
	assert.Contains(t, doc.Buffers[0].URI, "data:application/octet-stream;base64,")
	assert.Nil(t, doc.GLBChunk)

	buf, err := gltf.NewSource(nil).Buffer(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, b.Bin(), buf)
}

func TestParseFromFS(t *testing.T) {
	b := triangleBuilder()
	fsys := fstest.MapFS{
		"models/tri.glb":  {Data: b.GLB()},
		"models/tri.gltf": {Data: b.JSON()},
	}
	p := gltf.NewParser(gltf.WithParserFS(fsys))

	for _, name := range []string{"models/tri.glb", "models/tri.gltf"} {
		doc, err := p.Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, "models", doc.BaseDir)
		assert.Len(t, doc.Nodes, 1)
	}
}

func TestParseRejects(t *testing.T) {
	p := gltf.NewParser()

	_, err := p.ParseBytes([]byte(`{"asset":{"version":"1.0"}}`), "")
	assert.Error(t, err)

	_, err = p.ParseBytes([]byte(`not json`), "")
	assert.Error(t, err)

	glb := triangleBuilder().GLB()
	glb[4] = 1 // version
	_, err = p.ParseBytes(glb, "")
	assert.Error(t, err)

	_, err = p.ParseReader(bytes.NewReader([]byte("glTF")), true)
	assert.Error(t, err)
}
