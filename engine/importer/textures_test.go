package importer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf/gltftest"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedImporter(t *testing.T) *importer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))))

	b := gltftest.New()
	img := b.AddImage(buf.Bytes(), "image/png")
	b.AddTexture(img)
	b.AddTexture(img)
	root := b.AddNode(gltf.Node{Name: "Root"})
	b.AddScene(root)

	fsys, err := mem.NewFS()
	require.NoError(t, err)
	s, err := store.NewFileStore(store.WithFS(fsys), store.WithRoot("out"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	im := NewImporter(WithStore(s)).(*importer)
	require.NoError(t, im.StartDocument(b.Document(), "Model"))
	require.NoError(t, im.loadBuffer(0))
	require.NoError(t, im.loadImage(0))
	return im
}

func TestTextureRegisteredOnce(t *testing.T) {
	im := startedImporter(t)
	src := im.textures()

	first, err := src.Texture(0)
	require.NoError(t, err)
	second, err := src.Texture(0)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := src.Texture(1)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	_, err = src.Texture(7)
	assert.ErrorIs(t, err, errImageUnavailable)
}

func TestSplitAddsOcclusionOnDemand(t *testing.T) {
	im := startedImporter(t)
	src := im.textures()

	metal, occlusion, err := src.Split(1, false)
	require.NoError(t, err)
	assert.False(t, metal.IsZero())
	assert.True(t, occlusion.IsZero())

	again, occlusion, err := src.Split(1, true)
	require.NoError(t, err)
	assert.Equal(t, metal, again)
	assert.False(t, occlusion.IsZero())

	cached, cachedOcclusion, err := src.Split(1, false)
	require.NoError(t, err)
	assert.Equal(t, metal, cached)
	assert.Equal(t, occlusion, cachedOcclusion)
}

func TestSplitPerTextureWithSharedImageName(t *testing.T) {
	packed := func(blue uint8) []byte {
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.Set(0, 0, color.NRGBA{R: 255, G: 0, B: blue, A: 255})
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))
		return buf.Bytes()
	}

	b := gltftest.New()
	b.AddTexture(b.AddImage(packed(255), "image/png"))
	b.AddTexture(b.AddImage(packed(0), "image/png"))
	b.AddScene(b.AddNode(gltf.Node{Name: "Root"}))
	doc := b.Document()
	doc.Images[0].Name = "orm"
	doc.Images[1].Name = "orm"

	fsys, err := mem.NewFS()
	require.NoError(t, err)
	s, err := store.NewFileStore(store.WithFS(fsys), store.WithRoot("out"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	im := NewImporter(WithStore(s)).(*importer)
	require.NoError(t, im.StartDocument(doc, "Model"))
	require.NoError(t, im.loadBuffer(0))
	require.NoError(t, im.loadImage(0))
	require.NoError(t, im.loadImage(1))

	first, _, err := im.textures().Split(0, false)
	require.NoError(t, err)
	second, _, err := im.textures().Split(1, false)
	require.NoError(t, err)
	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, "out/Textures/orm_metal.tex.yaml", first.Path)
	assert.Equal(t, "out/Textures/orm_1_metal.tex.yaml", second.Path)

	metal := func(p string) uint8 {
		data, err := hackpadfs.ReadFile(fsys, p)
		require.NoError(t, err)
		img, err := common.DecodeImage(data)
		require.NoError(t, err)
		return img.RGBAAt(0, 0).R
	}
	assert.Equal(t, uint8(255), metal("out/Textures/orm_metal.png"))
	assert.Equal(t, uint8(0), metal("out/Textures/orm_1_metal.png"))

	again, _, err := im.textures().Split(1, true)
	require.NoError(t, err)
	assert.Equal(t, second, again)
	assert.Contains(t, s.Artifacts(), "out/Textures/orm_1_occlusion.png")
}

func TestImageNames(t *testing.T) {
	assert.Equal(t, "Albedo", imageName("Albedo", "tex/other.png", 0))
	assert.Equal(t, "other", imageName("", "tex/other.png", 0))
	assert.Equal(t, "image_3", imageName("", "data:image/png;base64,AAAA", 3))
}
