package gltf_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf/gltftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferFromExternalFile(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	fsys := fstest.MapFS{"assets/data bin.bin": {Data: payload}}
	doc := &gltf.Document{
		BaseDir: "assets",
		Buffers: []gltf.Buffer{{URI: "data%20bin.bin", ByteLength: 8}},
	}

	got, err := gltf.NewSource(fsys).Buffer(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUnresolvableBuffer(t *testing.T) {
	src := gltf.NewSource(fstest.MapFS{})

	tests := []struct {
		name string
		doc  *gltf.Document
	}{
		{"missing file", &gltf.Document{Buffers: []gltf.Buffer{{URI: "nope.bin", ByteLength: 4}}}},
		{"no uri and no chunk", &gltf.Document{Buffers: []gltf.Buffer{{ByteLength: 4}}}},
		{"short payload", &gltf.Document{Buffers: []gltf.Buffer{{
			URI:        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString([]byte{1, 2}),
			ByteLength: 4,
		}}}},
		{"index out of range", &gltf.Document{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Buffer(tt.doc, 0)
			assert.ErrorIs(t, err, gltf.ErrUnresolvableBuffer)
		})
	}
}

func TestImageFromBufferViewSniffsMime(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, img))

	b := gltftest.New()
	idx := b.AddImage(encoded.Bytes(), "")
	doc := b.Document()

	data, err := gltf.NewSource(nil).Image(doc, idx, b.Lookup())
	require.NoError(t, err)
	assert.Equal(t, "image/png", data.MimeType)
	assert.Equal(t, encoded.Bytes(), data.Data)
}

func TestImageFromDataURI(t *testing.T) {
	doc := &gltf.Document{Images: []gltf.Image{{
		Name: "dot",
		URI:  "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}),
	}}}

	data, err := gltf.NewSource(nil).Image(doc, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "image/png", data.MimeType)
	assert.Equal(t, "dot", data.Name)
	assert.Len(t, data.Data, 4)
}

func TestBufferViewBytesOutOfRange(t *testing.T) {
	b := gltftest.New()
	b.AddVec3([][3]float32{{1, 2, 3}})
	doc := b.Document()
	doc.BufferViews[0].ByteLength = 1000

	_, err := gltf.BufferViewBytes(doc, 0, b.Lookup())
	assert.ErrorIs(t, err, gltf.ErrMalformedAccessor)
}
