// Package gltftest builds small in-memory glTF documents for tests.
package gltftest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
)

// Builder accumulates accessors into a single binary buffer and assembles a Document.
type Builder struct {
	doc *gltf.Document
	bin []byte
}

// New creates an empty Builder for a glTF 2.0 document.
func New() *Builder {
	return &Builder{doc: &gltf.Document{Asset: gltf.Asset{Version: "2.0", Generator: "gltftest"}}}
}

// Document returns the document with buffer 0 bound to the GLB chunk.
// The returned document shares state with the builder.
func (b *Builder) Document() *gltf.Document {
	b.sync()
	b.doc.GLBChunk = b.bin
	return b.doc
}

// Bin returns the accumulated binary buffer.
func (b *Builder) Bin() []byte {
	return b.bin
}

// Lookup returns a BufferLookup that serves buffer 0 from the builder.
func (b *Builder) Lookup() gltf.BufferLookup {
	return func(index int) ([]byte, bool) {
		if index != 0 {
			return nil, false
		}
		return b.bin, true
	}
}

// GLB encodes the document as a GLB container.
func (b *Builder) GLB() []byte {
	b.sync()
	js, _ := json.Marshal(b.doc)
	js = pad(js, ' ')
	bin := pad(append([]byte(nil), b.bin...), 0)

	var out bytes.Buffer
	total := 12 + 8 + len(js)
	if len(bin) > 0 {
		total += 8 + len(bin)
	}
	_ = binary.Write(&out, binary.LittleEndian, []uint32{gltf.GLBMagic, gltf.GLBVersion, uint32(total)})
	_ = binary.Write(&out, binary.LittleEndian, []uint32{uint32(len(js)), gltf.GLBChunkJSON})
	out.Write(js)
	if len(bin) > 0 {
		_ = binary.Write(&out, binary.LittleEndian, []uint32{uint32(len(bin)), gltf.GLBChunkBIN})
		out.Write(bin)
	}
	return out.Bytes()
}

// JSON encodes the document as glTF JSON with buffer 0 embedded as a base64 data URI.
func (b *Builder) JSON() []byte {
	b.sync()
	doc := *b.doc
	doc.Buffers = append([]gltf.Buffer(nil), b.doc.Buffers...)
	if len(doc.Buffers) > 0 {
		doc.Buffers[0].URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.bin)
	}
	js, _ := json.Marshal(&doc)
	return js
}

func (b *Builder) sync() {
	if len(b.bin) == 0 && len(b.doc.Buffers) == 0 {
		return
	}
	if len(b.doc.Buffers) == 0 {
		b.doc.Buffers = []gltf.Buffer{{}}
	}
	b.doc.Buffers[0].ByteLength = len(b.bin)
}

// view appends raw bytes as a new bufferView of buffer 0, 4-byte aligned.
func (b *Builder) view(data []byte) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	if len(b.doc.Buffers) == 0 {
		b.doc.Buffers = []gltf.Buffer{{}}
	}
	b.doc.BufferViews = append(b.doc.BufferViews, gltf.BufferView{
		Buffer:     0,
		ByteOffset: len(b.bin),
		ByteLength: len(data),
	})
	b.bin = append(b.bin, data...)
	return len(b.doc.BufferViews) - 1
}

// AddRaw appends an accessor over raw little-endian bytes.
func (b *Builder) AddRaw(data []byte, componentType int, typ string, count int, normalized bool) int {
	bv := b.view(data)
	b.doc.Accessors = append(b.doc.Accessors, gltf.Accessor{
		BufferView:    &bv,
		ComponentType: componentType,
		Type:          typ,
		Count:         count,
		Normalized:    normalized,
	})
	return len(b.doc.Accessors) - 1
}

// AddFloats appends a FLOAT accessor of the given element type.
func (b *Builder) AddFloats(typ string, values []float32) int {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	n := gltf.AccessorTypeComponentCount(typ)
	return b.AddRaw(data, gltf.ComponentTypeFloat, typ, len(values)/n, false)
}

// AddScalars appends a SCALAR FLOAT accessor.
func (b *Builder) AddScalars(values []float32) int {
	return b.AddFloats(gltf.AccessorTypeScalar, values)
}

// AddVec2 appends a VEC2 FLOAT accessor.
func (b *Builder) AddVec2(values [][2]float32) int {
	flat := make([]float32, 0, len(values)*2)
	for _, v := range values {
		flat = append(flat, v[:]...)
	}
	return b.AddFloats(gltf.AccessorTypeVec2, flat)
}

// AddVec3 appends a VEC3 FLOAT accessor.
func (b *Builder) AddVec3(values [][3]float32) int {
	flat := make([]float32, 0, len(values)*3)
	for _, v := range values {
		flat = append(flat, v[:]...)
	}
	return b.AddFloats(gltf.AccessorTypeVec3, flat)
}

// AddVec4 appends a VEC4 FLOAT accessor.
func (b *Builder) AddVec4(values [][4]float32) int {
	flat := make([]float32, 0, len(values)*4)
	for _, v := range values {
		flat = append(flat, v[:]...)
	}
	return b.AddFloats(gltf.AccessorTypeVec4, flat)
}

// AddMat4 appends a MAT4 FLOAT accessor.
func (b *Builder) AddMat4(values [][16]float32) int {
	flat := make([]float32, 0, len(values)*16)
	for _, v := range values {
		flat = append(flat, v[:]...)
	}
	return b.AddFloats(gltf.AccessorTypeMat4, flat)
}

// AddIndices appends a SCALAR UNSIGNED_INT accessor, or UNSIGNED_SHORT when every index fits.
func (b *Builder) AddIndices(indices []uint32) int {
	small := true
	for _, i := range indices {
		if i > math.MaxUint16 {
			small = false
			break
		}
	}
	if small {
		data := make([]byte, 2*len(indices))
		for i, v := range indices {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
		}
		return b.AddRaw(data, gltf.ComponentTypeUnsignedShort, gltf.AccessorTypeScalar, len(indices), false)
	}
	data := make([]byte, 4*len(indices))
	for i, v := range indices {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}
	return b.AddRaw(data, gltf.ComponentTypeUnsignedInt, gltf.AccessorTypeScalar, len(indices), false)
}

// AddJoints appends a VEC4 UNSIGNED_BYTE joints accessor.
func (b *Builder) AddJoints(joints [][4]uint8) int {
	data := make([]byte, 0, 4*len(joints))
	for _, j := range joints {
		data = append(data, j[:]...)
	}
	return b.AddRaw(data, gltf.ComponentTypeUnsignedByte, gltf.AccessorTypeVec4, len(joints), false)
}

// AddMesh appends a mesh with the given primitives.
func (b *Builder) AddMesh(name string, prims ...gltf.Primitive) int {
	b.doc.Meshes = append(b.doc.Meshes, gltf.Mesh{Name: name, Primitives: prims})
	return len(b.doc.Meshes) - 1
}

// AddMaterial appends a material.
func (b *Builder) AddMaterial(m gltf.Material) int {
	b.doc.Materials = append(b.doc.Materials, m)
	return len(b.doc.Materials) - 1
}

// AddNode appends a node.
func (b *Builder) AddNode(n gltf.Node) int {
	b.doc.Nodes = append(b.doc.Nodes, n)
	return len(b.doc.Nodes) - 1
}

// AddSkin appends a skin.
func (b *Builder) AddSkin(s gltf.Skin) int {
	b.doc.Skins = append(b.doc.Skins, s)
	return len(b.doc.Skins) - 1
}

// AddAnimation appends an animation.
func (b *Builder) AddAnimation(a gltf.Animation) int {
	b.doc.Animations = append(b.doc.Animations, a)
	return len(b.doc.Animations) - 1
}

// AddScene appends a scene over the given root nodes and makes it the default.
func (b *Builder) AddScene(roots ...int) int {
	b.doc.Scenes = append(b.doc.Scenes, gltf.Scene{Nodes: roots})
	idx := len(b.doc.Scenes) - 1
	b.doc.Scene = &idx
	return idx
}

// AddImage appends an image stored in a bufferView.
func (b *Builder) AddImage(data []byte, mimeType string) int {
	bv := b.view(data)
	b.doc.Images = append(b.doc.Images, gltf.Image{BufferView: &bv, MimeType: mimeType})
	return len(b.doc.Images) - 1
}

// AddTexture appends a texture sourcing the given image.
func (b *Builder) AddTexture(image int) int {
	b.doc.Textures = append(b.doc.Textures, gltf.Texture{Source: &image})
	return len(b.doc.Textures) - 1
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func pad(data []byte, with byte) []byte {
	for len(data)%4 != 0 {
		data = append(data, with)
	}
	return data
}
