package cache

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// Split holds the handles of the two images split from one metallic-roughness texture.
type Split struct {
	Metal     store.Handle
	Occlusion store.Handle
}

// Cache holds every intermediate result of one import attempt, addressed by document index.
type Cache struct {
	Buffers  *Table[[]byte]
	Images   *Table[store.Handle]
	Textures *Table[store.Handle]
	Splits   *Table[Split]

	Materials       *Table[*material.Material]
	MaterialHandles *Table[store.Handle]
	DefaultMaterial *material.Material
	DefaultHandle   store.Handle

	// Meshes holds, per document mesh, the built parts of every primitive.
	Meshes      *Table[[][]*mesh.Mesh]
	MeshHandles map[*mesh.Mesh]store.Handle

	Skins *Table[*skeleton.Skin]
	Nodes *Table[*scene.Node]
}

// New creates a Cache sized from the counts of a document.
//
// Parameters:
//   - doc: the parsed document
//
// Returns:
//   - *Cache: the empty cache
func New(doc *gltf.Document) *Cache {
	return &Cache{
		Buffers:         NewTable[[]byte](len(doc.Buffers)),
		Images:          NewTable[store.Handle](len(doc.Images)),
		Textures:        NewTable[store.Handle](len(doc.Textures)),
		Splits:          NewTable[Split](len(doc.Textures)),
		Materials:       NewTable[*material.Material](len(doc.Materials)),
		MaterialHandles: NewTable[store.Handle](len(doc.Materials)),
		Meshes:          NewTable[[][]*mesh.Mesh](len(doc.Meshes)),
		MeshHandles:     make(map[*mesh.Mesh]store.Handle),
		Skins:           NewTable[*skeleton.Skin](len(doc.Skins)),
		Nodes:           NewTable[*scene.Node](len(doc.Nodes)),
	}
}

// BufferLookup serves loaded buffers to the decoder.
func (c *Cache) BufferLookup() gltf.BufferLookup {
	return c.Buffers.Get
}

// MeshLookup serves built meshes to the scene walker.
func (c *Cache) MeshLookup() scene.MeshLookup {
	return c.Meshes.Get
}

// Release drops every table so the import's memory can be reclaimed.
func (c *Cache) Release() {
	c.Buffers.reset()
	c.Images.reset()
	c.Textures.reset()
	c.Splits.reset()
	c.Materials.reset()
	c.MaterialHandles.reset()
	c.Meshes.reset()
	c.Skins.reset()
	c.Nodes.reset()
	c.MeshHandles = make(map[*mesh.Mesh]store.Handle)
	c.DefaultMaterial = nil
	c.DefaultHandle = store.Handle{}
}
