package mesh

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
)

// Name returns the constructed name of a glTF mesh: its cleaned name, or GLTFMesh_<i>.
//
// Parameters:
//   - doc: the parsed document
//   - meshIndex: the mesh index
//
// Returns:
//   - string: the mesh name
func Name(doc *gltf.Document, meshIndex int) string {
	if common.InRange(meshIndex, len(doc.Meshes)) {
		if name := common.CleanName(doc.Meshes[meshIndex].Name); name != "" {
			return name
		}
	}
	return fmt.Sprintf("GLTFMesh_%d", meshIndex)
}

// PrimitiveName returns the constructed name of one primitive. Meshes with a single primitive keep the
// mesh name; otherwise the primitive index is appended.
func PrimitiveName(doc *gltf.Document, meshIndex, primIndex int) string {
	name := Name(doc, meshIndex)
	if common.InRange(meshIndex, len(doc.Meshes)) && len(doc.Meshes[meshIndex].Primitives) > 1 {
		return fmt.Sprintf("%s_%d", name, primIndex)
	}
	return name
}

// ResolvePrimitive resolves the accessors of one primitive against the loaded buffers.
//
// Parameters:
//   - doc: the parsed document
//   - meshIndex: the mesh index
//   - primIndex: the primitive index within the mesh
//   - buffers: lookup of loaded buffers
//
// Returns:
//   - Primitive: the builder input
//   - error: ErrMalformedAccessor (wrapped) if an accessor is inconsistent
func ResolvePrimitive(doc *gltf.Document, meshIndex, primIndex int, buffers gltf.BufferLookup) (Primitive, error) {
	if !common.InRange(meshIndex, len(doc.Meshes)) {
		return Primitive{}, fmt.Errorf("mesh %d out of range", meshIndex)
	}
	gm := &doc.Meshes[meshIndex]
	if !common.InRange(primIndex, len(gm.Primitives)) {
		return Primitive{}, fmt.Errorf("mesh %d primitive %d out of range", meshIndex, primIndex)
	}
	gp := &gm.Primitives[primIndex]

	prim := Primitive{
		MeshIndex: meshIndex,
		Name:      PrimitiveName(doc, meshIndex, primIndex),
		Mode:      gltf.PrimitiveModeTriangles,
		Material:  -1,
	}
	if gp.Mode != nil {
		prim.Mode = *gp.Mode
	}
	if gp.Material != nil {
		prim.Material = *gp.Material
	}
	if gm.Extras != nil {
		prim.TargetNames = gm.Extras.TargetNames
	}

	var err error
	if prim.Attributes, err = resolveAttributes(doc, gp.Attributes, buffers); err != nil {
		return Primitive{}, err
	}
	if gp.Indices != nil {
		acc, err := gltf.NewAttributeAccessor(doc, "", *gp.Indices, buffers)
		if err != nil {
			return Primitive{}, fmt.Errorf("indices: %w", err)
		}
		prim.Indices = &acc
	}
	for k, target := range gp.Targets {
		attrs, err := resolveAttributes(doc, target, buffers)
		if err != nil {
			return Primitive{}, fmt.Errorf("morph target %d: %w", k, err)
		}
		prim.Targets = append(prim.Targets, attrs)
	}
	return prim, nil
}

func resolveAttributes(doc *gltf.Document, attributes map[string]int, buffers gltf.BufferLookup) (map[string]gltf.AttributeAccessor, error) {
	semantics := make([]string, 0, len(attributes))
	for s := range attributes {
		semantics = append(semantics, s)
	}
	sort.Strings(semantics)

	out := make(map[string]gltf.AttributeAccessor, len(attributes))
	for _, s := range semantics {
		acc, err := gltf.NewAttributeAccessor(doc, s, attributes[s], buffers)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", s, err)
		}
		out[s] = acc
	}
	return out, nil
}
