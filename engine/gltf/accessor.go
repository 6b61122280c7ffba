package gltf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AccessorView describes how to reinterpret a byte range of one buffer as a typed array.
type AccessorView struct {
	// Accessor is the accessor index this view was resolved from.
	Accessor int

	// Buffer is the owning buffer index, or -1 when the accessor has no bufferView.
	Buffer int

	// ByteOffset is the absolute offset of the first element within the buffer.
	ByteOffset int

	// ByteLength is the number of bytes available from ByteOffset to the end of the bufferView.
	ByteLength int

	// ByteStride is the distance between consecutive elements.
	ByteStride int

	// ComponentType is the glTF component type constant.
	ComponentType int

	// Type is the glTF element type (SCALAR, VEC2, ...).
	Type string

	// Count is the number of elements.
	Count int

	// Normalized marks integer components that rescale to [0,1] or [-1,1].
	Normalized bool
}

// ComponentSize returns the byte size of one component.
func (v AccessorView) ComponentSize() int {
	return ComponentTypeSize(v.ComponentType)
}

// ComponentCount returns the number of components per element.
func (v AccessorView) ComponentCount() int {
	return AccessorTypeComponentCount(v.Type)
}

// ElementSize returns the tightly packed byte size of one element.
func (v AccessorView) ElementSize() int {
	return v.ComponentSize() * v.ComponentCount()
}

// ResolveAccessor validates an accessor and its bufferView/buffer references and computes its view.
// The required span (count-1)*stride + elementSize must fit inside the bufferView.
//
// Parameters:
//   - doc: the parsed document
//   - index: the accessor index
//
// Returns:
//   - AccessorView: the resolved view
//   - error: ErrMalformedAccessor (wrapped) on any inconsistency
func ResolveAccessor(doc *Document, index int) (AccessorView, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return AccessorView{}, fmt.Errorf("accessor %d out of range: %w", index, ErrMalformedAccessor)
	}
	acc := &doc.Accessors[index]

	view := AccessorView{
		Accessor:      index,
		Buffer:        -1,
		ComponentType: acc.ComponentType,
		Type:          acc.Type,
		Count:         acc.Count,
		Normalized:    acc.Normalized,
	}

	elementSize := view.ElementSize()
	if elementSize == 0 {
		return AccessorView{}, fmt.Errorf("accessor %d: unsupported layout type=%s componentType=%d: %w",
			index, acc.Type, acc.ComponentType, ErrMalformedAccessor)
	}
	if acc.Count < 0 || acc.ByteOffset < 0 {
		return AccessorView{}, fmt.Errorf("accessor %d: negative count or offset: %w", index, ErrMalformedAccessor)
	}
	view.ByteStride = elementSize

	if acc.BufferView == nil {
		return view, nil
	}

	bvIndex := *acc.BufferView
	if bvIndex < 0 || bvIndex >= len(doc.BufferViews) {
		return AccessorView{}, fmt.Errorf("accessor %d: bufferView %d out of range: %w", index, bvIndex, ErrMalformedAccessor)
	}
	bv := &doc.BufferViews[bvIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return AccessorView{}, fmt.Errorf("accessor %d: buffer %d out of range: %w", index, bv.Buffer, ErrMalformedAccessor)
	}
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		if *bv.ByteStride < elementSize {
			return AccessorView{}, fmt.Errorf("accessor %d: stride %d smaller than element size %d: %w",
				index, *bv.ByteStride, elementSize, ErrMalformedAccessor)
		}
		view.ByteStride = *bv.ByteStride
	}

	view.Buffer = bv.Buffer
	view.ByteOffset = bv.ByteOffset + acc.ByteOffset
	view.ByteLength = bv.ByteLength - acc.ByteOffset

	if need := view.span(); need > view.ByteLength {
		return AccessorView{}, fmt.Errorf("accessor %d needs %d bytes (%d x %s of %d-byte components), bufferView %d has %d: %w",
			index, need, acc.Count, acc.Type, view.ComponentSize(), bvIndex, view.ByteLength, ErrMalformedAccessor)
	}
	return view, nil
}

// span returns the number of bytes the view's elements occupy, stride included.
func (v AccessorView) span() int {
	if v.Count == 0 {
		return 0
	}
	return (v.Count-1)*v.ByteStride + v.ElementSize()
}

// AttributeAccessor binds a semantic name to an accessor view and the bytes needed to decode it.
// It is self-contained: sparse and bufferView-less accessors are densified when built.
type AttributeAccessor struct {
	// Semantic is the attribute name (POSITION, NORMAL, ...), empty for non-vertex data.
	Semantic string

	// View describes the layout of Data.
	View AccessorView

	// Data holds the owning buffer bytes (or a densified copy).
	Data []byte
}

// NewAttributeAccessor resolves accessor index against loaded buffers into a self-contained AttributeAccessor.
//
// Parameters:
//   - doc: the parsed document
//   - semantic: the attribute semantic to record
//   - index: the accessor index
//   - buffers: lookup of loaded buffers
//
// Returns:
//   - AttributeAccessor: the decodable accessor
//   - error: ErrMalformedAccessor (wrapped) if the accessor is inconsistent with its data
func NewAttributeAccessor(doc *Document, semantic string, index int, buffers BufferLookup) (AttributeAccessor, error) {
	view, err := ResolveAccessor(doc, index)
	if err != nil {
		return AttributeAccessor{}, err
	}

	attr := AttributeAccessor{Semantic: semantic, View: view}
	if view.Buffer >= 0 {
		data, ok := buffers(view.Buffer)
		if !ok {
			return AttributeAccessor{}, fmt.Errorf("accessor %d: buffer %d not loaded: %w", index, view.Buffer, ErrMalformedAccessor)
		}
		if view.ByteOffset+view.span() > len(data) {
			return AttributeAccessor{}, fmt.Errorf("accessor %d exceeds buffer %d length %d: %w", index, view.Buffer, len(data), ErrMalformedAccessor)
		}
		attr.Data = data
	}

	sparse := doc.Accessors[index].Sparse
	if view.Buffer < 0 || sparse != nil {
		attr, err = densify(doc, attr, sparse, buffers)
		if err != nil {
			return AttributeAccessor{}, err
		}
	}
	return attr, nil
}

// densify copies an accessor into a tightly packed buffer, zero-filled when it has no bufferView,
// and applies sparse substitutions.
func densify(doc *Document, attr AttributeAccessor, sparse *AccessorSparse, buffers BufferLookup) (AttributeAccessor, error) {
	view := attr.View
	elementSize := view.ElementSize()
	dense := make([]byte, view.Count*elementSize)

	if attr.Data != nil {
		for i := 0; i < view.Count; i++ {
			src := view.ByteOffset + i*view.ByteStride
			copy(dense[i*elementSize:(i+1)*elementSize], attr.Data[src:src+elementSize])
		}
	}

	if sparse != nil && sparse.Count > 0 {
		indexBytes, err := BufferViewBytes(doc, sparse.Indices.BufferView, buffers)
		if err != nil {
			return AttributeAccessor{}, fmt.Errorf("accessor %d sparse indices: %w", view.Accessor, err)
		}
		valueBytes, err := BufferViewBytes(doc, sparse.Values.BufferView, buffers)
		if err != nil {
			return AttributeAccessor{}, fmt.Errorf("accessor %d sparse values: %w", view.Accessor, err)
		}

		indexSize := ComponentTypeSize(sparse.Indices.ComponentType)
		if indexSize == 0 || sparse.Indices.ComponentType == ComponentTypeFloat ||
			sparse.Indices.ByteOffset+sparse.Count*indexSize > len(indexBytes) ||
			sparse.Values.ByteOffset+sparse.Count*elementSize > len(valueBytes) {
			return AttributeAccessor{}, fmt.Errorf("accessor %d: sparse storage out of range: %w", view.Accessor, ErrMalformedAccessor)
		}

		for i := 0; i < sparse.Count; i++ {
			target := int(readUint(indexBytes[sparse.Indices.ByteOffset+i*indexSize:], sparse.Indices.ComponentType))
			if target >= view.Count {
				return AttributeAccessor{}, fmt.Errorf("accessor %d: sparse index %d >= count %d: %w", view.Accessor, target, view.Count, ErrMalformedAccessor)
			}
			src := sparse.Values.ByteOffset + i*elementSize
			copy(dense[target*elementSize:(target+1)*elementSize], valueBytes[src:src+elementSize])
		}
	}

	view.ByteOffset = 0
	view.ByteLength = len(dense)
	view.ByteStride = elementSize
	return AttributeAccessor{Semantic: attr.Semantic, View: view, Data: dense}, nil
}

// --- Typed decoding ---

// Floats decodes the accessor as a flat float array, count * components long.
// Integer components are rescaled when the accessor is normalized, otherwise converted as-is.
//
// Parameters:
//   - types: the element types accepted, e.g. AccessorTypeVec3
//
// Returns:
//   - []float32: the flat component array
//   - error: ErrMalformedAccessor (wrapped) if the element type is not accepted
func (a AttributeAccessor) Floats(types ...string) ([]float32, error) {
	if err := a.expectType(types...); err != nil {
		return nil, err
	}
	v := a.View
	components := v.ComponentCount()
	componentSize := v.ComponentSize()
	out := make([]float32, v.Count*components)

	for i := 0; i < v.Count; i++ {
		base := v.ByteOffset + i*v.ByteStride
		for c := 0; c < components; c++ {
			out[i*components+c] = readFloat(a.Data[base+c*componentSize:], v.ComponentType, v.Normalized)
		}
	}
	return out, nil
}

// Scalars decodes a SCALAR accessor, e.g. keyframe times.
func (a AttributeAccessor) Scalars() ([]float32, error) {
	return a.Floats(AccessorTypeScalar)
}

// Vec2 decodes a VEC2 accessor, e.g. texture coordinates.
func (a AttributeAccessor) Vec2() ([][2]float32, error) {
	flat, err := a.Floats(AccessorTypeVec2)
	if err != nil {
		return nil, err
	}
	out := make([][2]float32, a.View.Count)
	for i := range out {
		copy(out[i][:], flat[i*2:])
	}
	return out, nil
}

// Vec3 decodes a VEC3 accessor, e.g. positions and normals.
func (a AttributeAccessor) Vec3() ([][3]float32, error) {
	flat, err := a.Floats(AccessorTypeVec3)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, a.View.Count)
	for i := range out {
		copy(out[i][:], flat[i*3:])
	}
	return out, nil
}

// Vec4 decodes a VEC4 accessor, e.g. tangents, weights and rotation keyframes.
func (a AttributeAccessor) Vec4() ([][4]float32, error) {
	flat, err := a.Floats(AccessorTypeVec4)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, a.View.Count)
	for i := range out {
		copy(out[i][:], flat[i*4:])
	}
	return out, nil
}

// Colors decodes a VEC3 or VEC4 color accessor, widening RGB to RGBA with alpha 1.
func (a AttributeAccessor) Colors() ([][4]float32, error) {
	flat, err := a.Floats(AccessorTypeVec3, AccessorTypeVec4)
	if err != nil {
		return nil, err
	}
	components := a.View.ComponentCount()
	out := make([][4]float32, a.View.Count)
	for i := range out {
		out[i][3] = 1
		copy(out[i][:components], flat[i*components:])
	}
	return out, nil
}

// Mat4 decodes a MAT4 accessor of column-major matrices, e.g. inverse bind matrices.
func (a AttributeAccessor) Mat4() ([][16]float32, error) {
	if a.View.ComponentType != ComponentTypeFloat {
		return nil, fmt.Errorf("accessor %d: MAT4 must be FLOAT, got %d: %w", a.View.Accessor, a.View.ComponentType, ErrMalformedAccessor)
	}
	flat, err := a.Floats(AccessorTypeMat4)
	if err != nil {
		return nil, err
	}
	out := make([][16]float32, a.View.Count)
	for i := range out {
		copy(out[i][:], flat[i*16:])
	}
	return out, nil
}

// Indices decodes a SCALAR accessor of UNSIGNED_BYTE, UNSIGNED_SHORT or UNSIGNED_INT indices.
func (a AttributeAccessor) Indices() ([]uint32, error) {
	if err := a.expectType(AccessorTypeScalar); err != nil {
		return nil, err
	}
	v := a.View
	switch v.ComponentType {
	case ComponentTypeUnsignedByte, ComponentTypeUnsignedShort, ComponentTypeUnsignedInt:
	default:
		return nil, fmt.Errorf("accessor %d: unsupported index component type %d: %w", v.Accessor, v.ComponentType, ErrMalformedAccessor)
	}

	out := make([]uint32, v.Count)
	for i := range out {
		out[i] = readUint(a.Data[v.ByteOffset+i*v.ByteStride:], v.ComponentType)
	}
	return out, nil
}

// Joints decodes a VEC4 accessor of UNSIGNED_BYTE or UNSIGNED_SHORT joint indices.
func (a AttributeAccessor) Joints() ([][4]uint32, error) {
	if err := a.expectType(AccessorTypeVec4); err != nil {
		return nil, err
	}
	v := a.View
	switch v.ComponentType {
	case ComponentTypeUnsignedByte, ComponentTypeUnsignedShort:
	default:
		return nil, fmt.Errorf("accessor %d: unsupported joints component type %d: %w", v.Accessor, v.ComponentType, ErrMalformedAccessor)
	}

	size := v.ComponentSize()
	out := make([][4]uint32, v.Count)
	for i := range out {
		base := v.ByteOffset + i*v.ByteStride
		for c := 0; c < 4; c++ {
			out[i][c] = readUint(a.Data[base+c*size:], v.ComponentType)
		}
	}
	return out, nil
}

func (a AttributeAccessor) expectType(types ...string) error {
	for _, t := range types {
		if a.View.Type == t {
			return nil
		}
	}
	return fmt.Errorf("accessor %d: type %s, want one of %v: %w", a.View.Accessor, a.View.Type, types, ErrMalformedAccessor)
}

// SequentialIndices synthesizes the index list 0..n-1 for non-indexed triangle lists.
//
// Parameters:
//   - n: the vertex count
//
// Returns:
//   - []uint32: the sequential indices
func SequentialIndices(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

// --- Helper Functions ---

// readFloat decodes one component at the start of b.
func readFloat(b []byte, componentType int, normalized bool) float32 {
	switch componentType {
	case ComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case ComponentTypeByte:
		c := float32(int8(b[0]))
		if normalized {
			return max(c/127, -1)
		}
		return c
	case ComponentTypeUnsignedByte:
		c := float32(b[0])
		if normalized {
			return c / 255
		}
		return c
	case ComponentTypeShort:
		c := float32(int16(binary.LittleEndian.Uint16(b)))
		if normalized {
			return max(c/32767, -1)
		}
		return c
	case ComponentTypeUnsignedShort:
		c := float32(binary.LittleEndian.Uint16(b))
		if normalized {
			return c / 65535
		}
		return c
	case ComponentTypeUnsignedInt:
		c := float32(binary.LittleEndian.Uint32(b))
		if normalized {
			return c / math.MaxUint32
		}
		return c
	}
	return 0
}

// readUint decodes one unsigned integer component at the start of b.
func readUint(b []byte, componentType int) uint32 {
	switch componentType {
	case ComponentTypeUnsignedByte, ComponentTypeByte:
		return uint32(b[0])
	case ComponentTypeUnsignedShort, ComponentTypeShort:
		return uint32(binary.LittleEndian.Uint16(b))
	case ComponentTypeUnsignedInt:
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

// ComponentTypeSize returns the byte size of a component type, or 0 if unknown.
func ComponentTypeSize(componentType int) int {
	switch componentType {
	case ComponentTypeByte, ComponentTypeUnsignedByte:
		return 1
	case ComponentTypeShort, ComponentTypeUnsignedShort:
		return 2
	case ComponentTypeUnsignedInt, ComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// AccessorTypeComponentCount returns the number of components for an accessor type, or 0 if unknown.
func AccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case AccessorTypeScalar:
		return 1
	case AccessorTypeVec2:
		return 2
	case AccessorTypeVec3:
		return 3
	case AccessorTypeVec4:
		return 4
	case AccessorTypeMat2:
		return 4
	case AccessorTypeMat3:
		return 9
	case AccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
