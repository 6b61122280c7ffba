package mesh

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
)

// DefaultVertexCeiling is the largest vertex count a single mesh may hold (16-bit indices).
const DefaultVertexCeiling = math.MaxUint16

// ErrUnsupportedMode is returned for primitives that are not triangle lists.
var ErrUnsupportedMode = errors.New("primitive mode is not a triangle list")

// Primitive is the resolved input of one glTF primitive: its decodable attributes, indices and morph targets.
type Primitive struct {
	// MeshIndex is the index of the owning glTF mesh.
	MeshIndex int

	// Name is the base name of the constructed mesh.
	Name string

	// Mode is the glTF primitive mode.
	Mode int

	// Material is the material index, or -1 for the default material.
	Material int

	// Attributes maps semantics (POSITION, NORMAL, ...) to accessors.
	Attributes map[string]gltf.AttributeAccessor

	// Indices is the index accessor, nil for non-indexed primitives.
	Indices *gltf.AttributeAccessor

	// Targets holds the morph target attributes in declaration order.
	Targets []map[string]gltf.AttributeAccessor

	// TargetNames optionally names the morph targets.
	TargetNames []string
}

// meshBuilder is the implementation of the Builder interface.
type meshBuilder struct {
	ceiling          int
	handedness       common.Handedness
	generateNormals  bool
	generateTangents bool
	logger           *slog.Logger
}

// Builder constructs meshes from resolved primitives.
type Builder interface {
	// Build constructs the mesh of one primitive, split into several meshes when it exceeds the vertex ceiling.
	//
	// Parameters:
	//   - prim: the resolved primitive
	//
	// Returns:
	//   - []*Mesh: one mesh, or one per split part named <name>_part<k>
	//   - error: ErrMissingRequiredAttribute, ErrMalformedAccessor or ErrSkinDataSizeMismatch (wrapped)
	Build(prim Primitive) ([]*Mesh, error)
}

var _ Builder = &meshBuilder{}

// MeshBuilderOption is a functional option for configuring a mesh Builder.
type MeshBuilderOption func(*meshBuilder)

// WithVertexCeiling sets the largest vertex count of one mesh. Values below 3 are raised to 3.
//
// Parameters:
//   - ceiling: the vertex ceiling
//
// Returns:
//   - MeshBuilderOption: option function to set the ceiling
func WithVertexCeiling(ceiling int) MeshBuilderOption {
	return func(b *meshBuilder) {
		b.ceiling = max(ceiling, 3)
	}
}

// WithHandedness sets the coordinate convention meshes are converted to.
//
// Parameters:
//   - h: the target handedness
//
// Returns:
//   - MeshBuilderOption: option function to set the handedness
func WithHandedness(h common.Handedness) MeshBuilderOption {
	return func(b *meshBuilder) {
		b.handedness = h
	}
}

// WithGeneratedNormals toggles normal generation for primitives without NORMAL.
//
// Parameters:
//   - enabled: whether to generate missing normals
//
// Returns:
//   - MeshBuilderOption: option function to toggle normal generation
func WithGeneratedNormals(enabled bool) MeshBuilderOption {
	return func(b *meshBuilder) {
		b.generateNormals = enabled
	}
}

// WithGeneratedTangents toggles tangent generation for primitives without TANGENT.
//
// Parameters:
//   - enabled: whether to generate missing tangents
//
// Returns:
//   - MeshBuilderOption: option function to toggle tangent generation
func WithGeneratedTangents(enabled bool) MeshBuilderOption {
	return func(b *meshBuilder) {
		b.generateTangents = enabled
	}
}

// WithLogger sets the logger for split diagnostics.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - MeshBuilderOption: option function to set the logger
func WithLogger(logger *slog.Logger) MeshBuilderOption {
	return func(b *meshBuilder) {
		b.logger = logger
	}
}

// NewBuilder creates a mesh Builder.
//
// Parameters:
//   - options: variadic list of MeshBuilderOption to configure the builder
//
// Returns:
//   - Builder: the new builder
func NewBuilder(options ...MeshBuilderOption) Builder {
	b := &meshBuilder{
		ceiling:          DefaultVertexCeiling,
		handedness:       common.RightHanded,
		generateNormals:  true,
		generateTangents: true,
		logger:           slog.Default(),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *meshBuilder) Build(prim Primitive) ([]*Mesh, error) {
	if prim.Mode != gltf.PrimitiveModeTriangles {
		return nil, fmt.Errorf("mesh %q mode %d: %w", prim.Name, prim.Mode, ErrUnsupportedMode)
	}

	m, err := assemble(prim)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", prim.Name, err)
	}
	if prim.Indices == nil && m.VertexCount()%3 != 0 {
		b.logger.Warn("non-indexed primitive ends in a partial triangle, ignoring trailing vertices",
			"mesh", m.Name, "vertices", m.VertexCount())
	}

	if b.handedness == common.LeftHanded {
		m.FlipHandedness()
	}
	if m.Normals == nil && b.generateNormals {
		m.GenerateNormals()
	}
	if m.Tangents == nil && b.generateTangents {
		m.GenerateTangents()
	}

	if m.VertexCount() <= b.ceiling {
		m.RecalculateBounds()
		return []*Mesh{m}, nil
	}

	parts := Split(m, b.ceiling)
	b.logger.Debug("split mesh over vertex ceiling",
		"mesh", m.Name, "vertices", m.VertexCount(), "ceiling", b.ceiling, "parts", len(parts))
	return parts, nil
}

// assemble decodes every stream of a primitive into one mesh.
func assemble(prim Primitive) (*Mesh, error) {
	posAcc, ok := prim.Attributes[gltf.AttributePosition]
	if !ok {
		return nil, fmt.Errorf("no %s attribute: %w", gltf.AttributePosition, gltf.ErrMissingRequiredAttribute)
	}
	positions, err := posAcc.Vec3()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gltf.AttributePosition, err)
	}
	n := len(positions)

	m := &Mesh{Name: prim.Name, Material: prim.Material, Positions: positions}

	if acc, ok := prim.Attributes[gltf.AttributeNormal]; ok {
		if m.Normals, err = acc.Vec3(); err != nil {
			return nil, fmt.Errorf("%s: %w", gltf.AttributeNormal, err)
		}
		if err := checkLength(gltf.AttributeNormal, len(m.Normals), n); err != nil {
			return nil, err
		}
	}
	if acc, ok := prim.Attributes[gltf.AttributeTangent]; ok {
		if m.Tangents, err = acc.Vec4(); err != nil {
			return nil, fmt.Errorf("%s: %w", gltf.AttributeTangent, err)
		}
		if err := checkLength(gltf.AttributeTangent, len(m.Tangents), n); err != nil {
			return nil, err
		}
	}
	for set := range MaxUVSets {
		semantic := gltf.AttributeTexCoord + strconv.Itoa(set)
		acc, ok := prim.Attributes[semantic]
		if !ok {
			continue
		}
		if m.UVs[set], err = acc.Vec2(); err != nil {
			return nil, fmt.Errorf("%s: %w", semantic, err)
		}
		if err := checkLength(semantic, len(m.UVs[set]), n); err != nil {
			return nil, err
		}
	}
	if acc, ok := prim.Attributes[gltf.AttributeColor]; ok {
		if m.Colors, err = acc.Colors(); err != nil {
			return nil, fmt.Errorf("%s: %w", gltf.AttributeColor, err)
		}
		if err := checkLength(gltf.AttributeColor, len(m.Colors), n); err != nil {
			return nil, err
		}
	}

	if m.Indices, err = decodeIndices(prim.Indices, n); err != nil {
		return nil, err
	}
	if err := assembleSkin(m, prim); err != nil {
		return nil, err
	}
	if err := assembleMorphTargets(m, prim); err != nil {
		return nil, err
	}
	return m, nil
}

func checkLength(semantic string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s has %d elements, POSITION has %d: %w", semantic, got, want, gltf.ErrMalformedAccessor)
	}
	return nil
}

// decodeIndices decodes a triangle list, validating every index, or synthesizes sequential indices
// covering the whole triangles of a non-indexed primitive.
func decodeIndices(acc *gltf.AttributeAccessor, n int) ([]uint32, error) {
	if acc == nil {
		return gltf.SequentialIndices(n - n%3), nil
	}

	indices, err := acc.Indices()
	if err != nil {
		return nil, fmt.Errorf("indices: %w", err)
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%d indices is not a multiple of 3: %w", len(indices), gltf.ErrMalformedAccessor)
	}
	for _, i := range indices {
		if int(i) >= n {
			return nil, fmt.Errorf("index %d out of range for %d vertices: %w", i, n, gltf.ErrMalformedAccessor)
		}
	}
	return indices, nil
}

// assembleSkin decodes JOINTS_0/WEIGHTS_0, normalizes weights and sizes an identity bind-pose table.
func assembleSkin(m *Mesh, prim Primitive) error {
	jointsAcc, hasJoints := prim.Attributes[gltf.AttributeJoints]
	weightsAcc, hasWeights := prim.Attributes[gltf.AttributeWeights]
	if !hasJoints && !hasWeights {
		return nil
	}
	if hasJoints != hasWeights {
		return fmt.Errorf("%s and %s must be declared together: %w", gltf.AttributeJoints, gltf.AttributeWeights, gltf.ErrSkinDataSizeMismatch)
	}

	joints, err := jointsAcc.Joints()
	if err != nil {
		return fmt.Errorf("%s: %w", gltf.AttributeJoints, err)
	}
	weights, err := weightsAcc.Vec4()
	if err != nil {
		return fmt.Errorf("%s: %w", gltf.AttributeWeights, err)
	}

	n := m.VertexCount()
	if len(joints) != n || len(weights) != n {
		return fmt.Errorf("%d joints and %d weights for %d vertices: %w", len(joints), len(weights), n, gltf.ErrSkinDataSizeMismatch)
	}

	var maxJoint uint32
	for i := range weights {
		weights[i] = NormalizeWeights(weights[i])
		for _, j := range joints[i] {
			maxJoint = max(maxJoint, j)
		}
	}

	m.Joints = joints
	m.Weights = weights
	m.BindPoses = make([][16]float32, maxJoint+1)
	for i := range m.BindPoses {
		m.BindPoses[i] = common.IdentityMatrix()
	}
	return nil
}

// NormalizeWeights scales a weight tuple to sum to 1. A tuple summing to zero puts full weight on its first slot.
//
// Parameters:
//   - w: the raw weights
//
// Returns:
//   - [4]float32: the normalized weights
func NormalizeWeights(w [4]float32) [4]float32 {
	sum := w[0] + w[1] + w[2] + w[3]
	if sum <= 1e-8 {
		return [4]float32{1, 0, 0, 0}
	}
	return [4]float32{w[0] / sum, w[1] / sum, w[2] / sum, w[3] / sum}
}

// assembleMorphTargets decodes POSITION and NORMAL deltas per target; absent deltas are zero-filled.
func assembleMorphTargets(m *Mesh, prim Primitive) error {
	n := m.VertexCount()
	for k, target := range prim.Targets {
		mt := MorphTarget{
			Name:          TargetName(prim.MeshIndex, k, prim.TargetNames),
			Weight:        1,
			DeltaTangents: make([][3]float32, n),
		}

		var err error
		if mt.DeltaPositions, err = targetDeltas(target, gltf.AttributePosition, n); err != nil {
			return fmt.Errorf("morph target %d: %w", k, err)
		}
		if mt.DeltaNormals, err = targetDeltas(target, gltf.AttributeNormal, n); err != nil {
			return fmt.Errorf("morph target %d: %w", k, err)
		}
		m.MorphTargets = append(m.MorphTargets, mt)
	}
	return nil
}

func targetDeltas(target map[string]gltf.AttributeAccessor, semantic string, n int) ([][3]float32, error) {
	acc, ok := target[semantic]
	if !ok {
		return make([][3]float32, n), nil
	}
	deltas, err := acc.Vec3()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", semantic, err)
	}
	if err := checkLength(semantic, len(deltas), n); err != nil {
		return nil, err
	}
	return deltas, nil
}

// TargetName names morph target k of a mesh: the declared name when present, otherwise <mesh>_blendshape_<k>.
//
// Parameters:
//   - meshIndex: the glTF mesh index
//   - k: the target index
//   - names: the declared target names, possibly nil
//
// Returns:
//   - string: the target name
func TargetName(meshIndex, k int, names []string) string {
	if k < len(names) && names[k] != "" {
		return names[k]
	}
	return fmt.Sprintf("%d_blendshape_%d", meshIndex, k)
}
