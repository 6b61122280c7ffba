package mesh

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/chewxy/math32"
)

// MaxUVSets is the number of TEXCOORD_n sets a mesh carries.
const MaxUVSets = 4

// MorphTarget is one blend shape frame: per-vertex deltas applied at full weight.
type MorphTarget struct {
	Name           string       `yaml:"name"`
	Weight         float32      `yaml:"weight"`
	DeltaPositions [][3]float32 `yaml:"deltaPositions,flow"`
	DeltaNormals   [][3]float32 `yaml:"deltaNormals,flow"`
	DeltaTangents  [][3]float32 `yaml:"deltaTangents,flow"`
}

// Mesh is a constructed mesh. Every non-nil vertex stream has one entry per position.
type Mesh struct {
	Name     string `yaml:"name"`
	Material int    `yaml:"material"`

	Positions [][3]float32            `yaml:"positions,flow"`
	Normals   [][3]float32            `yaml:"normals,flow,omitempty"`
	Tangents  [][4]float32            `yaml:"tangents,flow,omitempty"`
	UVs       [MaxUVSets][][2]float32 `yaml:"uvs,flow"`
	Colors    [][4]float32            `yaml:"colors,flow,omitempty"`

	Joints    [][4]uint32   `yaml:"joints,flow,omitempty"`
	Weights   [][4]float32  `yaml:"weights,flow,omitempty"`
	BindPoses [][16]float32 `yaml:"bindPoses,flow,omitempty"`

	MorphTargets []MorphTarget `yaml:"morphTargets,omitempty"`

	Indices []uint32 `yaml:"indices,flow"`

	BoundsMin [3]float32 `yaml:"boundsMin,flow"`
	BoundsMax [3]float32 `yaml:"boundsMax,flow"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Clone returns a copy of m that shares its vertex streams but owns its bind poses.
func (m *Mesh) Clone() *Mesh {
	c := *m
	c.BindPoses = slices.Clone(m.BindPoses)
	return &c
}

// IsSkinned reports whether the mesh carries joint weights.
func (m *Mesh) IsSkinned() bool {
	return len(m.Joints) > 0
}

// RecalculateBounds computes the axis-aligned bounding box of the positions.
// An empty mesh gets zero bounds.
func (m *Mesh) RecalculateBounds() {
	if len(m.Positions) == 0 {
		m.BoundsMin, m.BoundsMax = [3]float32{}, [3]float32{}
		return
	}

	minB := [3]float32{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	maxB := [3]float32{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32}
	for _, p := range m.Positions {
		for i := range 3 {
			minB[i] = math32.Min(minB[i], p[i])
			maxB[i] = math32.Max(maxB[i], p[i])
		}
	}
	m.BoundsMin, m.BoundsMax = minB, maxB
}

// GenerateNormals computes smooth per-vertex normals by accumulating area-weighted face normals
// over the index buffer. Vertices no triangle touches get +Y.
func (m *Mesh) GenerateNormals() {
	n := len(m.Positions)
	accum := make([][3]float32, n)

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}

		p0, p1, p2 := m.Positions[i0], m.Positions[i1], m.Positions[i2]
		// length proportional to triangle area
		face := common.Cross3(common.Sub3(p1, p0), common.Sub3(p2, p0))

		for _, idx := range [3]uint32{i0, i1, i2} {
			accum[idx][0] += face[0]
			accum[idx][1] += face[1]
			accum[idx][2] += face[2]
		}
	}

	m.Normals = make([][3]float32, n)
	for i := range n {
		if unit, ok := common.Normalize3(accum[i]); ok {
			m.Normals[i] = unit
		} else {
			m.Normals[i] = [3]float32{0, 1, 0}
		}
	}
}

// GenerateTangents computes per-vertex tangents from UV set 0 with the UV-gradient method,
// orthonormalized against the normals. W stores the bitangent handedness (±1).
// It does nothing when the mesh has no UV0 or no normals.
func (m *Mesh) GenerateTangents() {
	uv := m.UVs[0]
	n := len(m.Positions)
	if len(uv) != n || len(m.Normals) != n {
		return
	}

	tan := make([][3]float32, n)
	btan := make([][3]float32, n)

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}

		edge1 := common.Sub3(m.Positions[i1], m.Positions[i0])
		edge2 := common.Sub3(m.Positions[i2], m.Positions[i0])
		duv1 := [2]float32{uv[i1][0] - uv[i0][0], uv[i1][1] - uv[i0][1]}
		duv2 := [2]float32{uv[i2][0] - uv[i0][0], uv[i2][1] - uv[i0][1]}

		det := duv1[0]*duv2[1] - duv1[1]*duv2[0]
		if det == 0 {
			continue
		}
		invDet := 1 / det

		var t, b [3]float32
		for c := range 3 {
			t[c] = invDet * (duv2[1]*edge1[c] - duv1[1]*edge2[c])
			b[c] = invDet * (-duv2[0]*edge1[c] + duv1[0]*edge2[c])
		}

		for _, idx := range [3]uint32{i0, i1, i2} {
			for c := range 3 {
				tan[idx][c] += t[c]
				btan[idx][c] += b[c]
			}
		}
	}

	m.Tangents = make([][4]float32, n)
	for i := range n {
		normal := m.Normals[i]

		// Gram-Schmidt: T' = normalize(T - N * dot(N, T))
		d := common.Dot3(normal, tan[i])
		ortho, ok := common.Normalize3([3]float32{
			tan[i][0] - normal[0]*d,
			tan[i][1] - normal[1]*d,
			tan[i][2] - normal[2]*d,
		})
		if !ok {
			m.Tangents[i] = [4]float32{1, 0, 0, 1}
			continue
		}

		w := float32(1)
		if common.Dot3(common.Cross3(normal, ortho), btan[i]) < 0 {
			w = -1
		}
		m.Tangents[i] = [4]float32{ortho[0], ortho[1], ortho[2], w}
	}
}

// FlipHandedness mirrors the mesh across the XY plane and reverses triangle winding.
func (m *Mesh) FlipHandedness() {
	for i := range m.Positions {
		m.Positions[i] = common.FlipVec3Z(m.Positions[i])
	}
	for i := range m.Normals {
		m.Normals[i] = common.FlipVec3Z(m.Normals[i])
	}
	for i := range m.Tangents {
		m.Tangents[i] = common.FlipTangentZ(m.Tangents[i])
	}
	for k := range m.MorphTargets {
		t := &m.MorphTargets[k]
		for i := range t.DeltaPositions {
			t.DeltaPositions[i] = common.FlipVec3Z(t.DeltaPositions[i])
		}
		for i := range t.DeltaNormals {
			t.DeltaNormals[i] = common.FlipVec3Z(t.DeltaNormals[i])
		}
		for i := range t.DeltaTangents {
			t.DeltaTangents[i] = common.FlipVec3Z(t.DeltaTangents[i])
		}
	}
	for i := range m.BindPoses {
		m.BindPoses[i] = common.FlipMatrixZ(m.BindPoses[i])
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		m.Indices[i+1], m.Indices[i+2] = m.Indices[i+2], m.Indices[i+1]
	}
}
