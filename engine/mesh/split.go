package mesh

import "fmt"

// Split partitions a mesh into parts of at most ceiling vertices. Triangles are assigned in order and
// never span parts; every vertex stream, skin stream and morph delta is remapped into each part.
// Vertices no triangle references are dropped.
//
// Parameters:
//   - m: the mesh to split
//   - ceiling: the largest vertex count of one part, at least 3
//
// Returns:
//   - []*Mesh: the parts, named <name>_part<k>
func Split(m *Mesh, ceiling int) []*Mesh {
	ceiling = max(ceiling, 3)

	var parts []*Mesh
	remap := make(map[uint32]uint32)
	var verts []uint32
	var indices []uint32

	flush := func() {
		if len(indices) == 0 {
			return
		}
		part := gather(m, verts, indices)
		part.Name = fmt.Sprintf("%s_part%d", m.Name, len(parts))
		part.RecalculateBounds()
		parts = append(parts, part)

		remap = make(map[uint32]uint32)
		verts = nil
		indices = nil
	}

	for t := 0; t+2 < len(m.Indices); t += 3 {
		tri := m.Indices[t : t+3]

		added := 0
		for c, i := range tri {
			if _, ok := remap[i]; ok {
				continue
			}
			// a vertex repeated within the triangle only counts once
			if (c == 1 && tri[0] == i) || (c == 2 && (tri[0] == i || tri[1] == i)) {
				continue
			}
			added++
		}
		if len(verts)+added > ceiling {
			flush()
		}

		for _, i := range tri {
			local, ok := remap[i]
			if !ok {
				local = uint32(len(verts))
				remap[i] = local
				verts = append(verts, i)
			}
			indices = append(indices, local)
		}
	}
	flush()
	return parts
}

// gather builds a part holding the given source vertices, in order, and local indices.
func gather(m *Mesh, verts, indices []uint32) *Mesh {
	part := &Mesh{
		Material:  m.Material,
		Indices:   indices,
		Positions: pick(m.Positions, verts),
		Normals:   pick(m.Normals, verts),
		Tangents:  pick(m.Tangents, verts),
		Colors:    pick(m.Colors, verts),
		Joints:    pick(m.Joints, verts),
		Weights:   pick(m.Weights, verts),
	}
	for set := range m.UVs {
		part.UVs[set] = pick(m.UVs[set], verts)
	}
	if m.BindPoses != nil {
		part.BindPoses = append([][16]float32(nil), m.BindPoses...)
	}
	for _, t := range m.MorphTargets {
		part.MorphTargets = append(part.MorphTargets, MorphTarget{
			Name:           t.Name,
			Weight:         t.Weight,
			DeltaPositions: pick(t.DeltaPositions, verts),
			DeltaNormals:   pick(t.DeltaNormals, verts),
			DeltaTangents:  pick(t.DeltaTangents, verts),
		})
	}
	return part
}

// pick returns src[verts[0]], src[verts[1]], ..., or nil when src is nil.
func pick[T any](src []T, verts []uint32) []T {
	if src == nil {
		return nil
	}
	out := make([]T, len(verts))
	for i, v := range verts {
		out[i] = src[v]
	}
	return out
}
