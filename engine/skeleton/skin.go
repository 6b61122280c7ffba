package skeleton

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
)

// Skin is a decoded glTF skin: ordered joint node indices and one inverse bind matrix per joint.
type Skin struct {
	// Index is the skin index in the document.
	Index int

	// Name is the glTF skin name.
	Name string

	// Joints are the document node indices of the bones, in joint order.
	Joints []int

	// InverseBindMatrices holds one column-major matrix per joint.
	InverseBindMatrices [][16]float32

	// Skeleton is the declared skeleton root node, -1 when absent.
	Skeleton int
}

// Decode reads one skin of a document. A skin without inverse bind matrices gets identities.
//
// Parameters:
//   - doc: the parsed document
//   - index: the skin index
//   - buffers: lookup of loaded buffers
//
// Returns:
//   - *Skin: the decoded skin
//   - error: ErrMalformedAccessor (wrapped) if the matrix count differs from the joint count
func Decode(doc *gltf.Document, index int, buffers gltf.BufferLookup) (*Skin, error) {
	if !common.InRange(index, len(doc.Skins)) {
		return nil, fmt.Errorf("skin %d: %w", index, gltf.ErrInvalidSceneReference)
	}
	gs := &doc.Skins[index]

	s := &Skin{
		Index:    index,
		Name:     gs.Name,
		Joints:   append([]int(nil), gs.Joints...),
		Skeleton: -1,
	}
	if gs.Skeleton != nil {
		s.Skeleton = *gs.Skeleton
	}

	if gs.InverseBindMatrices == nil {
		s.InverseBindMatrices = make([][16]float32, len(gs.Joints))
		for i := range s.InverseBindMatrices {
			s.InverseBindMatrices[i] = common.IdentityMatrix()
		}
		return s, nil
	}

	acc, err := gltf.NewAttributeAccessor(doc, "", *gs.InverseBindMatrices, buffers)
	if err != nil {
		return nil, fmt.Errorf("skin %d inverse bind matrices: %w", index, err)
	}
	if s.InverseBindMatrices, err = acc.Mat4(); err != nil {
		return nil, fmt.Errorf("skin %d inverse bind matrices: %w", index, err)
	}
	if len(s.InverseBindMatrices) != len(s.Joints) {
		return nil, fmt.Errorf("skin %d has %d inverse bind matrices for %d joints: %w",
			index, len(s.InverseBindMatrices), len(s.Joints), gltf.ErrMalformedAccessor)
	}
	return s, nil
}
