package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
)

// SelectScene picks the scene to instantiate: the explicit index when non-negative, else the document
// default, else scene 0.
//
// Parameters:
//   - doc: the parsed document
//   - explicit: a configured scene index, or -1
//
// Returns:
//   - int: the scene index
//   - error: ErrNoDefaultScene (wrapped) when no scene exists or the chosen index is out of range
func SelectScene(doc *gltf.Document, explicit int) (int, error) {
	index := 0
	switch {
	case explicit >= 0:
		index = explicit
	case doc.Scene != nil:
		index = *doc.Scene
	}
	if !common.InRange(index, len(doc.Scenes)) {
		return -1, fmt.Errorf("scene %d of %d: %w", index, len(doc.Scenes), gltf.ErrNoDefaultScene)
	}
	return index, nil
}
