package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// WalkerBuilderOption is a functional option for configuring a Walker.
type WalkerBuilderOption func(w *walker)

// WithHandedness sets the coordinate convention local transforms are converted to.
//
// Parameters:
//   - h: the target handedness
//
// Returns:
//   - WalkerBuilderOption: option function to apply
func WithHandedness(h common.Handedness) WalkerBuilderOption {
	return func(w *walker) {
		w.handedness = h
	}
}

// WithRootName names the root container, usually after the model. Empty names keep DefaultRootName.
//
// Parameters:
//   - name: the root container name
//
// Returns:
//   - WalkerBuilderOption: option function to apply
func WithRootName(name string) WalkerBuilderOption {
	return func(w *walker) {
		if name != "" {
			w.rootName = name
		}
	}
}

// WithMeshes sets the lookup that supplies built meshes for mesh components.
//
// Parameters:
//   - meshes: the built mesh lookup
//
// Returns:
//   - WalkerBuilderOption: option function to apply
func WithMeshes(meshes MeshLookup) WalkerBuilderOption {
	return func(w *walker) {
		w.meshes = meshes
	}
}

// WithNodeTable sets the table instances are recorded in by document node index.
//
// Parameters:
//   - nodes: the node table
//
// Returns:
//   - WalkerBuilderOption: option function to apply
func WithNodeTable(nodes NodeTable) WalkerBuilderOption {
	return func(w *walker) {
		if nodes != nil {
			w.nodes = nodes
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) WalkerBuilderOption {
	return func(w *walker) {
		w.logger = logger
	}
}
