package importer

import (
	"io/fs"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animation"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// ImporterBuilderOption is a functional option for configuring an Importer.
type ImporterBuilderOption func(*importer)

// WithStore sets the asset store artifacts are written to.
// Without it the importer writes to a memory-backed store it owns.
//
// Parameters:
//   - s: the asset store
//
// Returns:
//   - ImporterBuilderOption: option function to set the store
func WithStore(s store.Store) ImporterBuilderOption {
	return func(im *importer) {
		im.store = s
	}
}

// WithFS sets the file system documents and their side files are read from. Nil reads from the OS.
//
// Parameters:
//   - fsys: the input file system
//
// Returns:
//   - ImporterBuilderOption: option function to set the file system
func WithFS(fsys fs.FS) ImporterBuilderOption {
	return func(im *importer) {
		im.fsys = fsys
	}
}

// WithVertexCeiling sets the largest vertex count of one constructed mesh.
//
// Parameters:
//   - ceiling: the vertex ceiling
//
// Returns:
//   - ImporterBuilderOption: option function to set the ceiling
func WithVertexCeiling(ceiling int) ImporterBuilderOption {
	return func(im *importer) {
		im.ceiling = ceiling
	}
}

// WithHandedness sets the coordinate convention of the imported data.
//
// Parameters:
//   - h: the target handedness
//
// Returns:
//   - ImporterBuilderOption: option function to set the handedness
func WithHandedness(h common.Handedness) ImporterBuilderOption {
	return func(im *importer) {
		im.handedness = h
	}
}

// WithStrategy sets the material strategy.
//
// Parameters:
//   - s: the strategy
//
// Returns:
//   - ImporterBuilderOption: option function to set the strategy
func WithStrategy(s material.Strategy) ImporterBuilderOption {
	return func(im *importer) {
		im.strategy = s
	}
}

// WithClipPolicy sets whether animations are merged into one clip.
//
// Parameters:
//   - policy: the clip policy
//
// Returns:
//   - ImporterBuilderOption: option function to set the policy
func WithClipPolicy(policy animation.ClipPolicy) ImporterBuilderOption {
	return func(im *importer) {
		im.clipPolicy = policy
	}
}

// WithSceneIndex selects the scene to import. Negative values use the document's default scene.
//
// Parameters:
//   - index: the scene index
//
// Returns:
//   - ImporterBuilderOption: option function to set the scene
func WithSceneIndex(index int) ImporterBuilderOption {
	return func(im *importer) {
		im.sceneIndex = index
	}
}

// WithProgress sets the callback invoked after every tick.
//
// Parameters:
//   - fn: the progress callback
//
// Returns:
//   - ImporterBuilderOption: option function to set the callback
func WithProgress(fn scheduler.ProgressFunc) ImporterBuilderOption {
	return func(im *importer) {
		im.progress = fn
	}
}

// WithProfiler attaches a per-stage tick profiler.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - ImporterBuilderOption: option function to set the profiler
func WithProfiler(p *profiler.Profiler) ImporterBuilderOption {
	return func(im *importer) {
		im.profiler = p
	}
}

// WithLogger sets the logger passed to every stage.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - ImporterBuilderOption: option function to set the logger
func WithLogger(logger *slog.Logger) ImporterBuilderOption {
	return func(im *importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// WithModelName overrides the model name derived from the file name.
//
// Parameters:
//   - name: the model name
//
// Returns:
//   - ImporterBuilderOption: option function to set the name
func WithModelName(name string) ImporterBuilderOption {
	return func(im *importer) {
		im.modelName = name
	}
}

// WithDestination sets the store path of the prefab. Defaults to the model name.
//
// Parameters:
//   - destination: the slash-separated prefab path
//
// Returns:
//   - ImporterBuilderOption: option function to set the destination
func WithDestination(destination string) ImporterBuilderOption {
	return func(im *importer) {
		im.destination = destination
	}
}
