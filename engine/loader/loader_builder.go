package loader

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gltf/engine/importer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithImporterOptions sets the options every import is created with.
//
// Parameters:
//   - options: the importer options
//
// Returns:
//   - LoaderBuilderOption: a function that applies the importer options to a loader
func WithImporterOptions(options ...importer.ImporterBuilderOption) LoaderBuilderOption {
	return func(l *loader) {
		l.options = append(l.options, options...)
	}
}

// WithStoreFactory sets how the store of each import is opened.
// Without it every import writes to its own memory-backed store.
//
// Parameters:
//   - factory: opens the store for one file; the loader closes it after the import
//
// Returns:
//   - LoaderBuilderOption: a function that applies the factory to a loader
func WithStoreFactory(factory StoreFactory) LoaderBuilderOption {
	return func(l *loader) {
		l.stores = factory
	}
}

// WithProgress sets the per-tick progress callback of every import.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - LoaderBuilderOption: a function that applies the callback to a loader
func WithProgress(fn ProgressFunc) LoaderBuilderOption {
	return func(l *loader) {
		l.progress = fn
	}
}

// WithWorkers sets how many imports a batch runs at once.
//
// Parameters:
//   - n: the worker count; values below 1 are raised to 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}

// WithLogger sets the logger imports log through.
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}
