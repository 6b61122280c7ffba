package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/importer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// StoreFactory opens the store one import writes to.
type StoreFactory func(name string) (store.Store, error)

// ProgressFunc receives the progress of one import in a batch.
type ProgressFunc func(name string, kind scheduler.StageKind, current, total int)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	modelCache map[string]model.Model

	options  []importer.ImporterBuilderOption
	stores   StoreFactory
	progress ProgressFunc
	workers  int
	logger   *slog.Logger

	poolOnce sync.Once
	pool     worker.DynamicWorkerPool
}

// Loader defines the public-facing interface for importing and caching models.
// Every import runs single-threaded; only batches run several imports at once.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	//
	// Parameters:
	//   - ctx: cancelling ctx interrupts the import and removes its artifacts
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if the import fails or is interrupted
	Load(ctx context.Context, path string) (model.Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - ctx: the context governing the import
	//   - name: the cache key and model name
	//   - r: the reader providing the document
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if parsing or importing fails
	LoadReader(ctx context.Context, name string, r io.Reader, isGLB bool) (model.Model, error)

	// LoadBatch imports several files concurrently on the loader's worker pool.
	// A failed file does not stop the others.
	//
	// Parameters:
	//   - ctx: the context governing every import of the batch
	//   - paths: the files to import
	//
	// Returns:
	//   - []model.Model: one entry per path, nil where the import failed
	//   - error: the joined errors of the failed imports
	LoadBatch(ctx context.Context, paths []string) ([]model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns the full model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model

	// Close stops the worker pool.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		modelCache: make(map[string]model.Model),
		workers:    1,
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(ctx context.Context, path string) (model.Model, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	return l.run(ctx, path, func(im importer.Importer) error {
		return im.Start(path)
	})
}

func (l *loader) LoadReader(ctx context.Context, name string, r io.Reader, isGLB bool) (model.Model, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	doc, err := gltf.NewParser().ParseReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.run(ctx, name, func(im importer.Importer) error {
		return im.StartDocument(doc, name)
	})
}

// run drives one import to completion and caches the model under key.
func (l *loader) run(ctx context.Context, key string, start func(importer.Importer) error) (model.Model, error) {
	options := append(slices.Clone(l.options), importer.WithLogger(l.logger.With("file", key)))
	if l.progress != nil {
		options = append(options, importer.WithProgress(func(kind scheduler.StageKind, current, total int) {
			l.progress(key, kind, current, total)
		}))
	}
	if l.stores != nil {
		st, err := l.stores(key)
		if err != nil {
			return nil, fmt.Errorf("failed to open store for %s: %w", key, err)
		}
		defer st.Close()
		options = append(options, importer.WithStore(st))
	}

	im := importer.NewImporter(options...)
	if err := start(im); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}

	status, err := im.Run(ctx)
	switch status {
	case importer.StatusCompleted:
	case importer.StatusInterrupted:
		return nil, fmt.Errorf("import of %s interrupted: %w", key, errors.Join(ctx.Err(), err))
	default:
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}

	m := im.Result()
	l.mu.Lock()
	l.modelCache[key] = m
	l.mu.Unlock()
	return m, nil
}

func (l *loader) LoadBatch(ctx context.Context, paths []string) ([]model.Model, error) {
	results := make([]model.Model, len(paths))
	errs := make([]error, len(paths))

	first := make(map[string]int, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		if _, dup := first[p]; dup {
			continue
		}
		first[p] = i

		wg.Add(1)
		l.workerPool().SubmitTask(worker.Task{
			ID:      i,
			Payload: p,
			Do: func() (any, error) {
				defer wg.Done()
				results[i], errs[i] = l.Load(ctx, p)
				return results[i], errs[i]
			},
		})
	}
	wg.Wait()

	for i, p := range paths {
		if j := first[p]; j != i {
			results[i] = results[j]
		}
	}
	return results, errors.Join(errs...)
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool != nil {
		l.pool.Stop()
	}
}

// workerPool lazily starts the batch pool; single loads never need it.
func (l *loader) workerPool() worker.DynamicWorkerPool {
	l.poolOnce.Do(func() {
		pool := worker.NewDynamicWorkerPool(l.workers, 256, time.Second)
		l.mu.Lock()
		l.pool = pool
		l.mu.Unlock()
	})
	return l.pool
}
