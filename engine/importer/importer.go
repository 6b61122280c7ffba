package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animation"
	"github.com/Carmen-Shannon/oxy-gltf/engine/cache"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
)

// Status is the externally visible state of an import.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusInterrupted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusInterrupted:
		return "interrupted"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Pipeline stages, in execution order.
const (
	StageBuffers    scheduler.StageKind = "buffers"
	StageImages     scheduler.StageKind = "images"
	StageTextures   scheduler.StageKind = "textures"
	StageMaterials  scheduler.StageKind = "materials"
	StageMeshes     scheduler.StageKind = "meshes"
	StageScene      scheduler.StageKind = "scene"
	StageAnimations scheduler.StageKind = "animations"
	StageSkins      scheduler.StageKind = "skins"
	StagePrefab     scheduler.StageKind = "prefab"
)

// ErrNotStarted is returned by Tick before Start.
var ErrNotStarted = errors.New("import not started")

// primitiveRef addresses one primitive of one document mesh.
type primitiveRef struct {
	mesh, prim int
}

// importer is the implementation of the Importer interface.
type importer struct {
	mu sync.Mutex

	fsys        fs.FS
	store       store.Store
	ownsStore   bool
	ceiling     int
	handedness  common.Handedness
	strategy    material.Strategy
	clipPolicy  animation.ClipPolicy
	sceneIndex  int
	progress    scheduler.ProgressFunc
	profiler    *profiler.Profiler
	logger      *slog.Logger
	modelName   string
	destination string

	path       string
	doc        *gltf.Document
	source     gltf.Source
	cache      *cache.Cache
	sched      scheduler.Scheduler
	walker     scene.Walker
	converter  animation.Converter
	materials  material.Builder
	meshes     mesh.Builder
	binder     skeleton.Binder
	primitives []primitiveRef
	meshNames  map[string]struct{}
	clones     []*mesh.Mesh
	splitNames map[int]string
	splitTaken map[string]struct{}
	prefab     store.Handle

	status    Status
	err       error
	cancelled bool
	torn      bool
	result    model.Model
}

// Importer converts one glTF document into a scene graph and persisted assets.
// The pipeline is driven by Tick, one work item per call; only Cancel may be called from another goroutine.
type Importer interface {
	// Start parses the file at path and prepares the pipeline.
	//
	// Parameters:
	//   - path: the glTF or GLB file, resolved in the importer's file system
	//
	// Returns:
	//   - error: error if the file cannot be parsed or no scene can be selected
	Start(path string) error

	// StartDocument prepares the pipeline over an already parsed document.
	//
	// Parameters:
	//   - doc: the parsed document
	//   - name: the model name used for the root node, clips and prefab
	//
	// Returns:
	//   - error: ErrNoDefaultScene or ErrInvalidSceneReference (wrapped) if no scene can be instantiated
	StartDocument(doc *gltf.Document, name string) error

	// Tick advances the pipeline by one work item.
	// A failed run is torn down before the error is returned; a cancelled run is torn down and
	// reported as StatusInterrupted without an error.
	//
	// Returns:
	//   - Status: the status after the tick
	//   - error: the fatal error once the import has failed
	Tick() (Status, error)

	// Cancel requests cancellation. It takes effect at the next tick.
	Cancel()

	// Teardown deletes every artifact written during the attempt and releases the cache.
	// It is idempotent and does nothing once the import has completed.
	//
	// Returns:
	//   - error: error if artifacts could not be removed
	Teardown() error

	// Run ticks until the import reaches a terminal status. Cancelling ctx cancels the import.
	//
	// Parameters:
	//   - ctx: the context governing the run
	//
	// Returns:
	//   - Status: the terminal status
	//   - error: the fatal error when the import failed
	Run(ctx context.Context) (Status, error)

	// Status returns the current status.
	Status() Status

	// Result returns the imported model, nil until the import has completed.
	Result() model.Model
}

var _ Importer = &importer{}

// NewImporter creates an Importer with the given options applied.
//
// Parameters:
//   - options: variadic list of ImporterBuilderOption to configure the importer
//
// Returns:
//   - Importer: the new importer
func NewImporter(options ...ImporterBuilderOption) Importer {
	im := &importer{
		ceiling:    mesh.DefaultVertexCeiling,
		handedness: common.RightHanded,
		clipPolicy: animation.ClipMerged,
		sceneIndex: -1,
		logger:     slog.Default(),
		meshNames:  make(map[string]struct{}),
		splitNames: make(map[int]string),
		splitTaken: make(map[string]struct{}),
	}
	for _, option := range options {
		option(im)
	}
	return im
}

func (im *importer) Start(name string) error {
	doc, err := gltf.NewParser(gltf.WithParserFS(im.fsys)).Parse(name)
	if err != nil {
		im.status = StatusFailed
		im.err = fmt.Errorf("failed to parse %s: %w", name, err)
		return im.err
	}
	im.path = name

	base := path.Base(filepath.ToSlash(name))
	return im.StartDocument(doc, strings.TrimSuffix(base, path.Ext(base)))
}

func (im *importer) StartDocument(doc *gltf.Document, name string) error {
	if im.status != StatusIdle {
		return fmt.Errorf("import already started (%s)", im.status)
	}
	im.modelName = common.Coalesce(common.CleanName(im.modelName), common.CleanName(name), scene.DefaultRootName)

	sceneIndex, err := scene.SelectScene(doc, im.sceneIndex)
	if err != nil {
		im.status = StatusFailed
		im.err = err
		return err
	}

	if im.store == nil {
		st, err := store.NewFileStore(store.WithRoot(im.modelName))
		if err != nil {
			im.status = StatusFailed
			im.err = err
			return err
		}
		im.store = st
		im.ownsStore = true
	}

	im.doc = doc
	im.source = gltf.NewSource(im.fsys)
	im.cache = cache.New(doc)

	im.walker, err = scene.NewWalker(doc, sceneIndex,
		scene.WithHandedness(im.handedness),
		scene.WithRootName(im.modelName),
		scene.WithMeshes(im.cache.MeshLookup()),
		scene.WithNodeTable(im.cache.Nodes),
		scene.WithLogger(im.logger),
	)
	if err != nil {
		im.status = StatusFailed
		im.err = err
		im.releaseStore()
		return err
	}

	im.converter = animation.NewConverter(doc, im.cache.BufferLookup(), im.cache.Nodes,
		animation.WithClipPolicy(im.clipPolicy),
		animation.WithModelName(im.modelName),
		animation.WithHandedness(im.handedness),
		animation.WithLogger(im.logger),
	)

	materialOptions := []material.MaterialBuilderOption{material.WithLogger(im.logger)}
	if im.strategy != nil {
		materialOptions = append(materialOptions, material.WithStrategy(im.strategy))
	}
	im.materials = material.NewBuilder(&textureSource{im: im}, materialOptions...)

	im.meshes = mesh.NewBuilder(
		mesh.WithVertexCeiling(im.ceiling),
		mesh.WithHandedness(im.handedness),
		mesh.WithLogger(im.logger),
	)
	im.binder = skeleton.NewBinder(skeleton.WithHandedness(im.handedness), skeleton.WithLogger(im.logger))

	for mi := range doc.Meshes {
		for pi := range doc.Meshes[mi].Primitives {
			im.primitives = append(im.primitives, primitiveRef{mesh: mi, prim: pi})
		}
	}

	schedOptions := []scheduler.SchedulerBuilderOption{
		scheduler.WithProgress(im.progress),
		scheduler.WithLogger(im.logger),
	}
	if im.profiler != nil {
		schedOptions = append(schedOptions, scheduler.WithTickObserver(func(kind scheduler.StageKind, elapsed time.Duration) {
			im.profiler.Observe(string(kind), elapsed)
		}))
	}
	sched := scheduler.NewScheduler(schedOptions...)
	sched.Enqueue(im.stages()...)

	im.mu.Lock()
	im.sched = sched
	if im.cancelled {
		sched.Cancel()
	}
	im.mu.Unlock()

	im.status = StatusRunning
	im.logger.Info("import started",
		"model", im.modelName, "scene", sceneIndex,
		"nodes", len(doc.Nodes), "meshes", len(doc.Meshes), "materials", len(doc.Materials),
		"animations", len(doc.Animations), "skins", len(doc.Skins))
	return nil
}

func (im *importer) Tick() (Status, error) {
	switch im.status {
	case StatusIdle:
		return StatusIdle, ErrNotStarted
	case StatusCompleted, StatusInterrupted, StatusFailed:
		return im.status, im.err
	}

	st, err := im.sched.Tick()
	switch st {
	case scheduler.StateDone:
		if err := im.complete(); err != nil {
			return im.fail(err)
		}
		return StatusCompleted, nil
	case scheduler.StateCancelled:
		im.status = StatusInterrupted
		im.logger.Info("import cancelled", "model", im.modelName)
		if err := im.Teardown(); err != nil {
			im.logger.Error("teardown after cancel failed", "model", im.modelName, "error", err)
			im.err = err
			return StatusInterrupted, err
		}
		return StatusInterrupted, nil
	case scheduler.StateFailed:
		return im.fail(err)
	}
	return StatusRunning, nil
}

func (im *importer) fail(err error) (Status, error) {
	im.status = StatusFailed
	im.err = err
	im.logger.Error("import failed", "model", im.modelName, "error", err)
	if terr := im.Teardown(); terr != nil {
		im.err = errors.Join(err, terr)
	}
	return StatusFailed, im.err
}

func (im *importer) Cancel() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.cancelled = true
	if im.sched != nil {
		im.sched.Cancel()
	}
}

func (im *importer) Teardown() error {
	if im.torn {
		return nil
	}
	im.torn = true
	if im.status == StatusRunning {
		im.status = StatusInterrupted
		im.Cancel()
	}

	var errs []error
	if im.store != nil {
		if err := im.store.Clean(); err != nil {
			errs = append(errs, fmt.Errorf("failed to clean artifacts: %w", err))
		}
	}
	if im.cache != nil {
		im.cache.Release()
	}
	if err := im.releaseStore(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (im *importer) Run(ctx context.Context) (Status, error) {
	for {
		if ctx.Err() != nil {
			im.Cancel()
		}
		st, err := im.Tick()
		if st != StatusRunning {
			return st, err
		}
	}
}

func (im *importer) Status() Status {
	return im.status
}

func (im *importer) Result() model.Model {
	return im.result
}

// complete commits the artifacts and assembles the model.
func (im *importer) complete() error {
	artifacts := im.store.Artifacts()
	if err := im.store.Commit(); err != nil {
		return fmt.Errorf("failed to commit artifacts: %w", err)
	}

	var meshes []*mesh.Mesh
	im.cache.Meshes.Each(func(_ int, prims [][]*mesh.Mesh) {
		for _, parts := range prims {
			meshes = append(meshes, parts...)
		}
	})
	meshes = append(meshes, im.clones...)

	var materials []*material.Material
	im.cache.Materials.Each(func(_ int, m *material.Material) {
		materials = append(materials, m)
	})
	if im.cache.DefaultMaterial != nil {
		materials = append(materials, im.cache.DefaultMaterial)
	}

	var skins []*skeleton.Skin
	im.cache.Skins.Each(func(_ int, s *skeleton.Skin) {
		skins = append(skins, s)
	})

	im.result = model.NewModel(
		model.WithName(im.modelName),
		model.WithPath(im.path),
		model.WithRoot(im.walker.Root()),
		model.WithMeshes(meshes),
		model.WithMaterials(materials),
		model.WithAnimations(im.converter.Clips()),
		model.WithSkins(skins),
		model.WithPrefab(im.prefab),
		model.WithArtifacts(artifacts),
	)

	im.torn = true
	im.cache.Release()
	if err := im.releaseStore(); err != nil {
		im.logger.Warn("failed to close store", "error", err)
	}
	im.status = StatusCompleted
	im.logger.Info("import completed", "model", im.modelName, "artifacts", len(artifacts), "meshes", len(meshes))
	return nil
}

// releaseStore closes the store when the importer created it.
func (im *importer) releaseStore() error {
	if !im.ownsStore || im.store == nil {
		return nil
	}
	im.ownsStore = false
	if err := im.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
