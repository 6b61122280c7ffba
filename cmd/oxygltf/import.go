package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/importer"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/store"
	"github.com/google/uuid"
	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
	"github.com/spf13/cobra"
	"github.com/syndtr/goleveldb/leveldb"
)

func newImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import [files...]",
		Short: "Import one or more .gltf/.glb files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return runImport(cmd, cfg, opts.profile, args)
		},
	}
}

func runImport(cmd *cobra.Command, cfg *config.Config, profile bool, files []string) error {
	logger := newLogger(cmd.ErrOrStderr(), cfg)
	strategy, _ := cfg.MaterialStrategy()
	clips, _ := cfg.Clips()
	handedness, _ := cfg.Convention()

	out, err := outputFS(cfg.OutputDir)
	if err != nil {
		return err
	}

	var journal *leveldb.DB
	if cfg.JournalPath != "" {
		if journal, err = leveldb.OpenFile(cfg.JournalPath, nil); err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer journal.Close()
	}

	importOptions := []importer.ImporterBuilderOption{
		importer.WithVertexCeiling(cfg.VertexCeiling),
		importer.WithStrategy(strategy),
		importer.WithClipPolicy(clips),
		importer.WithHandedness(handedness),
		importer.WithSceneIndex(cfg.SceneIndex),
	}
	var prof *profiler.Profiler
	if profile {
		prof = profiler.NewProfiler(logger, time.Second)
		importOptions = append(importOptions, importer.WithProfiler(prof))
	}

	printer := newProgressPrinter(cmd.OutOrStdout())
	l := loader.NewLoader(
		loader.WithWorkers(cfg.Workers),
		loader.WithLogger(logger),
		loader.WithImporterOptions(importOptions...),
		loader.WithProgress(printer.Progress),
		loader.WithStoreFactory(func(file string) (store.Store, error) {
			storeOptions := []store.FileStoreBuilderOption{
				store.WithFS(out),
				store.WithRoot(modelName(file)),
				store.WithNamespace(uuid.NewString()),
			}
			if journal != nil {
				storeOptions = append(storeOptions, store.WithJournal(journal))
			}
			return store.NewFileStore(storeOptions...)
		}),
	)
	defer l.Close()

	models, err := l.LoadBatch(cmd.Context(), files)
	for i, m := range models {
		printer.Done(files[i], m)
	}
	if prof != nil {
		prof.Summary()
	}
	return err
}

// modelName is the file name without its extension.
func modelName(file string) string {
	base := path.Base(filepath.ToSlash(file))
	return common.Coalesce(common.CleanName(strings.TrimSuffix(base, path.Ext(base))), "Model")
}

// outputFS returns the OS file system rooted at dir, creating dir when missing.
func outputFS(dir string) (hackpadfs.FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var root hackpadfs.FS = osfs.NewFS()
	volume := filepath.VolumeName(abs)
	if volume != "" {
		if root, err = osfs.NewFS().SubVolume(volume); err != nil {
			return nil, err
		}
	}
	rel := strings.TrimPrefix(filepath.ToSlash(strings.TrimPrefix(abs, volume)), "/")
	if rel == "" {
		return root, nil
	}
	return hackpadfs.Sub(root, rel)
}
