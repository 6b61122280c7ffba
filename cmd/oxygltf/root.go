package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/spf13/cobra"
)

// options holds the flag values shared by every command.
type options struct {
	configPath string

	outputDir     string
	vertexCeiling int
	strategy      string
	clipPolicy    string
	handedness    string
	sceneIndex    int
	workers       int
	logLevel      string
	journalPath   string
	profile       bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "oxygltf",
		Short:         "Import glTF scenes into prefabs, meshes, materials and textures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "TOML configuration file")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "directory artifacts are written under")
	flags.IntVar(&opts.vertexCeiling, "vertex-ceiling", 0, "largest vertex count of one mesh")
	flags.StringVar(&opts.strategy, "strategy", "", "material strategy: native or standard")
	flags.StringVar(&opts.clipPolicy, "clip-policy", "", "merged or per-animation")
	flags.StringVar(&opts.handedness, "handedness", "", "right or left")
	flags.IntVar(&opts.sceneIndex, "scene", -1, "scene to import; negative uses the document default")
	flags.IntVarP(&opts.workers, "workers", "j", 0, "imports run at once")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.journalPath, "journal", "", "LevelDB directory for the artifact journal")
	flags.BoolVar(&opts.profile, "profile", false, "log per-stage timings")

	root.AddCommand(newImportCommand(opts))
	return root
}

// resolve loads the configuration file, if any, and applies the flags that were set.
func (o *options) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(o.configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("vertex-ceiling") {
		cfg.VertexCeiling = o.vertexCeiling
	}
	if flags.Changed("strategy") {
		cfg.Strategy = o.strategy
	}
	if flags.Changed("clip-policy") {
		cfg.ClipPolicy = o.clipPolicy
	}
	if flags.Changed("handedness") {
		cfg.Handedness = o.handedness
	}
	if flags.Changed("scene") {
		cfg.SceneIndex = o.sceneIndex
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("journal") {
		cfg.JournalPath = o.journalPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(errors.New("invalid configuration"), err)
	}
	return cfg, nil
}

// newLogger builds the text logger all packages log through.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
