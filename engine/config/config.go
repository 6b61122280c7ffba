package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animation"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/pelletier/go-toml/v2"
)

// Config is the import tool configuration.
type Config struct {
	// OutputDir is the directory artifacts are written under, one subdirectory per model.
	OutputDir string `toml:"output_dir"`

	// VertexCeiling is the largest vertex count of one mesh before it is split.
	VertexCeiling int `toml:"vertex_ceiling"`

	// Strategy selects the material strategy: "native" or "standard".
	Strategy string `toml:"strategy"`

	// ClipPolicy is "merged" or "per-animation".
	ClipPolicy string `toml:"clip_policy"`

	// Handedness is "right" (glTF) or "left".
	Handedness string `toml:"handedness"`

	// SceneIndex selects the scene to import; negative uses the document default.
	SceneIndex int `toml:"scene_index"`

	// Workers bounds the number of concurrent imports in batch mode.
	Workers int `toml:"workers"`

	// LogLevel is a slog level name: debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	// JournalPath is the LevelDB directory artifact journals are kept in. Empty keeps them in memory.
	JournalPath string `toml:"journal_path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		OutputDir:     "Assets",
		VertexCeiling: mesh.DefaultVertexCeiling,
		Strategy:      material.StrategyNative,
		ClipPolicy:    "merged",
		Handedness:    "right",
		SceneIndex:    -1,
		Workers:       runtime.NumCPU(),
		LogLevel:      "info",
	}
}

// Load reads a TOML configuration from fsys. Keys missing from the file keep their defaults.
//
// Parameters:
//   - fsys: the file system holding the file
//   - name: the file path
//
// Returns:
//   - *Config: the validated configuration
//   - error: error if the file cannot be read, holds unknown keys or fails validation
func Load(fsys fs.FS, name string) (*Config, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a TOML configuration from the OS file system.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown config keys: %s", strict.String())
		}
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration as TOML.
//
// Parameters:
//   - path: the destination file
//
// Returns:
//   - error: error if encoding or writing fails
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate fills zero values with defaults and rejects values no importer accepts.
func (c *Config) Validate() error {
	def := Default()
	c.OutputDir = common.Coalesce(c.OutputDir, def.OutputDir)
	c.Strategy = common.Coalesce(c.Strategy, def.Strategy)
	c.ClipPolicy = common.Coalesce(c.ClipPolicy, def.ClipPolicy)
	c.Handedness = common.Coalesce(c.Handedness, def.Handedness)
	c.LogLevel = common.Coalesce(c.LogLevel, def.LogLevel)
	if c.VertexCeiling == 0 {
		c.VertexCeiling = def.VertexCeiling
	}
	if c.Workers == 0 {
		c.Workers = def.Workers
	}

	var errs []error
	if c.VertexCeiling < 3 {
		errs = append(errs, fmt.Errorf("vertex_ceiling (%d) must hold at least one triangle", c.VertexCeiling))
	}
	if c.VertexCeiling > mesh.DefaultVertexCeiling {
		errs = append(errs, fmt.Errorf("vertex_ceiling (%d) exceeds 16-bit indices (%d)", c.VertexCeiling, mesh.DefaultVertexCeiling))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers (%d) cannot be negative", c.Workers))
	}
	if _, err := c.MaterialStrategy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Clips(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Convention(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// MaterialStrategy resolves the configured material strategy.
func (c *Config) MaterialStrategy() (material.Strategy, error) {
	s, ok := material.StrategyByName(c.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown material strategy %q", c.Strategy)
	}
	return s, nil
}

// Clips resolves the configured clip policy.
func (c *Config) Clips() (animation.ClipPolicy, error) {
	return animation.ParseClipPolicy(c.ClipPolicy)
}

// Convention resolves the configured handedness.
func (c *Config) Convention() (common.Handedness, error) {
	return common.ParseHandedness(c.Handedness)
}

// Level resolves the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
