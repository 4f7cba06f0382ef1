// Package config holds the engine's build-time and deployment
// configuration: page size, the feature set from mlcsr.Config and
// graphstore.LoaderConfig, and the persistence root, loadable from a YAML
// file the same way a CLI's own config gets loaded at startup.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig is the top-level configuration for one Graph instance: the
// build-time feature set plus where (if anywhere) it persists to disk.
type EngineConfig struct {
	PageSize int `yaml:"page_size"`

	PrecomputedDegree bool `yaml:"precomputed_degree"`
	Continuations     bool `yaml:"continuations"`
	SoftDeletions     bool `yaml:"soft_deletions"`
	SortEdges         bool `yaml:"sort_edges"`

	ReverseEdges          bool `yaml:"reverse_edges"`
	ReverseMaps           bool `yaml:"reverse_maps"`
	CopyAdjListOnDeletion bool `yaml:"copy_adj_list_on_deletion"`

	// LevelIDScheme is either "monotonic" or "wrap_with_min_level"
	// (a build-time, never-mixed choice).
	LevelIDScheme string `yaml:"level_id_scheme"`

	// PersistenceRoot, if non-empty, is the directory a backing.Store opens
	// on startup. Empty means memory-only (backing.MemoryStrategy).
	PersistenceRoot string `yaml:"persistence_root"`

	// KeepRecentLevels, if > 0, is passed to Graph.KeepOnlyRecent after
	// every scheduled checkpoint.
	KeepRecentLevels int `yaml:"keep_recent_levels"`

	// CheckpointCron, if non-empty, drives graphstore.CheckpointScheduler.
	CheckpointCron string `yaml:"checkpoint_cron"`
}

// Default returns the configuration used when no file is supplied: 512
// entry pages, precomputed degree and continuations on, nothing else.
func Default() *EngineConfig {
	return &EngineConfig{
		PageSize:          512,
		PrecomputedDegree: true,
		Continuations:     true,
		LevelIDScheme:     "monotonic",
	}
}

// Load reads and parses a YAML config file at path, starting from Default
// and overwriting only the fields the file sets.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field combinations the zero-value/YAML-unmarshal path
// cannot enforce on its own (LoaderConfig's requirement that
// ReverseMaps implies ReverseEdges, and that the level-ID scheme names one
// of exactly two values).
func (c *EngineConfig) Validate() error {
	if c.ReverseMaps && !c.ReverseEdges {
		return fmt.Errorf("config: reverse_maps requires reverse_edges")
	}
	switch c.LevelIDScheme {
	case "", "monotonic", "wrap_with_min_level":
	default:
		return fmt.Errorf("config: unknown level_id_scheme %q", c.LevelIDScheme)
	}
	if c.LevelIDScheme == "wrap_with_min_level" && c.PersistenceRoot != "" {
		return fmt.Errorf("config: wrap_with_min_level is incompatible with a persistence_root")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page_size must be positive")
	}
	return nil
}
