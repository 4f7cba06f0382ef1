package config

import (
	"github.com/llama-mlcsr/llama/graphstore"
	"github.com/llama-mlcsr/llama/levels"
	"github.com/llama-mlcsr/llama/mlcsr"
)

// TableConfig projects the feature-set fields onto an mlcsr.Config, the
// value every mlcsr.Table in the engine is built from.
func (c *EngineConfig) TableConfig() mlcsr.Config {
	return mlcsr.Config{
		PageSize:          c.PageSize,
		PrecomputedDegree: c.PrecomputedDegree,
		Continuations:     c.Continuations,
		SoftDeletions:     c.SoftDeletions,
		SortEdges:         c.SortEdges,
		LevelIDs:          c.IDScheme(),
	}
}

// LoaderConfig projects the checkpoint-time flag bag onto a
// graphstore.LoaderConfig.
func (c *EngineConfig) LoaderConfig() graphstore.LoaderConfig {
	return graphstore.LoaderConfig{
		ReverseEdges:          c.ReverseEdges,
		ReverseMaps:           c.ReverseMaps,
		SortEdges:             c.SortEdges,
		CopyAdjListOnDeletion: c.CopyAdjListOnDeletion,
	}
}

// IDScheme resolves the textual LevelIDScheme into a levels.IDScheme.
func (c *EngineConfig) IDScheme() levels.IDScheme {
	if c.LevelIDScheme == "wrap_with_min_level" {
		return levels.WrapWithMinLevel
	}
	return levels.Monotonic
}

// NewGraph builds a graphstore.Graph wired from this configuration.
func (c *EngineConfig) NewGraph() *graphstore.Graph {
	return graphstore.NewGraph(c.LoaderConfig(), c.TableConfig())
}

// NewScheduler builds a graphstore.CheckpointScheduler for g and, if
// CheckpointCron is set, registers it as the scheduler's single trigger.
// The caller still owns Start/Stop and must supply nextSource, the
// per-tick CheckpointSource producer; where a scheduled checkpoint's data
// comes from is always the caller's writable layer, not this package's.
func (c *EngineConfig) NewScheduler(g *graphstore.Graph, nextSource func() (graphstore.CheckpointSource, bool)) (*graphstore.CheckpointScheduler, error) {
	sched := graphstore.NewCheckpointScheduler(g, nextSource, c.KeepRecentLevels)
	if c.CheckpointCron != "" {
		if _, err := sched.AddCron(c.CheckpointCron); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
