// Package graphstore implements the Graph Facade & Checkpoint Driver
// the out/in MLCSR tables, the property registry, the
// edge-translation map, and the checkpoint pipeline that builds a new level
// from a CheckpointSource.
package graphstore

import (
	"fmt"
	"sync"

	"github.com/llama-mlcsr/llama/backing"
	"github.com/llama-mlcsr/llama/levels"
	"github.com/llama-mlcsr/llama/mlcsr"
	"github.com/llama-mlcsr/llama/property"
)

// ErrLevelShrunk is returned when a CheckpointSource reports a node-ID
// space smaller than a previous checkpoint's, which would corrupt the
// monotonically growing vertex tables.
var ErrLevelShrunk = fmt.Errorf("graphstore: checkpoint node count smaller than a previous checkpoint")

// LoaderConfig is the checkpoint-time flag bag controlling what a checkpoint
// maintains alongside the out-edges table.
type LoaderConfig struct {
	ReverseEdges          bool // also maintain the in-direction table
	ReverseMaps           bool // also maintain the edge-translation map; requires ReverseEdges
	SortEdges             bool // not read by Checkpoint; edge sorting is controlled by mlcsr.Config.SortEdges
	CopyAdjListOnDeletion bool // not read by Checkpoint; a deletion only lowers the precomputed degree and no adjacency list is copied
}

// Graph owns the out-edges and (optionally) in-edges MLCSR tables, a
// name-indexed registry of node and edge properties, and (optionally) the
// edge-translation map. Exactly one checkpoint may run at a time.
type Graph struct {
	cfg    LoaderConfig
	tblCfg mlcsr.Config

	out *mlcsr.Table
	in  *mlcsr.Table

	tables map[string]*mlcsr.Table // additional named CSR tables, e.g. per-label

	nodeProps map[string]nodePropertyBinding
	edgeProps map[string]edgePropertyBinding

	outToIn *property.EdgeProperty[mlcsr.EdgeID]
	inToOut *property.EdgeProperty[mlcsr.EdgeID]

	backingStore backing.Strategy

	mu      sync.Mutex
	latestN int
}

// NewGraph creates an empty Graph under cfg, using tblCfg for every MLCSR
// table it owns.
func NewGraph(cfg LoaderConfig, tblCfg mlcsr.Config) *Graph {
	if cfg.ReverseMaps && !cfg.ReverseEdges {
		panic("graphstore: ReverseMaps requires ReverseEdges")
	}
	g := &Graph{
		cfg:       cfg,
		tblCfg:    tblCfg,
		out:       mlcsr.NewTable(tblCfg),
		tables:    make(map[string]*mlcsr.Table),
		nodeProps: make(map[string]nodePropertyBinding),
		edgeProps: make(map[string]edgePropertyBinding),
	}
	if cfg.ReverseEdges {
		g.in = mlcsr.NewTable(tblCfg)
	}
	if cfg.ReverseMaps {
		g.outToIn = property.NewEdgeProperty[mlcsr.EdgeID](tblCfg.PageSize)
		g.inToOut = property.NewEdgeProperty[mlcsr.EdgeID](tblCfg.PageSize)
	}
	return g
}

// Out returns the out-edges table.
func (g *Graph) Out() *mlcsr.Table { return g.out }

// In returns the in-edges table, or nil if ReverseEdges was not configured.
func (g *Graph) In() *mlcsr.Table { return g.in }

// OutToIn translates an out-edge ID to its paired in-edge ID, or NilEdgeID
// if ReverseMaps was not configured or no pairing was recorded.
func (g *Graph) OutToIn(e mlcsr.EdgeID) mlcsr.EdgeID {
	if g.outToIn == nil {
		return mlcsr.NilEdgeID
	}
	v, ok := g.outToIn.Of(e)
	if !ok {
		return mlcsr.NilEdgeID
	}
	return v
}

// InToOut translates an in-edge ID to its paired out-edge ID.
func (g *Graph) InToOut(e mlcsr.EdgeID) mlcsr.EdgeID {
	if g.inToOut == nil {
		return mlcsr.NilEdgeID
	}
	v, ok := g.inToOut.Of(e)
	if !ok {
		return mlcsr.NilEdgeID
	}
	return v
}

// RegisterTable adds a named additional CSR table (e.g. a per-label edge
// set), sharing this graph's table configuration.
func (g *Graph) RegisterTable(name string) *mlcsr.Table {
	t := mlcsr.NewTable(g.tblCfg)
	g.tables[name] = t
	return t
}

// Table looks up a previously registered named table.
func (g *Graph) Table(name string) *mlcsr.Table { return g.tables[name] }

// WithBacking attaches a persistent backing strategy, synced at the end of
// every checkpoint.
func (g *Graph) WithBacking(s backing.Strategy) { g.backingStore = s }

// RegisterNodeProperty creates and registers a node property under name,
// returning the typed handle for reads outside the checkpoint path.
func RegisterNodeProperty[T any](g *Graph, name string, pageSize int) *property.NodeProperty[T] {
	p := property.NewNodeProperty[T](pageSize)
	g.nodeProps[name] = &nodePropertyAdapter[T]{inner: p}
	return p
}

// RegisterEdgeProperty creates and registers an edge property under name on
// the out-edges table, returning the typed handle for reads.
func RegisterEdgeProperty[T any](g *Graph, name string, pageSize int) *property.EdgeProperty[T] {
	p := property.NewEdgeProperty[T](pageSize)
	g.edgeProps[name] = &edgePropertyAdapter[T]{inner: p}
	return p
}

// KeepOnlyRecent drops every level older than the k most recent across the
// out table, the in table (if present), every registered property, every
// additional named table, and the edge-translation map.
func (g *Graph) KeepOnlyRecent(k int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	outDropped := g.out.KeepOnlyRecent(k)
	var inDropped []levels.ID
	if g.in != nil {
		inDropped = g.in.KeepOnlyRecent(k)
	}
	for _, t := range g.tables {
		t.KeepOnlyRecent(k)
	}
	for _, p := range g.nodeProps {
		p.KeepOnlyRecent(k)
	}
	for _, p := range g.edgeProps {
		for _, id := range outDropped {
			p.DropLevel(id)
		}
	}
	if g.outToIn != nil {
		for _, id := range outDropped {
			g.outToIn.DropLevel(id)
		}
	}
	if g.inToOut != nil {
		for _, id := range inDropped {
			g.inToOut.DropLevel(id)
		}
	}
}
