// Package fixture provides a minimal in-memory graphstore.CheckpointSource
// built from a plain edge list: a way to drive the real pipeline without
// requiring a full writable-graph layer, which this engine does not
// provide. It exists for package tests and cmd/llama-inspect's demo mode.
package fixture

import (
	"sort"

	"github.com/llama-mlcsr/llama/graphstore"
	"github.com/llama-mlcsr/llama/mlcsr"
)

// Edge is one directed edge with optional per-edge property values, the
// unit callers add with AddEdge.
type Edge struct {
	From, To mlcsr.NodeID
	Props    map[string]any
}

// Builder accumulates edges and node-property values for one checkpoint and
// produces a graphstore.CheckpointSource snapshotting them. Each Builder is
// single-use: call Source once per checkpoint, then start a fresh Builder
// for the next one (mirroring the "explicit arena, one per checkpoint
// epoch" design).
type Builder struct {
	maxNode   mlcsr.NodeID
	newOut    map[mlcsr.NodeID][]Edge
	deletions map[mlcsr.NodeID]deletionCount
	nodeProps map[mlcsr.NodeID]map[string]any
}

type deletionCount struct {
	out, in int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		maxNode:   mlcsr.NilNode,
		newOut:    make(map[mlcsr.NodeID][]Edge),
		deletions: make(map[mlcsr.NodeID]deletionCount),
		nodeProps: make(map[mlcsr.NodeID]map[string]any),
	}
}

// AddEdge records a new out-edge from -> to, observed at this checkpoint.
func (b *Builder) AddEdge(from, to mlcsr.NodeID, props map[string]any) {
	b.touch(from)
	b.touch(to)
	b.newOut[from] = append(b.newOut[from], Edge{From: from, To: to, Props: props})
}

// DeleteEdge records that one previously-checkpointed out-edge of node n is
// gone as of this checkpoint. Only the out-direction count (DeletedOut) is
// recorded; DeletedIn stays 0. The source only reports counts; the actual
// soft-deletion mark, if any, is the caller's job via
// mlcsr.Table.UpdateMaxVisibleLevelLowerOnly.
func (b *Builder) DeleteEdge(n mlcsr.NodeID) {
	b.touch(n)
	d := b.deletions[n]
	d.out++
	b.deletions[n] = d
}

// SetNodeProp records a node-property value to carry into the new level
// under the property name registered with graphstore.RegisterNodeProperty.
func (b *Builder) SetNodeProp(n mlcsr.NodeID, name string, value any) {
	b.touch(n)
	m := b.nodeProps[n]
	if m == nil {
		m = make(map[string]any)
		b.nodeProps[n] = m
	}
	m[name] = value
}

func (b *Builder) touch(n mlcsr.NodeID) {
	if n > b.maxNode {
		b.maxNode = n
	}
}

// Source snapshots the builder's accumulated state into a CheckpointSource.
// Edges per node are returned in insertion order unless sorted is true, in
// which case each node's run is sorted by target ID before the snapshot is
// taken (distinct from, and in addition to, mlcsr.Config.SortEdges, which
// sorts the already-written edge table — this sorts the *source* records,
// useful for a reproducible fixture in tests).
func (b *Builder) Source(sorted bool) graphstore.CheckpointSource {
	s := &source{
		maxNode: b.maxNode,
		edges:   make(map[mlcsr.NodeID][]Edge, len(b.newOut)),
		del:     b.deletions,
		props:   b.nodeProps,
	}
	numEdges := 0
	for n, es := range b.newOut {
		cp := make([]Edge, len(es))
		copy(cp, es)
		if sorted {
			sort.Slice(cp, func(i, j int) bool { return cp[i].To < cp[j].To })
		}
		s.edges[n] = cp
		numEdges += len(cp)
	}
	s.numEdges = numEdges
	return s
}

// source is the CheckpointSource the Builder produces: a read-only, already
// materialized snapshot.
type source struct {
	maxNode  mlcsr.NodeID
	edges    map[mlcsr.NodeID][]Edge
	del      map[mlcsr.NodeID]deletionCount
	props    map[mlcsr.NodeID]map[string]any
	numEdges int
}

func (s *source) MaxNodeID() mlcsr.NodeID { return s.maxNode }
func (s *source) NumNewNodes() int        { return int(s.maxNode) + 1 }
func (s *source) NumNewEdges() int        { return s.numEdges }

func (s *source) NodeDelta(n mlcsr.NodeID) graphstore.NodeDelta {
	var d graphstore.NodeDelta
	if es, ok := s.edges[n]; ok {
		d.NewOutEdges = make([]graphstore.OutEdgeDelta, len(es))
		for i, e := range es {
			d.NewOutEdges[i] = graphstore.OutEdgeDelta{Target: e.To, Props: e.Props}
		}
	}
	if dc, ok := s.del[n]; ok {
		d.DeletedOut = dc.out
		d.DeletedIn = dc.in
	}
	if p, ok := s.props[n]; ok {
		d.NodeProps = p
	}
	return d
}
