package graphstore

import "github.com/llama-mlcsr/llama/mlcsr"

// OutEdgeDelta is one new out-edge a CheckpointSource reports for a node,
// carrying the per-edge property values keyed by registered property name.
type OutEdgeDelta struct {
	Target mlcsr.NodeID
	Props  map[string]any
}

// InEdgeDelta is one new in-edge a CheckpointSource reports for a node (used
// only when the source itself tracks reverse edges; most sources leave this
// empty and let Graph derive in-edges from out-edges when ReverseEdges is
// enabled).
type InEdgeDelta struct {
	Source mlcsr.NodeID
}

// NodeDelta is one node's contribution to a checkpoint: the edges it gains
// and loses, plus any node-property values to carry into the new level.
type NodeDelta struct {
	NewOutEdges []OutEdgeDelta
	NewInEdges  []InEdgeDelta
	DeletedOut  int
	DeletedIn   int
	NodeProps   map[string]any
}

// CheckpointSource is the abstract collaborator a checkpoint consumes
// a source reports. The engine touches each non-empty node-delta record once
// per direction during a checkpoint.
type CheckpointSource interface {
	MaxNodeID() mlcsr.NodeID
	NumNewNodes() int
	NumNewEdges() int
	NodeDelta(n mlcsr.NodeID) NodeDelta
}
