// Package property implements node and edge property arrays: versioned
// per-node scalars and a 2-D (level, in-level-index) structure for
// per-edge scalars, both built on top of package vpa.
package property

import (
	"runtime"
	"sync"

	"github.com/llama-mlcsr/llama/levels"
	"github.com/llama-mlcsr/llama/page"
	"github.com/llama-mlcsr/llama/vpa"
)

// stripeCount mirrors the worker-pool sizing heuristic used
// elsewhere in this codebase: scale with available CPUs rather than a
// fixed constant, since contention on the stripe array grows with
// parallelism.
func stripeCount() int {
	n := runtime.NumCPU() * 4
	if n < 8 {
		n = 8
	}
	return n
}

// NodeProperty is a versioned scalar per node: one VPA level per graph
// level, dense-initialized at the first level and copy-on-write
// thereafter.
type NodeProperty[T any] struct {
	mgr    *page.Manager[T]
	levels *levels.Collection[vpa.Array[T]]

	stripes []sync.Mutex
}

// NewNodeProperty creates an empty node property using pageSize-entry VPA
// pages.
func NewNodeProperty[T any](pageSize int) *NodeProperty[T] {
	return &NodeProperty[T]{
		mgr:     page.NewManager[T](pageSize),
		levels:  levels.NewCollection[vpa.Array[T]](levels.Monotonic),
		stripes: make([]sync.Mutex, stripeCount()),
	}
}

// InitLevel creates a new level sized for size nodes, sharing pages with
// the previous level (copy-on-write) except when this is the first level.
func (p *NodeProperty[T]) InitLevel(size int) (levels.ID, *vpa.Array[T]) {
	_, prevArr := p.levels.LatestLevel()
	id := p.levels.NewLevel()
	arr := vpa.NewArray[T](p.mgr)
	if prevArr == nil {
		arr.DenseInit(size)
	} else {
		arr.COWInit(prevArr, size)
	}
	p.levels.Set(id, arr)
	return id, arr
}

// Set writes node's value at level. Legal only while that level is still
// under construction (between InitLevel and Freeze).
func (p *NodeProperty[T]) Set(level levels.ID, node int, value T) {
	arr := p.levels.LevelAt(level)
	if arr == nil {
		return
	}
	arr.COWWrite(node, value)
}

// Get reads node's value as observed at level.
func (p *NodeProperty[T]) Get(level levels.ID, node int) (T, bool) {
	arr := p.levels.LevelAt(level)
	if arr == nil || node < 0 || node >= arr.Len() {
		var zero T
		return zero, false
	}
	return arr.Get(node), true
}

// AddAtomic performs a read-modify-write of node's value at level under a
// per-node stripe lock, serializing concurrent updates to the same node
// without a single global lock across the whole property.
func (p *NodeProperty[T]) AddAtomic(level levels.ID, node int, update func(T) T) {
	mu := &p.stripes[node%len(p.stripes)]
	mu.Lock()
	defer mu.Unlock()

	cur, _ := p.Get(level, node)
	p.Set(level, node, update(cur))
}

// Freeze finalizes level, forbidding further writes.
func (p *NodeProperty[T]) Freeze(level levels.ID) {
	arr := p.levels.LevelAt(level)
	if arr != nil {
		arr.Finalize()
	}
}

// KeepOnlyRecent drops every level older than the k most recent.
func (p *NodeProperty[T]) KeepOnlyRecent(k int) {
	p.levels.KeepOnlyRecent(k, func(_ levels.ID, arr *vpa.Array[T]) { arr.Drop() })
}
