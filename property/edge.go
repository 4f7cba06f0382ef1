package property

import (
	"sync"

	"github.com/llama-mlcsr/llama/levels"
	"github.com/llama-mlcsr/llama/mlcsr"
	"github.com/llama-mlcsr/llama/page"
	"github.com/llama-mlcsr/llama/vpa"
)

// EdgeProperty is a 2-D per-edge scalar: the outer dimension is the graph
// level an edge was created at, the inner dimension is that edge's
// in-level index. Reading property_of(e) decodes level(e), index(e) and
// looks up the inner VPA directly — no descent, since an edge's property
// always lives at the level the edge itself was written.
type EdgeProperty[T any] struct {
	mgr *page.Manager[T]

	mu       sync.RWMutex
	perLevel map[levels.ID]*vpa.Array[T]
}

// NewEdgeProperty creates an empty edge property using pageSize-entry VPA
// pages.
func NewEdgeProperty[T any](pageSize int) *EdgeProperty[T] {
	return &EdgeProperty[T]{
		mgr:      page.NewManager[T](pageSize),
		perLevel: make(map[levels.ID]*vpa.Array[T]),
	}
}

// InitLevel dense-initializes a fresh inner VPA for level, sized to that
// level's edge-table capacity. Edge property levels are never copy-on-write
// initialized from a predecessor: each graph level's edge table is itself a
// fresh allocation, and so is its property array.
func (ep *EdgeProperty[T]) InitLevel(level levels.ID, capacity int) *vpa.Array[T] {
	arr := vpa.NewArray[T](ep.mgr)
	arr.DenseInit(capacity)
	ep.mu.Lock()
	ep.perLevel[level] = arr
	ep.mu.Unlock()
	return arr
}

func (ep *EdgeProperty[T]) arrAt(level levels.ID) *vpa.Array[T] {
	ep.mu.RLock()
	defer ep.mu.RUnlock()
	return ep.perLevel[level]
}

// Set writes an edge's property value. Legal only while e's level is still
// under construction.
func (ep *EdgeProperty[T]) Set(e mlcsr.EdgeID, value T) {
	arr := ep.arrAt(e.Level())
	if arr == nil {
		return
	}
	arr.DenseWrite(int(e.Index()), value)
}

// Of reads the property value recorded for edge e.
func (ep *EdgeProperty[T]) Of(e mlcsr.EdgeID) (T, bool) {
	arr := ep.arrAt(e.Level())
	if arr == nil || int(e.Index()) >= arr.Len() {
		var zero T
		return zero, false
	}
	return arr.Get(int(e.Index())), true
}

// Finish finalizes level's inner VPA.
func (ep *EdgeProperty[T]) Finish(level levels.ID) {
	arr := ep.arrAt(level)
	if arr != nil {
		arr.Finalize()
	}
}

// DropLevel releases level's pages and forgets it, used during retention
// trimming (graphstore.Graph.KeepOnlyRecent).
func (ep *EdgeProperty[T]) DropLevel(level levels.ID) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if arr, ok := ep.perLevel[level]; ok {
		arr.Drop()
		delete(ep.perLevel, level)
	}
}
