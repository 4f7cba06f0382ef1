package mlcsr

import (
	"fmt"

	"github.com/llama-mlcsr/llama/levels"
	"github.com/llama-mlcsr/llama/page"
	"github.com/llama-mlcsr/llama/vpa"
)

// Table is the multi-level CSR structure for one edge direction: a
// level collection of vertex-table VPAs (begin records) paired with a
// level collection of edge-table VPAs (edge entries).
type Table struct {
	cfg Config

	vertexMgr *page.Manager[BeginRecord]
	edgeMgr   *page.Manager[EdgeEntry]

	vertexLevels *levels.Collection[vpa.Array[BeginRecord]]
	edgeLevels   *levels.Collection[vpa.Array[EdgeEntry]]
}

// NewTable creates an empty Table under cfg.
func NewTable(cfg Config) *Table {
	if cfg.PageSize == 0 {
		cfg.PageSize = 512
	}
	scheme := cfg.LevelIDs
	return &Table{
		cfg:          cfg,
		vertexMgr:    page.NewManager[BeginRecord](cfg.PageSize),
		edgeMgr:      page.NewManager[EdgeEntry](cfg.PageSize),
		vertexLevels: levels.NewCollection[vpa.Array[BeginRecord]](scheme),
		edgeLevels:   levels.NewCollection[vpa.Array[EdgeEntry]](scheme),
	}
}

// Config returns the table's build-time feature set.
func (t *Table) Config() Config { return t.cfg }

// VertexLevels exposes the vertex-table level collection, e.g. for
// inspection tooling.
func (t *Table) VertexLevels() *levels.Collection[vpa.Array[BeginRecord]] {
	return t.vertexLevels
}

// EdgeLevels exposes the edge-table level collection.
func (t *Table) EdgeLevels() *levels.Collection[vpa.Array[EdgeEntry]] {
	return t.edgeLevels
}

// beginAt returns node n's begin record at level, or NilBeginRecord if the
// level is absent or the node did not yet exist there.
func (t *Table) beginAt(level levels.ID, n NodeID) BeginRecord {
	arr := t.vertexLevels.LevelAt(level)
	if arr == nil || n < 0 || int64(n) >= int64(arr.Len()) {
		return NilBeginRecord
	}
	return arr.Get(int(n))
}

// edgeAt returns the edge entry named by e, or the zero EdgeEntry if the
// level or index does not exist.
func (t *Table) edgeAt(e EdgeID) EdgeEntry {
	arr := t.edgeLevels.LevelAt(e.Level())
	if arr == nil || int(e.Index()) >= arr.Len() {
		return EdgeEntry{}
	}
	return arr.Get(int(e.Index()))
}

// readContinuation reads a packed continuation record starting at start,
// returning ok=false if the level or the required slots do not exist
// (meaning: there is no older level to descend into).
func (t *Table) readContinuation(start EdgeID) ([continuationSlots]EdgeEntry, bool) {
	arr := t.edgeLevels.LevelAt(start.Level())
	var out [continuationSlots]EdgeEntry
	if arr == nil {
		return out, false
	}
	idx := int(start.Index())
	if idx+continuationSlots > arr.Len() {
		return out, false
	}
	for i := 0; i < continuationSlots; i++ {
		out[i] = arr.Get(idx + i)
	}
	return out, true
}

// Degree returns node n's degree as observed at viewLevel. With
// PrecomputedDegree and without SoftDeletions it is an O(1) field read; the
// general case sums level_length over every level from viewLevel down to
// the collection's minimum live level (level 0 until levels are dropped),
// which is exactly the definition of degree (testable property 1).
func (t *Table) Degree(viewLevel levels.ID, n NodeID) uint64 {
	if t.cfg.PrecomputedDegree && !t.cfg.SoftDeletions {
		return t.beginAt(viewLevel, n).Degree
	}
	var total uint64
	min := t.vertexLevels.MinLevel()
	for level := viewLevel; ; {
		if level < min {
			break
		}
		arr := t.vertexLevels.LevelAt(level)
		if arr != nil && n >= 0 && int64(n) < int64(arr.Len()) {
			begin := arr.Get(int(n))
			if !begin.AdjListStart.IsNil() && begin.AdjListStart.Level() == level {
				total += uint64(begin.LevelLength)
			}
		}
		if level == 0 {
			break
		}
		level--
	}
	return total
}

// Find performs a linear search over n's edges at viewLevel for an edge
// whose neighbor equals target, returning NilEdgeID if not found.
func (t *Table) Find(n NodeID, viewLevel levels.ID, target NodeID) EdgeID {
	it := t.IterBegin(n, viewLevel)
	for {
		e, ok := it.Next()
		if !ok {
			return NilEdgeID
		}
		if t.edgeAt(e).Neighbor == target {
			return e
		}
	}
}

// UpdateMaxVisibleLevelLowerOnly lowers edge e's MaxVisibleLevel to newLevel
// if newLevel is strictly lower than the current value (soft deletion is
// the one mutation finalized levels permit). It is a no-op if SoftDeletions
// is not configured, or if e is not currently visible-lowerable.
func (t *Table) UpdateMaxVisibleLevelLowerOnly(e EdgeID, newLevel levels.ID) bool {
	if !t.cfg.SoftDeletions {
		return false
	}
	arr := t.edgeLevels.LevelAt(e.Level())
	if arr == nil || int(e.Index()) >= arr.Len() {
		return false
	}
	lowered := false
	arr.UnsafeMutate(int(e.Index()), func(entry *EdgeEntry) {
		if newLevel < entry.MaxVisibleLevel {
			entry.MaxVisibleLevel = newLevel
			lowered = true
		}
	})
	return lowered
}

// KeepOnlyRecent drops every level older than the k most recent, releasing
// their pages, and returns the IDs it dropped. The vertex and edge level
// collections are always grown in lockstep (see LevelBuilder), so dropping
// by the same k keeps them aligned; the returned IDs let a caller (e.g.
// graphstore.Graph) drop matching levels in any per-level structure keyed
// the same way, such as an edge property or the edge-translation map.
func (t *Table) KeepOnlyRecent(k int) []levels.ID {
	var dropped []levels.ID
	t.vertexLevels.KeepOnlyRecent(k, func(id levels.ID, arr *vpa.Array[BeginRecord]) {
		arr.Drop()
		dropped = append(dropped, id)
	})
	t.edgeLevels.KeepOnlyRecent(k, func(_ levels.ID, arr *vpa.Array[EdgeEntry]) { arr.Drop() })
	return dropped
}

// assertLockstep panics if the vertex and edge level collections have
// drifted out of sync, which would indicate a builder bug.
func (t *Table) assertLockstep(vLevel, eLevel levels.ID) {
	if vLevel != eLevel {
		panic(fmt.Sprintf("mlcsr: vertex/edge level collections out of sync: %d vs %d", vLevel, eLevel))
	}
}
