package mlcsr

import (
	"sort"

	"github.com/llama-mlcsr/llama/levels"
	"github.com/llama-mlcsr/llama/vpa"
)

// LevelBuilder drives the construction protocol for one new level: reserve
// space from per-node degree deltas, write each node's begin record, write
// the new edge payloads, then finalize both VPAs. A prefix-sum cursor is
// computed once in InitLevelFromDegrees so InitNode and WriteValue calls for
// different nodes touch disjoint edge-table ranges and can run in parallel.
type LevelBuilder struct {
	t     *Table
	level levels.ID
	n     int // node count N at this level

	prevLevel levels.ID
	prevArr   *vpa.Array[BeginRecord]
	prevN     int // node count at the previous level (excluding its sentinel)

	vertexArr *vpa.Array[BeginRecord]
	edgeArr   *vpa.Array[EdgeEntry]

	cursor       []uint64 // edge-table offset reserved for node n's new edges
	newEdgeCount []int
	deletedCount []int
}

// InitLevelFromDegrees reserves a new level for n nodes. newEdges[i] is the
// count of edges node i gains at this level; deletedEdges[i] (optional, may
// be nil) is the count it loses, used only for the precomputed degree delta
// when soft deletions are not modeled structurally.
func (t *Table) InitLevelFromDegrees(n int, newEdges []int, deletedEdges []int) *LevelBuilder {
	if len(newEdges) != n {
		panic("mlcsr: newEdges must have length n")
	}

	prevID, prevArr := t.vertexLevels.LatestLevel()
	prevN := 0
	if prevArr != nil {
		prevN = prevArr.Len() - 1 // exclude the sentinel slot
	}

	vLevel := t.vertexLevels.NewLevel()
	eLevel := t.edgeLevels.NewLevel()
	t.assertLockstep(vLevel, eLevel)
	level := vLevel

	vertexArr := vpa.NewArray[BeginRecord](t.vertexMgr)
	if prevArr == nil {
		vertexArr.DenseInit(n + 1)
	} else {
		vertexArr.COWInit(prevArr, n+1)
	}
	t.vertexLevels.Set(level, vertexArr)

	cursor := make([]uint64, n)
	var w uint64
	for i := 0; i < n; i++ {
		cursor[i] = w
		if newEdges[i] > 0 {
			w += uint64(newEdges[i])
			if t.cfg.Continuations && level > 0 {
				w += continuationSlots
			}
		}
	}

	edgeArr := vpa.NewArray[EdgeEntry](t.edgeMgr)
	edgeArr.DenseInit(int(w))
	t.edgeLevels.Set(level, edgeArr)

	return &LevelBuilder{
		t:            t,
		level:        level,
		n:            n,
		prevLevel:    prevID,
		prevArr:      prevArr,
		prevN:        prevN,
		vertexArr:    vertexArr,
		edgeArr:      edgeArr,
		cursor:       cursor,
		newEdgeCount: newEdges,
		deletedCount: deletedEdges,
	}
}

// Level returns the ID of the level under construction.
func (lb *LevelBuilder) Level() levels.ID { return lb.level }

// Capacity returns the total edge-table capacity reserved for this level
// (new edges across all nodes plus any continuation records), for callers
// that need to size a parallel per-edge structure (e.g. an edge property).
func (lb *LevelBuilder) Capacity() int { return lb.edgeArr.Len() }

// EdgeIDFor returns the edge ID that WriteValue(n, i, ...) writes to,
// without requiring the caller to track cursor arithmetic itself.
func (lb *LevelBuilder) EdgeIDFor(n, i int) EdgeID {
	return EncodeEdgeID(lb.level, lb.cursor[n]+uint64(i))
}

// InitNode computes and writes node n's begin record, covering the four
// cases: brand new with no edges, gains edges this level, inherits an
// unchanged adjacency list, or never had and still has no edges.
func (lb *LevelBuilder) InitNode(n int) {
	newCount := lb.newEdgeCount[n]
	delCount := 0
	if lb.deletedCount != nil {
		delCount = lb.deletedCount[n]
	}
	hasPrev := lb.prevArr != nil && n < lb.prevN
	var prevBegin BeginRecord
	if hasPrev {
		prevBegin = lb.prevArr.Get(n)
	}

	var begin BeginRecord
	switch {
	case newCount > 0:
		start := lb.cursor[n]
		begin.AdjListStart = EncodeEdgeID(lb.level, start)
		begin.LevelLength = uint32(newCount)
	case hasPrev:
		begin = prevBegin
	default:
		begin = NilBeginRecord
	}

	if lb.t.cfg.PrecomputedDegree {
		prevDegree := int64(0)
		if hasPrev {
			prevDegree = int64(prevBegin.Degree)
		}
		deg := prevDegree + int64(newCount) - int64(delCount)
		if deg < 0 {
			deg = 0
		}
		begin.Degree = uint64(deg)
		if begin.Degree == 0 {
			begin.AdjListStart = NilEdgeID
			begin.LevelLength = 0
		}
	}

	lb.writeBegin(n, begin)

	if lb.t.cfg.Continuations && lb.level > 0 && newCount > 0 {
		pbeg := NilBeginRecord
		if hasPrev {
			pbeg = prevBegin
		}
		slots := encodeContinuation(pbeg)
		contIdx := int(lb.cursor[n]) + newCount
		lb.edgeArr.DenseWrite(contIdx, slots[0])
		lb.edgeArr.DenseWrite(contIdx+1, slots[1])
	}
}

// writeBegin installs begin at vertex-table index i, taking the dense or
// COW write path as appropriate and skipping the write entirely when the
// value already matches what COWInit exposed (preserving page sharing with
// the previous level for untouched nodes).
func (lb *LevelBuilder) writeBegin(i int, begin BeginRecord) {
	if lb.level == 0 {
		lb.vertexArr.DenseWrite(i, begin)
		return
	}
	if lb.vertexArr.Get(i) == begin {
		return
	}
	lb.vertexArr.COWWrite(i, begin)
}

// WriteValue writes neighbor as the i-th new edge of node n (0-indexed
// within that node's reservation for this level).
func (lb *LevelBuilder) WriteValue(n int, i int, neighbor NodeID) {
	if i < 0 || i >= lb.newEdgeCount[n] {
		panic("mlcsr: edge index out of reserved range for node")
	}
	idx := int(lb.cursor[n]) + i
	lb.edgeArr.DenseWrite(idx, NewEdgeEntry(neighbor))
}

// WriteValues writes all of node n's new edges at once.
func (lb *LevelBuilder) WriteValues(n int, neighbors []NodeID) {
	for i, nb := range neighbors {
		lb.WriteValue(n, i, nb)
	}
}

// FinishLevelVertices writes the sentinel begin record at index n and
// finalizes the vertex-table VPA.
func (lb *LevelBuilder) FinishLevelVertices() {
	lb.writeBegin(lb.n, NilBeginRecord)
	lb.vertexArr.Finalize()
}

// FinishLevelEdges optionally sorts each node's new-edge run by neighbor ID,
// then finalizes the edge-table VPA.
func (lb *LevelBuilder) FinishLevelEdges() {
	if lb.t.cfg.SortEdges {
		for n := 0; n < lb.n; n++ {
			cnt := lb.newEdgeCount[n]
			if cnt < 2 {
				continue
			}
			start := int(lb.cursor[n])
			vals := make([]EdgeEntry, cnt)
			for i := 0; i < cnt; i++ {
				vals[i] = lb.edgeArr.Get(start + i)
			}
			sort.Slice(vals, func(a, b int) bool { return vals[a].Neighbor < vals[b].Neighbor })
			for i := 0; i < cnt; i++ {
				lb.edgeArr.DenseWrite(start+i, vals[i])
			}
		}
	}
	lb.edgeArr.Finalize()
}
