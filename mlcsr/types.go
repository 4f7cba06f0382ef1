// Package mlcsr implements the multi-level CSR core for one edge direction:
// a per-level vertex table of begin records plus a per-level edge table of
// neighbor entries, level construction, cross-level descending iteration,
// and degree queries.
package mlcsr

import (
	"github.com/llama-mlcsr/llama/levels"
)

// NodeID is a node identifier. Node IDs are contiguous 0..N-1 per level.
type NodeID int64

// NilNode marks "no node".
const NilNode NodeID = -1

// EdgeID packs a level index into the high bits and an in-level edge index
// into the low bits of a single integer.
type EdgeID uint64

// NilEdgeID marks "no edge": all bits set.
const NilEdgeID EdgeID = ^EdgeID(0)

// levelBits is wide enough that a level index never collides with
// the in-level index space in practice (2^24 levels, 2^40 edges per level).
const (
	levelBits = 24
	indexBits = 64 - levelBits
	indexMask = (uint64(1) << indexBits) - 1
)

// EncodeEdgeID packs level and index into one EdgeID.
func EncodeEdgeID(level levels.ID, index uint64) EdgeID {
	if index > indexMask {
		panic("mlcsr: edge index overflows the in-level index field")
	}
	return EdgeID((uint64(level) << indexBits) | index)
}

// Level returns the encoded level index.
func (e EdgeID) Level() levels.ID {
	return levels.ID(uint64(e) >> indexBits)
}

// Index returns the encoded in-level index.
func (e EdgeID) Index() uint64 {
	return uint64(e) & indexMask
}

// IsNil reports whether e is the NIL edge.
func (e EdgeID) IsNil() bool { return e == NilEdgeID }

// BeginRecord is the per-node, per-level metadata naming where that node's
// new edges live in this level, plus its precomputed cumulative degree
// (meaningful only when Config.PrecomputedDegree is set).
type BeginRecord struct {
	AdjListStart EdgeID
	LevelLength  uint32
	Degree       uint64
}

// NilBeginRecord is the begin record for a node with no edges anywhere.
var NilBeginRecord = BeginRecord{AdjListStart: NilEdgeID}

// neverDeleted is the MaxVisibleLevel value meaning "not deleted": every
// view level sees the edge, since no real level index reaches this value.
const neverDeleted = ^levels.ID(0)

// EdgeEntry is one edge-table slot: a neighbor node ID, plus (only
// meaningful when Config.SoftDeletions is set) the highest level at which
// the edge is still observable.
type EdgeEntry struct {
	Neighbor         NodeID
	MaxVisibleLevel  levels.ID
}

// NewEdgeEntry builds an edge entry that is visible at every level.
func NewEdgeEntry(neighbor NodeID) EdgeEntry {
	return EdgeEntry{Neighbor: neighbor, MaxVisibleLevel: neverDeleted}
}

// VisibleAt reports whether the entry is observable at viewLevel.
func (e EdgeEntry) VisibleAt(viewLevel levels.ID) bool {
	return e.MaxVisibleLevel >= viewLevel
}

// continuationSlots is how many EdgeEntry-sized slots a packed continuation
// record (a full previous-level BeginRecord written inline into the edge
// table) occupies: 3 uint64-sized fields packed into 2 sixteen-byte slots.
const continuationSlots = 2

func encodeContinuation(b BeginRecord) [continuationSlots]EdgeEntry {
	var out [continuationSlots]EdgeEntry
	out[0] = EdgeEntry{Neighbor: NodeID(b.AdjListStart), MaxVisibleLevel: levels.ID(b.LevelLength)}
	out[1] = EdgeEntry{Neighbor: NodeID(b.Degree), MaxVisibleLevel: 0}
	return out
}

func decodeContinuation(slots [continuationSlots]EdgeEntry) BeginRecord {
	return BeginRecord{
		AdjListStart: EdgeID(slots[0].Neighbor),
		LevelLength:  uint32(slots[0].MaxVisibleLevel),
		Degree:       uint64(slots[1].Neighbor),
	}
}

// Config is the build-time feature set for one Table: the backing strategy
// lives in package backing, this is the feature half.
type Config struct {
	PageSize          int            // VPA page size in entries, a power of two
	PrecomputedDegree bool           // maintain BeginRecord.Degree
	Continuations     bool           // write inline continuation records
	SoftDeletions     bool           // honor EdgeEntry.MaxVisibleLevel
	SortEdges         bool           // sort each node's new-edge run at FinishLevelEdges
	LevelIDs          levels.IDScheme // Monotonic (default) or WrapWithMinLevel; never mixed within one table
}

// DefaultConfig returns the feature set used when a caller has no special
// requirements: precomputed degree and continuations on (the common,
// fast-iteration configuration), soft deletions and sorting off.
func DefaultConfig() Config {
	return Config{
		PageSize:          512,
		PrecomputedDegree: true,
		Continuations:     true,
	}
}
