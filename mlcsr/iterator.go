package mlcsr

import "github.com/llama-mlcsr/llama/levels"

// Iterator walks a node's edges at a fixed view level, descending into
// older levels on exhaustion of the current level's run (descend-on-exhaust).
// With continuation records enabled each descent is an O(1)
// inline read; without them it consults the previous level's vertex table.
type Iterator struct {
	t         *Table
	node      NodeID
	viewLevel levels.ID

	runLevel    levels.ID
	runStart    EdgeID
	runLen      uint32
	offsetInRun uint32

	exhausted bool
}

// IterBegin starts an iterator over node n's edges as observed at
// viewLevel.
func (t *Table) IterBegin(n NodeID, viewLevel levels.ID) *Iterator {
	it := &Iterator{t: t, node: n, viewLevel: viewLevel}
	if !it.seatAtLevel(viewLevel) {
		it.exhausted = true
	}
	return it
}

// seatAtLevel finds the first level at or below level holding a non-empty
// edge run for the iterator's node, positioning runLevel/runStart/runLen at
// it. It decodes the run's true owner from the begin record's AdjListStart
// (which, for an inherited record, already names the level that actually
// holds the edges) rather than walking level by level when continuations
// are disabled only at seek time.
func (it *Iterator) seatAtLevel(level levels.ID) bool {
	minLvl := it.t.vertexLevels.MinLevel()
	for {
		if level == levels.NilID || level < minLvl {
			return false
		}
		arr := it.t.vertexLevels.LevelAt(level)
		if arr == nil || it.node < 0 || int64(it.node) >= int64(arr.Len()) {
			if level == 0 {
				return false
			}
			level--
			continue
		}
		begin := arr.Get(int(it.node))
		if begin.AdjListStart.IsNil() {
			if level == 0 {
				return false
			}
			level--
			continue
		}
		ownerLevel := begin.AdjListStart.Level()
		ownerLen := begin.LevelLength
		if ownerLevel != level {
			ownerArr := it.t.vertexLevels.LevelAt(ownerLevel)
			if ownerArr == nil || int64(it.node) >= int64(ownerArr.Len()) {
				return false
			}
			ownerLen = ownerArr.Get(int(it.node)).LevelLength
		}
		it.runLevel = ownerLevel
		it.runStart = begin.AdjListStart
		it.runLen = ownerLen
		it.offsetInRun = 0
		return true
	}
}

// descendNext moves to the next older level's run once the current run is
// exhausted, using the inline continuation record when configured or a
// fresh vertex-table lookup otherwise.
func (it *Iterator) descendNext() {
	if it.t.cfg.Continuations {
		if it.runLevel == 0 || it.runLen == 0 {
			it.exhausted = true
			return
		}
		contStart := EncodeEdgeID(it.runLevel, it.runStart.Index()+uint64(it.runLen))
		slots, ok := it.t.readContinuation(contStart)
		if !ok {
			it.exhausted = true
			return
		}
		decoded := decodeContinuation(slots)
		if decoded.AdjListStart.IsNil() {
			it.exhausted = true
			return
		}
		it.runLevel = decoded.AdjListStart.Level()
		it.runStart = decoded.AdjListStart
		it.runLen = decoded.LevelLength
		it.offsetInRun = 0
		return
	}
	if it.runLevel == 0 {
		it.exhausted = true
		return
	}
	if !it.seatAtLevel(it.runLevel - 1) {
		it.exhausted = true
	}
}

// Next returns the next edge ID and true, or (NilEdgeID, false) once the
// descent chain is exhausted. Soft-deleted edges not visible at the
// iterator's view level are skipped transparently.
func (it *Iterator) Next() (EdgeID, bool) {
	for {
		if it.exhausted {
			return NilEdgeID, false
		}
		if it.offsetInRun >= it.runLen {
			it.descendNext()
			continue
		}
		candidate := EncodeEdgeID(it.runLevel, it.runStart.Index()+uint64(it.offsetInRun))
		it.offsetInRun++
		if it.t.cfg.SoftDeletions {
			entry := it.t.edgeAt(candidate)
			if !entry.VisibleAt(it.viewLevel) {
				continue
			}
		}
		return candidate, true
	}
}

// InLevelIterator walks only the edges a node gained at one exact level,
// never descending into older levels. Used to build reverse-edge tables
// from a level's own contribution.
type InLevelIterator struct {
	start EdgeID
	len   uint32
	pos   uint32
}

// InLevelIterBegin starts an iterator over node n's edges newly added at
// exactly level (not inherited), used by reverse-edge construction.
func (t *Table) InLevelIterBegin(n NodeID, level levels.ID) *InLevelIterator {
	begin := t.beginAt(level, n)
	if begin.AdjListStart.IsNil() || begin.AdjListStart.Level() != level {
		return &InLevelIterator{}
	}
	return &InLevelIterator{start: begin.AdjListStart, len: begin.LevelLength}
}

// Next returns the next edge ID new at this level, or (NilEdgeID, false).
func (it *InLevelIterator) Next() (EdgeID, bool) {
	if it.pos >= it.len {
		return NilEdgeID, false
	}
	e := EncodeEdgeID(it.start.Level(), it.start.Index()+uint64(it.pos))
	it.pos++
	return e, true
}
