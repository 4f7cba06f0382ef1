// Package levels implements the Level Collection: the ordered sequence of
// Versioned Page Arrays for one context (e.g. the vertex table of the
// out-edges MLCSR), indexed by level number.
package levels

import (
	"fmt"
	"sync"
)

// ID is a level index.
type ID uint64

// NilID marks "no level" (used as a previous-level sentinel at level 0).
const NilID ID = ^ID(0)

// IDScheme is the build-time choice between monotonically increasing level
// IDs and an ID space that wraps and reuses deleted slots. The two are
// never mixed within one Collection.
type IDScheme int

const (
	// Monotonic never reuses a level ID; NewLevel always returns the next
	// integer. Required when a persistent backing is configured.
	Monotonic IDScheme = iota
	// WrapWithMinLevel reuses the lowest deleted level slot at or above the
	// collection's minimum live level; slots below that level are never
	// reused. Incompatible with persistence.
	WrapWithMinLevel
)

// Collection holds an ordered, possibly-sparse sequence of levels of type
// L (typically *vpa.Array[T] or a small struct wrapping one).
type Collection[L any] struct {
	mu       sync.RWMutex
	scheme   IDScheme
	slots    []*L // nil slot = deleted level (a hole)
	minLevel ID   // lowest level index a caller may still query
}

// NewCollection creates an empty Collection using the given ID scheme.
func NewCollection[L any](scheme IDScheme) *Collection[L] {
	return &Collection[L]{scheme: scheme}
}

// NewLevel appends a new level slot (or, under WrapWithMinLevel, reuses the
// lowest deleted slot at or above minLevel) and returns its ID. The caller
// is responsible for constructing and installing the level value with Set.
func (c *Collection[L]) NewLevel() ID {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scheme == WrapWithMinLevel {
		for i := int(c.minLevel); i < len(c.slots); i++ {
			if c.slots[i] == nil {
				return ID(i)
			}
		}
	}
	id := ID(len(c.slots))
	c.slots = append(c.slots, nil)
	return id
}

// Set installs the level value for id, previously returned by NewLevel.
func (c *Collection[L]) Set(id ID, level *L) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.slots) {
		panic(fmt.Sprintf("levels: Set(%d) out of range (len=%d)", id, len(c.slots)))
	}
	c.slots[id] = level
}

// LevelAt returns the level at id, or nil if id is out of range or was
// deleted.
func (c *Collection[L]) LevelAt(id ID) *L {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id == NilID || int(id) >= len(c.slots) || int(id) < 0 {
		return nil
	}
	return c.slots[id]
}

// PreviousLevel returns id-1's level, or nil if id is 0 or out of range.
// It does not skip holes; see PrevLevelNoFail for that.
func (c *Collection[L]) PreviousLevel(id ID) *L {
	if id == 0 || id == NilID {
		return nil
	}
	return c.LevelAt(id - 1)
}

// PrevLevelNoFail walks backward from id-1 until it finds a non-hole level
// or falls below the collection's minimum live level, returning nil in the
// latter case.
func (c *Collection[L]) PrevLevelNoFail(id ID) (ID, *L) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id == 0 || id == NilID {
		return NilID, nil
	}
	for i := int(id) - 1; i >= int(c.minLevel); i-- {
		if c.slots[i] != nil {
			return ID(i), c.slots[i]
		}
	}
	return NilID, nil
}

// LatestLevel returns the highest non-hole level's ID and value, or
// (NilID, nil) if the collection is empty or every level has been deleted.
func (c *Collection[L]) LatestLevel() (ID, *L) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.slots) - 1; i >= 0; i-- {
		if c.slots[i] != nil {
			return ID(i), c.slots[i]
		}
	}
	return NilID, nil
}

// Len returns the number of level slots ever allocated, including holes.
func (c *Collection[L]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots)
}

// DeleteLevel removes the level at id, leaving a hole. The caller is
// responsible for releasing any resources (e.g. page references) the level
// held before calling this.
func (c *Collection[L]) DeleteLevel(id ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) < len(c.slots) {
		c.slots[id] = nil
	}
}

// KeepOnlyRecent deletes every level below latest-k+1, raising minLevel so
// that PrevLevelNoFail and WrapWithMinLevel reuse stop short of the
// retained window. drop is called for each level removed so the caller can
// release its resources.
func (c *Collection[L]) KeepOnlyRecent(k int, drop func(ID, *L)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k < 0 {
		k = 0
	}
	latest := -1
	for i := len(c.slots) - 1; i >= 0; i-- {
		if c.slots[i] != nil {
			latest = i
			break
		}
	}
	if latest < 0 {
		return
	}
	cutoff := latest - k + 1
	if cutoff < 0 {
		cutoff = 0
	}
	for i := 0; i < cutoff; i++ {
		if c.slots[i] != nil {
			if drop != nil {
				drop(ID(i), c.slots[i])
			}
			c.slots[i] = nil
		}
	}
	if ID(cutoff) > c.minLevel {
		c.minLevel = ID(cutoff)
	}
}

// MinLevel returns the lowest level index a caller may still query.
func (c *Collection[L]) MinLevel() ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.minLevel
}

// Scheme returns the collection's ID scheme.
func (c *Collection[L]) Scheme() IDScheme { return c.scheme }
