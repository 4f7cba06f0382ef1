// Package vpa implements the Versioned Page Array: a logical array of T
// chunked into fixed-size pages obtained from a page.Manager, supporting
// dense initialization, copy-on-write initialization from a previous level,
// per-element copy-on-write writes, finalization, and a modified-node scan
// that uses page identity to skip unchanged regions.
package vpa

import (
	"fmt"
	"sync/atomic"

	"github.com/llama-mlcsr/llama/page"
)

// State is a VPA level's lifecycle stage.
type State int

const (
	Uninit State = iota
	InitializingDense
	InitializingCOW
	Finalized
	Dropped
)

func (s State) String() string {
	switch s {
	case Uninit:
		return "Uninit"
	case InitializingDense:
		return "Initializing(Dense)"
	case InitializingCOW:
		return "Initializing(COW)"
	case Finalized:
		return "Finalized"
	case Dropped:
		return "Dropped"
	default:
		return "Unknown"
	}
}

// spinLock is a minimal test-and-test-and-set spin lock, used for the
// per-array cow slow path rather than a blocking mutex: the critical
// section is a handful of instructions (allocate, copy, store pointer) and
// contention is expected to be rare and brief.
type spinLock struct {
	held atomic.Bool
}

func (s *spinLock) Lock() {
	for !s.held.CompareAndSwap(false, true) {
		// busy-wait; the critical section is always short
	}
}

func (s *spinLock) Unlock() {
	s.held.Store(false)
}

// Array is one level's Versioned Page Array of T.
type Array[T any] struct {
	mgr      *page.Manager[T]
	pageSize int

	length   int
	pointers []*page.Page[T]
	ids      []page.ID
	owned    []bool // true if this level exclusively owns the page at that slot

	prev *Array[T] // previous level, or nil for level 0

	state         State
	cowLock       spinLock
	modifiedPages atomic.Int64
}

// NewArray creates an array bound to mgr, not yet initialized. Call
// DenseInit or COWInit before any read or write.
func NewArray[T any](mgr *page.Manager[T]) *Array[T] {
	return &Array[T]{mgr: mgr, pageSize: mgr.PageSize(), state: Uninit}
}

func (a *Array[T]) numPages(length int) int {
	if length == 0 {
		return 0
	}
	return (length + a.pageSize - 1) / a.pageSize
}

func (a *Array[T]) pageIndex(i int) (pageIdx, offset int) {
	return i / a.pageSize, i % a.pageSize
}

// Len returns the array's current logical length.
func (a *Array[T]) Len() int { return a.length }

// State returns the array's lifecycle stage.
func (a *Array[T]) State() State { return a.state }

// DenseInit allocates a fresh page for every logical page, zeroed. Legal
// only for a level with no predecessor, or when the caller guarantees a
// full rewrite.
func (a *Array[T]) DenseInit(length int) {
	if a.state != Uninit {
		panic(fmt.Sprintf("vpa: DenseInit called in state %s", a.state))
	}
	a.state = InitializingDense
	a.length = length
	n := a.numPages(length)
	a.pointers = make([]*page.Page[T], n)
	a.ids = make([]page.ID, n)
	a.owned = make([]bool, n)
	a.mgr.Allocate(a.pointers, a.ids, n)
	for i := range a.owned {
		a.owned[i] = true
	}
}

// COWInit points every page slot at the corresponding page of prev,
// acquiring a reference on each, and extends any indices beyond prev's
// length with references to the shared zero page. No page is copied or
// modified; the "modified pages" counter starts at 0.
func (a *Array[T]) COWInit(prev *Array[T], length int) {
	if a.state != Uninit {
		panic(fmt.Sprintf("vpa: COWInit called in state %s", a.state))
	}
	a.state = InitializingCOW
	a.length = length
	a.prev = prev
	n := a.numPages(length)
	a.pointers = make([]*page.Page[T], n)
	a.ids = make([]page.ID, n)
	a.owned = make([]bool, n)

	prevPages := 0
	if prev != nil {
		prevPages = len(prev.ids)
	}
	acquireIDs := make([]page.ID, 0, n)
	for i := 0; i < n; i++ {
		if i < prevPages {
			a.ids[i] = prev.ids[i]
			a.pointers[i] = prev.pointers[i]
			acquireIDs = append(acquireIDs, prev.ids[i])
		} else {
			a.ids[i] = page.NilID
			a.pointers[i] = a.mgr.ZeroPage()
		}
	}
	if len(acquireIDs) > 0 {
		a.mgr.Acquire(acquireIDs)
	}
}

// Get reads the value at logical index i without synchronization; safe
// because writes either happen before Finalize (no concurrent readers) or
// not at all.
func (a *Array[T]) Get(i int) T {
	pageIdx, offset := a.pageIndex(i)
	return a.pointers[pageIdx].Data()[offset]
}

// DenseWrite stores v at i unconditionally. Legal only while the array is
// in InitializingDense state (every page is already exclusively owned).
func (a *Array[T]) DenseWrite(i int, v T) {
	if a.state != InitializingDense {
		panic(fmt.Sprintf("vpa: DenseWrite called in state %s", a.state))
	}
	pageIdx, offset := a.pageIndex(i)
	a.pointers[pageIdx].Data()[offset] = v
}

// COWWrite stores v at logical index i, copying the owning page on first
// write during this level's construction. Fast path: the page is already
// exclusively owned by this level (refcount 1) and the store happens in
// place. Slow path: the cow spin lock is acquired, the check is repeated,
// and if still shared, a new page is allocated via the page manager, its
// contents copied, and the reservation recorded as owned.
func (a *Array[T]) COWWrite(i int, v T) {
	if a.state != InitializingCOW && a.state != InitializingDense {
		panic(fmt.Sprintf("vpa: COWWrite called in state %s", a.state))
	}
	pageIdx, offset := a.pageIndex(i)

	if a.owned[pageIdx] && a.mgr.Refcount(a.ids[pageIdx]) == 1 {
		a.pointers[pageIdx].Data()[offset] = v
		return
	}

	a.cowLock.Lock()
	defer a.cowLock.Unlock()

	if a.owned[pageIdx] && a.mgr.Refcount(a.ids[pageIdx]) == 1 {
		a.pointers[pageIdx].Data()[offset] = v
		return
	}

	newID, newPage := a.mgr.COW(a.pointers[pageIdx])
	a.ids[pageIdx] = newID
	a.pointers[pageIdx] = newPage
	a.owned[pageIdx] = true
	a.modifiedPages.Add(1)
	newPage.Data()[offset] = v
}

// Finalize marks the level immutable. Subsequent writes panic.
func (a *Array[T]) Finalize() {
	if a.state == Finalized {
		return
	}
	if a.state != InitializingDense && a.state != InitializingCOW {
		panic(fmt.Sprintf("vpa: Finalize called in state %s", a.state))
	}
	a.state = Finalized
}

// Shrink narrows the logical length. Legal only before Finalize.
func (a *Array[T]) Shrink(newLength int) {
	if a.state == Finalized || a.state == Dropped {
		panic(fmt.Sprintf("vpa: Shrink called in state %s", a.state))
	}
	if newLength > a.length {
		panic("vpa: Shrink cannot grow the array")
	}
	a.length = newLength
	n := a.numPages(newLength)
	a.pointers = a.pointers[:n]
	a.ids = a.ids[:n]
	a.owned = a.owned[:n]
}

// ModifiedPages returns the count of pages this level had to copy during
// construction (0 for a dense-initialized level or an untouched COW level).
func (a *Array[T]) ModifiedPages() int64 { return a.modifiedPages.Load() }

// PageIDs returns the page-ID table, for persistence and inspection.
func (a *Array[T]) PageIDs() []page.ID {
	out := make([]page.ID, len(a.ids))
	copy(out, a.ids)
	return out
}

// UnsafeMutate applies fn to the value at index i in place, bypassing the
// normal finalize/state protection. It exists for exactly one documented
// exception to "finalized levels never mutate": lowering an edge's
// soft-deletion max-visible-level after the level has been finalized.
// Callers are responsible for their own synchronization (a stripe lock
// keyed by i, typically) and for only ever narrowing the value.
func (a *Array[T]) UnsafeMutate(i int, fn func(*T)) {
	pageIdx, offset := a.pageIndex(i)
	fn(&a.pointers[pageIdx].Data()[offset])
}

// Drop releases this level's page references. Must not be called while any
// other level's COWInit still references these pages without having
// acquired its own reference — ordinarily called only once no later level
// holds page.NewArray-level references to any of these IDs anymore, i.e.
// when the level is removed from its levels.Collection.
func (a *Array[T]) Drop() {
	if a.state == Dropped {
		return
	}
	a.mgr.Release(a.ids)
	a.state = Dropped
}

// ModifiedNodeIter yields every index in [start, end) whose page pointer at
// this level differs from the corresponding page pointer at the previous
// level. This is a superset of "value actually changed" and a subset of
// "page differs" — never omits a changed index, but may yield indices
// whose value happens to be unchanged within a copied page.
type ModifiedNodeIter struct {
	a          *vpaArrayLike
	start, end int
	pageIdx    int
	cur        int
	pageEnd    int
	done       bool
}

// vpaArrayLike erases T so ModifiedNodeIter does not need a type parameter
// duplicated from Array; it only needs page-identity comparisons.
type vpaArrayLike struct {
	pageSize int
	ids      []page.ID
	prevIDs  []page.ID
}

// Iter returns a ModifiedNodeIter over [start, end) comparing this level's
// page IDs against prev's.
func (a *Array[T]) Iter(start, end int) *ModifiedNodeIter {
	var prevIDs []page.ID
	if a.prev != nil {
		prevIDs = a.prev.ids
	}
	it := &ModifiedNodeIter{
		a: &vpaArrayLike{
			pageSize: a.pageSize,
			ids:      a.ids,
			prevIDs:  prevIDs,
		},
		start: start,
		end:   end,
	}
	it.pageIdx, _ = a.pageIndex(start)
	it.cur = start
	it.seekPage()
	return it
}

func (it *ModifiedNodeIter) currentPageID() (this, prev page.ID) {
	if it.pageIdx < len(it.a.ids) {
		this = it.a.ids[it.pageIdx]
	}
	if it.pageIdx < len(it.a.prevIDs) {
		prev = it.a.prevIDs[it.pageIdx]
	}
	return
}

// seekPage advances pageIdx until it finds a page whose ID differs from the
// previous level's (or there are no more pages in range), then positions
// cur at the first in-range index of that page.
func (it *ModifiedNodeIter) seekPage() {
	for {
		pageStart := it.pageIdx * it.a.pageSize
		if pageStart >= it.end {
			it.done = true
			return
		}
		this, prev := it.currentPageID()
		if this != prev {
			it.pageEnd = pageStart + it.a.pageSize
			if it.pageEnd > it.end {
				it.pageEnd = it.end
			}
			if it.cur < pageStart {
				it.cur = pageStart
			}
			if it.cur < it.pageEnd {
				return
			}
		}
		it.pageIdx++
		it.cur = it.pageIdx * it.a.pageSize
		if it.cur < it.start {
			it.cur = it.start
		}
	}
}

// Next returns the next modified index and true, or (0, false) when
// exhausted.
func (it *ModifiedNodeIter) Next() (int, bool) {
	if it.done {
		return 0, false
	}
	if it.cur >= it.end {
		it.done = true
		return 0, false
	}
	v := it.cur
	it.cur++
	if it.cur >= it.pageEnd {
		it.pageIdx++
		it.cur = it.pageIdx * it.a.pageSize
		if it.cur < it.start {
			it.cur = it.start
		}
		it.seekPage()
	}
	return v, true
}
