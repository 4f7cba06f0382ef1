// Package page implements the Page Manager: fixed-size, reference-counted
// pages of T, shared across levels of a Versioned Page Array, plus a
// designated zero page serving as the source for never-written regions.
package page

import (
	"sync"
	"sync/atomic"
)

// ID identifies a page within one Manager. Zero is reserved for the shared
// zero page and is never returned by Allocate or COW.
type ID uint32

// NilID is the null page reference.
const NilID ID = 0

// zeroPageRefcount is large enough that no realistic sequence of
// Acquire/Release calls on the zero page will ever drive it to zero; the
// zero page is never freed.
const zeroPageRefcount = 1 << 30

// Page is one fixed-size, reference-counted page of T.
type Page[T any] struct {
	id       ID
	data     []T
	refcount atomic.Int32
}

// ID returns the page's identifier.
func (p *Page[T]) ID() ID { return p.id }

// Data returns the page's backing slice. Callers holding a page obtained
// from the current owning level may write into it directly; callers
// sharing a page via COW-init must treat it as read-only.
func (p *Page[T]) Data() []T { return p.data }

// Refcount returns the current reference count.
func (p *Page[T]) Refcount() int32 { return p.refcount.Load() }

// Manager owns the set of live pages for one Versioned Page Array (or for
// several arrays storing the same element type that choose to share a
// manager) and services allocate/acquire/cow/release.
type Manager[T any] struct {
	mu       sync.Mutex
	pageSize int
	pages    map[ID]*Page[T]
	free     []ID
	nextID   ID
	zero     *Page[T]
}

// NewManager creates a Manager whose pages each hold pageSize elements of T.
func NewManager[T any](pageSize int) *Manager[T] {
	m := &Manager[T]{
		pageSize: pageSize,
		pages:    make(map[ID]*Page[T]),
		nextID:   1,
	}
	m.zero = &Page[T]{id: NilID, data: make([]T, pageSize)}
	m.zero.refcount.Store(zeroPageRefcount)
	m.pages[NilID] = m.zero
	return m
}

// PageSize returns the number of T elements per page.
func (m *Manager[T]) PageSize() int { return m.pageSize }

// ZeroPage returns the shared, read-only, all-zero-value page.
func (m *Manager[T]) ZeroPage() *Page[T] { return m.zero }

// allocID returns a free ID, reusing one from the free list when available.
// Caller must hold m.mu.
func (m *Manager[T]) allocID() ID {
	if n := len(m.free); n > 0 {
		id := m.free[n-1]
		m.free = m.free[:n-1]
		return id
	}
	id := m.nextID
	m.nextID++
	return id
}

// Allocate fills pointers and ids with count freshly allocated, ref-count-1
// pages, zeroed.
func (m *Manager[T]) Allocate(pointers []*Page[T], ids []ID, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < count; i++ {
		id := m.allocID()
		p := &Page[T]{id: id, data: make([]T, m.pageSize)}
		p.refcount.Store(1)
		m.pages[id] = p
		pointers[i] = p
		ids[i] = id
	}
}

// Acquire increments the reference count of each named page. Used when a
// new level's COW-init shares pages with its predecessor.
func (m *Manager[T]) Acquire(ids []ID) {
	m.mu.Lock()
	pages := make([]*Page[T], len(ids))
	for i, id := range ids {
		pages[i] = m.pages[id]
	}
	m.mu.Unlock()
	for _, p := range pages {
		if p != nil {
			p.refcount.Add(1)
		}
	}
}

// COW allocates a new page, copies old's contents into it, decrements old's
// reference count (returning it to the free list if it drops to zero), and
// returns the new page's ID and pointer. It never mutates old's data.
func (m *Manager[T]) COW(old *Page[T]) (ID, *Page[T]) {
	m.mu.Lock()
	id := m.allocID()
	np := &Page[T]{id: id, data: make([]T, m.pageSize)}
	copy(np.data, old.data)
	np.refcount.Store(1)
	m.pages[id] = np
	m.mu.Unlock()

	if old.id != NilID && old.refcount.Add(-1) == 0 {
		m.reclaim(old.id)
	}
	return id, np
}

// reclaim removes a page from the live set and returns its ID to the free
// list. Caller must not be holding m.mu.
func (m *Manager[T]) reclaim(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
	m.free = append(m.free, id)
}

// Release decrements the reference count of each named page, reclaiming
// any that drop to zero. NilID entries (the zero page) are ignored.
func (m *Manager[T]) Release(ids []ID) {
	for _, id := range ids {
		if id == NilID {
			continue
		}
		m.mu.Lock()
		p := m.pages[id]
		m.mu.Unlock()
		if p == nil {
			continue
		}
		if p.refcount.Add(-1) == 0 {
			m.reclaim(id)
		}
	}
}

// Refcount returns the current reference count of a page, or 0 if unknown.
func (m *Manager[T]) Refcount(id ID) int32 {
	m.mu.Lock()
	p := m.pages[id]
	m.mu.Unlock()
	if p == nil {
		return 0
	}
	return p.refcount.Load()
}

// Lookup returns the page for id, or nil if it is not currently live.
func (m *Manager[T]) Lookup(id ID) *Page[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[id]
}

// LiveCount returns the number of distinct pages currently tracked,
// including the zero page.
func (m *Manager[T]) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages)
}
