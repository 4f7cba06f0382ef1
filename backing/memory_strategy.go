package backing

import "sync"

// MemoryStrategy implements Strategy entirely in RAM: pages never touch
// disk, Sync and FinalizeRegion only update in-memory bookkeeping. It is
// the default for tests, the fixture package, and any deployment that does
// not need a persistent context.
type MemoryStrategy struct {
	mu       sync.Mutex
	pageSize int
	nextID   PageID
	pages    map[PageID][]byte
	free     []PageID
	chunks   *ChunkIndex
}

// NewMemoryStrategy creates an empty in-memory strategy.
func NewMemoryStrategy(pageSize int) *MemoryStrategy {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &MemoryStrategy{
		pageSize: pageSize,
		nextID:   1, // page 0 reserved, matching FileStrategy's superblock slot
		pages:    make(map[PageID][]byte),
		chunks:   NewChunkIndex(),
	}
}

func (m *MemoryStrategy) AllocatePage(owningLevel Level) (PageID, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pid PageID
	if n := len(m.free); n > 0 {
		pid = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		pid = m.nextID
		m.nextID++
	}
	buf := NewPage(m.pageSize, PageTypeData, pid, owningLevel)
	m.pages[pid] = buf
	return pid, buf
}

func (m *MemoryStrategy) ReadPage(id PageID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.pages[id]
	if !ok {
		return nil, ErrPageNotFound
	}
	return buf, nil
}

func (m *MemoryStrategy) WritePage(id PageID, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	SetPageCRC(buf)
	m.pages[id] = buf
	return nil
}

func (m *MemoryStrategy) FreePage(id PageID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
	m.free = append(m.free, id)
}

func (m *MemoryStrategy) FinalizeRegion(owningLevel Level, pageIDs []PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(pageIDs) == 0 {
		return nil
	}
	m.chunks.Add(ChunkDescriptor{OwningLevel: owningLevel, StartPageID: pageIDs[0], PageCount: uint32(len(pageIDs))})
	return nil
}

func (m *MemoryStrategy) ChunksForLevel(owningLevel Level) []ChunkDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chunks.ChunksForLevel(owningLevel)
}

func (m *MemoryStrategy) Sync() error { return nil }
func (m *MemoryStrategy) Close() error { return nil }
func (m *MemoryStrategy) PageSize() int { return m.pageSize }
