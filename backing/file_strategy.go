package backing

import (
	"fmt"
	"os"
	"sync"
)

// ───────────────────────────────────────────────────────────────────────────
// PageBackingStrategy capability
// ───────────────────────────────────────────────────────────────────────────
//
// Strategy is the abstraction the page manager and versioned page arrays are
// built against: allocate a page, read it back, cow-write it, and once a
// level is fully built, finalize the region of pages it occupies so a
// reopen can find them again. Levels are immutable once finalized, so a
// strategy needs no undo log — there is nothing to roll back, only pages
// to free when a level is dropped.
type Strategy interface {
	// AllocatePage returns a fresh zeroed page tagged with owningLevel and
	// pins it in any page cache the strategy keeps.
	AllocatePage(owningLevel Level) (PageID, []byte)

	// ReadPage returns the current bytes of a page, verifying its checksum.
	ReadPage(id PageID) ([]byte, error)

	// WritePage persists an updated page image (the COW slow path writes
	// through this once it has copied into a freshly allocated page).
	WritePage(id PageID, buf []byte) error

	// FreePage returns a page to the free list once its refcount drops to
	// zero.
	FreePage(id PageID)

	// FinalizeRegion records that the given pages, in order, belong to
	// owningLevel, so that Sync persists a chunk descriptor for them.
	FinalizeRegion(owningLevel Level, pageIDs []PageID) error

	// ChunksForLevel returns the finalized chunk descriptors for a level,
	// or nil if the level was never finalized by this strategy.
	ChunksForLevel(owningLevel Level) []ChunkDescriptor

	// Sync flushes all pending writes to stable storage.
	Sync() error

	// Close flushes and releases any underlying resources.
	Close() error

	PageSize() int
}

// ───────────────────────────────────────────────────────────────────────────
// In-memory page cache shared by FileStrategy
// ───────────────────────────────────────────────────────────────────────────

// pageFrame is a cached page image.
type pageFrame struct {
	id    PageID
	buf   []byte
	dirty bool
	prev  *pageFrame
	next  *pageFrame
}

// pageCache is an LRU page cache with dirty-page tracking, a simplified
// buffer pool with no pin-count discipline: readers here get
// an independent copy-free view and the cache only protects against
// redundant disk reads, not concurrent mutation (that is the page manager's
// job one layer up).
type pageCache struct {
	mu       sync.Mutex
	maxPages int
	pages    map[PageID]*pageFrame
	head     *pageFrame
	tail     *pageFrame
}

func newPageCache(maxPages int) *pageCache {
	if maxPages <= 0 {
		maxPages = 1024
	}
	return &pageCache{maxPages: maxPages, pages: make(map[PageID]*pageFrame, maxPages)}
}

func (c *pageCache) get(id PageID) (*pageFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.pages[id]
	if ok {
		c.moveToFront(f)
	}
	return f, ok
}

func (c *pageCache) put(f *pageFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.pages[f.id]; exists {
		c.moveToFront(f)
		return
	}
	for len(c.pages) >= c.maxPages {
		if !c.evictOne() {
			break
		}
	}
	c.pages[f.id] = f
	c.pushFront(f)
}

func (c *pageCache) remove(id PageID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.pages[id]
	if !ok {
		return
	}
	c.unlink(f)
	delete(c.pages, id)
}

func (c *pageCache) evictOne() bool {
	if c.tail == nil {
		return false
	}
	f := c.tail
	if f.dirty {
		return false // never silently drop a dirty page
	}
	c.unlink(f)
	delete(c.pages, f.id)
	return true
}

func (c *pageCache) dirtyPages() []*pageFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*pageFrame
	for _, f := range c.pages {
		if f.dirty {
			out = append(out, f)
		}
	}
	return out
}

func (c *pageCache) pushFront(f *pageFrame) {
	f.prev = nil
	f.next = c.head
	if c.head != nil {
		c.head.prev = f
	}
	c.head = f
	if c.tail == nil {
		c.tail = f
	}
}

func (c *pageCache) unlink(f *pageFrame) {
	if f.prev != nil {
		f.prev.next = f.next
	} else {
		c.head = f.next
	}
	if f.next != nil {
		f.next.prev = f.prev
	} else {
		c.tail = f.prev
	}
	f.prev, f.next = nil, nil
}

func (c *pageCache) moveToFront(f *pageFrame) {
	c.unlink(f)
	c.pushFront(f)
}

// ───────────────────────────────────────────────────────────────────────────
// FileStrategy
// ───────────────────────────────────────────────────────────────────────────

// FileConfig configures a FileStrategy.
type FileConfig struct {
	Path          string // path of the single multi-level context file
	ContextName   string
	PageSize      int
	MaxCachePages int // 0 = default 1024
}

// FileStrategy implements Strategy against one file on disk holding every
// level of one named context (one multi-level file per named
// context").
type FileStrategy struct {
	mu       sync.Mutex
	file     *os.File
	cache    *pageCache
	sb       *Superblock
	freeMgr  *FreeManager
	chunks   *ChunkIndex
	pageSize int
	path     string
	closed   bool
}

// OpenFileStrategy opens or creates a context file.
func OpenFileStrategy(cfg FileConfig) (*FileStrategy, error) {
	ps := cfg.PageSize
	if ps == 0 {
		ps = DefaultPageSize
	}
	if ps < MinPageSize || ps > MaxPageSize || ps&(ps-1) != 0 {
		return nil, fmt.Errorf("backing: invalid page size %d", ps)
	}
	if err := ValidateContextName(cfg.ContextName); err != nil {
		return nil, err
	}

	isNew := false
	if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
		isNew = true
	}

	f, err := os.OpenFile(cfg.Path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("backing: open context file: %w", err)
	}

	fs := &FileStrategy{
		file:     f,
		pageSize: ps,
		path:     cfg.Path,
		cache:    newPageCache(cfg.MaxCachePages),
		freeMgr:  NewFreeManager(),
		chunks:   NewChunkIndex(),
	}

	if isNew {
		sb := NewSuperblock(uint32(ps), cfg.ContextName)
		buf := MarshalSuperblock(sb, ps)
		if _, err := f.WriteAt(buf, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("backing: write superblock: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, err
		}
		fs.sb = sb
	} else {
		sb, err := fs.readSuperblock()
		if err != nil {
			f.Close()
			return nil, err
		}
		fs.sb = sb
		fs.pageSize = int(sb.PageSize)

		if sb.FreeListRoot != InvalidPageID {
			if err := fs.freeMgr.LoadFromDisk(sb.FreeListRoot, fs.readPageRaw); err != nil {
				f.Close()
				return nil, fmt.Errorf("backing: load free list: %w", err)
			}
		}
		if sb.ChunkDirRoot != InvalidPageID {
			if err := fs.chunks.LoadFromDisk(sb.ChunkDirRoot, fs.readPageRaw); err != nil {
				f.Close()
				return nil, fmt.Errorf("backing: load chunk directory: %w", err)
			}
		}
	}

	return fs, nil
}

func (fs *FileStrategy) readSuperblock() (*Superblock, error) {
	buf := make([]byte, fs.pageSize)
	if _, err := fs.file.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("backing: read superblock: %w", err)
	}
	return UnmarshalSuperblock(buf)
}

func (fs *FileStrategy) readPageRaw(id PageID) ([]byte, error) {
	buf := make([]byte, fs.pageSize)
	off := int64(id) * int64(fs.pageSize)
	if _, err := fs.file.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("backing: read page %d: %w", id, err)
	}
	if err := VerifyPageCRC(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (fs *FileStrategy) writePageRaw(id PageID, buf []byte) error {
	SetPageCRC(buf)
	off := int64(id) * int64(fs.pageSize)
	if _, err := fs.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("backing: write page %d: %w", id, err)
	}
	return nil
}

func (fs *FileStrategy) AllocatePage(owningLevel Level) (PageID, []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	pid := fs.freeMgr.Alloc()
	if pid == InvalidPageID {
		pid = fs.sb.NextPageID
		fs.sb.NextPageID++
		fs.sb.PageCount++
	}
	buf := NewPage(fs.pageSize, PageTypeData, pid, owningLevel)
	fs.cache.put(&pageFrame{id: pid, buf: buf, dirty: true})
	return pid, buf
}

func (fs *FileStrategy) ReadPage(id PageID) ([]byte, error) {
	if f, ok := fs.cache.get(id); ok {
		return f.buf, nil
	}
	buf, err := fs.readPageRaw(id)
	if err != nil {
		return nil, err
	}
	fs.cache.put(&pageFrame{id: id, buf: buf})
	return buf, nil
}

func (fs *FileStrategy) WritePage(id PageID, buf []byte) error {
	SetPageCRC(buf)
	if f, ok := fs.cache.get(id); ok {
		copy(f.buf, buf)
		f.dirty = true
		return nil
	}
	fs.cache.put(&pageFrame{id: id, buf: append([]byte{}, buf...), dirty: true})
	return nil
}

func (fs *FileStrategy) FreePage(id PageID) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.freeMgr.Free(id)
	fs.cache.remove(id)
}

func (fs *FileStrategy) FinalizeRegion(owningLevel Level, pageIDs []PageID) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(pageIDs) == 0 {
		return nil
	}
	fs.chunks.Add(ChunkDescriptor{
		OwningLevel: owningLevel,
		StartPageID: pageIDs[0],
		PageCount:   uint32(len(pageIDs)),
	})
	return nil
}

func (fs *FileStrategy) ChunksForLevel(owningLevel Level) []ChunkDescriptor {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.chunks.ChunksForLevel(owningLevel)
}

// Sync flushes dirty pages, the free list, the chunk directory, and an
// updated superblock to disk, then fsyncs the file.
func (fs *FileStrategy) Sync() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, f := range fs.cache.dirtyPages() {
		if err := fs.writePageRaw(f.id, f.buf); err != nil {
			return fmt.Errorf("backing: sync flush page %d: %w", f.id, err)
		}
		f.dirty = false
	}

	allocPage := func() (PageID, []byte) {
		pid := fs.sb.NextPageID
		fs.sb.NextPageID++
		fs.sb.PageCount++
		return pid, make([]byte, fs.pageSize)
	}

	flHead, flPages := fs.freeMgr.FlushToDisk(fs.pageSize, allocPage)
	for _, buf := range flPages {
		pid := PageID(UnmarshalHeader(buf).ID)
		if err := fs.writePageRaw(pid, buf); err != nil {
			return fmt.Errorf("backing: sync free list: %w", err)
		}
	}
	fs.sb.FreeListRoot = flHead

	cdHead, cdPages := fs.chunks.FlushToDisk(fs.pageSize, allocPage)
	for _, buf := range cdPages {
		pid := PageID(UnmarshalHeader(buf).ID)
		if err := fs.writePageRaw(pid, buf); err != nil {
			return fmt.Errorf("backing: sync chunk directory: %w", err)
		}
	}
	fs.sb.ChunkDirRoot = cdHead
	fs.sb.CheckpointSeq++

	sbBuf := MarshalSuperblock(fs.sb, fs.pageSize)
	if err := fs.writePageRaw(0, sbBuf); err != nil {
		return fmt.Errorf("backing: sync superblock: %w", err)
	}

	return fs.file.Sync()
}

func (fs *FileStrategy) Close() error {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	fs.closed = true
	fs.mu.Unlock()

	if err := fs.Sync(); err != nil {
		_ = fs.file.Close()
		return err
	}
	return fs.file.Close()
}

func (fs *FileStrategy) PageSize() int { return fs.pageSize }

// Path returns the context file's path on disk.
func (fs *FileStrategy) Path() string { return fs.path }

// Superblock returns a copy of the current superblock.
func (fs *FileStrategy) Superblock() Superblock {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return *fs.sb
}
