package backing

import (
	"encoding/binary"
)

// ───────────────────────────────────────────────────────────────────────────
// Chunk-directory pages
// ───────────────────────────────────────────────────────────────────────────
//
// A context file does not give each graph level its own physical file; all
// levels share one multi-level file, and the chunk directory is how a
// level's pages are found again after a reopen. It is a singly-linked chain
// of pages, each holding an array of fixed-size descriptors:
//
//	OwningLevel uint64 LE
//	StartPageID uint32 LE
//	PageCount   uint32 LE
//
// Layout:
//
//	[0:32]   Common PageHeader (Type=ChunkDir)
//	[32:36]  NextChunkDir (uint32 LE) — next chunk-dir page, 0 = end
//	[36:40]  EntryCount   (uint32 LE)
//	[40:40+16*EntryCount] ChunkDescriptor entries
//
// finalize_region appends one descriptor per call; a level that was built
// from several page runs (rare, but possible after shrink) gets several
// descriptors with the same OwningLevel.

const (
	chunkDirNextOff  = PageHeaderSize      // 32
	chunkDirCountOff = chunkDirNextOff + 4 // 36
	chunkDirDataOff  = chunkDirCountOff + 4
	chunkDirEntryLen = 16
)

// ChunkDescriptor locates one contiguous run of pages belonging to a level.
type ChunkDescriptor struct {
	OwningLevel Level
	StartPageID PageID
	PageCount   uint32
}

// ChunkDirCapacity returns how many descriptors fit in one chunk-dir page.
func ChunkDirCapacity(pageSize int) int {
	return (pageSize - chunkDirDataOff) / chunkDirEntryLen
}

// ChunkDirPage wraps a page buffer as a chunk-directory page.
type ChunkDirPage struct {
	buf []byte
}

// WrapChunkDirPage wraps an existing chunk-dir buffer.
func WrapChunkDirPage(buf []byte) *ChunkDirPage {
	return &ChunkDirPage{buf: buf}
}

// InitChunkDirPage creates a new empty chunk-dir page.
func InitChunkDirPage(buf []byte, id PageID) *ChunkDirPage {
	h := &PageHeader{Type: PageTypeChunkDir, ID: id}
	MarshalHeader(h, buf)
	binary.LittleEndian.PutUint32(buf[chunkDirNextOff:], uint32(InvalidPageID))
	binary.LittleEndian.PutUint32(buf[chunkDirCountOff:], 0)
	return &ChunkDirPage{buf: buf}
}

func (cd *ChunkDirPage) NextChunkDir() PageID {
	return PageID(binary.LittleEndian.Uint32(cd.buf[chunkDirNextOff:]))
}

func (cd *ChunkDirPage) SetNextChunkDir(pid PageID) {
	binary.LittleEndian.PutUint32(cd.buf[chunkDirNextOff:], uint32(pid))
}

func (cd *ChunkDirPage) EntryCount() int {
	return int(binary.LittleEndian.Uint32(cd.buf[chunkDirCountOff:]))
}

func (cd *ChunkDirPage) GetEntry(i int) ChunkDescriptor {
	off := chunkDirDataOff + i*chunkDirEntryLen
	return ChunkDescriptor{
		OwningLevel: Level(binary.LittleEndian.Uint64(cd.buf[off:])),
		StartPageID: PageID(binary.LittleEndian.Uint32(cd.buf[off+8:])),
		PageCount:   binary.LittleEndian.Uint32(cd.buf[off+12:]),
	}
}

// AddEntry appends a descriptor. Returns false if the page is full.
func (cd *ChunkDirPage) AddEntry(desc ChunkDescriptor) bool {
	ec := cd.EntryCount()
	if ec >= ChunkDirCapacity(len(cd.buf)) {
		return false
	}
	off := chunkDirDataOff + ec*chunkDirEntryLen
	binary.LittleEndian.PutUint64(cd.buf[off:], uint64(desc.OwningLevel))
	binary.LittleEndian.PutUint32(cd.buf[off+8:], uint32(desc.StartPageID))
	binary.LittleEndian.PutUint32(cd.buf[off+12:], desc.PageCount)
	binary.LittleEndian.PutUint32(cd.buf[chunkDirCountOff:], uint32(ec+1))
	return true
}

func (cd *ChunkDirPage) AllEntries() []ChunkDescriptor {
	ec := cd.EntryCount()
	out := make([]ChunkDescriptor, ec)
	for i := 0; i < ec; i++ {
		out[i] = cd.GetEntry(i)
	}
	return out
}

func (cd *ChunkDirPage) Bytes() []byte { return cd.buf }

// ChunkIndex is the in-memory, flattened view of every chunk descriptor in
// a context file, grouped by level for O(1) lookup of "which pages belong
// to level L".
type ChunkIndex struct {
	byLevel map[Level][]ChunkDescriptor
}

func NewChunkIndex() *ChunkIndex {
	return &ChunkIndex{byLevel: map[Level][]ChunkDescriptor{}}
}

// LoadFromDisk walks the chunk-dir chain starting at head and populates the
// index. readPage is a callback that reads a page by ID.
func (ci *ChunkIndex) LoadFromDisk(head PageID, readPage func(PageID) ([]byte, error)) error {
	pid := head
	for pid != InvalidPageID {
		buf, err := readPage(pid)
		if err != nil {
			return err
		}
		cd := WrapChunkDirPage(buf)
		for _, desc := range cd.AllEntries() {
			ci.byLevel[desc.OwningLevel] = append(ci.byLevel[desc.OwningLevel], desc)
		}
		pid = cd.NextChunkDir()
	}
	return nil
}

func (ci *ChunkIndex) Add(desc ChunkDescriptor) {
	ci.byLevel[desc.OwningLevel] = append(ci.byLevel[desc.OwningLevel], desc)
}

func (ci *ChunkIndex) ChunksForLevel(level Level) []ChunkDescriptor {
	return ci.byLevel[level]
}

func (ci *ChunkIndex) Levels() []Level {
	out := make([]Level, 0, len(ci.byLevel))
	for l := range ci.byLevel {
		out = append(out, l)
	}
	return out
}

// FlushToDisk writes every recorded descriptor into a fresh chain of
// chunk-dir pages and returns the new head PageID and the page buffers to
// write. allocPage mirrors FreeManager.FlushToDisk's callback.
func (ci *ChunkIndex) FlushToDisk(pageSize int, allocPage func() (PageID, []byte)) (PageID, [][]byte) {
	var all []ChunkDescriptor
	for _, descs := range ci.byLevel {
		all = append(all, descs...)
	}
	if len(all) == 0 {
		return InvalidPageID, nil
	}

	capacity := ChunkDirCapacity(pageSize)
	var pages [][]byte
	var head PageID
	var prev *ChunkDirPage

	for i := 0; i < len(all); i += capacity {
		end := i + capacity
		if end > len(all) {
			end = len(all)
		}
		chunk := all[i:end]

		pid, buf := allocPage()
		cd := InitChunkDirPage(buf, pid)
		for _, d := range chunk {
			cd.AddEntry(d)
		}
		SetPageCRC(buf)
		pages = append(pages, buf)

		if prev != nil {
			prev.SetNextChunkDir(pid)
			SetPageCRC(prev.Bytes())
		} else {
			head = pid
		}
		prev = cd
	}

	return head, pages
}
