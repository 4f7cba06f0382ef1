// Package backing implements the PageBackingStrategy capability: the
// abstract "new page / cow page / persistent-sync / finalize-region"
// operations that the page manager and versioned page arrays are built
// on top of (a generalization of fixed template-parameterized CSR
// variants into a single engine over a pluggable backing strategy).
//
// Two implementations are provided: MemoryStrategy (pages live only in
// RAM, Sync is a no-op and FinalizeRegion only records chunk descriptors
// in memory) and FileStrategy (one
// directory per database, one multi-level file per named context, laid
// out as a superblock plus chunk descriptors and checksummed pages).
package backing

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// ───────────────────────────────────────────────────────────────────────────
// On-disk page framing
// ───────────────────────────────────────────────────────────────────────────

const (
	// DefaultPageSize is the default page size in bytes (8 KiB).
	DefaultPageSize = 8192

	// MinPageSize is the minimum allowed page size (4 KiB).
	MinPageSize = 4096

	// MaxPageSize is the maximum allowed page size (64 KiB).
	MaxPageSize = 65536

	// PageHeaderSize is the size of the common page header in bytes.
	//   [0]    PageType    (1 byte)
	//   [1]    Flags       (1 byte)
	//   [2:4]  Reserved    (2 bytes)
	//   [4:8]  PageID      (4 bytes, uint32 LE)
	//   [8:16] OwningLevel (8 bytes, uint64 LE)
	//   [16:20] CRC32      (4 bytes, uint32 LE)
	//   [20:32] Reserved   (12 bytes)
	PageHeaderSize = 32

	// InvalidPageID represents a null/invalid page pointer.
	InvalidPageID PageID = 0
)

// PageType identifies the kind of data stored in a physical page.
type PageType uint8

const (
	PageTypeSuperblock PageType = 0x01
	PageTypeData       PageType = 0x02
	PageTypeFreeList   PageType = 0x03
	PageTypeChunkDir   PageType = 0x04
)

func (pt PageType) String() string {
	switch pt {
	case PageTypeSuperblock:
		return "Superblock"
	case PageTypeData:
		return "Data"
	case PageTypeFreeList:
		return "FreeList"
	case PageTypeChunkDir:
		return "ChunkDir"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(pt))
	}
}

// PageID is a 32-bit physical page identifier within one context file.
// Page 0 is always the superblock.
type PageID uint32

// Level is a graph level index, matching mlcsr.Level in meaning but
// kept dependency-free here (backing must not import mlcsr).
type Level uint64

// PageHeader is the 32-byte header present at the start of every
// physical page.
type PageHeader struct {
	Type        PageType
	Flags       uint8
	Reserved    uint16
	ID          PageID
	OwningLevel Level
	CRC         uint32
	Pad         [12]byte
}

func MarshalHeader(h *PageHeader, buf []byte) {
	if len(buf) < PageHeaderSize {
		panic("backing: buffer too small for PageHeader")
	}
	buf[0] = byte(h.Type)
	buf[1] = h.Flags
	binary.LittleEndian.PutUint16(buf[2:4], h.Reserved)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.ID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.OwningLevel))
	binary.LittleEndian.PutUint32(buf[16:20], h.CRC)
	copy(buf[20:32], h.Pad[:])
}

func UnmarshalHeader(buf []byte) PageHeader {
	var h PageHeader
	h.Type = PageType(buf[0])
	h.Flags = buf[1]
	h.Reserved = binary.LittleEndian.Uint16(buf[2:4])
	h.ID = PageID(binary.LittleEndian.Uint32(buf[4:8]))
	h.OwningLevel = Level(binary.LittleEndian.Uint64(buf[8:16]))
	h.CRC = binary.LittleEndian.Uint32(buf[16:20])
	copy(h.Pad[:], buf[20:32])
	return h
}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// ComputePageCRC computes the CRC32-C of a full page, treating the CRC
// field (bytes 16..20) as zero during computation.
func ComputePageCRC(page []byte) uint32 {
	h := crc32.New(crcTable)
	h.Write(page[:16])
	h.Write([]byte{0, 0, 0, 0})
	h.Write(page[20:])
	return h.Sum32()
}

func SetPageCRC(page []byte) {
	binary.LittleEndian.PutUint32(page[16:20], ComputePageCRC(page))
}

func VerifyPageCRC(page []byte) error {
	stored := binary.LittleEndian.Uint32(page[16:20])
	computed := ComputePageCRC(page)
	if stored != computed {
		pid := PageID(binary.LittleEndian.Uint32(page[4:8]))
		return fmt.Errorf("backing: CRC mismatch on page %d: stored=%08x computed=%08x", pid, stored, computed)
	}
	return nil
}

// NewPage allocates a zeroed page buffer at the given size and writes
// its header.
func NewPage(pageSize int, pt PageType, id PageID, level Level) []byte {
	buf := make([]byte, pageSize)
	h := &PageHeader{Type: pt, ID: id, OwningLevel: level}
	MarshalHeader(h, buf)
	return buf
}
