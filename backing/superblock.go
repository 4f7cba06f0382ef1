package backing

import (
	"encoding/binary"
	"fmt"
)

// ───────────────────────────────────────────────────────────────────────────
// Superblock – Page 0 of a context file
// ───────────────────────────────────────────────────────────────────────────
//
// Layout (fits in one page, default 8 KiB):
//
//  Offset  Size  Field
//  ──────  ────  ───────────────────
//  0       32    Common PageHeader (Type=Superblock, ID=0)
//  32      8     Magic            [8]byte "LLAMACTX"
//  40      4     FormatVersion    uint32 LE
//  44      4     PageSize         uint32 LE
//  48      8     PageCount        uint64 LE  (total pages in file)
//  56      8     FeatureFlags     uint64 LE  (bitmask)
//  64      4     ChunkDirRoot     uint32 LE  (PageID of chunk-directory head)
//  68      4     FreeListRoot     uint32 LE  (PageID of free-list head)
//  72      8     CheckpointSeq    uint64 LE  (count of checkpoints folded into this file)
//  80      8     NextLevelID      uint64 LE  (next level index to assign)
//  88      4     NextPageID       uint32 LE
//  92      64    ContextName      [64]byte  (zero-padded, for self-describing inspection)
//  156     4     Reserved         [4]byte  (future use — zero-filled)
//
// The CRC in the common header covers the entire page.

const (
	// SuperblockMagic identifies a valid llama context file.
	SuperblockMagic = "LLAMACTX"

	// CurrentFormatVersion is the on-disk format version.
	CurrentFormatVersion uint32 = 1

	// ContextNameFieldLen is the fixed width of the embedded context name,
	// wide enough for "namespace__<uuid>__seq".
	ContextNameFieldLen = 64

	// Superblock field offsets (relative to page start).
	sbMagicOff         = PageHeaderSize         // 32
	sbFormatVersionOff = sbMagicOff + 8         // 40
	sbPageSizeOff      = sbFormatVersionOff + 4 // 44
	sbPageCountOff     = sbPageSizeOff + 4      // 48
	sbFeatureFlagsOff  = sbPageCountOff + 8     // 56
	sbChunkDirRootOff  = sbFeatureFlagsOff + 8  // 64
	sbFreeListRootOff  = sbChunkDirRootOff + 4  // 68
	sbCheckpointSeqOff = sbFreeListRootOff + 4  // 72
	sbNextLevelIDOff   = sbCheckpointSeqOff + 8 // 80
	sbNextPageIDOff    = sbNextLevelIDOff + 8   // 88
	sbContextNameOff   = sbNextPageIDOff + 4    // 92
	// Remaining bytes up to end of page are reserved.
)

// FeatureFlag bits (bitmask). Version 1 has no flags set.
const (
	FeatureCompression FeatureFlag = 1 << iota // reserved: page-level compression
	FeatureEncryption                          // reserved: page-level encryption
	FeatureLevelIDWrap                         // this context was built with levels.WrapWithMinLevel
	FeatureSortEdges                           // edges are kept sorted within a level
)

// FeatureFlag is a bitmask of optional format features.
type FeatureFlag uint64

// SupportedFeatures is the set of features understood by this build.
// Any flag outside of this set causes the file to be rejected.
const SupportedFeatures FeatureFlag = FeatureLevelIDWrap | FeatureSortEdges

// Superblock holds the parsed contents of page 0 of a context file.
type Superblock struct {
	FormatVersion uint32
	PageSize      uint32
	PageCount     uint64
	FeatureFlags  FeatureFlag
	ChunkDirRoot  PageID
	FreeListRoot  PageID
	CheckpointSeq uint64
	NextLevelID   Level
	NextPageID    PageID
	ContextName   string
}

// MarshalSuperblock serializes a Superblock into a freshly allocated page
// buffer of pageSize bytes. The common PageHeader is set
// (Type=Superblock, ID=0) and the CRC computed.
func MarshalSuperblock(sb *Superblock, pageSize int) []byte {
	buf := NewPage(pageSize, PageTypeSuperblock, 0, 0)

	// Magic bytes
	copy(buf[sbMagicOff:sbMagicOff+8], SuperblockMagic)

	// Fields
	binary.LittleEndian.PutUint32(buf[sbFormatVersionOff:], sb.FormatVersion)
	binary.LittleEndian.PutUint32(buf[sbPageSizeOff:], sb.PageSize)
	binary.LittleEndian.PutUint64(buf[sbPageCountOff:], sb.PageCount)
	binary.LittleEndian.PutUint64(buf[sbFeatureFlagsOff:], uint64(sb.FeatureFlags))
	binary.LittleEndian.PutUint32(buf[sbChunkDirRootOff:], uint32(sb.ChunkDirRoot))
	binary.LittleEndian.PutUint32(buf[sbFreeListRootOff:], uint32(sb.FreeListRoot))
	binary.LittleEndian.PutUint64(buf[sbCheckpointSeqOff:], sb.CheckpointSeq)
	binary.LittleEndian.PutUint64(buf[sbNextLevelIDOff:], uint64(sb.NextLevelID))
	binary.LittleEndian.PutUint32(buf[sbNextPageIDOff:], uint32(sb.NextPageID))

	nameBuf := buf[sbContextNameOff : sbContextNameOff+ContextNameFieldLen]
	for i := range nameBuf {
		nameBuf[i] = 0
	}
	copy(nameBuf, sb.ContextName)

	SetPageCRC(buf)
	return buf
}

// UnmarshalSuperblock decodes page 0 from buf. It validates magic bytes,
// format version, feature flags, and CRC. Returns an error on any mismatch.
func UnmarshalSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) < MinPageSize {
		return nil, fmt.Errorf("superblock too small: %d bytes", len(buf))
	}
	// Verify CRC first.
	if err := VerifyPageCRC(buf); err != nil {
		return nil, fmt.Errorf("superblock CRC: %w", err)
	}
	// Check magic.
	magic := string(buf[sbMagicOff : sbMagicOff+8])
	if magic != SuperblockMagic {
		return nil, fmt.Errorf("bad magic %q, expected %q", magic, SuperblockMagic)
	}
	nameBuf := buf[sbContextNameOff : sbContextNameOff+ContextNameFieldLen]
	nameEnd := len(nameBuf)
	for i, b := range nameBuf {
		if b == 0 {
			nameEnd = i
			break
		}
	}
	sb := &Superblock{
		FormatVersion: binary.LittleEndian.Uint32(buf[sbFormatVersionOff:]),
		PageSize:      binary.LittleEndian.Uint32(buf[sbPageSizeOff:]),
		PageCount:     binary.LittleEndian.Uint64(buf[sbPageCountOff:]),
		FeatureFlags:  FeatureFlag(binary.LittleEndian.Uint64(buf[sbFeatureFlagsOff:])),
		ChunkDirRoot:  PageID(binary.LittleEndian.Uint32(buf[sbChunkDirRootOff:])),
		FreeListRoot:  PageID(binary.LittleEndian.Uint32(buf[sbFreeListRootOff:])),
		CheckpointSeq: binary.LittleEndian.Uint64(buf[sbCheckpointSeqOff:]),
		NextLevelID:   Level(binary.LittleEndian.Uint64(buf[sbNextLevelIDOff:])),
		NextPageID:    PageID(binary.LittleEndian.Uint32(buf[sbNextPageIDOff:])),
		ContextName:   string(nameBuf[:nameEnd]),
	}

	// Validate format version.
	if sb.FormatVersion != CurrentFormatVersion {
		return nil, fmt.Errorf("unsupported format version %d (this build supports %d)",
			sb.FormatVersion, CurrentFormatVersion)
	}
	// Validate page size.
	if sb.PageSize < MinPageSize || sb.PageSize > MaxPageSize {
		return nil, fmt.Errorf("page size %d out of range [%d..%d]",
			sb.PageSize, MinPageSize, MaxPageSize)
	}
	// Power-of-two check.
	if sb.PageSize&(sb.PageSize-1) != 0 {
		return nil, fmt.Errorf("page size %d is not a power of two", sb.PageSize)
	}
	// Feature flags — reject unknown.
	if sb.FeatureFlags & ^SupportedFeatures != 0 {
		return nil, fmt.Errorf("unsupported feature flags: %016x", sb.FeatureFlags)
	}

	return sb, nil
}

// NewSuperblock creates a default Superblock for a new, empty context file.
func NewSuperblock(pageSize uint32, contextName string) *Superblock {
	return &Superblock{
		FormatVersion: CurrentFormatVersion,
		PageSize:      pageSize,
		PageCount:     1, // only superblock so far
		FeatureFlags:  0,
		ChunkDirRoot:  InvalidPageID,
		FreeListRoot:  InvalidPageID,
		CheckpointSeq: 0,
		NextLevelID:   0,
		NextPageID:    1, // page 0 is superblock
		ContextName:   contextName,
	}
}
