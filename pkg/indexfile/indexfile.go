// Package indexfile implements the versioned key->blob container that
// binds every other package's persisted artifacts together (spec §4.5):
// a fixed header, a fixed table of contents keyed by small integers, and
// page-aligned blob regions that can be read by copy or attached with
// mmap for zero-copy re-open.
//
// The container format is grounded on
// github.com/KevoDB/kevo's pkg/sstable/footer (magic + version +
// checksum header, little-endian fixed-width fields) and
// pkg/sstable/writer.go (write to a temp file, then atomically rename
// into place).
package indexfile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key identifies one of the fixed container slots (spec §4.5's table).
type Key int

const (
	KeyVersion Key = iota
	KeyMeta
	KeyScoreMatrixName
	KeyScoreMatrix2Mer
	KeyScoreMatrix3Mer
	KeyDBRIndex
	KeyHDRIndex
	KeyEntries
	KeyEntriesOffsets
	KeyEntriesNum
	KeySeqCount
	KeyMaskedSeqIndexData
	KeySeqIndexDataSize
	KeySeqIndexSeqOffset
	KeyUnmaskedSeqIndexData
	KeyGenerator
	KeyKmerPattern

	NumKeys = int(KeyKmerPattern) + 1
)

// OptionalKeys are the blobs the Reader must tolerate being absent,
// per spec §4.5's "Missing optional blobs" note. SCOREMATRIX{2,3}MER
// are not listed here, and the Reader does not require them either: the
// build writes each one only when its dense table fits scorematrix's
// size cap, so a 20-letter protein index carries the 2-mer matrix and
// no 3-mer matrix. KeyKmerPattern is
// present only when Meta.SpacedKmer is set (spec §4.1's spaced-pattern
// identity, stored outside the fixed-width META record).
var OptionalKeys = map[Key]bool{
	KeyHDRIndex:             true,
	KeyMaskedSeqIndexData:   true,
	KeyUnmaskedSeqIndexData: true,
	KeyKmerPattern:          true,
}

// CurrentVersion is the compile-time version string the VERSION blob
// (key 0) must match byte-exactly for an index to be considered
// compatible (spec §4.5's open protocol, step 1).
const CurrentVersion = "kmeridx-index/v1"

// DefaultPageSize is the page size blobs are aligned to when neither
// the writer nor the host OS indicates otherwise.
const DefaultPageSize = 4096

var (
	// ErrVersionMismatch is returned when the VERSION blob is absent or
	// does not match CurrentVersion byte-exactly.
	ErrVersionMismatch = errors.New("indexfile: version mismatch")
	// ErrMissingBlob is returned when a required key is absent.
	ErrMissingBlob = errors.New("indexfile: required blob missing")
	// ErrCorruptHeader is returned when the header or TOC checksum does
	// not match the bytes on disk.
	ErrCorruptHeader = errors.New("indexfile: corrupt header")
	// ErrIO wraps underlying I/O failures from the container's backing
	// store.
	ErrIO = errors.New("indexfile: io error")
)

const (
	magic         = uint64(0x4B4D45524944583F) // "KMERIDX?" in ASCII hex
	formatVersion = uint32(1)

	headerSize = 40
	tocEntrySize = 32
	tocSize      = tocEntrySize * NumKeys
)

// tocEntry describes one key's blob: whether it is present, whether it
// is stored gzip-compressed, its page-aligned offset in the file, its
// stored (on-disk, possibly compressed) length, and its raw
// (decompressed) length.
type tocEntry struct {
	present    bool
	compressed bool
	offset     uint64
	storedLen  uint64
	rawLen     uint64
}

func encodeTOC(entries [NumKeys]tocEntry) []byte {
	buf := make([]byte, tocSize)
	for i, e := range entries {
		b := buf[i*tocEntrySize : (i+1)*tocEntrySize]
		if e.present {
			b[0] = 1
		}
		if e.compressed {
			b[1] = 1
		}
		binary.LittleEndian.PutUint64(b[8:16], e.offset)
		binary.LittleEndian.PutUint64(b[16:24], e.rawLen)
		binary.LittleEndian.PutUint64(b[24:32], e.storedLen)
	}
	return buf
}

func decodeTOC(buf []byte) ([NumKeys]tocEntry, error) {
	var entries [NumKeys]tocEntry
	if len(buf) < tocSize {
		return entries, fmt.Errorf("%w: toc too small: %d bytes, want %d", ErrCorruptHeader, len(buf), tocSize)
	}
	for i := range entries {
		b := buf[i*tocEntrySize : (i+1)*tocEntrySize]
		entries[i] = tocEntry{
			present:    b[0] == 1,
			compressed: b[1] == 1,
			offset:     binary.LittleEndian.Uint64(b[8:16]),
			rawLen:     binary.LittleEndian.Uint64(b[16:24]),
			storedLen:  binary.LittleEndian.Uint64(b[24:32]),
		}
	}
	return entries, nil
}

type header struct {
	pageSize     uint32
	timestamp    int64
	tocChecksum  uint64
}

func encodeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(buf[0:8], magic)
	binary.LittleEndian.PutUint32(buf[8:12], formatVersion)
	binary.LittleEndian.PutUint32(buf[12:16], h.pageSize)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.timestamp))
	binary.LittleEndian.PutUint64(buf[24:32], h.tocChecksum)
	checksum := xxhash.Sum64(buf[:32])
	binary.LittleEndian.PutUint64(buf[32:40], checksum)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	var h header
	if len(buf) < headerSize {
		return h, fmt.Errorf("%w: header too small: %d bytes, want %d", ErrCorruptHeader, len(buf), headerSize)
	}
	if got := binary.LittleEndian.Uint64(buf[0:8]); got != magic {
		return h, fmt.Errorf("%w: bad magic %x", ErrCorruptHeader, got)
	}
	if got := binary.LittleEndian.Uint32(buf[8:12]); got != formatVersion {
		return h, fmt.Errorf("%w: unsupported container format %d", ErrCorruptHeader, got)
	}
	h.pageSize = binary.LittleEndian.Uint32(buf[12:16])
	h.timestamp = int64(binary.LittleEndian.Uint64(buf[16:24]))
	h.tocChecksum = binary.LittleEndian.Uint64(buf[24:32])
	wantChecksum := xxhash.Sum64(buf[:32])
	if got := binary.LittleEndian.Uint64(buf[32:40]); got != wantChecksum {
		return h, fmt.Errorf("%w: header checksum mismatch", ErrCorruptHeader)
	}
	return h, nil
}

// checksumOf returns the xxhash of buf, used for the TOC checksum
// stored in the header (the TOC itself is checksummed the same way
// kevo's footer checksums its own fixed fields).
func checksumOf(buf []byte) uint64 {
	return xxhash.Sum64(buf)
}

// alignUp rounds n up to the next multiple of page.
func alignUp(n, page uint64) uint64 {
	if page == 0 {
		return n
	}
	rem := n % page
	if rem == 0 {
		return n
	}
	return n + (page - rem)
}

// writeOrder is spec §4.5's exact stated write order: "Matrices first
// (when applicable), then entries, offsets, sequence-lookup blobs,
// counts, metadata, version, db indices, generator."
var writeOrder = []Key{
	KeyScoreMatrixName, KeyScoreMatrix2Mer, KeyScoreMatrix3Mer,
	KeyEntries, KeyEntriesOffsets,
	KeyMaskedSeqIndexData, KeySeqIndexSeqOffset, KeyUnmaskedSeqIndexData, KeySeqIndexDataSize,
	KeyEntriesNum, KeySeqCount,
	KeyMeta,
	KeyVersion,
	KeyDBRIndex, KeyHDRIndex, KeyKmerPattern,
	KeyGenerator,
}
