// Package kmerindex implements the inverted file over k-mer indices: for
// each packed k-mer index, a contiguous run of (sequenceId, position)
// occurrence entries in a single flat array, bounded by an offsets table.
package kmerindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/kmeridx/kmeridx/pkg/alphabet"
)

var (
	ErrInvalidResidue  = errors.New("kmerindex: residue outside declared alphabet")
	ErrTooManyEntries  = errors.New("kmerindex: total entry count would exceed 2^63")
	ErrPositionOverflow = errors.New("kmerindex: position does not fit in configured entry width")
	ErrNoLookup        = errors.New("kmerindex: builder configured with neither masked nor unmasked sequence lookup")
)

// PositionWidth is the byte width of the position field of an occurrence
// entry: 2 (u16) or 4 (u32). The chosen width is recorded in the index
// file and must be used consistently when the table is re-attached.
type PositionWidth int

const (
	Width16 PositionWidth = 2
	Width32 PositionWidth = 4
)

// Entry is a single inverted-list occurrence: the sequence it came from
// and the position within that sequence where the k-mer starts.
type Entry struct {
	SeqID    uint32
	Position uint32
}

// ScoreFunc scores a k-mer window (its k packed residue digits) against a
// substitution matrix; an external collaborator per spec.md §6. Builders
// only admit a k-mer into the count/fill passes when Score meets the
// configured threshold.
type ScoreFunc func(digits []byte) int

// storageKind mirrors seqlookup's Storage sum: this module's attached
// tables hold non-owning views into a different mapped region, so each
// component gets its own independent Storage rather than sharing one
// destructor across unrelated lifetimes.
type storageKind int

const (
	ownedStorage storageKind = iota
	borrowedStorage
)

type storage struct {
	kind storageKind
	buf  []byte
}

func owned(buf []byte) storage    { return storage{kind: ownedStorage, buf: buf} }
func borrowed(buf []byte) storage { return storage{kind: borrowedStorage, buf: buf} }
func (s storage) bytes() []byte   { return s.buf }

func (s *storage) close() {
	if s.kind == ownedStorage {
		s.buf = nil
	}
}

// Table is the inverted k-mer index: offsets[i]..offsets[i+1] bounds the
// run of entries for k-mer index i. It may own its buffers (built
// in-process) or borrow them from a mapped blob (attached/re-opened); in
// the latter case the Table must not free them, enforced by the storage
// tag rather than by convention.
type Table struct {
	entries    storage
	offsets    storage
	posWidth   PositionWidth
	indexSpace uint64
}

func entrySize(w PositionWidth) int { return 4 + int(w) }

func offsetAt(offsets []byte, i uint64) uint64 {
	return binary.LittleEndian.Uint64(offsets[i*8 : i*8+8])
}

func decodeEntry(buf []byte, w PositionWidth) Entry {
	seqID := binary.LittleEndian.Uint32(buf[0:4])
	var pos uint32
	if w == Width16 {
		pos = uint32(binary.LittleEndian.Uint16(buf[4:6]))
	} else {
		pos = binary.LittleEndian.Uint32(buf[4:8])
	}
	return Entry{SeqID: seqID, Position: pos}
}

func encodeEntry(buf []byte, w PositionWidth, e Entry) {
	binary.LittleEndian.PutUint32(buf[0:4], e.SeqID)
	if w == Width16 {
		binary.LittleEndian.PutUint16(buf[4:6], uint16(e.Position))
	} else {
		binary.LittleEndian.PutUint32(buf[4:8], e.Position)
	}
}

// IndexSpace returns A'^k, the number of buckets.
func (t *Table) IndexSpace() uint64 { return t.indexSpace }

// PositionWidth returns the entry width this table was built/attached with.
func (t *Table) PositionWidth() PositionWidth { return t.posWidth }

// RawEntries and RawOffsets expose the underlying buffers for
// persistence: the index file writer copies these bytes verbatim into
// the ENTRIES and ENTRIESOFFSETS blobs (spec.md §4.5).
func (t *Table) RawEntries() []byte { return t.entries.bytes() }
func (t *Table) RawOffsets() []byte { return t.offsets.bytes() }

// Lookup returns the occurrence entries for kmerIndex. The returned slice
// is freshly decoded (never an alias into the underlying storage, since
// that storage's byte layout is not addressable as a Go struct slice
// without unsafe), but the access is a single bounded slice plus a linear
// decode — bucket access itself is O(1).
func (t *Table) Lookup(kmerIndex uint32) ([]Entry, error) {
	if uint64(kmerIndex) >= t.indexSpace {
		return nil, fmt.Errorf("kmerindex: index %d out of range [0,%d)", kmerIndex, t.indexSpace)
	}
	offsets := t.offsets.bytes()
	start := offsetAt(offsets, uint64(kmerIndex))
	end := offsetAt(offsets, uint64(kmerIndex)+1)
	sz := entrySize(t.posWidth)
	entries := t.entries.bytes()
	out := make([]Entry, 0, end-start)
	for cur := start; cur < end; cur++ {
		out = append(out, decodeEntry(entries[cur*uint64(sz):], t.posWidth))
	}
	return out, nil
}

// Close releases owned storage. It is always safe to call on an attached
// Table: attached buffers are borrowed, so Close never frees the mapped
// region that produced them (invariant 8 in spec.md §8's reopen scenario).
func (t *Table) Close() error {
	t.entries.close()
	t.offsets.close()
	return nil
}

// Attach builds a Table over pre-existing entries/offsets buffers
// (typically views into a memory-mapped index file) without copying or
// re-parsing — zero-copy re-open. offsets must have length
// (indexSpace+1)*8.
func Attach(entries, offsets []byte, posWidth PositionWidth) (*Table, error) {
	if len(offsets)%8 != 0 || len(offsets) < 8 {
		return nil, fmt.Errorf("kmerindex: offsets table has invalid length %d", len(offsets))
	}
	indexSpace := uint64(len(offsets)/8 - 1)
	last := offsetAt(offsets, indexSpace)
	sz := uint64(entrySize(posWidth))
	if uint64(len(entries)) < last*sz {
		return nil, fmt.Errorf("kmerindex: entries too short: have %d bytes, need %d", len(entries), last*sz)
	}
	return &Table{
		entries:    borrowed(entries),
		offsets:    borrowed(offsets),
		posWidth:   posWidth,
		indexSpace: indexSpace,
	}, nil
}

// Builder drives the count pass of the two-pass build protocol.
type Builder struct {
	indexer      *alphabet.Indexer
	alphabetSize int
	posWidth     PositionWidth
	score        ScoreFunc
	threshold    int
	counts       []uint64
	haveLookup   bool
}

// NewBuilder creates a Builder. alphabetSize is the full declared
// alphabet (including the reserved "unknown" code), used to validate
// incoming residues are in [0, alphabetSize) independent of the indexer's
// narrower effective (reserved-excluding) alphabet.
func NewBuilder(indexer *alphabet.Indexer, alphabetSize int, posWidth PositionWidth, score ScoreFunc, threshold int) *Builder {
	return &Builder{
		indexer:      indexer,
		alphabetSize: alphabetSize,
		posWidth:     posWidth,
		score:        score,
		threshold:    threshold,
		counts:       make([]uint64, indexer.IndexSpace()),
	}
}

// NoteLookupProduced records that at least one sequence lookup (masked or
// unmasked) was produced for this build; Finish fails without it, per
// spec.md §4.3's fatal-configuration-error failure mode.
func (b *Builder) NoteLookupProduced() { b.haveLookup = true }

func validateResidues(residues []byte, alphabetSize int) error {
	for _, r := range residues {
		if int(r) >= alphabetSize {
			return fmt.Errorf("%w: %d (alphabet size %d)", ErrInvalidResidue, r, alphabetSize)
		}
	}
	return nil
}

func windowCount(residues []byte, span int) int {
	n := len(residues) - span + 1
	if n < 0 {
		return 0
	}
	return n
}

// CountSequence is the count pass over one sequence's masked residues
// (masking decides eligibility; see Table/FillState for how the original
// position is still recorded regardless of masking).
func (b *Builder) CountSequence(residues []byte) error {
	if err := validateResidues(residues, b.alphabetSize); err != nil {
		return err
	}
	b.indexer.Reset()
	digits := make([]byte, b.indexer.K())
	n := windowCount(residues, b.indexer.Span())
	for i := 0; i < n; i++ {
		idx, ok := b.indexer.NextWindow(residues, digits)
		if !ok {
			continue
		}
		if b.score(digits) < b.threshold {
			continue
		}
		b.counts[idx]++
	}
	return nil
}

// Finish runs the prefix-sum pass, allocating entries[] and returning a
// FillState ready to receive the fill pass.
func (b *Builder) Finish() (*FillState, error) {
	if !b.haveLookup {
		return nil, ErrNoLookup
	}

	indexSpace := len(b.counts)
	offsets := make([]uint64, indexSpace+1)
	var total uint64
	for i, c := range b.counts {
		offsets[i] = total
		if c > (uint64(1)<<63)-total {
			return nil, ErrTooManyEntries
		}
		total += c
	}
	offsets[indexSpace] = total
	if total >= uint64(1)<<63 {
		return nil, ErrTooManyEntries
	}

	sz := entrySize(b.posWidth)
	entries := make([]byte, total*uint64(sz))

	return &FillState{
		indexer:      b.indexer,
		alphabetSize: b.alphabetSize,
		posWidth:     b.posWidth,
		score:        b.score,
		threshold:    b.threshold,
		offsets:      offsets,
		entries:      entries,
		fillCount:    make([]uint64, indexSpace),
	}, nil
}

// FillState drives the fill pass, writing (seqId, position) entries at
// cursors derived from the prefix-summed offsets, and the subsequent sort
// pass.
type FillState struct {
	indexer      *alphabet.Indexer
	alphabetSize int
	posWidth     PositionWidth
	score        ScoreFunc
	threshold    int
	offsets      []uint64
	entries      []byte
	fillCount    []uint64
}

// FillSequence repeats the scan over seqID's masked residues (the same
// masking, score and threshold as the count pass), appending a
// (seqID, position) entry for each qualifying k-mer.
func (f *FillState) FillSequence(seqID uint32, residues []byte) error {
	if err := validateResidues(residues, f.alphabetSize); err != nil {
		return err
	}
	if f.posWidth == Width16 && len(residues) > 1<<16 {
		return fmt.Errorf("%w: sequence length %d with 16-bit positions", ErrPositionOverflow, len(residues))
	}

	f.indexer.Reset()
	digits := make([]byte, f.indexer.K())
	sz := entrySize(f.posWidth)
	n := windowCount(residues, f.indexer.Span())
	for pos := 0; pos < n; pos++ {
		idx, ok := f.indexer.NextWindow(residues, digits)
		if !ok {
			continue
		}
		if f.score(digits) < f.threshold {
			continue
		}
		cursor := f.offsets[idx] + f.fillCount[idx]
		f.fillCount[idx]++
		encodeEntry(f.entries[cursor*uint64(sz):], f.posWidth, Entry{SeqID: seqID, Position: uint32(pos)})
	}
	return nil
}

// Finish runs the sort pass (each bucket sorted by (seqId, position)) and
// returns the built, owning Table.
func (f *FillState) Finish() (*Table, error) {
	sz := entrySize(f.posWidth)
	for i := 0; i < len(f.offsets)-1; i++ {
		start, end := f.offsets[i], f.offsets[i+1]
		if end-start < 2 {
			continue
		}
		bucket := make([]Entry, end-start)
		for j := range bucket {
			bucket[j] = decodeEntry(f.entries[(start+uint64(j))*uint64(sz):], f.posWidth)
		}
		sort.Slice(bucket, func(a, c int) bool {
			if bucket[a].SeqID != bucket[c].SeqID {
				return bucket[a].SeqID < bucket[c].SeqID
			}
			return bucket[a].Position < bucket[c].Position
		})
		for j, e := range bucket {
			encodeEntry(f.entries[(start+uint64(j))*uint64(sz):], f.posWidth, e)
		}
	}

	offsetBytes := make([]byte, len(f.offsets)*8)
	for i, off := range f.offsets {
		binary.LittleEndian.PutUint64(offsetBytes[i*8:i*8+8], off)
	}

	return &Table{
		entries:    owned(f.entries),
		offsets:    owned(offsetBytes),
		posWidth:   f.posWidth,
		indexSpace: uint64(len(f.offsets) - 1),
	}, nil
}
