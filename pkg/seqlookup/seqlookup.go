// Package seqlookup is a compact, random-access store of per-sequence
// encoded residue arrays: one flat data buffer plus an offsets table, so a
// sequence's bytes are addressable without per-sequence allocation.
package seqlookup

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrOutOfOrder is returned when Builder.Append is called with a
	// seqId other than the next sequential id.
	ErrOutOfOrder = errors.New("seqlookup: sequence ids must be appended in order starting at 0")
	// ErrNoSequenceID is returned by Get when the id has no entry.
	ErrNoSequenceID = errors.New("seqlookup: sequence id out of range")
)

// storageKind distinguishes a Storage value that owns its buffer from one
// that merely borrows a view into memory owned elsewhere (e.g. a mapped
// index file). This is the "Storage sum" design spec.md §9 calls for in
// place of parallel owning/borrowed pointer conventions: a single tagged
// value, with Close branching on the tag instead of a destructor that
// might free mapped memory it does not own.
type storageKind int

const (
	ownedStorage storageKind = iota
	borrowedStorage
)

// Storage is either an owned byte buffer or a non-owning view into memory
// owned by something else (a mapped blob). Its zero value is an empty
// owned buffer.
type Storage struct {
	kind storageKind
	buf  []byte
}

// Owned wraps a buffer this Storage value is responsible for.
func Owned(buf []byte) Storage { return Storage{kind: ownedStorage, buf: buf} }

// Borrowed wraps a view into memory owned elsewhere; Close on a Lookup
// built from Borrowed storage never frees view.
func Borrowed(view []byte) Storage { return Storage{kind: borrowedStorage, buf: view} }

// Bytes returns the underlying buffer, owned or borrowed.
func (s Storage) Bytes() []byte { return s.buf }

// Owns reports whether this Storage value owns its buffer.
func (s Storage) Owns() bool { return s.kind == ownedStorage }

// Close releases owned storage. Borrowed storage's lifetime is tied to
// whatever produced the view (typically an index file's mapped region);
// Close on it is a no-op by design, not an oversight.
func (s *Storage) Close() error {
	if s.kind == ownedStorage {
		s.buf = nil
	}
	return nil
}

// Lookup is a compact store of encoded sequences: data is the
// concatenation of all sequences terminated by a trailing zero byte,
// offsets is an (N+1)-entry table of little-endian uint64 start positions
// into data. Both may be Owned (built in-process) or Borrowed (attached
// to a mapped blob) independent of one another, though in practice a
// re-opened index attaches both the same way.
type Lookup struct {
	data    Storage
	offsets Storage
	count   int
}

func offsetAt(offsets []byte, i int) uint64 {
	return binary.LittleEndian.Uint64(offsets[i*8 : i*8+8])
}

// Attach builds a Lookup over pre-existing data/offsets buffers without
// copying or re-parsing them — the zero-copy re-open path. offsets must
// have length (N+1)*8 for some N; data must be at least
// offsetAt(offsets,N) bytes plus the trailing zero byte.
func Attach(data, offsets []byte) (*Lookup, error) {
	if len(offsets)%8 != 0 || len(offsets) < 8 {
		return nil, fmt.Errorf("seqlookup: offsets table has invalid length %d", len(offsets))
	}
	n := len(offsets)/8 - 1
	last := offsetAt(offsets, n)
	if uint64(len(data)) < last+1 {
		return nil, fmt.Errorf("seqlookup: data too short: have %d bytes, offsets end at %d", len(data), last)
	}
	return &Lookup{
		data:    Borrowed(data),
		offsets: Borrowed(offsets),
		count:   n,
	}, nil
}

// Count returns the number of sequences held.
func (l *Lookup) Count() int { return l.count }

// RawData and RawOffsets expose the underlying buffers for persistence:
// the index file writer copies these bytes verbatim into the
// MASKEDSEQINDEXDATA/UNMASKEDSEQINDEXDATA and SEQINDEXSEQOFFSET blobs
// (spec.md §4.5). Both alias Lookup's storage, owned or borrowed.
func (l *Lookup) RawData() []byte    { return l.data.Bytes() }
func (l *Lookup) RawOffsets() []byte { return l.offsets.Bytes() }

// Get returns the encoded residues for seqId. The returned slice aliases
// Lookup's storage; callers must not retain it past the Lookup's Close in
// the attached case.
func (l *Lookup) Get(seqId uint32) ([]byte, error) {
	if int(seqId) >= l.count {
		return nil, fmt.Errorf("%w: %d (have %d sequences)", ErrNoSequenceID, seqId, l.count)
	}
	offsets := l.offsets.Bytes()
	start := offsetAt(offsets, int(seqId))
	end := offsetAt(offsets, int(seqId)+1)
	data := l.data.Bytes()
	return data[start:end], nil
}

// Close releases any owned storage. It never frees attached (borrowed)
// buffers, so it is always safe to call even when the Lookup was produced
// by Attach over a mapped region that outlives it.
func (l *Lookup) Close() error {
	if err := l.data.Close(); err != nil {
		return err
	}
	return l.offsets.Close()
}

// Builder constructs a Lookup from an append-only stream of
// (seqId, encodedResidues) pairs, in increasing seqId order starting at
// 0 — the Built construction mode.
type Builder struct {
	data    []byte
	offsets []uint64
	next    uint32
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{offsets: []uint64{0}}
}

// Append adds the encoded residues for seqId, which must equal the number
// of sequences appended so far.
func (b *Builder) Append(seqId uint32, encoded []byte) error {
	if seqId != b.next {
		return fmt.Errorf("%w: got %d, want %d", ErrOutOfOrder, seqId, b.next)
	}
	b.data = append(b.data, encoded...)
	b.offsets = append(b.offsets, uint64(len(b.data)))
	b.next++
	return nil
}

// Finish appends the trailing zero byte required so that
// data[dataSize] is addressable, and returns the built (Owned) Lookup.
func (b *Builder) Finish() *Lookup {
	data := append(b.data, 0)
	offsetBytes := make([]byte, len(b.offsets)*8)
	for i, off := range b.offsets {
		binary.LittleEndian.PutUint64(offsetBytes[i*8:i*8+8], off)
	}
	return &Lookup{
		data:    Owned(data),
		offsets: Owned(offsetBytes),
		count:   len(b.offsets) - 1,
	}
}
