// Package alphabet implements the bijection between fixed-width k-mer
// tuples over a reduced residue alphabet and dense integer indices.
package alphabet

import (
	"errors"
	"fmt"
)

// SeqType tags how a sequence's residues should be interpreted when
// deciding the effective (indexing) alphabet size.
type SeqType int

const (
	AminoAcids SeqType = iota
	Nucleotides
	HMMProfile
	ProfileStateSeq
)

// Reserved is a marker value (-1), not a residue code. The residue code
// treated as "unknown" by the indexer is by convention the last code in
// the declared alphabet (alphabetSize-1); amino-acid 'X' and nucleotide
// 'N' are mapped there by the caller's codec.
const Reserved = -1

var (
	ErrK             = errors.New("k out of range")
	ErrAlphabetSize  = errors.New("alphabet size out of range")
	ErrSpacedPattern = errors.New("spaced pattern does not contain k set bits")
)

// MinK and MaxK bound the supported k-mer size, per the build tool's
// ParameterError contract (k outside [2,7] is rejected before any I/O).
const (
	MinK = 2
	MaxK = 7
)

// Indexer packs/unpacks k-mer tuples for one (alphabetSize, seqType, k,
// pattern) configuration. It is not safe for concurrent use by multiple
// goroutines scanning the same sequence, but a single Indexer may be reused
// across many sequences via Reset.
type Indexer struct {
	k           int
	effSize     int // A' = effective alphabet size used as packing radix
	offsets     []int
	spanLen     int
	cursor      int
}

// New builds an Indexer for the given declared alphabet size, sequence
// type, k-mer length and optional spaced pattern. A nil pattern means a
// contiguous k-mer. When non-nil, pattern must contain at least k set
// bits; only the first k set positions become packing digits, per spec.
func New(alphabetSize int, seqType SeqType, k int, pattern []bool) (*Indexer, error) {
	if k < MinK || k > MaxK {
		return nil, fmt.Errorf("%w: %d", ErrK, k)
	}
	if alphabetSize < 2 {
		return nil, fmt.Errorf("%w: %d", ErrAlphabetSize, alphabetSize)
	}

	effSize := alphabetSize
	switch seqType {
	case AminoAcids, Nucleotides:
		effSize = alphabetSize - 1
	case HMMProfile, ProfileStateSeq:
		effSize = alphabetSize
	}

	offsets := make([]int, 0, k)
	spanLen := k
	if pattern != nil {
		for i, set := range pattern {
			if set {
				offsets = append(offsets, i)
				if len(offsets) == k {
					break
				}
			}
		}
		if len(offsets) != k {
			return nil, fmt.Errorf("%w: need %d, found %d", ErrSpacedPattern, k, len(offsets))
		}
		spanLen = len(pattern)
	} else {
		for i := 0; i < k; i++ {
			offsets = append(offsets, i)
		}
	}

	return &Indexer{
		k:       k,
		effSize: effSize,
		offsets: offsets,
		spanLen: spanLen,
	}, nil
}

// K returns the configured k-mer length (number of packed digits).
func (ix *Indexer) K() int { return ix.k }

// EffectiveAlphabetSize returns A', the packing radix.
func (ix *Indexer) EffectiveAlphabetSize() int { return ix.effSize }

// Span returns the number of residue positions a single k-mer window
// covers (equal to k for contiguous k-mers, to the pattern length for
// spaced k-mers).
func (ix *Indexer) Span() int { return ix.spanLen }

// IndexSpace returns A'^k, the size of the packed index space.
func (ix *Indexer) IndexSpace() uint64 {
	space := uint64(1)
	for i := 0; i < ix.k; i++ {
		space *= uint64(ix.effSize)
	}
	return space
}

// Reset clears cursor state so the next NextIndex call starts scanning a
// sequence from position 0.
func (ix *Indexer) Reset() { ix.cursor = 0 }

// Cursor returns the position the next NextIndex call will start from.
func (ix *Indexer) Cursor() int { return ix.cursor }

// NextIndex packs the k-mer window starting at the current cursor and
// advances the cursor by one residue position, regardless of whether the
// window was valid, so repeated calls scan the sequence one position at a
// time. It returns ok=false when the window runs past the end of residues
// or covers a residue at or above the effective alphabet size (the
// reserved "unknown" code or beyond); the caller is expected to have
// already filtered reserved residues, so behavior on a window containing
// one is only defined to the extent that ok is false.
func (ix *Indexer) NextIndex(residues []byte) (uint32, bool) {
	return ix.NextWindow(residues, nil)
}

// NextWindow behaves like NextIndex but additionally copies the k packed
// digits (the residue codes that went into the index, in packing order)
// into digits, if non-nil; digits must have length k. This lets callers
// that need to score the window against a substitution matrix do so
// without re-deriving the packing.
func (ix *Indexer) NextWindow(residues []byte, digits []byte) (uint32, bool) {
	start := ix.cursor
	ix.cursor++

	if start+ix.spanLen > len(residues) {
		return 0, false
	}

	var idx uint64
	mul := uint64(1)
	for j, off := range ix.offsets {
		r := residues[start+off]
		if int(r) >= ix.effSize {
			return 0, false
		}
		if digits != nil {
			digits[j] = r
		}
		idx += uint64(r) * mul
		mul *= uint64(ix.effSize)
	}
	return uint32(idx), true
}

// IndexToResidues inverts NextIndex's packing: it fills out (which must
// have length k) with the residue codes that pack to index. Used for
// diagnostics and round-trip tests; it is the inverse over the k packed
// digits, not over the full spaced span (gaps carry no information).
func IndexToResidues(index uint32, k, effSize int, out []byte) error {
	if len(out) != k {
		return fmt.Errorf("indexToResidues: out has length %d, want %d", len(out), k)
	}
	rem := uint64(index)
	for j := 0; j < k; j++ {
		out[j] = byte(rem % uint64(effSize))
		rem /= uint64(effSize)
	}
	return nil
}
