// Package scorematrix provides the substitution-matrix contract spec.md
// §6 specifies as an external collaborator, a small built-in BLOSUM62
// implementation of it (grounded on the alphabet conventions in
// _examples/ndaniels-MICA's blosum package and
// _examples/other_examples/BurntSushi-bcbgo__alphabets.go's
// AlphaBlosum62), and the 2-mer/3-mer extended matrix construction spec.md
// §4.6/§9 calls for.
package scorematrix

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrUnknownMatrix = errors.New("scorematrix: unknown matrix name")
	ErrMatrixTooLarge = errors.New("scorematrix: extended matrix would exceed the dense-table cap")
)

// Matrix is the substitution-matrix contract consumed by the k-mer
// scorer and the extended-matrix builder: alphabet size, the int<->amino
// acid code tables, a name, and pairwise residue scores.
type Matrix interface {
	AlphabetSize() int
	Int2AA() []byte
	AA2Int() [256]int8
	Name() string
	Score(a, b byte) int
}

const aminoAlphabet = "ARNDCQEGHILKMFPSTWYVX"

// blosum62 holds the standard BLOSUM62 substitution scores over the 20
// amino acids plus the reserved 'X' (scored as the matrix's own minimum
// against everything, matching cablastp's treatment of unknown residues
// never qualifying a k-mer rather than scoring preferentially).
type blosum62 struct {
	int2aa []byte
	aa2int [256]int8
	scores [21][21]int8
}

var blosum62Scores = [20][20]int8{
	{4, -1, -2, -2, 0, -1, -1, 0, -2, -1, -1, -1, -1, -2, -1, 1, 0, -3, -2, 0},
	{-1, 5, 0, -2, -3, 1, 0, -2, 0, -3, -2, 2, -1, -3, -2, -1, -1, -3, -2, -3},
	{-2, 0, 6, 1, -3, 0, 0, 0, 1, -3, -3, 0, -2, -3, -2, 1, 0, -4, -2, -3},
	{-2, -2, 1, 6, -3, 0, 2, -1, -1, -3, -4, -1, -3, -3, -1, 0, -1, -4, -3, -3},
	{0, -3, -3, -3, 9, -3, -4, -3, -3, -1, -1, -3, -1, -2, -3, -1, -1, -2, -2, -1},
	{-1, 1, 0, 0, -3, 5, 2, -2, 0, -3, -2, 1, 0, -3, -1, 0, -1, -2, -1, -2},
	{-1, 0, 0, 2, -4, 2, 5, -2, 0, -3, -3, 1, -2, -3, -1, 0, -1, -3, -2, -2},
	{0, -2, 0, -1, -3, -2, -2, 6, -2, -4, -4, -2, -3, -3, -2, 0, -2, -2, -3, -3},
	{-2, 0, 1, -1, -3, 0, 0, -2, 8, -3, -3, -1, -2, -1, -2, -1, -2, -2, 2, -3},
	{-1, -3, -3, -3, -1, -3, -3, -4, -3, 4, 2, -3, 1, 0, -3, -2, -1, -3, -1, 3},
	{-1, -2, -3, -4, -1, -2, -3, -4, -3, 2, 4, -2, 2, 0, -3, -2, -1, -2, -1, 1},
	{-1, 2, 0, -1, -3, 1, 1, -2, -1, -3, -2, 5, -1, -3, -1, 0, -1, -3, -2, -2},
	{-1, -1, -2, -3, -1, 0, -2, -3, -2, 1, 2, -1, 5, 0, -2, -1, -1, -1, -1, 1},
	{-2, -3, -3, -3, -2, -3, -3, -3, -1, 0, 0, -3, 0, 6, -4, -2, -2, 1, 3, -1},
	{-1, -2, -2, -1, -3, -1, -1, -2, -2, -3, -3, -1, -2, -4, 7, -1, -1, -4, -3, -2},
	{1, -1, 1, 0, -1, 0, 0, 0, -1, -2, -2, 0, -1, -2, -1, 4, 1, -3, -2, -2},
	{0, -1, 0, -1, -1, -1, -1, -2, -2, -1, -1, -1, -1, -2, -1, 1, 5, -2, -2, 0},
	{-3, -3, -4, -4, -2, -2, -3, -2, -2, -3, -2, -3, -1, 1, -4, -3, -2, 11, 2, -3},
	{-2, -2, -2, -3, -2, -1, -2, -3, 2, -1, -1, -2, -1, 3, -3, -2, -2, 2, 7, -1},
	{0, -3, -3, -3, -1, -2, -2, -3, -3, 3, 1, -2, 1, -1, -2, -2, 0, -3, -1, 4},
}

func newBlosum62() *blosum62 {
	m := &blosum62{
		int2aa: []byte(aminoAlphabet),
	}
	for i := range m.aa2int {
		m.aa2int[i] = -1
	}
	for i, c := range m.int2aa {
		m.aa2int[c] = int8(i)
	}
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			m.scores[i][j] = blosum62Scores[i][j]
		}
	}
	// reserved 'X' (index 20): score against anything is the matrix
	// minimum, so it never wins a threshold comparison.
	const xScore = -4
	for i := 0; i <= 20; i++ {
		m.scores[20][i] = xScore
		m.scores[i][20] = xScore
	}
	return m
}

func (m *blosum62) AlphabetSize() int       { return len(m.int2aa) }
func (m *blosum62) Int2AA() []byte          { return m.int2aa }
func (m *blosum62) AA2Int() [256]int8       { return m.aa2int }
func (m *blosum62) Name() string            { return "BLOSUM62" }
func (m *blosum62) Score(a, b byte) int {
	return int(m.scores[a][b])
}

var registry = map[string]func() Matrix{
	"BLOSUM62": func() Matrix { return newBlosum62() },
}

// Lookup resolves a matrix by the name persisted under the
// SCOREMATRIXNAME key (spec.md §4.5).
func Lookup(name string) (Matrix, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatrix, name)
	}
	return ctor(), nil
}

// denseTableCap bounds BuildDense's allocation: an amino-acid alphabet's
// 3-mer extended matrix (20^3 x 20^3) would need 64M int32 cells, 256MB,
// which is disproportionate for an index-file snapshot; BuildDense
// refuses rather than allocate silently, and callers needing 3-mer scores
// over a full alphabet should use Score on demand instead.
const denseTableCap = 4_000_000

// ExtendedMatrix computes pairwise extended substitution scores for
// k-mers (k=2 or 3) against a base residue matrix, summing per-position
// scores rather than eagerly materializing a dense table — "produced on
// demand" per spec.md §6's substitution-matrix contract.
type ExtendedMatrix struct {
	base    Matrix
	k       int
	effSize int
}

// NewExtended builds an ExtendedMatrix for k-mers of length k (2 or 3)
// over base's alphabet, excluding the reserved residue from the packing
// radix exactly as pkg/alphabet does for AMINO_ACIDS/NUCLEOTIDES.
func NewExtended(base Matrix, k int) *ExtendedMatrix {
	return &ExtendedMatrix{base: base, k: k, effSize: base.AlphabetSize() - 1}
}

func (e *ExtendedMatrix) decode(index uint32) []byte {
	out := make([]byte, e.k)
	rem := uint64(index)
	for j := 0; j < e.k; j++ {
		out[j] = byte(rem % uint64(e.effSize))
		rem /= uint64(e.effSize)
	}
	return out
}

// Score returns the extended score between packed k-mer indices a and b:
// the sum of the base matrix's per-position residue-pair scores.
func (e *ExtendedMatrix) Score(a, b uint32) int {
	da, db := e.decode(a), e.decode(b)
	total := 0
	for i := 0; i < e.k; i++ {
		total += e.base.Score(da[i], db[i])
	}
	return total
}

// BuildDense materializes the full effSize^k x effSize^k score table in
// row-major order, for bundling into the SCOREMATRIX{2,3}MER blobs. It
// refuses (ErrMatrixTooLarge) when the table would exceed denseTableCap
// cells.
func (e *ExtendedMatrix) BuildDense() ([]int32, int, error) {
	space := 1
	for i := 0; i < e.k; i++ {
		space *= e.effSize
	}
	if space*space > denseTableCap {
		return nil, 0, fmt.Errorf("%w: %d x %d cells", ErrMatrixTooLarge, space, space)
	}
	table := make([]int32, space*space)
	for a := 0; a < space; a++ {
		for b := 0; b < space; b++ {
			table[a*space+b] = int32(e.Score(uint32(a), uint32(b)))
		}
	}
	return table, space, nil
}

// EncodeDense serializes a dense table (as produced by BuildDense) to
// little-endian int32 bytes, the SCOREMATRIX{2,3}MER blob payload.
func EncodeDense(table []int32) []byte {
	out := make([]byte, len(table)*4)
	for i, v := range table {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], uint32(v))
	}
	return out
}

// DecodeDense is EncodeDense's inverse.
func DecodeDense(blob []byte) ([]int32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("scorematrix: blob length %d not a multiple of 4", len(blob))
	}
	out := make([]int32, len(blob)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return out, nil
}
