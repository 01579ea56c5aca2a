package alphabet

import "testing"

// protein21 maps the 20 standard amino acids to codes 0..19 and 'X' to 20,
// mirroring the MICA/cablastp convention of appending the reserved code at
// the end of the declared alphabet.
var protein21 = map[byte]byte{
	'A': 0, 'R': 1, 'N': 2, 'D': 3, 'C': 4, 'Q': 5, 'E': 6, 'G': 7, 'H': 8,
	'I': 9, 'L': 10, 'K': 11, 'M': 12, 'F': 13, 'P': 14, 'S': 15, 'T': 16,
	'W': 17, 'Y': 18, 'V': 19, 'X': 20,
}

func encode(seq string) []byte {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		out[i] = protein21[seq[i]]
	}
	return out
}

// TestS1KmerIndexing is spec.md scenario S1: alphabet size 21, k=2,
// sequence "MIPAEAGRPSLADS" should yield 13 indices in [0,400) with an
// exact indexToResidues round trip.
func TestS1KmerIndexing(t *testing.T) {
	const seq = "MIPAEAGRPSLADS"
	residues := encode(seq)

	ix, err := New(21, AminoAcids, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ix.EffectiveAlphabetSize() != 20 {
		t.Fatalf("effective alphabet = %d, want 20", ix.EffectiveAlphabetSize())
	}

	var got int
	windows := len(residues) - ix.Span() + 1
	for i := 0; i < windows; i++ {
		start := ix.Cursor()
		idx, ok := ix.NextIndex(residues)
		if !ok {
			t.Fatalf("window at %d unexpectedly invalid", start)
		}
		got++
		if idx >= 400 {
			t.Fatalf("index %d out of range [0,400)", idx)
		}

		out := make([]byte, 2)
		if err := IndexToResidues(idx, 2, 20, out); err != nil {
			t.Fatalf("IndexToResidues: %v", err)
		}
		if out[0] != residues[start] || out[1] != residues[start+1] {
			t.Fatalf("round trip mismatch at %d: got %v, want %v", start, out, residues[start:start+2])
		}
	}
	if want := len(seq) - 2 + 1; got != want {
		t.Fatalf("got %d k-mer indices, want %d", got, want)
	}
}

func TestNextIndexRejectsReserved(t *testing.T) {
	ix, err := New(21, AminoAcids, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	residues := encode("AX")
	if _, ok := ix.NextIndex(residues); ok {
		t.Fatalf("expected NextIndex to reject a window containing the reserved residue")
	}
}

func TestSpacedPatternUsesFirstKSetBits(t *testing.T) {
	// pattern covers 4 positions, bits set at 0,1,3 — k=3 needs exactly
	// those three digits, skipping position 2.
	pattern := []bool{true, true, false, true}
	ix, err := New(21, AminoAcids, 3, pattern)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ix.Span() != 4 {
		t.Fatalf("span = %d, want 4", ix.Span())
	}
	residues := encode("ARXN")
	idx, ok := ix.NextIndex(residues)
	if !ok {
		t.Fatalf("expected a valid index")
	}
	out := make([]byte, 3)
	if err := IndexToResidues(idx, 3, ix.EffectiveAlphabetSize(), out); err != nil {
		t.Fatalf("IndexToResidues: %v", err)
	}
	want := []byte{protein21['A'], protein21['R'], protein21['N']}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("digit %d = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestNewRejectsKOutOfRange(t *testing.T) {
	if _, err := New(21, AminoAcids, 1, nil); err == nil {
		t.Fatalf("expected error for k=1")
	}
	if _, err := New(21, AminoAcids, 8, nil); err == nil {
		t.Fatalf("expected error for k=8")
	}
}

func TestNewRejectsShortSpacedPattern(t *testing.T) {
	pattern := []bool{true, false, true}
	if _, err := New(21, AminoAcids, 3, pattern); err == nil {
		t.Fatalf("expected error: pattern has only 2 set bits for k=3")
	}
}
