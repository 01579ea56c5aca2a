package scorematrix

import "testing"

func TestLookupBlosum62(t *testing.T) {
	m, err := Lookup("BLOSUM62")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if m.AlphabetSize() != 21 {
		t.Fatalf("alphabet size = %d, want 21", m.AlphabetSize())
	}
	// identity score for alanine (index 0) must be the diagonal value.
	if got := m.Score(0, 0); got != 4 {
		t.Fatalf("Score(A,A) = %d, want 4", got)
	}
}

func TestLookupUnknownMatrix(t *testing.T) {
	if _, err := Lookup("nonexistent"); err == nil {
		t.Fatalf("expected error for unknown matrix name")
	}
}

func TestExtendedScoreIsSumOfPositions(t *testing.T) {
	base, _ := Lookup("BLOSUM62")
	ext := NewExtended(base, 2)

	// index 0 is residue (0,0); index 1 (assuming effSize=20) is (1,0).
	aScore := base.Score(0, 0) + base.Score(0, 0)
	got := ext.Score(0, 0)
	if got != aScore {
		t.Fatalf("Score(0,0) = %d, want %d", got, aScore)
	}
}

func TestBuildDenseRoundTrip(t *testing.T) {
	base, _ := Lookup("BLOSUM62")
	ext := NewExtended(base, 2)
	table, space, err := ext.BuildDense()
	if err != nil {
		t.Fatalf("BuildDense: %v", err)
	}
	if len(table) != space*space {
		t.Fatalf("table length = %d, want %d", len(table), space*space)
	}

	blob := EncodeDense(table)
	decoded, err := DecodeDense(blob)
	if err != nil {
		t.Fatalf("DecodeDense: %v", err)
	}
	if len(decoded) != len(table) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(table))
	}
	for i := range table {
		if decoded[i] != table[i] {
			t.Fatalf("decoded[%d] = %d, want %d", i, decoded[i], table[i])
		}
	}
}

func TestBuildDenseRefusesOversizedK3(t *testing.T) {
	base, _ := Lookup("BLOSUM62")
	ext := NewExtended(base, 3)
	if _, _, err := ext.BuildDense(); err == nil {
		t.Fatalf("expected ErrMatrixTooLarge for a full 20-letter 3-mer table")
	}
}
