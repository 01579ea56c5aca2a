package orf

import "testing"

var allFrames = []int{0, 1, 2}

func baseParams() Params {
	return Params{
		MinLength:     3,
		MaxLength:     0,
		MaxGaps:       0,
		ForwardFrames: allFrames,
		ReverseFrames: allFrames,
		StartMode:     StartToStop,
		GenCode:       1,
	}
}

// TestS3SixFrameForward is spec.md scenario S3.
func TestS3SixFrameForward(t *testing.T) {
	locs, err := Extract(7, []byte("ATGAAATAA"), baseParams())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("got %d ORFs, want 1: %+v", len(locs), locs)
	}
	want := SequenceLocation{ContigID: 7, From: 0, To: 9, Strand: 1}
	if locs[0] != want {
		t.Fatalf("got %+v, want %+v", locs[0], want)
	}
}

// TestS4GapCutoff is spec.md scenario S4.
func TestS4GapCutoff(t *testing.T) {
	contig := "ATG" + repeat('N', 40) + "TAA"
	p := baseParams()
	p.MaxGaps = 30
	locs, err := Extract(1, []byte(contig), p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(locs) != 0 {
		t.Fatalf("expected no ORFs, got %+v", locs)
	}
}

func repeat(b byte, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return string(out)
}

// TestS5ReverseFrame is spec.md scenario S5.
func TestS5ReverseFrame(t *testing.T) {
	locs, err := Extract(7, []byte("TTATTTCAT"), baseParams())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("got %d ORFs, want 1: %+v", len(locs), locs)
	}
	want := SequenceLocation{ContigID: 7, From: 0, To: 9, Strand: -1}
	if locs[0] != want {
		t.Fatalf("got %+v, want %+v", locs[0], want)
	}
}

// TestInvariant5ReverseCoordinates checks 0 <= from < to <= L for every
// reverse-strand hit across a mixed contig.
func TestInvariant5ReverseCoordinates(t *testing.T) {
	contig := []byte("ATGAAACCCGGGTTTATGCCCTAAATGGGGTAG")
	p := baseParams()
	p.StartMode = AnyToStop
	locs, err := Extract(1, contig, p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	L := len(contig)
	for _, l := range locs {
		if l.Strand != -1 {
			continue
		}
		if !(0 <= l.From && l.From < l.To && l.To <= L) {
			t.Fatalf("invalid reverse coordinates %+v for L=%d", l, L)
		}
	}
}

// TestInvariant4HeaderRoundTrip checks parseOrfHeader(formatOrfHeader(loc))
// == loc byte-exactly, across both strands and both flag combinations.
func TestInvariant4HeaderRoundTrip(t *testing.T) {
	cases := []SequenceLocation{
		{ContigID: 3, From: 10, To: 40, Strand: 1},
		{ContigID: 3, From: 10, To: 40, Strand: -1, IncompleteStart: true},
		{ContigID: 99, From: 0, To: 9, Strand: 1, IncompleteEnd: true},
		{ContigID: 99, From: 0, To: 9, Strand: -1, IncompleteStart: true, IncompleteEnd: true},
	}
	for _, want := range cases {
		header := FormatHeader(5, want)
		id, got, err := ParseHeader(header)
		if err != nil {
			t.Fatalf("ParseHeader(%q): %v", header, err)
		}
		if id != 5 {
			t.Fatalf("orf id = %d, want 5", id)
		}
		if got != want {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestParseHeaderRejectsMalformed(t *testing.T) {
	if _, _, err := ParseHeader("not an orf header"); err == nil {
		t.Fatalf("expected ErrParse for malformed header")
	}
}

func TestAnyToStopTilesWholeFrame(t *testing.T) {
	contig := []byte("AAATAACCCTAAGGG") // frame0: AAA TAA CCC TAA GGG
	p := baseParams()
	p.StartMode = AnyToStop
	p.ForwardFrames = []int{0}
	p.ReverseFrames = nil
	locs, err := Extract(1, contig, p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// 3 stop-delimited pieces: [0,6), [6,12), [12,15) (trailing, incomplete)
	if len(locs) != 3 {
		t.Fatalf("got %d pieces, want 3: %+v", len(locs), locs)
	}
	if !locs[0].IncompleteStart {
		t.Fatalf("first piece should have incompleteStart=true")
	}
	if locs[1].IncompleteStart {
		t.Fatalf("second piece should have incompleteStart=false (begins after a stop, not at frame start)")
	}
	last := locs[len(locs)-1]
	if !last.IncompleteEnd {
		t.Fatalf("trailing piece should have incompleteEnd=true")
	}
}

func TestLastStartToStopPicksLastStart(t *testing.T) {
	// frame0 codons: ATG ATG CCC TAA -> piece [0,12) has two starts; only
	// the last (position 3) should be used.
	contig := []byte("ATGATGCCCTAA")
	p := baseParams()
	p.StartMode = LastStartToStop
	p.ForwardFrames = []int{0}
	p.ReverseFrames = nil
	locs, err := Extract(1, contig, p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("got %d ORFs, want 1: %+v", len(locs), locs)
	}
	if locs[0].From != 3 || locs[0].To != 12 {
		t.Fatalf("got From=%d To=%d, want From=3 To=12", locs[0].From, locs[0].To)
	}
}

func TestTranslateStopsAtFirstStop(t *testing.T) {
	table, ok := LookupTable(1)
	if !ok {
		t.Fatalf("standard table missing")
	}
	got := Translate([]byte("ATGAAATAACCC"), table)
	if string(got) != "MK" {
		t.Fatalf("Translate = %q, want %q", got, "MK")
	}
}
