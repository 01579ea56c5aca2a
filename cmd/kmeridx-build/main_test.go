package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kmeridx/kmeridx/pkg/alphabet"
	"github.com/kmeridx/kmeridx/pkg/indexfile"
	"github.com/kmeridx/kmeridx/pkg/kmerindex"
)

const testFasta = `>seq1 first test sequence
MIPAEAGRPSLADSMIPAEAGRPSLADS
>seq2 second test sequence
MSSAEAGRPSLADSMSSAEAGRPSLADS
`

// TestRunBuildAndReopen runs the CLI entrypoint end-to-end: it writes a
// small FASTA sequenceDB, builds a real on-disk index through run(), then
// reopens that index through indexfile.Open/alphabet.New/kmerindex.Attach
// the way cmd/kmeridx-inspect does, and checks the reopened table answers
// a lookup. This exercises the real Writer/Reader round trip that
// pkg/kmerindex's in-memory TestS6PersistReopen does not.
func TestRunBuildAndReopen(t *testing.T) {
	dir := t.TempDir()
	seqDB := filepath.Join(dir, "seqs.fasta")
	if err := os.WriteFile(seqDB, []byte(testFasta), 0o644); err != nil {
		t.Fatalf("write sequenceDB: %v", err)
	}
	outIndex := filepath.Join(dir, "out.kix")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-k", "2", seqDB, outIndex}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("run() = %d, stderr: %s", code, stderr.String())
	}

	r, err := indexfile.Open(outIndex, indexfile.ModeCopy)
	if err != nil {
		t.Fatalf("indexfile.Open: %v", err)
	}
	defer r.Close()

	meta, err := r.Meta()
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta.SpacedKmer != 0 {
		t.Fatalf("meta.SpacedKmer = %d, want 0 for a contiguous build", meta.SpacedKmer)
	}

	indexer, err := alphabet.New(int(meta.AlphabetSize), alphabet.SeqType(meta.SeqType), int(meta.K), nil)
	if err != nil {
		t.Fatalf("alphabet.New: %v", err)
	}

	entries, err := r.MustGet(indexfile.KeyEntries)
	if err != nil {
		t.Fatalf("MustGet(KeyEntries): %v", err)
	}
	offsets, err := r.MustGet(indexfile.KeyEntriesOffsets)
	if err != nil {
		t.Fatalf("MustGet(KeyEntriesOffsets): %v", err)
	}
	table, err := kmerindex.Attach(entries, offsets, kmerindex.PositionWidth(meta.PositionWidthBytes))
	if err != nil {
		t.Fatalf("kmerindex.Attach: %v", err)
	}
	defer table.Close()

	idx, ok := indexer.NextIndex(encodeAA("MI"))
	if !ok {
		t.Fatalf("could not index %q", "MI")
	}
	hits, err := table.Lookup(idx)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(hits) == 0 {
		t.Fatalf("Lookup(%q) returned no entries, want at least one hit from seq1", "MI")
	}

	hdrBlob, ok, err := r.Get(indexfile.KeyHDRIndex)
	if err != nil {
		t.Fatalf("Get(KeyHDRIndex): %v", err)
	}
	if !ok {
		t.Fatalf("KeyHDRIndex absent, want headers persisted for a FASTA build")
	}
	headers, err := indexfile.DecodeHeaders(hdrBlob)
	if err != nil {
		t.Fatalf("DecodeHeaders: %v", err)
	}
	if len(headers) != 2 || !strings.Contains(headers[0], "seq1") || !strings.Contains(headers[1], "seq2") {
		t.Fatalf("headers = %v, want [seq1..., seq2...]", headers)
	}
}

// TestRunBuildSpacedKmerReopen builds with --spaced-kmer and confirms the
// pattern persisted under KeyKmerPattern round-trips byte-for-byte and
// that alphabet.New, fed that decoded pattern, reopens the index without
// error. Before meta.go grew a SpacedKmer bit this path had no coverage:
// cmd/kmeridx-inspect's openSession silently passed nil instead.
func TestRunBuildSpacedKmerReopen(t *testing.T) {
	dir := t.TempDir()
	seqDB := filepath.Join(dir, "seqs.fasta")
	if err := os.WriteFile(seqDB, []byte(testFasta), 0o644); err != nil {
		t.Fatalf("write sequenceDB: %v", err)
	}
	outIndex := filepath.Join(dir, "out.kix")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-k", "3", "--spaced-kmer", seqDB, outIndex}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("run() = %d, stderr: %s", code, stderr.String())
	}

	r, err := indexfile.Open(outIndex, indexfile.ModeCopy)
	if err != nil {
		t.Fatalf("indexfile.Open: %v", err)
	}
	defer r.Close()

	meta, err := r.Meta()
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta.SpacedKmer == 0 {
		t.Fatalf("meta.SpacedKmer = 0, want nonzero for a --spaced-kmer build")
	}

	patternBlob, err := r.MustGet(indexfile.KeyKmerPattern)
	if err != nil {
		t.Fatalf("MustGet(KeyKmerPattern): %v", err)
	}
	pattern := indexfile.DecodeKmerPattern(patternBlob)
	want := defaultSpacedPattern(3)
	if len(pattern) != len(want) {
		t.Fatalf("decoded pattern len = %d, want %d", len(pattern), len(want))
	}
	for i := range want {
		if pattern[i] != want[i] {
			t.Fatalf("decoded pattern[%d] = %v, want %v", i, pattern[i], want[i])
		}
	}

	if _, err := alphabet.New(int(meta.AlphabetSize), alphabet.SeqType(meta.SeqType), int(meta.K), pattern); err != nil {
		t.Fatalf("alphabet.New with decoded pattern: %v", err)
	}
}

var protein21 = map[byte]byte{
	'A': 0, 'R': 1, 'N': 2, 'D': 3, 'C': 4, 'Q': 5, 'E': 6, 'G': 7, 'H': 8,
	'I': 9, 'L': 10, 'K': 11, 'M': 12, 'F': 13, 'P': 14, 'S': 15, 'T': 16,
	'W': 17, 'Y': 18, 'V': 19, 'X': 20,
}

func encodeAA(s string) []byte {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = protein21[s[i]]
	}
	return out
}
