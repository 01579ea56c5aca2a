package indexfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildSample(t *testing.T, path string) {
	w := NewWriter(512)
	w.Put(KeyVersion, []byte(CurrentVersion))
	w.Put(KeyMeta, EncodeMeta(Meta{K: 5, AlphabetSize: 21, PositionWidthBytes: 4, MaskMode: 0, KmerScoreThreshold: 10, MaxSeqLen: 65536, SeqType: 0}))
	w.Put(KeyScoreMatrixName, []byte("BLOSUM62"))
	w.Put(KeyEntries, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	w.Put(KeyEntriesOffsets, bytes.Repeat([]byte{0}, 64))
	w.Put(KeyEntriesNum, []byte{8, 0, 0, 0, 0, 0, 0, 0})
	w.Put(KeySeqCount, []byte{2, 0, 0, 0, 0, 0, 0, 0})
	w.Put(KeyGenerator, []byte("kmeridx-build/test"))
	if err := w.PutCompressed(KeyScoreMatrix2Mer, bytes.Repeat([]byte{9}, 400)); err != nil {
		t.Fatalf("PutCompressed: %v", err)
	}
	if err := w.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestWriteThenOpenCopyMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.k5")
	buildSample(t, path)

	r, err := Open(path, ModeCopy)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	meta, err := r.Meta()
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta.K != 5 || meta.AlphabetSize != 21 {
		t.Fatalf("Meta = %+v, unexpected", meta)
	}

	entries, err := r.MustGet(KeyEntries)
	if err != nil || !bytes.Equal(entries, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("Get(ENTRIES) = %v, %v", entries, err)
	}

	if _, ok, err := r.Get(KeyHDRIndex); err != nil || ok {
		t.Fatalf("Get(HDRINDEX) should be absent: ok=%v err=%v", ok, err)
	}
}

func TestScoreMatrixCompressedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.k5")
	buildSample(t, path)

	r, err := Open(path, ModeCopy)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	got, err := r.MustGet(KeyScoreMatrix2Mer)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	want := bytes.Repeat([]byte{9}, 400)
	if !bytes.Equal(got, want) {
		t.Fatalf("ScoreMatrix2Mer round trip mismatch: got %d bytes, want %d", len(got), len(want))
	}
}

func TestOpenRejectsMissingVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.k5")
	w := NewWriter(512)
	w.Put(KeyMeta, EncodeMeta(Meta{K: 5}))
	if err := w.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(path, ModeCopy); err == nil {
		t.Fatalf("expected ErrVersionMismatch, got nil")
	}
}

func TestTamperedVersionByteFailsOpen(t *testing.T) {
	// Invariant 8: tampering any byte of the VERSION blob causes open
	// to fail.
	path := filepath.Join(t.TempDir(), "test.k5")
	buildSample(t, path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Locate the VERSION string inside the raw file and flip one byte.
	idx := bytes.Index(data, []byte(CurrentVersion))
	if idx < 0 {
		t.Fatalf("version string not found in file")
	}
	data[idx] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Open(path, ModeCopy); err == nil {
		t.Fatalf("expected open to fail after tampering VERSION blob")
	}
}

func TestDumpText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.k5")
	buildSample(t, path)

	r, err := Open(path, ModeCopy)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if err := r.DumpText(&buf); err != nil {
		t.Fatalf("DumpText: %v", err)
	}
	if !strings.Contains(buf.String(), "ENTRIES,true") {
		t.Fatalf("DumpText output missing ENTRIES line: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "HDRINDEX,false") {
		t.Fatalf("DumpText output missing absent HDRINDEX line: %s", buf.String())
	}
}
