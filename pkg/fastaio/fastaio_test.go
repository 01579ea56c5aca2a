package fastaio

import (
	"io"
	"strings"
	"testing"
)

func TestReadTwoRecords(t *testing.T) {
	const data = ">seq0 first\nMIPAE\nAGRPS\n>seq1 second\nMSSAE\n"
	r := NewReader(strings.NewReader(data))

	rec0, err := r.Read()
	if err != nil {
		t.Fatalf("Read rec0: %v", err)
	}
	if rec0.ID != 0 || rec0.Header != "seq0 first" || string(rec0.Residues) != "MIPAEAGRPS" {
		t.Fatalf("rec0 = %+v", rec0)
	}

	rec1, err := r.Read()
	if err != nil {
		t.Fatalf("Read rec1: %v", err)
	}
	if rec1.ID != 1 || rec1.Header != "seq1 second" || string(rec1.Residues) != "MSSAE" {
		t.Fatalf("rec1 = %+v", rec1)
	}

	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadRejectsResiduesBeforeHeader(t *testing.T) {
	r := NewReader(strings.NewReader("MIPAE\n>seq0\nAGRPS\n"))
	if _, err := r.Read(); err == nil {
		t.Fatalf("expected ErrMalformed")
	}
}

func TestReadEmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("expected io.EOF on empty input, got %v", err)
	}
}

func TestReadSkipsBlankLines(t *testing.T) {
	r := NewReader(strings.NewReader(">seq0\n\nMIPAE\n\n"))
	rec, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(rec.Residues) != "MIPAE" {
		t.Fatalf("Residues = %q", rec.Residues)
	}
}
