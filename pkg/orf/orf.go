// Package orf implements the six-frame open reading frame scan over a
// nucleotide contig: enumerating candidate coding fragments under
// configurable start/stop policies, in the manner of MICA's translate.go
// (_examples/ndaniels-MICA/translate.go) but producing coordinate ranges
// instead of translated protein, per spec.md §4.4.
package orf

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	ErrUnknownGenCode = errors.New("orf: unknown genetic code table")
	ErrBadParams      = errors.New("orf: invalid parameters")
	ErrParse          = errors.New("orf: malformed ORF header")
)

// StartMode selects how a stop-delimited piece of a reading frame is
// turned into emitted ORFs.
type StartMode int

const (
	// StartToStop emits every substring beginning at a start codon and
	// ending at the next in-frame stop codon.
	StartToStop StartMode = iota
	// AnyToStop tiles the whole frame by stop-delimited pieces, each
	// emitted regardless of whether it begins at a start codon.
	AnyToStop
	// LastStartToStop emits, per stop-delimited piece, only the
	// substring starting at the last in-frame start codon before the
	// stop (if any).
	LastStartToStop
)

// SequenceLocation is one emitted ORF: half-open forward-strand
// coordinates, with incomplete-start/end bookkeeping and strand sign.
type SequenceLocation struct {
	ContigID        uint32
	From, To        int
	IncompleteStart bool
	IncompleteEnd   bool
	Strand          int8 // +1 or -1
}

// Length returns To-From, the fragment length in nucleotides.
func (l SequenceLocation) Length() int { return l.To - l.From }

// Params configures Extract. MaxLength <= 0 means unbounded.
type Params struct {
	MinLength         int
	MaxLength         int
	MaxGaps           int
	ForwardFrames     []int // subset of {0,1,2}
	ReverseFrames     []int // subset of {0,1,2}
	StartMode         StartMode
	GenCode           int
	UseAllTableStarts bool
	// TableOverride, when non-nil, is used instead of looking GenCode
	// up in the built-in registry.
	TableOverride *Table
}

func (p Params) validate() error {
	if p.MaxLength > 0 && p.MaxLength < p.MinLength {
		return fmt.Errorf("%w: maxLength %d < minLength %d", ErrBadParams, p.MaxLength, p.MinLength)
	}
	for _, f := range p.ForwardFrames {
		if f < 0 || f > 2 {
			return fmt.Errorf("%w: forward frame %d out of {0,1,2}", ErrBadParams, f)
		}
	}
	for _, f := range p.ReverseFrames {
		if f < 0 || f > 2 {
			return fmt.Errorf("%w: reverse frame %d out of {0,1,2}", ErrBadParams, f)
		}
	}
	return nil
}

func isACGT(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T':
		return true
	}
	return false
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

func normalize(contig []byte) []byte {
	out := make([]byte, len(contig))
	for i, b := range contig {
		out[i] = upper(b)
	}
	return out
}

var complements = map[byte]byte{
	'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C',
}

func complement(b byte) byte {
	if c, ok := complements[b]; ok {
		return c
	}
	return b // N, gaps and other ambiguity codes complement to themselves
}

func reverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	n := len(seq)
	for i, b := range seq {
		out[n-1-i] = complement(b)
	}
	return out
}

// maxGapRun returns the longest run of consecutive ambiguous (non-ACGT)
// bases within seq[from:to].
func maxGapRun(seq []byte, from, to int) int {
	run, max := 0, 0
	for i := from; i < to; i++ {
		if isACGT(seq[i]) {
			run = 0
			continue
		}
		run++
		if run > max {
			max = run
		}
	}
	return max
}

type piece struct {
	start, end                     int
	incompleteStart, incompleteEnd bool
}

// framePieces tiles frame-aligned codon positions [frame, frame+3, ...]
// in seq into stop-delimited pieces: from the frame start (or the codon
// after a stop) up to and including the next stop, plus a trailing
// incomplete piece if the frame ends without a further stop.
func framePieces(seq []byte, frame int, stops map[string]bool) []piece {
	var pieces []piece
	pieceStart := frame
	i := frame
	for ; i+3 <= len(seq); i += 3 {
		codon := string(seq[i : i+3])
		if stops[codon] {
			pieces = append(pieces, piece{
				start:           pieceStart,
				end:             i + 3,
				incompleteStart: pieceStart == frame,
				incompleteEnd:   false,
			})
			pieceStart = i + 3
		}
	}
	// trailing piece: whatever is left, with no stop seen
	pieces = append(pieces, piece{
		start:           pieceStart,
		end:             i,
		incompleteStart: pieceStart == frame,
		incompleteEnd:   true,
	})
	return pieces
}

func lastStartBefore(seq []byte, from, to int, starts map[string]bool) (int, bool) {
	for i := to - 3; i >= from; i -= 3 {
		if starts[string(seq[i:i+3])] {
			return i, true
		}
	}
	return 0, false
}

func firstStartAt(seq []byte, pos int, starts map[string]bool) bool {
	if pos+3 > len(seq) {
		return false
	}
	return starts[string(seq[pos:pos+3])]
}

// scanFrame runs the policy for one reading frame over seq (already
// oriented so that frame-space coordinates are forward in seq) and
// appends candidate [from,to) spans (not yet length- or gap-filtered).
func scanFrame(seq []byte, frame int, starts, stops map[string]bool, mode StartMode) []piece {
	switch mode {
	case StartToStop:
		var out []piece
		stopPositions := make([]int, 0)
		for i := frame; i+3 <= len(seq); i += 3 {
			if stops[string(seq[i:i+3])] {
				stopPositions = append(stopPositions, i)
			}
		}
		for i := frame; i+3 <= len(seq); i += 3 {
			if !firstStartAt(seq, i, starts) {
				continue
			}
			// next stop strictly after i
			stopIdx := -1
			for _, sp := range stopPositions {
				if sp > i {
					stopIdx = sp
					break
				}
			}
			if stopIdx >= 0 {
				out = append(out, piece{start: i, end: stopIdx + 3})
			} else {
				end := i
				for end+3 <= len(seq) {
					end += 3
				}
				out = append(out, piece{start: i, end: end, incompleteEnd: true})
			}
		}
		return out

	case AnyToStop:
		return framePieces(seq, frame, stops)

	case LastStartToStop:
		var out []piece
		for _, p := range framePieces(seq, frame, stops) {
			start, ok := lastStartBefore(seq, p.start, p.end, starts)
			if !ok {
				continue
			}
			out = append(out, piece{start: start, end: p.end, incompleteEnd: p.incompleteEnd})
		}
		return out
	}
	return nil
}

func resolveTable(p Params) (Table, error) {
	if p.TableOverride != nil {
		return *p.TableOverride, nil
	}
	t, ok := LookupTable(p.GenCode)
	if !ok {
		return Table{}, fmt.Errorf("%w: %d", ErrUnknownGenCode, p.GenCode)
	}
	return t, nil
}

// Extract runs the six-frame scan over contig and returns every emitted
// ORF meeting the length and gap-count policies in Params.
func Extract(contigID uint32, contig []byte, p Params) ([]SequenceLocation, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	table, err := resolveTable(p)
	if err != nil {
		return nil, err
	}

	startCodons := table.Starts
	if p.UseAllTableStarts {
		startCodons = append(append([]string{}, table.Starts...), table.AltStarts...)
	}
	starts := codonSet(startCodons)
	stops := codonSet(table.Stops)

	fwd := normalize(contig)
	rev := reverseComplement(fwd)
	L := len(fwd)

	var locs []SequenceLocation

	emit := func(seq []byte, frame int, strand int8) {
		for _, piece := range scanFrame(seq, frame, starts, stops, p.StartMode) {
			length := piece.end - piece.start
			if length < p.MinLength {
				continue
			}
			if p.MaxLength > 0 && length > p.MaxLength {
				continue
			}
			if maxGapRun(seq, piece.start, piece.end) > p.MaxGaps {
				continue
			}

			loc := SequenceLocation{
				ContigID:        contigID,
				IncompleteStart: piece.incompleteStart,
				IncompleteEnd:   piece.incompleteEnd,
				Strand:          strand,
			}
			if strand > 0 {
				loc.From, loc.To = piece.start, piece.end
			} else {
				loc.From, loc.To = L-piece.end, L-piece.start
			}
			locs = append(locs, loc)
		}
	}

	for _, f := range p.ForwardFrames {
		emit(fwd, f, 1)
	}
	for _, f := range p.ReverseFrames {
		emit(rev, f, -1)
	}

	return locs, nil
}

var headerRe = regexp.MustCompile(`^\[(\d+)\] from=(\d+) to=(\d+) strand=([+-]1) incStart=([01]) incEnd=([01]) contigId=(\d+)$`)

// FormatHeader renders loc as the textual ORF header spec.md §4.4 defines,
// with orfID as the bracketed identifier.
func FormatHeader(orfID int, loc SequenceLocation) string {
	strand := "+1"
	if loc.Strand < 0 {
		strand = "-1"
	}
	incStart, incEnd := 0, 0
	if loc.IncompleteStart {
		incStart = 1
	}
	if loc.IncompleteEnd {
		incEnd = 1
	}
	return fmt.Sprintf("[%d] from=%d to=%d strand=%s incStart=%d incEnd=%d contigId=%d",
		orfID, loc.From, loc.To, strand, incStart, incEnd, loc.ContigID)
}

// ParseHeader is FormatHeader's inverse; it returns the ORF id and the
// decoded SequenceLocation, or ErrParse if header does not match the
// expected layout byte-exactly.
func ParseHeader(header string) (int, SequenceLocation, error) {
	m := headerRe.FindStringSubmatch(header)
	if m == nil {
		return 0, SequenceLocation{}, fmt.Errorf("%w: %q", ErrParse, header)
	}
	orfID, _ := strconv.Atoi(m[1])
	from, _ := strconv.Atoi(m[2])
	to, _ := strconv.Atoi(m[3])
	contigID, _ := strconv.ParseUint(m[7], 10, 32)

	loc := SequenceLocation{
		ContigID:        uint32(contigID),
		From:            from,
		To:              to,
		IncompleteStart: m[5] == "1",
		IncompleteEnd:   m[6] == "1",
		Strand:          1,
	}
	if m[4] == "-1" {
		loc.Strand = -1
	}
	return orfID, loc, nil
}

// Translate renders the protein produced by reading seq codon-by-codon
// under table, stopping translation (but not appending) at the first
// stop codon seen. Used for diagnostics and for feeding an emitted ORF's
// fragment into the protein indexing path when the downstream consumer
// wants amino acids rather than nucleotides.
func Translate(seq []byte, table Table) []byte {
	out := make([]byte, 0, len(seq)/3)
	for i := 0; i+3 <= len(seq); i += 3 {
		codon := string(upper3(seq[i : i+3]))
		aa, ok := table.AA[codon]
		if !ok || aa == '*' {
			break
		}
		out = append(out, aa)
	}
	return out
}

func upper3(codon []byte) []byte {
	out := make([]byte, 3)
	for i, b := range codon {
		out[i] = upper(b)
	}
	return out
}
