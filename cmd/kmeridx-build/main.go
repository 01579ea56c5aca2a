// Command kmeridx-build is the prefilter index build CLI, spec.md §6's
// CLI surface: positional <sequenceDB> <outIndex>, flags for k, spacing,
// masking, scoring, and alphabet parameters, exit codes 0/1/2/3.
//
// Structured after cmd/kevo/main.go: flag.Usage prints a custom message,
// flag.Parse populates a local Config, and the real work happens in run,
// which returns an exit code instead of calling os.Exit directly so the
// dispatch stays testable.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kmeridx/kmeridx/pkg/alphabet"
	"github.com/kmeridx/kmeridx/pkg/buildstats"
	"github.com/kmeridx/kmeridx/pkg/common/log"
	"github.com/kmeridx/kmeridx/pkg/config"
	"github.com/kmeridx/kmeridx/pkg/fastaio"
	"github.com/kmeridx/kmeridx/pkg/indexfile"
	"github.com/kmeridx/kmeridx/pkg/kmerindex"
	"github.com/kmeridx/kmeridx/pkg/mask"
	"github.com/kmeridx/kmeridx/pkg/orf"
	"github.com/kmeridx/kmeridx/pkg/scorematrix"
	"github.com/kmeridx/kmeridx/pkg/seqlookup"
)

const (
	exitOK              = 0
	exitIOOrFormat      = 1
	exitVersionMismatch = 2
	exitInvalidParam    = 3
)

// defaultMaskWindow/defaultMaskRegion are the WindowMasker thresholds
// used when --mask requests masking; spec.md leaves the masker's own
// tuning outside the CLI surface, so these are the build tool's fixed
// choice.
const (
	defaultMaskWindow = 12
	defaultMaskRegion = 4
)

func usage() {
	fmt.Fprintf(os.Stderr, "kmeridx-build - build a k-mer prefilter index from a FASTA sequence database\n\n")
	fmt.Fprintf(os.Stderr, "Usage: kmeridx-build [flags] <sequenceDB> <outIndex>\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	fmt.Fprintf(os.Stderr, "  -k int                    k-mer length, 2..7 (default 6)\n")
	fmt.Fprintf(os.Stderr, "  --spaced-kmer             use a spaced k-mer pattern instead of contiguous\n")
	fmt.Fprintf(os.Stderr, "  --mask {0|1|2}            0=none 1=hard 2=soft low-complexity masking (default 0)\n")
	fmt.Fprintf(os.Stderr, "  --kmer-score int          minimum self-score a k-mer must meet to be indexed\n")
	fmt.Fprintf(os.Stderr, "  --max-seq-len int         sequences longer than this are skipped (default 1048576)\n")
	fmt.Fprintf(os.Stderr, "  --comp-bias-correction    enable composition bias correction bookkeeping\n")
	fmt.Fprintf(os.Stderr, "  --alphabet-size int       declared alphabet size, including the reserved code (default 21)\n")
	fmt.Fprintf(os.Stderr, "  --seq-type {amino|nucleotide}   input residue type (default amino)\n")
	fmt.Fprintf(os.Stderr, "  --gen-code int            NCBI genetic code table for ORF translation (default 1)\n")
	fmt.Fprintf(os.Stderr, "\nExit codes: 0 success, 1 I/O or format error, 2 version mismatch, 3 invalid parameter.\n")
}

// cliFlags holds the raw flag values; parseFlags translates them into a
// config.Config plus the few parameters (seqType, genCode) the domain
// config does not itself carry.
type cliFlags struct {
	k                  int
	spacedKmer         bool
	mask               int
	kmerScore          int
	maxSeqLen          int
	compBiasCorrection bool
	alphabetSize       int
	seqType            string
	genCode            int
}

func newCLIFlagSet() (*flag.FlagSet, *cliFlags) {
	fs := flag.NewFlagSet("kmeridx-build", flag.ContinueOnError)
	fs.Usage = usage
	c := &cliFlags{}
	fs.IntVar(&c.k, "k", 6, "k-mer length")
	fs.BoolVar(&c.spacedKmer, "spaced-kmer", false, "use a spaced k-mer pattern")
	fs.IntVar(&c.mask, "mask", 0, "masking mode: 0=none 1=hard 2=soft")
	fs.IntVar(&c.kmerScore, "kmer-score", 0, "minimum k-mer self-score")
	fs.IntVar(&c.maxSeqLen, "max-seq-len", 1<<20, "maximum sequence length")
	fs.BoolVar(&c.compBiasCorrection, "comp-bias-correction", false, "enable composition bias correction")
	fs.IntVar(&c.alphabetSize, "alphabet-size", 21, "declared alphabet size")
	fs.StringVar(&c.seqType, "seq-type", "amino", "input residue type: amino or nucleotide")
	fs.IntVar(&c.genCode, "gen-code", 1, "NCBI genetic code table")
	return fs, c
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs, c := newCLIFlagSet()
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return exitInvalidParam
	}
	if fs.NArg() != 2 {
		usage()
		return exitInvalidParam
	}
	sequenceDB, outIndex := fs.Arg(0), fs.Arg(1)

	if c.seqType != "amino" && c.seqType != "nucleotide" {
		fmt.Fprintf(stderr, "kmeridx-build: invalid --seq-type %q\n", c.seqType)
		return exitInvalidParam
	}

	cfg := config.NewDefaultConfig()
	cfg.K = c.k
	cfg.SpacedKmer = c.spacedKmer
	if c.spacedKmer {
		cfg.SpacedPattern = defaultSpacedPattern(c.k)
	}
	cfg.MaskMode = config.MaskMode(c.mask)
	cfg.KmerScoreThreshold = c.kmerScore
	cfg.MaxSeqLen = c.maxSeqLen
	cfg.AlphabetSize = c.alphabetSize
	cfg.CompBiasCorrection = c.compBiasCorrection

	seqType := alphabet.AminoAcids
	if c.seqType == "nucleotide" {
		seqType = alphabet.Nucleotides
	}
	cfg.SeqType = int(seqType)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalidParam
	}

	logger := log.NewStandardLogger(
		log.WithOutput(stderr),
		log.WithInitialFields(map[string]interface{}{"component": "kmeridx-build"}),
	)
	stats := buildstats.NewCollector()
	startTime := stats.StartBuild()

	exitCode, buildErr := build(sequenceDB, outIndex, cfg, seqType, c.genCode, logger, stats)
	if buildErr != nil {
		fmt.Fprintln(stderr, buildErr)
		return exitCode
	}

	stats.FinishBuild(startTime, stats.SequencesIndexed(), stats.EntriesWritten())
	fmt.Fprintf(stdout, "built %s: %v\n", outIndex, stats.GetStats()["build"])
	return exitOK
}

// defaultSpacedPattern builds a fixed spaced-seed pattern with exactly k
// set bits: alternating positions, so the pattern's span is 2k-1
// residues without requiring the CLI to accept a literal bit pattern.
func defaultSpacedPattern(k int) []bool {
	pattern := make([]bool, 2*k-1)
	for i := range pattern {
		pattern[i] = i%2 == 0
	}
	return pattern
}

type residueRecord struct {
	seqID  uint32
	header string
	raw    []byte // amino acid letters, post-ORF-translation if nucleotide input
}

// build runs the two-pass index build over sequenceDB and writes the
// sealed container to outIndex, alongside a sibling MANIFEST. It returns
// the exit code to use on failure (0 alongside a nil error on success).
func build(sequenceDB, outIndex string, cfg *config.Config, seqType alphabet.SeqType, genCode int, logger log.Logger, stats *buildstats.AtomicCollector) (int, error) {
	matrix, err := scorematrix.Lookup(cfg.ScoreMatrixName)
	if err != nil {
		return exitInvalidParam, fmt.Errorf("kmeridx-build: %w", err)
	}

	var pattern []bool
	if cfg.SpacedKmer {
		pattern = cfg.SpacedPattern
	}
	indexer, err := alphabet.New(cfg.AlphabetSize, alphabet.AminoAcids, cfg.K, pattern)
	if err != nil {
		return exitInvalidParam, fmt.Errorf("kmeridx-build: %w", err)
	}

	f, err := os.Open(sequenceDB)
	if err != nil {
		return exitIOOrFormat, fmt.Errorf("kmeridx-build: open %s: %w", sequenceDB, err)
	}
	defer f.Close()

	records, err := collectRecords(f, seqType, genCode, cfg.MaxSeqLen, logger, stats)
	if err != nil {
		return exitIOOrFormat, fmt.Errorf("kmeridx-build: %w", err)
	}
	if len(records) == 0 {
		return exitIOOrFormat, fmt.Errorf("kmeridx-build: no usable sequences in %s", sequenceDB)
	}

	reserved := byte(cfg.AlphabetSize - 1)
	masker := mask.NewWindowMasker(defaultMaskWindow, defaultMaskRegion)

	posWidth := kmerindex.Width32
	if cfg.MaxSeqLen <= 1<<16 {
		posWidth = kmerindex.Width16
	}

	scoreFn := func(digits []byte) int {
		total := 0
		for _, d := range digits {
			total += matrix.Score(d, d)
		}
		return total
	}

	builder := kmerindex.NewBuilder(indexer, cfg.AlphabetSize, posWidth, scoreFn, cfg.KmerScoreThreshold)

	encoded := make([][]byte, len(records))
	eligible := make([][]byte, len(records))
	for i, rec := range records {
		enc, ok := encodeResidues(rec.raw, matrix)
		if !ok {
			stats.TrackError("InvalidResidue")
			logger.Warn("skipping sequence with unmapped residue", "seqID", rec.seqID, "header", rec.header)
			continue
		}
		encoded[i] = enc
		if cfg.MaskMode == config.MaskNone {
			eligible[i] = enc
		} else {
			eligible[i] = masker.Mask(enc, reserved)
		}
	}

	haveMasked := cfg.MaskMode == config.MaskHard || cfg.MaskMode == config.MaskSoft
	haveUnmasked := cfg.MaskMode == config.MaskNone || cfg.MaskMode == config.MaskSoft
	if haveMasked {
		builder.NoteLookupProduced()
	}
	if haveUnmasked {
		builder.NoteLookupProduced()
	}

	for i := range records {
		if encoded[i] == nil {
			continue
		}
		if err := builder.CountSequence(eligible[i]); err != nil {
			return exitIOOrFormat, fmt.Errorf("kmeridx-build: count pass: %w", err)
		}
		stats.TrackEvent(buildstats.EventSequenceRead)
	}

	fillState, err := builder.Finish()
	if err != nil {
		return exitIOOrFormat, fmt.Errorf("kmeridx-build: %w", err)
	}

	maskedBuilder := seqlookup.NewBuilder()
	unmaskedBuilder := seqlookup.NewBuilder()
	var entriesWritten uint64
	var headers []string
	headersPresent := false
	nextID := uint32(0)
	for i := range records {
		if encoded[i] == nil {
			continue
		}
		if err := fillState.FillSequence(nextID, eligible[i]); err != nil {
			return exitIOOrFormat, fmt.Errorf("kmeridx-build: fill pass: %w", err)
		}
		if haveMasked {
			if err := maskedBuilder.Append(nextID, eligible[i]); err != nil {
				return exitIOOrFormat, fmt.Errorf("kmeridx-build: %w", err)
			}
		}
		if haveUnmasked {
			if err := unmaskedBuilder.Append(nextID, encoded[i]); err != nil {
				return exitIOOrFormat, fmt.Errorf("kmeridx-build: %w", err)
			}
		}
		headers = append(headers, records[i].header)
		if records[i].header != "" {
			headersPresent = true
		}
		stats.TrackEvent(buildstats.EventEntryWritten)
		entriesWritten++
		nextID++
	}

	table, err := fillState.Finish()
	if err != nil {
		return exitIOOrFormat, fmt.Errorf("kmeridx-build: %w", err)
	}
	defer table.Close()

	w := indexfile.NewWriter(indexfile.DefaultPageSize)
	w.Put(indexfile.KeyVersion, versionBlob())
	w.Put(indexfile.KeyMeta, indexfile.EncodeMeta(indexfile.Meta{
		K:                  int32(cfg.K),
		AlphabetSize:       int32(cfg.AlphabetSize),
		PositionWidthBytes: int32(posWidth),
		MaskMode:           int32(cfg.MaskMode),
		KmerScoreThreshold: int32(cfg.KmerScoreThreshold),
		MaxSeqLen:          int32(cfg.MaxSeqLen),
		SeqType:            int32(seqType),
		SpacedKmer:         boolToInt32(cfg.SpacedKmer),
		HeadersPresent:     boolToInt32(headersPresent),
	}))
	w.Put(indexfile.KeyScoreMatrixName, append([]byte(matrix.Name()), 0))
	w.Put(indexfile.KeyEntries, table.RawEntries())
	w.Put(indexfile.KeyEntriesOffsets, table.RawOffsets())
	w.Put(indexfile.KeyEntriesNum, uint64Blob(entryCount(table)))
	w.Put(indexfile.KeySeqCount, uint64Blob(uint64(nextID)))
	w.Put(indexfile.KeyGenerator, []byte("kmeridx-build\x00"))
	w.Put(indexfile.KeyDBRIndex, dbrIndexBlob(sequenceDB, nextID))
	if cfg.SpacedKmer {
		w.Put(indexfile.KeyKmerPattern, indexfile.EncodeKmerPattern(pattern))
	}
	if headersPresent {
		w.Put(indexfile.KeyHDRIndex, indexfile.EncodeHeaders(headers))
	}

	if haveMasked {
		maskedLookup := maskedBuilder.Finish()
		w.Put(indexfile.KeyMaskedSeqIndexData, maskedLookup.RawData())
		w.Put(indexfile.KeySeqIndexSeqOffset, maskedLookup.RawOffsets())
		w.Put(indexfile.KeySeqIndexDataSize, int64Blob(int64(len(maskedLookup.RawData()))))
	}
	if haveUnmasked {
		unmaskedLookup := unmaskedBuilder.Finish()
		w.Put(indexfile.KeyUnmaskedSeqIndexData, unmaskedLookup.RawData())
		if !haveMasked {
			w.Put(indexfile.KeySeqIndexSeqOffset, unmaskedLookup.RawOffsets())
			w.Put(indexfile.KeySeqIndexDataSize, int64Blob(int64(len(unmaskedLookup.RawData()))))
		}
	}

	if dense2, _, err := scorematrix.NewExtended(matrix, 2).BuildDense(); err == nil {
		w.Put(indexfile.KeyScoreMatrix2Mer, scorematrix.EncodeDense(dense2))
	} else {
		logger.Warn("skipping 2-mer dense score matrix: exceeds dense table cap", "matrix", matrix.Name(), "err", err)
	}
	if dense3, _, err := scorematrix.NewExtended(matrix, 3).BuildDense(); err == nil {
		if err := w.PutCompressed(indexfile.KeyScoreMatrix3Mer, scorematrix.EncodeDense(dense3)); err != nil {
			return exitIOOrFormat, fmt.Errorf("kmeridx-build: %w", err)
		}
	} else {
		logger.Warn("skipping 3-mer dense score matrix: exceeds dense table cap, querytime Score() still available", "matrix", matrix.Name(), "err", err)
	}

	if err := w.WriteFile(outIndex); err != nil {
		os.Remove(outIndex)
		return exitIOOrFormat, fmt.Errorf("kmeridx-build: %w", err)
	}

	if manifest, err := config.NewManifest(outIndexDir(outIndex), cfg); err == nil {
		if info, statErr := os.Stat(outIndex); statErr == nil {
			manifest.AddFile(outIndex, info.Size())
		}
		manifest.Save()
	}

	stats.TrackBytes(false, uint64(len(sequenceDB)))
	return exitOK, nil
}

func outIndexDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func entryCount(t *kmerindex.Table) uint64 {
	offsets := t.RawOffsets()
	if len(offsets) < 8 {
		return 0
	}
	return leUint64(offsets[len(offsets)-8:])
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func versionBlob() []byte {
	return append([]byte(indexfile.CurrentVersion), 0)
}

func uint64Blob(v uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return buf
}

func int64Blob(v int64) []byte { return uint64Blob(uint64(v)) }

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func dbrIndexBlob(sequenceDB string, seqCount uint32) []byte {
	return []byte(fmt.Sprintf("{\"source\":%q,\"sequences\":%d}\x00", sequenceDB, seqCount))
}

// encodeResidues maps amino acid letters to matrix codes; ok is false if
// any residue is unmapped (InvalidResidue, per spec.md §7 — skip the
// sequence in build).
func encodeResidues(raw []byte, matrix scorematrix.Matrix) ([]byte, bool) {
	aa2int := matrix.AA2Int()
	out := make([]byte, len(raw))
	for i, b := range raw {
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		code := aa2int[b]
		if code < 0 {
			return nil, false
		}
		out[i] = byte(code)
	}
	return out, true
}

// collectRecords reads every FASTA record, translating nucleotide input
// through the ORF extractor into amino-acid fragments (one residueRecord
// per emitted ORF) and passing amino-acid input through unchanged.
// Sequences longer than maxSeqLen are skipped without a log line and
// counted in stats (EventSequenceSkipped for amino-acid input,
// EventOrfDiscarded for ORFs).
func collectRecords(r io.Reader, seqType alphabet.SeqType, genCode, maxSeqLen int, logger log.Logger, stats *buildstats.AtomicCollector) ([]residueRecord, error) {
	reader := fastaio.NewReader(r)
	var out []residueRecord
	nextID := uint32(0)

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if seqType == alphabet.Nucleotides {
			locs, err := orf.Extract(rec.ID, rec.Residues, orf.Params{
				MinLength:     30,
				MaxLength:     maxSeqLen * 3,
				MaxGaps:       5,
				ForwardFrames: []int{0, 1, 2},
				ReverseFrames: []int{0, 1, 2},
				StartMode:     orf.AnyToStop,
				GenCode:       genCode,
			})
			if err != nil {
				stats.TrackError("ParseError")
				logger.Warn("skipping contig: orf extraction failed", "header", rec.Header, "err", err)
				continue
			}
			table, _ := orf.LookupTable(genCode)
			for orfID, loc := range locs {
				frag := rec.Residues[loc.From:loc.To]
				if loc.Strand < 0 {
					frag = reverseComplementLocal(frag)
				}
				aa := orf.Translate(frag, table)
				if len(aa) == 0 || len(aa) > maxSeqLen {
					stats.TrackEvent(buildstats.EventOrfDiscarded)
					continue
				}
				stats.TrackEvent(buildstats.EventOrfEmitted)
				out = append(out, residueRecord{
					seqID:  nextID,
					header: orf.FormatHeader(orfID, loc),
					raw:    aa,
				})
				nextID++
			}
			continue
		}

		if len(rec.Residues) == 0 || len(rec.Residues) > maxSeqLen {
			stats.TrackEvent(buildstats.EventSequenceSkipped)
			continue
		}
		out = append(out, residueRecord{seqID: nextID, header: rec.Header, raw: rec.Residues})
		nextID++
	}

	return out, nil
}

func reverseComplementLocal(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		var c byte
		switch b {
		case 'A', 'a':
			c = 'T'
		case 'T', 't':
			c = 'A'
		case 'C', 'c':
			c = 'G'
		case 'G', 'g':
			c = 'C'
		default:
			c = 'N'
		}
		out[len(seq)-1-i] = c
	}
	return out
}
