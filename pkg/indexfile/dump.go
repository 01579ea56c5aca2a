package indexfile

import (
	"fmt"
	"io"
)

// DumpText renders the container's table of contents as CSV-like
// diagnostic lines: key name, presence, compressed flag, offset,
// stored length, raw length. Mirrors MICA's --plain debug dumps
// (saveSeedsPlain/saveLinksPlain) — never on the hot path, purely for
// inspection, grounded on the same "plain text alongside the binary
// format" convention.
func (r *Reader) DumpText(w io.Writer) error {
	for key := Key(0); key < Key(NumKeys); key++ {
		e := r.toc[key]
		_, err := fmt.Fprintf(w, "%s,%t,%t,%d,%d,%d\n",
			keyName(key), e.present, e.compressed, e.offset, e.storedLen, e.rawLen)
		if err != nil {
			return err
		}
	}
	return nil
}

var keyNames = [NumKeys]string{
	KeyVersion:              "VERSION",
	KeyMeta:                 "META",
	KeyScoreMatrixName:      "SCOREMATRIXNAME",
	KeyScoreMatrix2Mer:      "SCOREMATRIX2MER",
	KeyScoreMatrix3Mer:      "SCOREMATRIX3MER",
	KeyDBRIndex:             "DBRINDEX",
	KeyHDRIndex:             "HDRINDEX",
	KeyEntries:              "ENTRIES",
	KeyEntriesOffsets:       "ENTRIESOFFSETS",
	KeyEntriesNum:           "ENTRIESNUM",
	KeySeqCount:             "SEQCOUNT",
	KeyMaskedSeqIndexData:   "MASKEDSEQINDEXDATA",
	KeySeqIndexDataSize:     "SEQINDEXDATASIZE",
	KeySeqIndexSeqOffset:    "SEQINDEXSEQOFFSET",
	KeyUnmaskedSeqIndexData: "UNMASKEDSEQINDEXDATA",
	KeyGenerator:            "GENERATOR",
	KeyKmerPattern:          "KMERPATTERN",
}

func keyName(k Key) string {
	if int(k) < 0 || int(k) >= NumKeys {
		return "UNKNOWN"
	}
	return keyNames[k]
}
