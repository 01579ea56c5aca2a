package indexfile

import "encoding/binary"

// Meta is the META blob's int32 record (spec §4.5, key 1): the
// build-time parameters needed to reconstruct an Alphabet Indexer and
// interpret the ENTRIES blob without re-reading the Config manifest.
//
// spec.md §3 lists the metadata record as seven fields, including
// spacedKmer? and headersPresent? bits; this container keeps those two
// bits (so a reader knows whether to expect KeyKmerPattern/KeyHDRIndex)
// alongside PositionWidthBytes and MaxSeqLen, which spec.md's own Index
// Table/Sequence Lookup designs need to re-attach correctly. The spaced
// k-mer pattern itself does not fit a fixed int32 field — per spec.md
// §4.1 "the pattern is part of the index's identity and must match at
// build and query time" — so it is persisted separately under
// KeyKmerPattern and only read when SpacedKmer is set.
type Meta struct {
	K                  int32
	AlphabetSize       int32
	PositionWidthBytes int32 // 2 or 4
	MaskMode           int32 // 0=none, 1=hard, 2=soft; see pkg/config
	KmerScoreThreshold int32
	MaxSeqLen          int32
	SeqType            int32 // alphabet.SeqType
	SpacedKmer         int32 // 0/1; if 1, KeyKmerPattern holds the pattern
	HeadersPresent     int32 // 0/1; if 1, KeyHDRIndex holds per-sequence headers
}

const metaFieldCount = 9
const metaSize = metaFieldCount * 4

// EncodeMeta packs m into its little-endian record.
func EncodeMeta(m Meta) []byte {
	buf := make([]byte, metaSize)
	fields := [metaFieldCount]int32{
		m.K, m.AlphabetSize, m.PositionWidthBytes, m.MaskMode, m.KmerScoreThreshold,
		m.MaxSeqLen, m.SeqType, m.SpacedKmer, m.HeadersPresent,
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], uint32(f))
	}
	return buf
}

// DecodeMeta unpacks a META blob previously produced by EncodeMeta.
func DecodeMeta(buf []byte) (Meta, error) {
	var m Meta
	if len(buf) < metaSize {
		return m, ErrMissingBlob
	}
	fields := [metaFieldCount]*int32{
		&m.K, &m.AlphabetSize, &m.PositionWidthBytes, &m.MaskMode, &m.KmerScoreThreshold,
		&m.MaxSeqLen, &m.SeqType, &m.SpacedKmer, &m.HeadersPresent,
	}
	for i, f := range fields {
		*f = int32(binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4]))
	}
	return m, nil
}
