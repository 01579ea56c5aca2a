package indexfile

import (
	"encoding/binary"
	"fmt"
)

// EncodeHeaders packs a per-sequence header list into the HDRINDEX
// blob's payload (spec §4.5, key 6): a little-endian uint64 header
// count N, then an (N+1)-entry little-endian uint64 offsets table —
// the same data+offsets shape pkg/seqlookup uses
// for encoded residues — followed by the concatenated header bytes, so
// a reader can fetch any single header without re-parsing the whole
// blob.
func EncodeHeaders(headers []string) []byte {
	offsets := make([]uint64, len(headers)+1)
	var data []byte
	for i, h := range headers {
		data = append(data, h...)
		offsets[i+1] = uint64(len(data))
	}
	out := make([]byte, 8+len(offsets)*8+len(data))
	binary.LittleEndian.PutUint64(out[0:8], uint64(len(headers)))
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(out[8+i*8:8+i*8+8], off)
	}
	copy(out[8+len(offsets)*8:], data)
	return out
}

// DecodeHeaders is EncodeHeaders's inverse.
func DecodeHeaders(blob []byte) ([]string, error) {
	if len(blob) < 8 {
		return nil, fmt.Errorf("%w: headers blob too short", ErrCorruptHeader)
	}
	n := binary.LittleEndian.Uint64(blob[0:8])
	offsetsStart := 8
	offsetsLen := (n + 1) * 8
	if uint64(offsetsStart)+offsetsLen > uint64(len(blob)) {
		return nil, fmt.Errorf("%w: headers offsets table truncated", ErrCorruptHeader)
	}
	dataStart := uint64(offsetsStart) + offsetsLen
	data := blob[dataStart:]
	out := make([]string, n)
	for i := uint64(0); i < n; i++ {
		start := binary.LittleEndian.Uint64(blob[uint64(offsetsStart)+i*8 : uint64(offsetsStart)+i*8+8])
		end := binary.LittleEndian.Uint64(blob[uint64(offsetsStart)+(i+1)*8 : uint64(offsetsStart)+(i+1)*8+8])
		if end > uint64(len(data)) || start > end {
			return nil, fmt.Errorf("%w: headers data truncated", ErrCorruptHeader)
		}
		out[i] = string(data[start:end])
	}
	return out, nil
}
