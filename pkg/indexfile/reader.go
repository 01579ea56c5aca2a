package indexfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	kgzip "github.com/klauspost/compress/gzip"
)

// Mode selects how a Reader's blob region is made available.
type Mode int

const (
	// ModeCopy reads blobs into freshly allocated buffers via os.ReadAt.
	ModeCopy Mode = iota
	// ModeAttach memory-maps the file and returns views directly into
	// the mapping; callers must not keep a view alive past Close.
	ModeAttach
)

// Reader opens a sealed container file for reading, per spec §4.5's
// open protocol: verify VERSION, parse META, then hand out on-demand
// attaches of the remaining blobs.
type Reader struct {
	mode Mode
	file *os.File
	toc  [NumKeys]tocEntry

	mapping mappedRegion // only populated in ModeAttach
}

// Open validates VERSION against CurrentVersion and returns a Reader
// ready to serve Get/Touch. It returns ErrVersionMismatch if the blob
// is absent or does not match byte-exactly.
func Open(path string, mode Mode) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}

	hdrBuf := make([]byte, headerSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, headerSize), hdrBuf); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: read header: %v", ErrCorruptHeader, err)
	}
	h, err := decodeHeader(hdrBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	tocBuf := make([]byte, tocSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, headerSize, int64(tocSize)), tocBuf); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: read toc: %v", ErrCorruptHeader, err)
	}
	if got := checksumOf(tocBuf); got != h.tocChecksum {
		f.Close()
		return nil, fmt.Errorf("%w: toc checksum mismatch", ErrCorruptHeader)
	}
	toc, err := decodeTOC(tocBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	r := &Reader{mode: mode, file: f, toc: toc}

	if mode == ModeAttach {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		mapping, err := mmapFile(f, int(info.Size()))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: mmap: %v", ErrIO, err)
		}
		r.mapping = mapping
	}

	version, ok, err := r.Get(KeyVersion)
	if err != nil {
		r.Close()
		return nil, err
	}
	if !ok || string(bytes.TrimRight(version, "\x00")) != CurrentVersion {
		r.Close()
		return nil, fmt.Errorf("%w: not a compatible index file", ErrVersionMismatch)
	}

	return r, nil
}

// Get returns the decoded bytes for key, or ok=false if the key is
// absent. A compressed blob is transparently gunzipped.
func (r *Reader) Get(key Key) ([]byte, bool, error) {
	e := r.toc[key]
	if !e.present {
		return nil, false, nil
	}

	var stored []byte
	switch r.mode {
	case ModeAttach:
		stored = r.mapping.bytes[e.offset : e.offset+e.storedLen]
	default:
		stored = make([]byte, e.storedLen)
		if _, err := r.file.ReadAt(stored, int64(e.offset)); err != nil {
			return nil, true, fmt.Errorf("%w: read blob %d: %v", ErrIO, key, err)
		}
	}

	if !e.compressed {
		return stored, true, nil
	}
	gr, err := kgzip.NewReader(bytes.NewReader(stored))
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer gr.Close()
	raw := make([]byte, e.rawLen)
	if _, err := io.ReadFull(gr, raw); err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return raw, true, nil
}

// MustGet is Get for required keys: an absent blob is ErrMissingBlob.
func (r *Reader) MustGet(key Key) ([]byte, error) {
	data, ok, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: key %d", ErrMissingBlob, key)
	}
	return data, nil
}

// Touch forces the blob's pages resident by reading through it once;
// a best-effort prefetch per spec §4.5. In ModeCopy, Get already reads
// the full blob from disk.
func (r *Reader) Touch(key Key) error {
	data, _, err := r.Get(key)
	if err != nil {
		return err
	}
	var sink byte
	for i := 0; i < len(data); i += DefaultPageSize {
		sink ^= data[i]
	}
	_ = sink
	return nil
}

// Meta decodes the META blob (key 1).
func (r *Reader) Meta() (Meta, error) {
	data, err := r.MustGet(KeyMeta)
	if err != nil {
		return Meta{}, err
	}
	return DecodeMeta(data)
}

// Close releases the underlying file (and mapping, in ModeAttach).
// Per spec §5's ownership rule, any Index Table/Sequence Lookup
// attached to this Reader's blobs must not be used after Close.
func (r *Reader) Close() error {
	var err error
	if r.mode == ModeAttach && r.mapping.bytes != nil {
		err = r.mapping.unmap()
	}
	if r.file != nil {
		if cerr := r.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
