package indexfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	kgzip "github.com/klauspost/compress/gzip"
)

// Writer accumulates blobs by key and seals them into a container file.
// Grounded on kevo's pkg/sstable/writer.go FileManager: writes go to a
// temporary file beside the target path, fsynced, then atomically
// renamed into place so a crash never leaves a half-written index.
type Writer struct {
	pageSize       uint64
	blobs          [NumKeys][]byte
	present        [NumKeys]bool
	compress       [NumKeys]bool
	rawLenOverride map[Key]uint64
}

// NewWriter creates a Writer that page-aligns blobs to pageSize (use
// DefaultPageSize unless the caller knows better).
func NewWriter(pageSize int) *Writer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Writer{pageSize: uint64(pageSize)}
}

// Put stores data under key, to be written uncompressed.
func (w *Writer) Put(key Key, data []byte) {
	w.blobs[key] = data
	w.present[key] = true
	w.compress[key] = false
}

// PutCompressed stores data under key, gzip-compressed on disk via
// klauspost/compress (spec's DOMAIN STACK: the optional compression
// codec for the small, redundant SCOREMATRIX2MER/3MER blobs).
func (w *Writer) PutCompressed(key Key, data []byte) error {
	var buf bytes.Buffer
	gw, err := kgzip.NewWriterLevel(&buf, kgzip.BestCompression)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if _, err := gw.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	w.blobs[key] = buf.Bytes()
	w.present[key] = true
	w.compress[key] = true
	// rawLen is recovered at decode time from the original data's
	// length, recorded alongside via the toc entry built in WriteFile.
	w.rawLens()[key] = uint64(len(data))
	return nil
}

// rawLens lazily allocates the side table tracking decompressed
// lengths for compressed blobs (Put leaves rawLen equal to len(data),
// so only PutCompressed needs this).
func (w *Writer) rawLens() map[Key]uint64 {
	if w.rawLenOverride == nil {
		w.rawLenOverride = make(map[Key]uint64)
	}
	return w.rawLenOverride
}

// WriteFile seals the accumulated blobs into path, writing them in
// spec §4.5's stated order and page-aligning every blob so it can later
// be memory-mapped without straddling a page boundary.
func (w *Writer) WriteFile(path string) error {
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp", filepath.Base(path)))

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrIO, err)
	}
	defer os.Remove(tmpPath) // no-op once renamed

	var toc [NumKeys]tocEntry
	cursor := alignUp(uint64(headerSize+tocSize), w.pageSize)
	if _, err := f.WriteAt(make([]byte, cursor), 0); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	for _, key := range writeOrder {
		if !w.present[key] {
			continue
		}
		data := w.blobs[key]
		rawLen := uint64(len(data))
		if w.compress[key] {
			if v, ok := w.rawLenOverride[key]; ok {
				rawLen = v
			}
		}
		if _, err := f.WriteAt(data, int64(cursor)); err != nil {
			f.Close()
			return fmt.Errorf("%w: write blob %d: %v", ErrIO, key, err)
		}
		toc[key] = tocEntry{
			present:    true,
			compressed: w.compress[key],
			offset:     cursor,
			storedLen:  uint64(len(data)),
			rawLen:     rawLen,
		}
		cursor = alignUp(cursor+uint64(len(data)), w.pageSize)
	}

	tocBytes := encodeTOC(toc)
	h := header{
		pageSize:    uint32(w.pageSize),
		timestamp:   0,
		tocChecksum: checksumOf(tocBytes),
	}
	if _, err := f.WriteAt(encodeHeader(h), 0); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if _, err := f.WriteAt(tocBytes, headerSize); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename into place: %v", ErrIO, err)
	}
	return nil
}
