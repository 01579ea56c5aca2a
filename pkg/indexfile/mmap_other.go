//go:build !unix

package indexfile

import (
	"errors"
	"os"
)

// mappedRegion is unavailable on non-unix targets; ModeAttach falls
// back to returning an error rather than silently degrading to a full
// copy, so callers can tell the two modes apart.
type mappedRegion struct {
	bytes []byte
}

func mmapFile(f *os.File, size int) (mappedRegion, error) {
	return mappedRegion{}, errors.New("indexfile: mmap attach is unix-only")
}

func (m mappedRegion) unmap() error {
	return nil
}
