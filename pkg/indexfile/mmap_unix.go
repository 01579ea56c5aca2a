//go:build unix

package indexfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// mappedRegion is a live mmap mapping backing ModeAttach reads.
type mappedRegion struct {
	bytes []byte
}

func mmapFile(f *os.File, size int) (mappedRegion, error) {
	if size == 0 {
		return mappedRegion{}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return mappedRegion{}, err
	}
	return mappedRegion{bytes: data}, nil
}

func (m mappedRegion) unmap() error {
	if m.bytes == nil {
		return nil
	}
	return unix.Munmap(m.bytes)
}
