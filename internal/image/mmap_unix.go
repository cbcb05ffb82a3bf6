//go:build !windows

package image

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, length int) ([]byte, uintptr, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, 0, err
	}
	return data, 0, nil
}

func unmapFile(data []byte, _ uintptr) error {
	return unix.Munmap(data)
}

func flushFile(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}
