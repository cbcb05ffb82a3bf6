// Package image memory-maps the single backing file that hosts a vfs
// image. It is a read-write generalisation of the teacher's
// internal/mmap.MmapFile (which only ever mapped PROT_READ for forensic
// scanning): the vfs core needs to mutate the mapping in place, so Mapping
// maps PROT_READ|PROT_WRITE/MAP_SHARED and exposes an explicit Sync so a
// caller can force pending writes out before closing.
package image

import (
	"fmt"
	"os"
)

// Mapping is a memory-mapped region backed by an open file. Data aliases
// the mapped bytes directly; writes through Data are writes to the file.
type Mapping struct {
	file      *os.File
	Data      []byte
	sysHandle uintptr // platform-specific mapping object; unused on unix
}

// CreateAndMap creates (or truncates) the file at path, extends it to
// size bytes, and maps the whole thing read-write.
func CreateAndMap(path string, size int64) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create image %q: %w", path, err)
	}

	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to extend image %q to %d bytes: %w", path, size, err)
	}

	return mapOpenFile(f, size)
}

// OpenAndMap opens the existing file at path and maps its full current
// length read-write. The caller is responsible for validating the magic
// number and length against the format it expects.
func OpenAndMap(path string) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %q: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat image %q: %w", path, err)
	}

	if fi.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("image %q is empty, cannot map", path)
	}

	return mapOpenFile(f, fi.Size())
}

func mapOpenFile(f *os.File, size int64) (*Mapping, error) {
	data, handle, err := mapFile(f, int(size))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map %q: %w", f.Name(), err)
	}

	return &Mapping{file: f, Data: data, sysHandle: handle}, nil
}

// Sync flushes pending writes in the mapping to the backing file.
func (m *Mapping) Sync() error {
	return flushFile(m.Data)
}

// Close unmaps the region and closes the underlying file.
func (m *Mapping) Close() error {
	if m.Data == nil {
		return nil
	}

	if err := unmapFile(m.Data, m.sysHandle); err != nil {
		return fmt.Errorf("failed to unmap: %w", err)
	}
	m.Data = nil

	if err := m.file.Close(); err != nil {
		return fmt.Errorf("failed to close backing file: %w", err)
	}
	return nil
}
