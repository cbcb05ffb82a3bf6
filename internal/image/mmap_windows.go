//go:build windows

package image

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mapFile creates a file-mapping object over f and maps length bytes of it
// read-write, mirroring the handle-based style of internal/fs.WindowsDiskFile
// (CreateFile + DeviceIoControl) used by the teacher for raw disk reads. The
// returned sysHandle is the file-mapping object, kept alive until Close so
// it can be closed after UnmapViewOfFile.
func mapFile(f *os.File, length int) ([]byte, uintptr, error) {
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE, 0, uint32(length), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("CreateFileMapping failed: %w", err)
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(length))
	if err != nil {
		windows.CloseHandle(h)
		return nil, 0, fmt.Errorf("MapViewOfFile failed: %w", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
	return data, uintptr(h), nil
}

func unmapFile(data []byte, sysHandle uintptr) error {
	addr := uintptr(unsafe.Pointer(&data[0]))
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return err
	}
	return windows.CloseHandle(windows.Handle(sysHandle))
}

func flushFile(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	return windows.FlushViewOfFile(addr, uintptr(len(data)))
}
