// Package fatfs implements the on-disk layout and block-chain manager
// described by the design: a superblock, a FAT, a data region of
// fixed-size blocks, and the directory/file engines that traverse and
// mutate FAT chains. It is the core of the vfs module; the interactive
// shell (internal/shell) is an external collaborator that only calls the
// operations exported here.
package fatfs

import (
	"fmt"
	"time"

	"github.com/rpereira/vfs/internal/image"
	"github.com/rpereira/vfs/internal/logger"
	fmtutil "github.com/rpereira/vfs/pkg/util/format"
)

// Image is the mounted-image handle: the superblock, FAT, and data-region
// views over one memory mapping, plus the process-wide current-directory
// block index. §9 of the design calls for exactly this kind of grouping —
// a single handle threaded through every command instead of scattered
// globals.
type Image struct {
	mapping *image.Mapping
	sb      superblock
	fat     fatTable
	data    []byte

	blockSize  int
	fatEntries int

	currentDir int32 // first block of the current directory
	log        *logger.Logger
}

// OpenOrFormat implements §4.1: if path does not exist, it is created,
// sized, and formatted with the given parameters; if it exists, it is
// mapped and validated against its own stored parameters.
func OpenOrFormat(path string, blockSize, fatType int, log *logger.Logger) (*Image, error) {
	if log == nil {
		log = logger.New(nopWriter{}, logger.ErrorLevel)
	}

	if !ValidBlockSize(blockSize) {
		return nil, fmt.Errorf("invalid block size (%d)", blockSize)
	}
	if !ValidFatType(fatType) {
		return nil, fmt.Errorf("invalid fat type (%d)", fatType)
	}

	existed, err := fileExists(path)
	if err != nil {
		return nil, err
	}

	if !existed {
		return formatImage(path, blockSize, fatType, log)
	}
	return openImage(path, log)
}

func formatImage(path string, blockSize, fatType int, log *logger.Logger) (*Image, error) {
	size := ImageSize(blockSize, fatType)
	log.Infof("formatting virtual file-system (%s) at %q", fmtutil.FormatBytes(size), path)

	m, err := image.CreateAndMap(path, size)
	if err != nil {
		return nil, fmt.Errorf("cannot create filesystem (%s): %w", path, err)
	}

	entries := FatEntries(fatType)
	im := newImage(m, blockSize, entries, log)

	im.sb.setCheckNumber(CheckNumber)
	im.sb.setBlockSize(int32(blockSize))
	im.sb.setFatType(int32(fatType))
	im.sb.setRootBlock(0)
	im.sb.setFreeBlock(1)
	im.sb.setNFreeBlocks(int32(entries - 1))

	im.initFreeList()
	im.initDirBlock(0, 0)

	im.currentDir = im.sb.rootBlock()
	return im, nil
}

func openImage(path string, log *logger.Logger) (*Image, error) {
	m, err := image.OpenAndMap(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open filesystem (%s): %w", path, err)
	}

	// Peek the stored block_size/fat_type before constructing the real
	// views, since the FAT/data region offsets depend on them.
	peek := superblock{data: m.Data}
	blockSize := int(peek.blockSize())
	fatType := int(peek.fatType())
	entries := FatEntries(fatType)

	im := newImage(m, blockSize, entries, log)

	wantSize := ImageSize(blockSize, fatType)
	if im.sb.checkNumber() != CheckNumber || int64(len(m.Data)) != wantSize {
		m.Close()
		return nil, fmt.Errorf("invalid filesystem (%s)", path)
	}

	im.currentDir = im.sb.rootBlock()
	return im, nil
}

func newImage(m *image.Mapping, blockSize, fatEntries int, log *logger.Logger) *Image {
	fatOff := blockSize
	fatSize := 4 * fatEntries
	dataOff := fatOff + fatSize

	return &Image{
		mapping:    m,
		sb:         superblock{data: m.Data[0:blockSize]},
		fat:        fatTable{data: m.Data[fatOff : fatOff+fatSize]},
		data:       m.Data[dataOff:],
		blockSize:  blockSize,
		fatEntries: fatEntries,
		log:        log,
	}
}

// Close flushes and releases the backing mapping.
func (im *Image) Close() error {
	if err := im.mapping.Sync(); err != nil {
		return err
	}
	return im.mapping.Close()
}

// BlockSize returns the image's configured block size.
func (im *Image) BlockSize() int { return im.blockSize }

// EntriesPerBlock returns floor(block_size / sizeof(dir_entry)).
func (im *Image) EntriesPerBlock() int32 { return int32(im.blockSize / dirEntrySize) }

// RootBlock returns the first block of the root directory (always 0).
func (im *Image) RootBlock() int32 { return im.sb.rootBlock() }

// CurrentDir returns the first block of the current directory.
func (im *Image) CurrentDir() int32 { return im.currentDir }

func (im *Image) block(i int32) []byte {
	off := int(i) * im.blockSize
	return im.data[off : off+im.blockSize]
}

func (im *Image) initFreeList() {
	n := im.fatEntries
	im.fat.set(0, EndOfChain)
	for i := 1; i < n-1; i++ {
		im.fat.set(int32(i), int32(i+1))
	}
	im.fat.set(int32(n-1), EndOfChain)
}

func today() (day, month, year byte) {
	now := time.Now()
	return byte(now.Day()), byte(now.Month()), byte(now.Year() - 1900)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
