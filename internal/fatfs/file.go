package fatfs

import (
	"bufio"
	"fmt"
	"io"

	vfsfs "github.com/rpereira/vfs/internal/fs"
	fsio "github.com/rpereira/vfs/pkg/util/io"
)

// This file implements §4.5: the file engine (get/put/cat/cp/mv/rm) and
// the chain-backed reader they stream through.

// chainReader is an io.Reader that yields exactly size bytes out of the
// blocks of a chain, stopping short inside the final block when size
// isn't a multiple of the block size. It is the read-side counterpart of
// the ingestion loop in Get, grounded on the windowed-buffer style of the
// teacher's internal/format.Reader.
type chainReader struct {
	im            *Image
	blocks        []int32
	remaining     int32
	blockIdx      int
	offsetInBlock int
}

func (im *Image) newChainReader(head int32, size int32) *chainReader {
	return &chainReader{im: im, blocks: im.chainBlocks(head), remaining: size}
}

func (c *chainReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		return 0, io.EOF
	}
	if c.blockIdx >= len(c.blocks) {
		return 0, io.EOF
	}

	block := c.im.block(c.blocks[c.blockIdx])
	n := len(block) - c.offsetInBlock
	if int32(n) > c.remaining {
		n = int(c.remaining)
	}
	if n > len(p) {
		n = len(p)
	}

	copy(p[:n], block[c.offsetInBlock:c.offsetInBlock+n])
	c.offsetInBlock += n
	c.remaining -= int32(n)

	if c.offsetInBlock >= len(block) {
		c.offsetInBlock = 0
		c.blockIdx++
	}
	return n, nil
}

// Get implements §4.5's get: ingest a host file into a new chain.
func (im *Image) Get(hostPath, vfsName string) error {
	if len(vfsName) >= MaxNameLength {
		return ErrNameTooLong
	}
	if found, _, _, _ := im.lookup(im.currentDir, vfsName); found {
		return ErrAlreadyExists
	}

	f, err := vfsfs.Open(hostPath)
	if err != nil {
		return fmt.Errorf("cannot open %q: %w", hostPath, err)
	}
	defer f.Close()

	first, size, err := im.ingest(f)
	if err != nil {
		return err
	}

	if err := im.insertEntry(im.currentDir, TypeFile, vfsName, size, first); err != nil {
		im.freeChain(first)
		return err
	}
	return nil
}

// ingest streams r into a freshly allocated chain, block_size bytes at a
// time, peeking one byte ahead before allocating a further block so a
// file whose length is an exact multiple of block_size never leaves a
// trailing empty block linked into the chain. On DiskFull it releases
// the partial chain already built, per §7's reserve-then-commit rule.
func (im *Image) ingest(r io.Reader) (int32, int32, error) {
	first, err := im.allocate()
	if err != nil {
		return 0, 0, err
	}

	br := bufio.NewReaderSize(r, im.blockSize)
	buf := make([]byte, im.blockSize)

	cur := first
	var total int32
	for {
		n, rerr := io.ReadFull(br, buf)
		if n > 0 {
			copy(im.block(cur)[:n], buf[:n])
			total += int32(n)
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			im.freeChain(first)
			return 0, 0, rerr
		}

		if _, peekErr := br.Peek(1); peekErr == io.EOF {
			break
		}

		next, aerr := im.extendChain(cur)
		if aerr != nil {
			im.freeChain(first)
			return 0, 0, ErrDiskFull
		}
		cur = next
	}
	return first, total, nil
}

// Put implements §4.5's put: stream a chain out to a host file, writing
// exactly size bytes, so the final block is cut short when size is not a
// multiple of block_size.
func (im *Image) Put(vfsName, hostPath string) error {
	found, _, _, entry := im.lookup(im.currentDir, vfsName)
	if !found {
		return ErrNotFound
	}
	if entry.IsDir() {
		return ErrIsDirectory
	}

	r := im.newChainReader(entry.FirstBlock, entry.Size)
	return fsio.CopyFile(hostPath, r)
}

// Cat implements §4.5's cat: identical to Put, with stdout (or any
// io.Writer) as the sink instead of a host file.
func (im *Image) Cat(vfsName string, w io.Writer) error {
	found, _, _, entry := im.lookup(im.currentDir, vfsName)
	if !found {
		return ErrNotFound
	}
	if entry.IsDir() {
		return ErrIsDirectory
	}

	r := im.newChainReader(entry.FirstBlock, entry.Size)
	_, err := io.Copy(w, r)
	return err
}

// Cp implements §4.5's cp.
func (im *Image) Cp(src, dst string) error {
	return im.copyOrMove(im.currentDir, src, im.currentDir, dst, false)
}

// Mv implements §4.5's mv.
func (im *Image) Mv(src, dst string) error {
	return im.copyOrMove(im.currentDir, src, im.currentDir, dst, true)
}

func (im *Image) copyOrMove(srcDir int32, src string, dstDir int32, dst string, move bool) error {
	foundSrc, srcBlock, srcIdx, srcEntry := im.lookup(srcDir, src)
	if !foundSrc {
		return ErrNotFound
	}
	if srcEntry.IsDir() {
		return ErrIsDirectory
	}

	foundDst, dstBlock, dstIdx, dstEntry := im.lookup(dstDir, dst)
	if foundDst && dstEntry.IsDir() {
		return im.copyOrMove(srcDir, src, dstEntry.FirstBlock, src, move)
	}
	if foundDst && dstBlock == srcBlock && dstIdx == srcIdx {
		return ErrInvalidArgument
	}

	var newFirst int32
	var err error
	if move {
		newFirst = srcEntry.FirstBlock
	} else {
		newFirst, err = im.copyChain(srcEntry.FirstBlock)
		if err != nil {
			return err
		}
	}

	if foundDst {
		im.freeChain(dstEntry.FirstBlock)
		slot := im.entrySlot(dstBlock, dstIdx)
		slot.setSize(srcEntry.Size)
		slot.setFirstBlock(newFirst)
	} else if err := im.insertEntry(dstDir, TypeFile, dst, srcEntry.Size, newFirst); err != nil {
		if !move {
			im.freeChain(newFirst)
		}
		return err
	}

	if move {
		im.removeEntry(srcDir, srcBlock, srcIdx)
	}
	return nil
}

// Rm implements §4.5's rm.
func (im *Image) Rm(name string) error {
	found, slotBlock, slotIndex, entry := im.lookup(im.currentDir, name)
	if !found {
		return ErrNotFound
	}
	if entry.IsDir() {
		return ErrIsDirectory
	}

	im.freeChain(entry.FirstBlock)
	im.removeEntry(im.currentDir, slotBlock, slotIndex)
	return nil
}
