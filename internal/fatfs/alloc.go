package fatfs

// This file implements §4.2 (block allocator) and §4.3 (FAT chain engine).

// allocate pops the head of the free-list, marks it end-of-chain, and
// returns it. It returns ErrDiskFull when the free-list is empty.
func (im *Image) allocate() (int32, error) {
	head := im.sb.freeBlock()
	if head == EndOfChain {
		return 0, ErrDiskFull
	}

	im.sb.setFreeBlock(im.fat.get(head))
	im.fat.set(head, EndOfChain)
	im.sb.setNFreeBlocks(im.sb.nFreeBlocks() - 1)

	im.log.Debugf("allocated block %d (%d free remaining)", head, im.sb.nFreeBlocks())
	return head, nil
}

// free pushes block onto the head of the free-list. Data bytes are left
// untouched, per §4.2.
func (im *Image) free(block int32) {
	im.fat.set(block, im.sb.freeBlock())
	im.sb.setFreeBlock(block)
	im.sb.setNFreeBlocks(im.sb.nFreeBlocks() + 1)

	im.log.Debugf("freed block %d (%d free now)", block, im.sb.nFreeBlocks())
}

// freeChain releases every block reachable from first inclusive. Blocks
// are gathered first and then pushed one at a time, so the free-list is a
// well-formed chain terminated by -1 at every intermediate step.
func (im *Image) freeChain(first int32) {
	if first == EndOfChain {
		return
	}
	for _, b := range im.chainBlocks(first) {
		im.free(b)
	}
}

// chainBlocks walks the chain starting at head, returning every block
// index in chain order. This is the "Walk" utility of §4.3, materialised
// as a slice since directory/file chains in this format are small.
func (im *Image) chainBlocks(head int32) []int32 {
	var blocks []int32
	for b := head; b != EndOfChain; b = im.fat.get(b) {
		blocks = append(blocks, b)
	}
	return blocks
}

// lastBlock returns the final block of the chain starting at head.
func (im *Image) lastBlock(head int32) int32 {
	b := head
	for next := im.fat.get(b); next != EndOfChain; next = im.fat.get(b) {
		b = next
	}
	return b
}

// extendChain allocates a new block and links it after last, returning
// the new block. It fails with ErrDiskFull if the allocator is empty,
// leaving last's link untouched.
func (im *Image) extendChain(last int32) (int32, error) {
	next, err := im.allocate()
	if err != nil {
		return 0, err
	}
	im.fat.set(last, next)
	return next, nil
}

// copyChain allocates a fresh chain with the same block count as
// srcHead's and copies every block's full raw bytes across (the last
// block included, untruncated — used by cp, per §4.5). It releases any
// partially-built destination chain and returns ErrDiskFull on exhaustion.
func (im *Image) copyChain(srcHead int32) (int32, error) {
	srcBlocks := im.chainBlocks(srcHead)
	if len(srcBlocks) == 0 {
		return EndOfChain, nil
	}

	dstHead, err := im.allocate()
	if err != nil {
		return 0, err
	}
	copy(im.block(dstHead), im.block(srcBlocks[0]))

	last := dstHead
	for _, srcBlock := range srcBlocks[1:] {
		next, err := im.extendChain(last)
		if err != nil {
			im.freeChain(dstHead)
			return 0, err
		}
		copy(im.block(next), im.block(srcBlock))
		last = next
	}
	return dstHead, nil
}
