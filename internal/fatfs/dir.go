package fatfs

import "strings"

// This file implements §4.4 (directory engine) and the directory-facing
// shell operations mkdir/rmdir/cd/pwd.

// entryAt returns the block holding logical entry i of the directory
// chain rooted at dirHead, and a view over that slot. Addressing follows
// §4.4: entry i lives in block chain[i/entries_per_block], slot
// i%entries_per_block.
func (im *Image) entryAt(dirHead int32, i int32) (int32, dirEntry) {
	epb := im.EntriesPerBlock()
	blocks := im.chainBlocks(dirHead)
	blockID := blocks[i/epb]
	return blockID, im.entrySlot(blockID, i%epb)
}

func (im *Image) entrySlot(blockID int32, slotIdx int32) dirEntry {
	block := im.block(blockID)
	off := int(slotIdx) * dirEntrySize
	return dirEntry{data: block[off : off+dirEntrySize]}
}

// dirSize reads entry 0's size field — the single source of truth for a
// directory's population, per §3.
func (im *Image) dirSize(dirHead int32) int32 {
	_, e := im.entryAt(dirHead, 0)
	return e.size()
}

func (im *Image) setDirSize(dirHead int32, n int32) {
	_, e := im.entryAt(dirHead, 0)
	e.setSize(n)
}

// initDirBlock initialises block as a fresh directory with "." pointing
// to itself and ".." pointing to parent, and entry-0.size = 2.
func (im *Image) initDirBlock(block, parent int32) {
	day, month, year := today()

	dot := im.entrySlot(block, 0)
	dot.setType(TypeDir)
	dot.setName(".")
	dot.setDate(day, month, year)
	dot.setSize(2)
	dot.setFirstBlock(block)

	dotdot := im.entrySlot(block, 1)
	dotdot.setType(TypeDir)
	dotdot.setName("..")
	dotdot.setDate(day, month, year)
	dotdot.setSize(0)
	dotdot.setFirstBlock(parent)
}

// lookup performs the linear scan of §4.4: exactly size entries, byte-wise
// name comparison, first match wins.
func (im *Image) lookup(dirHead int32, name string) (found bool, slotBlock int32, slotIndex int32, entry Entry) {
	epb := im.EntriesPerBlock()
	size := im.dirSize(dirHead)
	for i := int32(0); i < size; i++ {
		blockID, e := im.entryAt(dirHead, i)
		if e.name() == name {
			return true, blockID, i % epb, e.snapshot()
		}
	}
	return false, 0, 0, Entry{}
}

// insertEntry appends a new slot at position size, extending the chain
// with one new block first if the last block is full. The caller must
// have already checked for a name collision via lookup.
func (im *Image) insertEntry(dirHead int32, typ byte, name string, size int32, firstBlock int32) error {
	if len(name) >= MaxNameLength {
		return ErrNameTooLong
	}

	epb := im.EntriesPerBlock()
	curSize := im.dirSize(dirHead)
	if curSize%epb == 0 {
		last := im.lastBlock(dirHead)
		if _, err := im.extendChain(last); err != nil {
			return err
		}
	}

	_, slot := im.entryAt(dirHead, curSize)
	day, month, year := today()
	slot.setType(typ)
	slot.setName(name)
	slot.setDate(day, month, year)
	slot.setSize(size)
	slot.setFirstBlock(firstBlock)

	im.setDirSize(dirHead, curSize+1)
	return nil
}

// removeEntry implements swap-with-last compaction: the target slot is
// overwritten with the current last entry (unless they're the same slot),
// size is decremented, and if the block that held the old last entry is
// now empty it is unlinked from the chain and freed.
func (im *Image) removeEntry(dirHead int32, slotBlock int32, slotIndex int32) {
	epb := im.EntriesPerBlock()
	size := im.dirSize(dirHead)
	lastIdx := size - 1

	lastBlockID, lastEntry := im.entryAt(dirHead, lastIdx)
	if !(slotBlock == lastBlockID && slotIndex == lastIdx%epb) {
		target := im.entrySlot(slotBlock, slotIndex)
		copy(target.data, lastEntry.data)
	}

	newSize := size - 1
	im.setDirSize(dirHead, newSize)

	if newSize%epb == 0 {
		blocks := im.chainBlocks(dirHead)
		if len(blocks) >= 2 {
			prev := blocks[len(blocks)-2]
			im.fat.set(prev, EndOfChain)
		}
		im.free(lastBlockID)
	}
}

// enumerate reads all size entries of the directory in storage order.
func (im *Image) enumerate(dirHead int32) []Entry {
	size := im.dirSize(dirHead)
	out := make([]Entry, 0, size)
	for i := int32(0); i < size; i++ {
		_, e := im.entryAt(dirHead, i)
		out = append(out, e.snapshot())
	}
	return out
}

// Ls returns the current directory's entries (§4.6 collects them, the
// shell is responsible for sorting and rendering).
func (im *Image) Ls() []Entry {
	return im.enumerate(im.currentDir)
}

// Mkdir implements §4.4's mkdir algorithm.
func (im *Image) Mkdir(name string) error {
	if len(name) >= MaxNameLength {
		return ErrNameTooLong
	}
	if found, _, _, _ := im.lookup(im.currentDir, name); found {
		return ErrAlreadyExists
	}

	newBlock, err := im.allocate()
	if err != nil {
		return err
	}

	if err := im.insertEntry(im.currentDir, TypeDir, name, 0, newBlock); err != nil {
		im.free(newBlock)
		return err
	}

	im.initDirBlock(newBlock, im.currentDir)
	return nil
}

// Rmdir implements §4.4's rmdir algorithm.
func (im *Image) Rmdir(name string) error {
	if name == "." || name == ".." {
		return ErrInvalidArgument
	}

	found, slotBlock, slotIndex, entry := im.lookup(im.currentDir, name)
	if !found {
		return ErrNotFound
	}
	if !entry.IsDir() {
		return ErrNotDirectory
	}
	if im.dirSize(entry.FirstBlock) > 2 {
		return ErrDirectoryNotEmpty
	}

	im.free(entry.FirstBlock)
	im.removeEntry(im.currentDir, slotBlock, slotIndex)
	return nil
}

// Cd implements §4.4's cd algorithm. "." and ".." work via ordinary
// lookup, since they are ordinary entries 0 and 1.
func (im *Image) Cd(name string) error {
	found, _, _, entry := im.lookup(im.currentDir, name)
	if !found {
		return ErrNotFound
	}
	if !entry.IsDir() {
		return ErrNotDirectory
	}
	im.currentDir = entry.FirstBlock
	return nil
}

// Pwd implements §4.4's pwd algorithm: walk parent links, and at each
// step find the name the parent uses to refer to the current directory.
func (im *Image) Pwd() string {
	root := im.RootBlock()
	if im.currentDir == root {
		return "/"
	}

	var segments []string
	cur := im.currentDir
	for cur != root {
		_, dotdot := im.entryAt(cur, 1)
		parent := dotdot.firstBlock()

		name := ""
		size := im.dirSize(parent)
		for i := int32(0); i < size; i++ {
			_, e := im.entryAt(parent, i)
			if e.firstBlock() == cur && e.entryType() == TypeDir {
				name = e.name()
				break
			}
		}

		segments = append([]string{name}, segments...)
		cur = parent
	}
	return "/" + strings.Join(segments, "/")
}
