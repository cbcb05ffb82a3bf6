package fatfs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestImage(t *testing.T, blockSize, fatType int) *Image {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.vfs")
	im, err := OpenOrFormat(path, blockSize, fatType, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = im.Close() })
	return im
}

// Scenario 1: format & root.
func TestFormatAndRoot(t *testing.T) {
	im := newTestImage(t, 512, 8)

	entries := im.Ls()
	require.Len(t, entries, 2)

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}

	dot, ok := byName["."]
	require.True(t, ok)
	require.True(t, dot.IsDir())

	dotdot, ok := byName[".."]
	require.True(t, ok)
	require.True(t, dotdot.IsDir())
}

// Scenario 2: mkdir / cd / pwd.
func TestMkdirCdPwd(t *testing.T) {
	im := newTestImage(t, 512, 8)

	require.NoError(t, im.Mkdir("a"))
	require.NoError(t, im.Cd("a"))
	require.NoError(t, im.Mkdir("b"))
	require.NoError(t, im.Cd("b"))
	require.Equal(t, "/a/b", im.Pwd())
}

// Scenario 3: rmdir non-empty.
func TestRmdirNonEmpty(t *testing.T) {
	im := newTestImage(t, 512, 8)

	require.NoError(t, im.Mkdir("a"))
	require.NoError(t, im.Cd("a"))
	require.NoError(t, im.Mkdir("b"))
	require.NoError(t, im.Cd(".."))

	err := im.Rmdir("a")
	require.ErrorIs(t, err, ErrDirectoryNotEmpty)

	_, _, _, entry := im.lookup(im.currentDir, "a")
	require.True(t, entry.IsDir())
}

func TestRmdirRejectsDotAndDotDot(t *testing.T) {
	im := newTestImage(t, 512, 8)
	require.ErrorIs(t, im.Rmdir("."), ErrInvalidArgument)
	require.ErrorIs(t, im.Rmdir(".."), ErrInvalidArgument)
}

// Scenario 4: boundary growth. The on-disk entry is fixed at 32 bytes (per
// the design notes' resolution of the packed-layout open question), so
// entries_per_block is block_size/32 rather than the 36-byte-entry value
// assumed by the scenario's literal "13" — the test below derives the
// boundary from EntriesPerBlock instead of hard-coding a name count.
func TestBoundaryGrowth(t *testing.T) {
	im := newTestImage(t, 512, 8)
	epb := im.EntriesPerBlock()

	names := make([]string, 0, epb)
	// Fill the root block exactly full (size reaches epb, "." and ".."
	// already counted): epb-2 more directories.
	for i := int32(0); i < epb-2; i++ {
		name := string(rune('a' + i))
		require.NoError(t, im.Mkdir(name))
		names = append(names, name)
	}
	require.Len(t, im.chainBlocks(im.currentDir), 1)

	// One more entry must cross the boundary and allocate a second block.
	last := "z"
	require.NoError(t, im.Mkdir(last))
	require.Len(t, im.chainBlocks(im.currentDir), 2)
	second := im.chainBlocks(im.currentDir)[1]

	require.NoError(t, im.Rmdir(last))
	require.Len(t, im.chainBlocks(im.currentDir), 1)

	// The released second block is now the head of the free-list.
	require.Equal(t, second, im.sb.freeBlock())
}

// Boundary: name length acceptance.
func TestNameLengthBoundary(t *testing.T) {
	im := newTestImage(t, 512, 8)

	name19 := repeatRune('n', MaxNameLength-1)
	require.NoError(t, im.Mkdir(name19))

	name20 := repeatRune('n', MaxNameLength)
	require.ErrorIs(t, im.Mkdir(name20), ErrNameTooLong)
}

func repeatRune(r rune, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}

// Scenario 5: get/put round-trip.
func TestGetPutRoundTrip(t *testing.T) {
	im := newTestImage(t, 512, 8)

	content := bytes.Repeat([]byte("round-trip-data"), 100)
	hostIn := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(hostIn, content, 0o644))

	require.NoError(t, im.Get(hostIn, "h"))

	hostOut := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, im.Put("h", hostOut))

	got, err := os.ReadFile(hostOut)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

// A file whose length is an exact multiple of block_size must not grow a
// trailing empty block.
func TestGetExactBlockMultipleNoTrailingBlock(t *testing.T) {
	im := newTestImage(t, 256, 8)

	content := bytes.Repeat([]byte{0x42}, 256*2)
	hostIn := filepath.Join(t.TempDir(), "exact.bin")
	require.NoError(t, os.WriteFile(hostIn, content, 0o644))

	require.NoError(t, im.Get(hostIn, "exact"))

	_, _, _, entry := im.lookup(im.currentDir, "exact")
	require.Equal(t, int32(len(content)), entry.Size)
	require.Len(t, im.chainBlocks(entry.FirstBlock), 2)
}

// Scenario 6: rm frees chain.
func TestRmFreesChain(t *testing.T) {
	im := newTestImage(t, 256, 8)

	content := bytes.Repeat([]byte{0x7}, 256*3-10)
	hostIn := filepath.Join(t.TempDir(), "spans.bin")
	require.NoError(t, os.WriteFile(hostIn, content, 0o644))
	require.NoError(t, im.Get(hostIn, "spans"))

	_, _, _, entry := im.lookup(im.currentDir, "spans")
	blocks := im.chainBlocks(entry.FirstBlock)
	require.Len(t, blocks, 3)

	before := im.sb.nFreeBlocks()
	require.NoError(t, im.Rm("spans"))
	after := im.sb.nFreeBlocks()
	require.Equal(t, before+3, after)

	freeChain := im.chainBlocks(im.sb.freeBlock())
	for _, b := range blocks {
		require.Contains(t, freeChain, b)
	}
}

// mv A B; mv B A restores the entry.
func TestMvReversal(t *testing.T) {
	im := newTestImage(t, 512, 8)

	hostIn := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(hostIn, []byte("payload"), 0o644))
	require.NoError(t, im.Get(hostIn, "a"))

	require.NoError(t, im.Mv("a", "b"))
	require.NoError(t, im.Mv("b", "a"))

	found, _, _, entry := im.lookup(im.currentDir, "a")
	require.True(t, found)
	require.Equal(t, int32(len("payload")), entry.Size)
}

// Disk exhaustion: allocating the very last free block succeeds, the next
// fails with ErrDiskFull, and the image is left untouched.
func TestAllocateUntilDiskFull(t *testing.T) {
	im := newTestImage(t, 256, 8)

	var last int32 = -1
	for {
		b, err := im.allocate()
		if err != nil {
			require.ErrorIs(t, err, ErrDiskFull)
			break
		}
		last = b
	}
	require.NotEqual(t, int32(-1), last)
	require.Equal(t, int32(0), im.sb.nFreeBlocks())

	_, err := im.allocate()
	require.ErrorIs(t, err, ErrDiskFull)
	require.Equal(t, int32(0), im.sb.nFreeBlocks())
}

// Closing and reopening the image keeps a directory created before the close.
func TestCloseAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.vfs")
	im, err := OpenOrFormat(path, 512, 8, nil)
	require.NoError(t, err)
	require.NoError(t, im.Mkdir("a"))
	require.NoError(t, im.Close())

	im2, err := OpenOrFormat(path, 512, 8, nil)
	require.NoError(t, err)
	defer im2.Close()

	found, _, _, entry := im2.lookup(im2.currentDir, "a")
	require.True(t, found)
	require.True(t, entry.IsDir())
}
