package shell

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpereira/vfs/internal/fatfs"
)

func newTestImage(t *testing.T) *fatfs.Image {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.vfs")
	im, err := fatfs.OpenOrFormat(path, 512, 8, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = im.Close() })
	return im
}

func runScript(t *testing.T, im *fatfs.Image, script string) string {
	t.Helper()
	var out bytes.Buffer
	Serve(im, strings.NewReader(script), &out)
	return out.String()
}

func TestUnknownCommand(t *testing.T) {
	im := newTestImage(t)
	out := runScript(t, im, "frobnicate\n")
	require.Contains(t, out, "ERROR(input: command not found)")
}

func TestArityDiagnostics(t *testing.T) {
	im := newTestImage(t)
	out := runScript(t, im, "mkdir\nmkdir a b\n")
	require.Contains(t, out, "mkdir: missing operand")
	require.Contains(t, out, "mkdir: too many operands")
}

func TestRmdirNonEmptyDiagnostic(t *testing.T) {
	im := newTestImage(t)
	out := runScript(t, im, "mkdir a\ncd a\nmkdir b\ncd ..\nrmdir a\n")
	require.Contains(t, out, "rmdir: 'a': Directory not empty.")
}

func TestEmptyLinesIgnored(t *testing.T) {
	im := newTestImage(t)
	out := runScript(t, im, "\n\nls\n")
	require.Contains(t, out, ".")
}

func TestExitStopsTheLoop(t *testing.T) {
	im := newTestImage(t)
	out := runScript(t, im, "exit\nls\n")
	require.NotContains(t, out, "ERROR")
	require.NotContains(t, out, "..")
}

func TestCatMissingFile(t *testing.T) {
	im := newTestImage(t)
	out := runScript(t, im, "cat nope\n")
	require.Contains(t, out, "cat: 'nope': No such file or directory.")
}
