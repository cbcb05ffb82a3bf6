package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rpereira/vfs/internal/disk"
	"github.com/rpereira/vfs/internal/fatfs"
	"github.com/rpereira/vfs/internal/logger"
	"github.com/rpereira/vfs/internal/shell"
)

const usage = "Usage: vfs [-b{256|512|1024}] [-f{8|10|12}] IMAGE_PATH"

// Execute builds and runs the root command against argv, returning the
// process exit code of §6/§7: 0 on exit or EOF, 1 on any startup-time
// argument or image error.
func Execute(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	exitCode := 0

	root := &cobra.Command{
		Use:                "vfs [-b{256|512|1024}] [-f{8|10|12}] IMAGE_PATH",
		Short:              "interactive virtual file system shell",
		DisableFlagParsing: true, // the grammar below isn't a flag grammar cobra understands
		SilenceUsage:       true,
		SilenceErrors:      true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(c *cobra.Command, args []string) error {
			blockSize, fatType, imagePath, ok := parseArgs(args)
			if !ok {
				fmt.Fprintln(stderr, usage)
				exitCode = 1
				return nil
			}

			imagePath = disk.NormalizeVolumePath(imagePath)

			log := logger.New(stderr, logger.ErrorLevel)
			im, err := fatfs.OpenOrFormat(imagePath, blockSize, fatType, log)
			if err != nil {
				fmt.Fprintln(stderr, err)
				exitCode = 1
				return nil
			}
			defer im.Close()

			printBanner(stdout, blockSize, fatType)
			shell.Serve(im, stdin, stdout)
			return nil
		},
	}
	root.SetArgs(argv)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return exitCode
}

// parseArgs hand-rolls the glued-flag grammar of §6 ("-b512", "-f10"),
// since it doesn't fit cobra's own flag parser: flags may appear in
// either order but must precede the image path, each may appear at most
// once, and any other shape at all is rejected outright.
func parseArgs(args []string) (blockSize, fatType int, imagePath string, ok bool) {
	blockSize, fatType = 512, 10

	var haveBlockSize, haveFatType bool
	i := 0
	for i < len(args) && len(args[i]) > 0 && args[i][0] == '-' {
		switch {
		case !haveBlockSize && parseBlockSizeFlag(args[i], &blockSize):
			haveBlockSize = true
		case !haveFatType && parseFatTypeFlag(args[i], &fatType):
			haveFatType = true
		default:
			return 0, 0, "", false
		}
		i++
	}

	if i != len(args)-1 {
		return 0, 0, "", false
	}
	return blockSize, fatType, args[i], true
}

func parseBlockSizeFlag(arg string, out *int) bool {
	if len(arg) < 3 || arg[0] != '-' || arg[1] != 'b' {
		return false
	}
	switch arg[2:] {
	case "256":
		*out = 256
	case "512":
		*out = 512
	case "1024":
		*out = 1024
	default:
		return false
	}
	return true
}

func parseFatTypeFlag(arg string, out *int) bool {
	if len(arg) < 3 || arg[0] != '-' || arg[1] != 'f' {
		return false
	}
	switch arg[2:] {
	case "8":
		*out = 8
	case "10":
		*out = 10
	case "12":
		*out = 12
	default:
		return false
	}
	return true
}

func printBanner(w io.Writer, blockSize, fatType int) {
	fmt.Fprintln(w, " __   __  ___________")
	fmt.Fprintln(w, " \\ \\ / / |  ___|  ___|")
	fmt.Fprintln(w, "  \\ V /  | |_  | |_")
	fmt.Fprintln(w, "  / ^ \\  |  _| |  _|")
	fmt.Fprintln(w, " /_/ \\_\\ |_|   |_|")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "memory-mapped virtual file system")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "block_size: %d   fat_type: %d\n", blockSize, fatType)
	fmt.Fprintln(w)
}
