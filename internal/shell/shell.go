// Package shell implements the interactive command loop described in §6:
// a prompt, a line of input split into a command and its operands, and a
// dispatch table mapping each of the twelve commands onto the fatfs core.
// It is the Go counterpart of the original's parse()/exec_com() pair —
// the tokenizer stays this simple on purpose, matching the original's
// single strtok(" ") pass rather than a full shell grammar.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rpereira/vfs/internal/fatfs"
)

const prompt = "vfs$ "

type command struct {
	arity int
	exit  bool
	run   func(im *fatfs.Image, args []string, out io.Writer)
}

var commands = map[string]command{
	"ls":    {arity: 0, run: cmdLs},
	"mkdir": {arity: 1, run: cmdMkdir},
	"cd":    {arity: 1, run: cmdCd},
	"pwd":   {arity: 0, run: cmdPwd},
	"rmdir": {arity: 1, run: cmdRmdir},
	"get":   {arity: 2, run: cmdGet},
	"put":   {arity: 2, run: cmdPut},
	"cat":   {arity: 1, run: cmdCat},
	"cp":    {arity: 2, run: cmdCp},
	"mv":    {arity: 2, run: cmdMv},
	"rm":    {arity: 1, run: cmdRm},
	"exit":  {arity: 0, exit: true},
}

// Serve runs the read-eval-print loop against im until the user types exit
// or in reaches EOF. Both are ordinary termination, not errors.
func Serve(im *fatfs.Image, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		name, args := fields[0], fields[1:]

		cmd, ok := commands[name]
		if !ok {
			fmt.Fprintln(out, "ERROR(input: command not found)")
			continue
		}
		if len(args) < cmd.arity {
			fmt.Fprintf(out, "%s: missing operand\n", name)
			continue
		}
		if len(args) > cmd.arity {
			fmt.Fprintf(out, "%s: too many operands\n", name)
			continue
		}
		if cmd.exit {
			return
		}
		cmd.run(im, args, out)
	}
}

// report renders a core error as the `cmd: 'subject': Reason.` diagnostic
// of §7, except for disk exhaustion which the spec calls out with its own
// unqualified line.
func report(out io.Writer, cmd, subject string, err error) {
	if errors.Is(err, fatfs.ErrDiskFull) {
		fmt.Fprintln(out, "Disk full.")
		return
	}
	fmt.Fprintf(out, "%s: '%s': %s.\n", cmd, subject, reason(err))
}

func reason(err error) string {
	switch {
	case errors.Is(err, fatfs.ErrNotFound):
		return "No such file or directory"
	case errors.Is(err, fatfs.ErrAlreadyExists):
		return "File exists"
	case errors.Is(err, fatfs.ErrNotDirectory):
		return "Not a directory"
	case errors.Is(err, fatfs.ErrIsDirectory):
		return "Is a directory"
	case errors.Is(err, fatfs.ErrDirectoryNotEmpty):
		return "Directory not empty"
	case errors.Is(err, fatfs.ErrNameTooLong):
		return "File name too long"
	case errors.Is(err, fatfs.ErrInvalidArgument):
		return "Invalid argument"
	default:
		return err.Error()
	}
}

func cmdLs(im *fatfs.Image, args []string, out io.Writer) {
	for _, line := range fatfs.RenderLs(im.Ls()) {
		fmt.Fprintln(out, line)
	}
}

func cmdMkdir(im *fatfs.Image, args []string, out io.Writer) {
	if err := im.Mkdir(args[0]); err != nil {
		report(out, "mkdir", args[0], err)
	}
}

func cmdCd(im *fatfs.Image, args []string, out io.Writer) {
	if err := im.Cd(args[0]); err != nil {
		report(out, "cd", args[0], err)
	}
}

func cmdPwd(im *fatfs.Image, args []string, out io.Writer) {
	fmt.Fprintln(out, im.Pwd())
}

func cmdRmdir(im *fatfs.Image, args []string, out io.Writer) {
	if err := im.Rmdir(args[0]); err != nil {
		report(out, "rmdir", args[0], err)
	}
}

// cmdGet and cmdPut cross the VFS/host boundary, so an error may belong to
// either the host path or the VFS name depending on which side it came
// from; fatfs.IsKnown tells the two apart.
func cmdGet(im *fatfs.Image, args []string, out io.Writer) {
	hostPath, vfsName := args[0], args[1]
	if err := im.Get(hostPath, vfsName); err != nil {
		if fatfs.IsKnown(err) {
			report(out, "get", vfsName, err)
		} else {
			report(out, "get", hostPath, err)
		}
	}
}

func cmdPut(im *fatfs.Image, args []string, out io.Writer) {
	vfsName, hostPath := args[0], args[1]
	if err := im.Put(vfsName, hostPath); err != nil {
		if fatfs.IsKnown(err) {
			report(out, "put", vfsName, err)
		} else {
			report(out, "put", hostPath, err)
		}
	}
}

func cmdCat(im *fatfs.Image, args []string, out io.Writer) {
	if err := im.Cat(args[0], out); err != nil {
		report(out, "cat", args[0], err)
	}
}

func cmdCp(im *fatfs.Image, args []string, out io.Writer) {
	src, dst := args[0], args[1]
	if err := im.Cp(src, dst); err != nil {
		subject := src
		if errors.Is(err, fatfs.ErrInvalidArgument) {
			subject = dst
		}
		report(out, "cp", subject, err)
	}
}

func cmdMv(im *fatfs.Image, args []string, out io.Writer) {
	src, dst := args[0], args[1]
	if err := im.Mv(src, dst); err != nil {
		subject := src
		if errors.Is(err, fatfs.ErrInvalidArgument) {
			subject = dst
		}
		report(out, "mv", subject, err)
	}
}

func cmdRm(im *fatfs.Image, args []string, out io.Writer) {
	if err := im.Rm(args[0]); err != nil {
		report(out, "rm", args[0], err)
	}
}
