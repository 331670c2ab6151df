package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// timewrap runs a command and reports its wall-clock time on stderr,
// preserving the child's exit status. It exists so capture runs can be
// timed without the shell's time builtin.
func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run returns the process exit status: the child's own status, or 1 on
// a usage error or when the child could not run at all.
func run(args []string, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintf(stderr, "Usage: %s <command> [args...]\n", os.Args[0])
		return 1
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	fmt.Fprintf(stderr, "Wall-clock time: %.3f sec\n", elapsed.Seconds())

	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
