// Package main provides the crucible-worker entrypoint, the child process
// of the process transport.
//
// Usage:
//
//	crucible-worker [options]
//
// Request frames arrive on stdin and responses leave on stdout; logs go to
// stderr. The worker exits 0 when stdin closes.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/cli/cmd"
	"github.com/pithecene-io/crucible/types"
)

func main() {
	app := &cli.App{
		Name:            "crucible-worker",
		Usage:           "Crucible compute worker (spawned by the process transport)",
		Version:         fmt.Sprintf("%s (protocol %d)", types.Version, types.ProtocolVersion),
		HideHelpCommand: true,
		Flags:           cmd.WorkerFlags(),
		Action:          cmd.WorkerAction,
		ExitErrHandler:  exitErrHandler,
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(2)
	}
}

// exitErrHandler exits with the cli.Exit code, or 2 for other errors.
// Stdout is reserved for frames, so messages go to stderr.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if exitCoder, ok := err.(cli.ExitCoder); ok {
		if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", exitCoder.ExitCode()) {
			fmt.Fprintln(os.Stderr, msg)
		}
		return exitCoder.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 2
}
