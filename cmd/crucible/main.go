// Package main provides the crucible CLI entrypoint.
//
// Usage:
//
//	crucible <command> [subcommand] [options]
//
// Exit codes for `bench`:
//   - 0: every case succeeded
//   - 1: at least one case failed
//   - 2: pool, configuration or suite error
//   - 3: report storage failure
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/cli/cmd"
	"github.com/pithecene-io/crucible/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "crucible",
		Usage:          "Compute worker pool benchmarks and tooling",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.BenchCommand(),
			cmd.CallCommand(),
			cmd.ReportsCommand(),
			cmd.StatsCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit and prints any real
// message to stderr.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(exitCode(err, os.Stderr))
}
