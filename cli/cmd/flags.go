// Package cmd provides CLI commands for the crucible binaries.
package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/lode"
	"github.com/pithecene-io/crucible/runtime"
	"github.com/pithecene-io/crucible/shm"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (reports show, stats).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (reports show, stats only)",
	}

	// ConfigFlag points at a YAML project config. CLI flags win over it.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to YAML config file (CLI flags take precedence)",
		EnvVars: []string{"CRUCIBLE_CONFIG"},
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// PoolFlags configure the worker pool and every worker in it.
func PoolFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "pool-size", Aliases: []string{"n"}, Usage: "Number of workers (default: CPU count)"},
		&cli.StringFlag{Name: "transport", Usage: "Worker transport: inprocess or process", Value: runtime.TransportInProcess},
		&cli.StringFlag{Name: "worker-path", Usage: "Path to crucible-worker binary (process transport)", Value: "crucible-worker"},
		&cli.IntFlag{Name: "memory-size", Usage: "Compute module memory size in bytes"},
		&cli.DurationFlag{Name: "start-timeout", Usage: "Pool startup timeout", Value: runtime.DefaultStartTimeout},
		&cli.IntFlag{Name: "max-buffer-length", Usage: "Max shared buffer/array length"},
		&cli.IntFlag{Name: "max-image-size", Usage: "Max image width*height"},
		&cli.IntFlag{Name: "max-matrix-size", Usage: "Max matrix dimension"},
		&cli.BoolFlag{Name: "tuner-disabled", Usage: "Skip the Strassen threshold tuner on warmup"},
		&cli.IntFlag{Name: "tuner-size", Usage: "Matrix size the tuner measures"},
		&cli.StringFlag{Name: "tuner-candidates", Usage: "Comma-separated Strassen thresholds to try"},
		&cli.StringFlag{Name: "wait", Usage: "Control cell wait backend: auto, futex, poll", Value: shm.WaiterAuto},
		&cli.DurationFlag{Name: "poll-interval", Usage: "Poll backend interval", Value: shm.DefaultPollInterval},
		&cli.StringFlag{Name: "shm-dir", Usage: "Directory for file-backed shared regions", Value: shm.DefaultDir()},
	}
}

// StorageFlags select where reports are stored.
func StorageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "storage-dataset", Usage: "Lode dataset ID", Value: lode.DefaultDataset},
		&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: fs or s3"},
		&cli.StringFlag{Name: "storage-path", Usage: "Storage path (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "storage-region", Usage: "AWS region for S3 backend"},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint (R2, MinIO)"},
		&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Force S3 path-style addressing"},
	}
}

// AdapterFlags configure the completion notification adapter.
func AdapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "adapter", Usage: "Notification adapter: webhook or redis"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Webhook URL or Redis URL"},
		&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
		&cli.StringSliceFlag{Name: "adapter-header", Usage: "Webhook header as Key=Value (repeatable)"},
		&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-attempt timeout"},
		&cli.IntFlag{Name: "adapter-retries", Usage: "Retry attempts after the first"},
	}
}

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
