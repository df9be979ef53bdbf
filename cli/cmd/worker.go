package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/compute"
	"github.com/pithecene-io/crucible/iox"
	"github.com/pithecene-io/crucible/log"
	"github.com/pithecene-io/crucible/runtime"
	"github.com/pithecene-io/crucible/shm"
	"github.com/pithecene-io/crucible/tuner"
	"github.com/pithecene-io/crucible/worker"
)

// WorkerIndexEnv carries the worker's pool index to a process worker.
const WorkerIndexEnv = "CRUCIBLE_WORKER_INDEX"

// WorkerFlags are the flags rendered by runtime.WorkerSettings.Args.
func WorkerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "memory-size", Usage: "Compute module memory size in bytes", Value: compute.DefaultMemorySize},
		&cli.StringFlag{Name: "shm-dir", Usage: "Directory for file-backed shared regions", Value: shm.DefaultDir()},
		&cli.StringFlag{Name: "waiter", Usage: "Control cell wait backend: auto, futex, poll", Value: shm.WaiterAuto},
		&cli.DurationFlag{Name: "poll-interval", Usage: "Poll backend interval", Value: shm.DefaultPollInterval},
		&cli.IntFlag{Name: "max-buffer-length", Usage: "Max shared buffer/array length"},
		&cli.IntFlag{Name: "max-image-size", Usage: "Max image width*height"},
		&cli.IntFlag{Name: "max-matrix-size", Usage: "Max matrix dimension"},
		&cli.BoolFlag{Name: "tuner-disabled", Usage: "Skip the Strassen threshold tuner on warmup"},
		&cli.IntFlag{Name: "tuner-size", Usage: "Matrix size the tuner measures"},
		&cli.StringFlag{Name: "tuner-candidates", Usage: "Comma-separated Strassen thresholds to try"},
	}
}

// parseWorkerSettings reads WorkerFlags back into settings.
func parseWorkerSettings(c *cli.Context) (runtime.WorkerSettings, error) {
	candidates, err := runtime.ParseInts(c.String("tuner-candidates"))
	if err != nil {
		return runtime.WorkerSettings{}, fmt.Errorf("invalid --tuner-candidates: %w", err)
	}
	return runtime.WorkerSettings{
		MemorySize: c.Int("memory-size"),
		ShmDir:     c.String("shm-dir"),
		Limits: worker.Limits{
			MaxBufferLength: c.Int("max-buffer-length"),
			MaxImageSize:    c.Int("max-image-size"),
			MaxMatrixSize:   c.Int("max-matrix-size"),
		},
		Tuner: tuner.Config{
			Disabled:   c.Bool("tuner-disabled"),
			Size:       c.Int("tuner-size"),
			Candidates: candidates,
		},
		Waiter:       c.String("waiter"),
		PollInterval: c.Duration("poll-interval"),
	}, nil
}

// workerLogger tags entries with the pool index from the environment.
func workerLogger() *log.Logger {
	meta := log.Meta{Component: "worker"}
	if idx, err := strconv.Atoi(os.Getenv(WorkerIndexEnv)); err == nil {
		meta.Worker = &idx
	}
	return log.NewLogger(meta)
}

// WorkerAction serves frames on stdin/stdout until stdin closes.
// Stdout carries frames only; logs go to stderr.
func WorkerAction(c *cli.Context) error {
	settings, err := parseWorkerSettings(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	waiter, err := shm.NewWaiter(settings.Waiter, settings.PollInterval)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	logger := workerLogger()
	defer func() { _ = logger.Sync() }()

	// Module memory is file-backed so the parent can map the arena.
	loader := compute.NewLoader(compute.Config{
		MemorySize: settings.MemorySize,
		FileBacked: true,
		Dir:        settings.ShmDir,
	})
	defer iox.DiscardClose(loader)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = worker.Serve(ctx, os.Stdin, os.Stdout,
		worker.WithLoader(loader),
		worker.WithWaiter(waiter),
		worker.WithLimits(settings.Limits),
		worker.WithTuner(settings.Tuner),
		worker.WithLogger(logger),
	)
	if err != nil {
		logger.Error("worker exited", map[string]any{"error": err.Error()})
		return cli.Exit("", 1)
	}
	return nil
}
