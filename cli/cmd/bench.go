package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/adapter"
	"github.com/pithecene-io/crucible/bench"
	"github.com/pithecene-io/crucible/cli/render"
	"github.com/pithecene-io/crucible/lode"
	"github.com/pithecene-io/crucible/log"
	"github.com/pithecene-io/crucible/runtime"
)

// Exit codes for bench.
const (
	exitSuccess        = 0
	exitCaseFailure    = 1
	exitRuntimeError   = 2
	exitStorageFailure = 3
)

// BenchSummary is the rendered outcome of a bench run.
type BenchSummary struct {
	ReportID    string             `json:"report_id"`
	Outcome     string             `json:"outcome"`
	DurationMs  int64              `json:"duration_ms"`
	PoolSize    int                `json:"pool_size"`
	Transport   string             `json:"transport"`
	Threshold   int                `json:"threshold"`
	StoredAt    string             `json:"stored_at,omitempty"`
	Cases       []bench.CaseResult `json:"cases"`
	Comparisons []bench.Comparison `json:"comparisons,omitempty"`
}

// BenchCommand returns the bench command.
func BenchCommand() *cli.Command {
	flags := []cli.Flag{ConfigFlag, FormatFlag, NoColorFlag}
	flags = append(flags, PoolFlags()...)
	flags = append(flags, StorageFlags()...)
	flags = append(flags, AdapterFlags()...)
	flags = append(flags,
		&cli.IntFlag{Name: "runs", Usage: "Runs per case", Value: bench.DefaultRuns},
		&cli.IntFlag{Name: "fib-n", Usage: "Fibonacci n (0 skips fibonacci)", Value: bench.DefaultFibN},
		&cli.IntFlag{Name: "fib-iterations", Usage: "Fibonacci batch iterations", Value: bench.DefaultFibIterations},
		&cli.StringFlag{Name: "quicksort-sizes", Usage: "Comma-separated quicksort lengths (empty skips)", Value: fmt.Sprint(bench.DefaultQuicksortSize)},
		&cli.StringFlag{Name: "matrix-sizes", Usage: "Comma-separated matrix sizes (empty skips)", Value: fmt.Sprint(bench.DefaultMatrixSize)},
		&cli.IntFlag{Name: "stream-total", Usage: "Streamed sum element count (0 skips)", Value: bench.DefaultStreamTotal},
		&cli.IntFlag{Name: "stream-chunk", Usage: "Streamed sum chunk length", Value: bench.DefaultStreamChunk},
		&cli.StringFlag{Name: "report", Usage: "Write the full report JSON to a path (- for stdout)"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress structured logs"},
	)

	return &cli.Command{
		Name:   "bench",
		Usage:  "Run the benchmark suite against a worker pool",
		Flags:  flags,
		Action: benchAction,
	}
}

// parseBenchSizes reads the case size flags.
func parseBenchSizes(c *cli.Context) (bench.Sizes, error) {
	quicksort, err := runtime.ParseInts(c.String("quicksort-sizes"))
	if err != nil {
		return bench.Sizes{}, fmt.Errorf("invalid --quicksort-sizes: %w", err)
	}
	matrix, err := runtime.ParseInts(c.String("matrix-sizes"))
	if err != nil {
		return bench.Sizes{}, fmt.Errorf("invalid --matrix-sizes: %w", err)
	}
	if slices.ContainsFunc(slices.Concat(quicksort, matrix), func(v int) bool { return v <= 0 }) {
		return bench.Sizes{}, errors.New("benchmark sizes must be positive")
	}
	return bench.Sizes{
		Fibonacci:  c.Int("fib-n"),
		Quicksort:  quicksort,
		Matrix:     matrix,
		StreamSum:  c.Int("stream-total"),
		Iterations: c.Int("fib-iterations"),
		Chunk:      c.Int("stream-chunk"),
	}, nil
}

func benchAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), exitRuntimeError)
	}
	poolCfg, err := parsePoolConfig(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}
	storage := parseStorageConfig(c, cfg)
	if err := validateStorageConfig(storage); err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}
	adapterCfg, err := parseAdapterConfig(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}
	sizes, err := parseBenchSizes(c)
	if err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}

	logger := log.NewLogger(log.Meta{Component: "bench"})
	if c.Bool("quiet") {
		logger = log.Nop()
	}
	defer func() { _ = logger.Sync() }()
	poolCfg.Logger = logger
	poolCfg.StorageBackend = storage.backend

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := runtime.Start(ctx, poolCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to start pool: %v", err), exitRuntimeError)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("pool shutdown failed", map[string]any{"error": err.Error()})
		}
	}()

	suite := bench.NewSuite(client,
		bench.WithRuns(c.Int("runs")),
		bench.WithCases(bench.DefaultCases(sizes)),
		bench.WithPool(client.Pool().Size(), client.Transport()),
		bench.WithStats(client.Stats),
		bench.WithLogger(logger),
	)
	report, err := suite.Run(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("benchmark failed: %v", err), exitRuntimeError)
	}

	if path := c.String("report"); path != "" {
		if err := bench.WriteReport(report, path); err != nil {
			return cli.Exit(err.Error(), exitRuntimeError)
		}
	}

	summary := summarize(report)
	if storage.enabled() {
		day := lode.DeriveDay(report.StartedAt)
		summary.StoredAt = fmt.Sprintf("%s/day=%s/report_id=%s", storage.location(), day, report.ID)
		if err := storeReport(ctx, storage, client, report); err != nil {
			logger.Error("report write failed", map[string]any{"error": err.Error()})
			return cli.Exit(fmt.Sprintf("failed to store report: %v", err), exitStorageFailure)
		}
	}

	if adapterCfg != nil {
		publishCompletion(ctx, adapterCfg, report, summary.StoredAt, logger)
	}

	if err := renderSummary(r, summary); err != nil {
		return cli.Exit(err.Error(), exitRuntimeError)
	}

	if report.Failed() {
		return cli.Exit("", exitCaseFailure)
	}
	return nil
}

func summarize(report *bench.Report) BenchSummary {
	outcome := adapter.OutcomeSuccess
	if report.Failed() {
		outcome = adapter.OutcomePartial
	}
	return BenchSummary{
		ReportID:    report.ID,
		Outcome:     outcome,
		DurationMs:  report.Duration().Milliseconds(),
		PoolSize:    report.PoolSize,
		Transport:   report.Transport,
		Threshold:   report.Threshold,
		Cases:       report.Cases,
		Comparisons: report.Comparisons(),
	}
}

// renderSummary prints the case table and comparisons in table mode and
// the whole summary otherwise.
func renderSummary(r *render.Renderer, s BenchSummary) error {
	if r.Format() != render.FormatTable {
		return r.Render(s)
	}
	if err := r.Render(s.Cases); err != nil {
		return err
	}
	if len(s.Comparisons) == 0 {
		return nil
	}
	fmt.Println()
	return r.Render(s.Comparisons)
}

// storeReport writes report through an instrumented store so the write is
// counted on the pool's collector.
func storeReport(ctx context.Context, s storageChoice, client *runtime.Client, report *bench.Report) error {
	inner, err := buildReportStore(ctx, s)
	if err != nil {
		return err
	}
	store := lode.NewInstrumentedStore(inner, client.Metrics())
	defer func() { _ = store.Close() }()
	return store.WriteReport(ctx, report)
}

// publishCompletion announces the finished run. Failures are logged and do
// not change the exit code.
func publishCompletion(ctx context.Context, ac *adapterChoice, report *bench.Report, storedAt string, logger *log.Logger) {
	a, err := buildAdapter(ac)
	if err != nil {
		logger.Warn("adapter setup failed", map[string]any{"adapter": ac.typ, "error": err.Error()})
		return
	}
	defer func() { _ = a.Close() }()

	event := adapter.NewBenchCompletedEvent(report, lode.DeriveDay(report.StartedAt), storedAt)
	pubCtx, cancel := context.WithTimeout(ctx, publishBudget(ac))
	defer cancel()
	if err := a.Publish(pubCtx, event); err != nil {
		logger.Warn("bench completion publish failed", map[string]any{"adapter": ac.typ, "error": err.Error()})
		return
	}
	logger.Info("bench completion published", map[string]any{"adapter": ac.typ, "report_id": report.ID})
}

// publishBudget bounds the whole publish including retries.
func publishBudget(ac *adapterChoice) time.Duration {
	timeout := ac.timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return time.Duration(ac.retries+1)*timeout + time.Duration(1<<min(ac.retries, 10))*adapter.BaseBackoff
}
