package cmd

import (
	"context"
	"errors"
	"fmt"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/bench"
	"github.com/pithecene-io/crucible/cli/render"
	"github.com/pithecene-io/crucible/cli/tui"
	"github.com/pithecene-io/crucible/lode"
)

// ReportsCommand returns the reports command group.
// Both subcommands only read from storage.
func ReportsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reports",
		Usage: "List and show stored benchmark reports",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored reports, latest first",
				Flags:  readFlags(&cli.IntFlag{Name: "limit", Usage: "Maximum reports to list (0 for all)", Value: 20}),
				Action: reportsListAction,
			},
			{
				Name:      "show",
				Usage:     "Show one report (latest when no id is given)",
				ArgsUsage: "[report-id]",
				Flags:     readFlags(),
				Action:    reportsShowAction,
			},
		},
	}
}

// readFlags returns the flags shared by commands that query storage.
func readFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{ConfigFlag}
	flags = append(flags, ReadOnlyFlags()...)
	flags = append(flags, StorageFlags()...)
	flags = append(flags, &cli.StringFlag{Name: "day", Usage: "Only reports from this day (YYYY-MM-DD)"})
	return append(flags, extra...)
}

// openReadDataset resolves storage flags and opens the dataset for reading.
func openReadDataset(c *cli.Context) (lodelibrary.Dataset, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	storage := parseStorageConfig(c, cfg)
	if !storage.enabled() {
		return nil, errors.New("--storage-backend is required to read reports")
	}
	if err := validateStorageConfig(storage); err != nil {
		return nil, err
	}
	return buildReadDataset(c.Context, storage)
}

func reportsListAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for reports list", 1)
	}

	ds, err := openReadDataset(c)
	if err != nil {
		return err
	}
	summaries, err := lode.ListReports(c.Context, ds, lode.Query{Day: c.String("day")})
	if err != nil {
		return err
	}
	if limit := c.Int("limit"); limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return r.Render(summaries)
}

func reportsShowAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	ds, err := openReadDataset(c)
	if err != nil {
		return err
	}
	report, err := loadReport(c.Context, ds, lode.Query{Day: c.String("day"), ReportID: c.Args().First()})
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewReport, report)
	}
	if r.Format() == render.FormatTable {
		return renderSummary(r, summarize(report))
	}
	return r.Render(report)
}

// loadReport queries one report and maps a miss to a plain exit message.
func loadReport(ctx context.Context, ds lodelibrary.Dataset, q lode.Query) (*bench.Report, error) {
	report, err := lode.QueryLatestReport(ctx, ds, q)
	if errors.Is(err, lode.ErrNoReportFound) {
		return nil, cli.Exit(err.Error(), 1)
	}
	return report, err
}
