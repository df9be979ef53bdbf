package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/cli/render"
	"github.com/pithecene-io/crucible/cli/tui"
	"github.com/pithecene-io/crucible/lode"
)

// StatsCommand returns the stats command. It shows the pool metrics
// captured with a stored report.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show pool metrics recorded with a report",
		Flags:  readFlags(&cli.StringFlag{Name: "report-id", Usage: "Report to read (default: latest)"}),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	ds, err := openReadDataset(c)
	if err != nil {
		return err
	}
	report, err := loadReport(c.Context, ds, lode.Query{Day: c.String("day"), ReportID: c.String("report-id")})
	if err != nil {
		return err
	}
	if report.Metrics == nil {
		return cli.Exit("report "+report.ID+" has no metrics", 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStats, report.Metrics)
	}
	return r.Render(report.Metrics)
}
