package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/cli/render"
	"github.com/pithecene-io/crucible/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version  string `json:"version"`
	Protocol int    `json:"protocol"`
	Commit   string `json:"commit"`
}

// VersionCommand returns the version command.
// The CLI and worker share one version; the protocol version is what a
// pool and its workers must agree on. It never starts a pool.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", 1)
		}

		return r.Render(VersionResponse{
			Version:  types.Version,
			Protocol: types.ProtocolVersion,
			Commit:   commit,
		})
	}
}
