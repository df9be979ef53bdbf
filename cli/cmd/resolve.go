package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/cli/config"
)

// loadConfig loads the --config file, or returns nil when none is given.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	return config.Load(path)
}

// configVal reads a field from cfg, tolerating a nil config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// Precedence for every resolve helper: an explicitly set CLI flag, then a
// non-zero config value, then the flag default.

func resolveString(c *cli.Context, name, fromConfig string) string {
	if c.IsSet(name) || fromConfig == "" {
		return c.String(name)
	}
	return fromConfig
}

func resolveInt(c *cli.Context, name string, fromConfig int) int {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Int(name)
	}
	return fromConfig
}

func resolveBool(c *cli.Context, name string, fromConfig bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fromConfig || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, fromConfig time.Duration) time.Duration {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Duration(name)
	}
	return fromConfig
}
