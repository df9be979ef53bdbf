package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/cli/config"
	"github.com/pithecene-io/crucible/runtime"
	"github.com/pithecene-io/crucible/tuner"
	"github.com/pithecene-io/crucible/worker"
)

// parsePoolConfig merges pool flags over cfg into a runtime config.
func parsePoolConfig(c *cli.Context, cfg *config.Config) (runtime.Config, error) {
	transport := resolveString(c, "transport", configVal(cfg, func(c *config.Config) string { return c.Pool.Transport }))
	if !runtime.ValidTransport(transport) {
		return runtime.Config{}, fmt.Errorf("invalid transport %q (must be %s or %s)",
			transport, runtime.TransportInProcess, runtime.TransportProcess)
	}

	size := resolveInt(c, "pool-size", configVal(cfg, func(c *config.Config) int { return c.Pool.Size }))
	if size < 0 {
		return runtime.Config{}, fmt.Errorf("pool size must be >= 0, got %d", size)
	}

	candidates := configVal(cfg, func(c *config.Config) []int { return c.Tuner.Candidates })
	if c.IsSet("tuner-candidates") || len(candidates) == 0 {
		parsed, err := runtime.ParseInts(c.String("tuner-candidates"))
		if err != nil {
			return runtime.Config{}, fmt.Errorf("invalid --tuner-candidates: %w", err)
		}
		candidates = parsed
	}
	for _, v := range candidates {
		if v <= 0 {
			return runtime.Config{}, fmt.Errorf("tuner candidates must be positive, got %d", v)
		}
	}

	return runtime.Config{
		Transport:    transport,
		Size:         size,
		WorkerPath:   resolveString(c, "worker-path", configVal(cfg, func(c *config.Config) string { return c.Pool.WorkerPath })),
		StartTimeout: resolveDuration(c, "start-timeout", configVal(cfg, func(c *config.Config) config.Duration { return c.Pool.StartTimeout }).Duration),
		Settings: runtime.WorkerSettings{
			MemorySize: resolveInt(c, "memory-size", configVal(cfg, func(c *config.Config) int { return c.Pool.MemorySize })),
			ShmDir:     resolveString(c, "shm-dir", configVal(cfg, func(c *config.Config) string { return c.Shm.Dir })),
			Limits: worker.Limits{
				MaxBufferLength: resolveInt(c, "max-buffer-length", configVal(cfg, func(c *config.Config) int { return c.Limits.MaxBufferLength })),
				MaxImageSize:    resolveInt(c, "max-image-size", configVal(cfg, func(c *config.Config) int { return c.Limits.MaxImageSize })),
				MaxMatrixSize:   resolveInt(c, "max-matrix-size", configVal(cfg, func(c *config.Config) int { return c.Limits.MaxMatrixSize })),
			},
			Tuner: tuner.Config{
				Disabled:   resolveBool(c, "tuner-disabled", configVal(cfg, func(c *config.Config) bool { return c.Tuner.Disabled })),
				Size:       resolveInt(c, "tuner-size", configVal(cfg, func(c *config.Config) int { return c.Tuner.Size })),
				Candidates: candidates,
			},
			Waiter:       resolveString(c, "wait", configVal(cfg, func(c *config.Config) string { return c.Handshake.Wait })),
			PollInterval: resolveDuration(c, "poll-interval", configVal(cfg, func(c *config.Config) config.Duration { return c.Handshake.PollInterval }).Duration),
		},
	}, nil
}
