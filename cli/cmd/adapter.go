package cmd

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/adapter"
	"github.com/pithecene-io/crucible/adapter/redis"
	"github.com/pithecene-io/crucible/adapter/webhook"
	"github.com/pithecene-io/crucible/cli/config"
)

// Adapter types.
const (
	adapterWebhook = "webhook"
	adapterRedis   = "redis"
)

// adapterChoice holds parsed adapter configuration.
type adapterChoice struct {
	typ     string
	url     string
	channel string
	headers map[string]string
	timeout time.Duration
	retries int
}

// parseAdapterConfig resolves the adapter type and returns nil when no
// adapter is configured.
func parseAdapterConfig(c *cli.Context, cfg *config.Config) (*adapterChoice, error) {
	typ := resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type }))
	if typ == "" {
		return nil, nil
	}
	return parseAdapterConfigWithPrecedence(c, cfg, typ)
}

// parseAdapterConfigWithPrecedence merges adapter flags over cfg for typ.
// Config headers are merged first so a CLI header with the same key wins.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, typ string) (*adapterChoice, error) {
	if typ != adapterWebhook && typ != adapterRedis {
		return nil, fmt.Errorf("unknown adapter type %q (must be %s or %s)", typ, adapterWebhook, adapterRedis)
	}

	ac := &adapterChoice{
		typ:     typ,
		url:     resolveString(c, "adapter-url", configVal(cfg, func(c *config.Config) string { return c.Adapter.URL })),
		channel: resolveString(c, "adapter-channel", configVal(cfg, func(c *config.Config) string { return c.Adapter.Channel })),
		timeout: resolveDuration(c, "adapter-timeout", configVal(cfg, func(c *config.Config) config.Duration { return c.Adapter.Timeout }).Duration),
		headers: make(map[string]string),
	}
	if ac.url == "" {
		return nil, fmt.Errorf("--adapter-url is required for %s adapter", typ)
	}

	switch retries := configVal(cfg, func(c *config.Config) *int { return c.Adapter.Retries }); {
	case c.IsSet("adapter-retries"):
		ac.retries = c.Int("adapter-retries")
	case retries != nil:
		ac.retries = *retries
	case typ == adapterRedis:
		ac.retries = redis.DefaultRetries
	default:
		ac.retries = webhook.DefaultRetries
	}

	maps.Copy(ac.headers, configVal(cfg, func(c *config.Config) map[string]string { return c.Adapter.Headers }))
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (must be Key=Value)", h)
		}
		ac.headers[strings.TrimSpace(k)] = v
	}
	return ac, nil
}

// buildAdapter constructs the adapter for ac.
func buildAdapter(ac *adapterChoice) (adapter.Adapter, error) {
	switch ac.typ {
	case adapterWebhook:
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case adapterRedis:
		return redis.New(redis.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.typ)
	}
}
