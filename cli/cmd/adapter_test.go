package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/adapter/redis"
	"github.com/pithecene-io/crucible/adapter/webhook"
	"github.com/pithecene-io/crucible/cli/config"
)

func adapterTestFlags() []cli.Flag {
	return append([]cli.Flag{ConfigFlag}, AdapterFlags()...)
}

func parseAdapterArgs(t *testing.T, args []string) (*adapterChoice, error) {
	t.Helper()
	var got *adapterChoice
	err := runCommand(t, adapterTestFlags(), args, func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		got, err = parseAdapterConfig(c, cfg)
		return err
	})
	return got, err
}

func TestParseAdapterConfig_None(t *testing.T) {
	got, err := parseAdapterArgs(t, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no adapter, got %+v", got)
	}
}

func TestParseAdapterConfig_WebhookFromCLI(t *testing.T) {
	got, err := parseAdapterArgs(t, []string{
		"--adapter", "webhook",
		"--adapter-url", "https://hooks.example.com",
		"--adapter-header", "Authorization=Bearer a=b",
		"--adapter-header", "X-Team=perf",
		"--adapter-timeout", "3s",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.typ != adapterWebhook || got.url != "https://hooks.example.com" {
		t.Errorf("unexpected choice: %+v", got)
	}
	if got.headers["Authorization"] != "Bearer a=b" || got.headers["X-Team"] != "perf" {
		t.Errorf("headers = %v", got.headers)
	}
	if got.timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", got.timeout)
	}
	if got.retries != webhook.DefaultRetries {
		t.Errorf("retries = %d, want default %d", got.retries, webhook.DefaultRetries)
	}
}

func TestParseAdapterConfig_ConfigMergedWithCLI(t *testing.T) {
	path := writeConfig(t, `adapter:
  type: webhook
  url: https://config.example.com
  headers:
    Authorization: Bearer config
    X-Source: config
  retries: 0
`)
	got, err := parseAdapterArgs(t, []string{"--config", path, "--adapter-header", "Authorization=Bearer cli"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.url != "https://config.example.com" {
		t.Errorf("url = %q, want config value", got.url)
	}
	if got.headers["Authorization"] != "Bearer cli" {
		t.Errorf("CLI header should win, got %q", got.headers["Authorization"])
	}
	if got.headers["X-Source"] != "config" {
		t.Errorf("config header lost: %v", got.headers)
	}
	if got.retries != 0 {
		t.Errorf("retries = %d, want explicit 0 from config", got.retries)
	}
}

func TestParseAdapterConfigWithPrecedence_RedisDefaults(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"adapter-url": "redis://localhost:6379/0"},
		map[string]string{"adapter-channel": "", "adapter-timeout": "0s", "adapter-retries": "0"})
	got, err := parseAdapterConfigWithPrecedence(c, &config.Config{}, adapterRedis)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.retries != redis.DefaultRetries {
		t.Errorf("retries = %d, want %d", got.retries, redis.DefaultRetries)
	}
	a, err := buildAdapter(got)
	if err != nil {
		t.Fatalf("buildAdapter failed: %v", err)
	}
	_ = a.Close()
}

func TestParseAdapterConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown type", []string{"--adapter", "kafka", "--adapter-url", "x"}, "unknown adapter type"},
		{"missing url", []string{"--adapter", "webhook"}, "--adapter-url is required"},
		{"malformed header", []string{"--adapter", "webhook", "--adapter-url", "https://x", "--adapter-header", "NoEquals"}, "Key=Value"},
		{"empty header key", []string{"--adapter", "webhook", "--adapter-url", "https://x", "--adapter-header", "=v"}, "Key=Value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAdapterArgs(t, tt.args)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestPublishBudget_CoversRetries(t *testing.T) {
	ac := &adapterChoice{timeout: time.Second, retries: 2}
	if got := publishBudget(ac); got < 3*time.Second {
		t.Errorf("publishBudget = %v, want at least 3 attempts of 1s", got)
	}
}
