// Package webhook posts bench completion events as JSON to an HTTP
// endpoint, retrying 5xx responses and network errors with backoff.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pithecene-io/crucible/adapter"
	"github.com/pithecene-io/crucible/iox"
	"github.com/pithecene-io/crucible/types"
)

const (
	// DefaultTimeout bounds one POST, connection setup included.
	DefaultTimeout = 10 * time.Second
	// DefaultRetries is the retry count used when the config leaves it unset.
	DefaultRetries = 3

	// EventHeader carries the event type on every request.
	EventHeader = "X-Crucible-Event"
	// ReportHeader carries the report ID on every request.
	ReportHeader = "X-Crucible-Report-Id"

	maxErrorBody = 512
)

// Config configures the webhook adapter.
type Config struct {
	URL string
	// Headers are set on each request after the defaults, so they may
	// override Content-Type or User-Agent.
	Headers map[string]string
	Timeout time.Duration
	Retries int
}

// Adapter publishes bench completion events via HTTP POST.
type Adapter struct {
	url     string
	retries int
	header  http.Header
	client  *http.Client
}

// New validates cfg and returns an adapter with its own HTTP client.
func New(cfg Config) (*Adapter, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("webhook adapter requires a URL")
	case cfg.Retries < 0:
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("User-Agent", "crucible/"+types.Version)
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}

	return &Adapter{
		url:     cfg.URL,
		retries: cfg.Retries,
		header:  header,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Publish posts the event. Client errors other than 408 and 429 are not
// retried.
func (a *Adapter) Publish(ctx context.Context, event *adapter.BenchCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	return adapter.Retry(ctx, "webhook", a.retries, func(ctx context.Context) error {
		return a.post(ctx, event, body)
	}, permanent)
}

func permanent(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return se.Code >= 400 && se.Code < 500
}

// StatusError is a non-2xx response. Body holds the start of the response
// body, if any.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (a *Adapter) post(ctx context.Context, event *adapter.BenchCompletedEvent, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header = a.header.Clone()
	req.Header.Set(EventHeader, event.EventType)
	req.Header.Set(ReportHeader, event.ReportID)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", req.URL.Host, err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// drained so the connection is reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
}

// Close drops idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
