// Package runtime provides worker transports for the pool and the client
// that ties a pool, a region registry and the completion handshake together.
//
// Two transports are available:
//   - inprocess: each worker is a goroutine running worker.Serve over pipes
//   - process: each worker is a crucible-worker child over stdin/stdout
//
// The process transport needs regions that the child can map, so every
// shared region is file-backed under the shm directory.
package runtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pithecene-io/crucible/compute"
	"github.com/pithecene-io/crucible/shm"
	"github.com/pithecene-io/crucible/tuner"
	"github.com/pithecene-io/crucible/worker"
)

// Transport names.
const (
	TransportInProcess = "inprocess"
	TransportProcess   = "process"
)

// ValidTransport reports whether name is a known transport.
func ValidTransport(name string) bool {
	return name == TransportInProcess || name == TransportProcess
}

// RequiresFileRegions reports whether shared regions must be file-backed
// for transport.
func RequiresFileRegions(transport string) bool {
	return transport == TransportProcess
}

// WorkerSettings configure each worker independently of transport.
type WorkerSettings struct {
	// MemorySize is the compute module memory size in bytes.
	MemorySize int
	// ShmDir holds file-backed regions (default shm.DefaultDir()).
	ShmDir string
	// Limits are the request size limits.
	Limits worker.Limits
	// Tuner configures the warmup threshold tuner.
	Tuner tuner.Config
	// Waiter names the control cell wake backend.
	Waiter string
	// PollInterval is the poll backend interval.
	PollInterval time.Duration
}

func (s WorkerSettings) withDefaults() WorkerSettings {
	if s.MemorySize <= 0 {
		s.MemorySize = compute.DefaultMemorySize
	}
	if s.ShmDir == "" {
		s.ShmDir = shm.DefaultDir()
	}
	if s.Waiter == "" {
		s.Waiter = shm.WaiterAuto
	}
	if s.PollInterval <= 0 {
		s.PollInterval = shm.DefaultPollInterval
	}
	return s
}

// Args renders the settings as crucible-worker flags.
func (s WorkerSettings) Args() []string {
	s = s.withDefaults()
	args := []string{
		"--memory-size", strconv.Itoa(s.MemorySize),
		"--shm-dir", s.ShmDir,
		"--waiter", s.Waiter,
		"--poll-interval", s.PollInterval.String(),
	}
	if s.Limits.MaxBufferLength > 0 {
		args = append(args, "--max-buffer-length", strconv.Itoa(s.Limits.MaxBufferLength))
	}
	if s.Limits.MaxImageSize > 0 {
		args = append(args, "--max-image-size", strconv.Itoa(s.Limits.MaxImageSize))
	}
	if s.Limits.MaxMatrixSize > 0 {
		args = append(args, "--max-matrix-size", strconv.Itoa(s.Limits.MaxMatrixSize))
	}
	if s.Tuner.Disabled {
		args = append(args, "--tuner-disabled")
	}
	if s.Tuner.Size > 0 {
		args = append(args, "--tuner-size", strconv.Itoa(s.Tuner.Size))
	}
	if len(s.Tuner.Candidates) > 0 {
		args = append(args, "--tuner-candidates", FormatInts(s.Tuner.Candidates))
	}
	return args
}

// FormatInts renders ints as a comma-separated list.
func FormatInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// ParseInts parses a comma-separated list of ints. Empty input yields nil.
func ParseInts(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

// workerOptions builds the worker options shared by both transports.
func (s WorkerSettings) workerOptions() ([]worker.Option, error) {
	s = s.withDefaults()
	waiter, err := shm.NewWaiter(s.Waiter, s.PollInterval)
	if err != nil {
		return nil, err
	}
	return []worker.Option{
		worker.WithLimits(s.Limits),
		worker.WithTuner(s.Tuner),
		worker.WithWaiter(waiter),
	}, nil
}
