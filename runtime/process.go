package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pithecene-io/crucible/log"
	"github.com/pithecene-io/crucible/pool"
)

// DefaultKillGrace is how long Terminate waits for a worker to exit after
// its stdin closes before killing it.
const DefaultKillGrace = 2 * time.Second

// ProcessConfig configures process workers.
type ProcessConfig struct {
	// WorkerPath is the path to the crucible-worker binary.
	WorkerPath string
	// Settings are rendered as worker flags.
	Settings WorkerSettings
	// Env is appended to the inherited environment. Later entries win.
	Env []string
	// KillGrace overrides DefaultKillGrace.
	KillGrace time.Duration
	// Logger receives the workers' stderr lines.
	Logger *log.Logger
}

// processWorker is a crucible-worker child. Frames travel over its stdin
// and stdout; stderr is forwarded to the logger line by line.
type processWorker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	grace  time.Duration

	done   chan error
	exited chan struct{}
	once   sync.Once
}

func (w *processWorker) In() io.Writer      { return w.stdin }
func (w *processWorker) Out() io.Reader     { return w.stdout }
func (w *processWorker) Done() <-chan error { return w.done }

// Terminate closes stdin so the worker leaves its serve loop, and kills it
// if it has not exited within the grace period.
func (w *processWorker) Terminate() error {
	var err error
	w.once.Do(func() {
		_ = w.stdin.Close()
		select {
		case <-w.exited:
		case <-time.After(w.grace):
			if killErr := w.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
				err = fmt.Errorf("kill worker: %w", killErr)
			}
			<-w.exited
		}
		_ = w.stdout.Close()
	})
	return err
}

// ProcessFactory returns a pool factory that runs each worker as a child
// process. Startup is bounded by the Init ctx, but the child outlives it.
func ProcessFactory(cfg ProcessConfig) pool.Factory {
	settings := cfg.Settings.withDefaults()
	grace := cfg.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}
	return func(ctx context.Context, index int) (pool.Worker, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cfg.WorkerPath == "" {
			return nil, errors.New("worker path is required for the process transport")
		}

		cmd := exec.Command(cfg.WorkerPath, settings.Args()...)
		env := append(os.Environ(), "CRUCIBLE_WORKER_INDEX="+strconv.Itoa(index))
		cmd.Env = deduplicateEnv(append(env, cfg.Env...))
		cmd.Stderr = &lineWriter{logger: cfg.Logger.WithWorker(index)}

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
		}

		// Stdout is an os.Pipe rather than StdoutPipe: Wait closes
		// StdoutPipe readers, which would race the pool's frame reader.
		stdoutR, stdoutW, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
		}
		cmd.Stdout = stdoutW

		if err := cmd.Start(); err != nil {
			_ = stdoutR.Close()
			_ = stdoutW.Close()
			return nil, fmt.Errorf("failed to start worker: %w", err)
		}
		_ = stdoutW.Close()

		w := &processWorker{
			cmd:    cmd,
			stdin:  stdin,
			stdout: stdoutR,
			grace:  grace,
			done:   make(chan error, 1),
			exited: make(chan struct{}),
		}
		go func() {
			err := exitError(cmd.Wait())
			close(w.exited)
			w.done <- err
			close(w.done)
		}()
		return w, nil
	}
}

// exitError maps a Wait error to the worker's exit error.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("worker wait failed: %w", err)
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			return fmt.Errorf("worker killed by %s", status.Signal())
		}
		return fmt.Errorf("worker exited with code %d", status.ExitStatus())
	}
	return fmt.Errorf("worker exited: %w", err)
}

// lineWriter logs each complete line written to it.
type lineWriter struct {
	logger *log.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line; keep it for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			w.logger.Info("worker stderr", map[string]any{"line": line})
		}
	}
}

// deduplicateEnv keeps the last occurrence of each env var key, so values
// appended after os.Environ() win over inherited duplicates.
func deduplicateEnv(env []string) []string {
	seen := make(map[string]int, len(env))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		seen[key] = i
	}
	result := make([]string, 0, len(seen))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		if seen[key] == i {
			result = append(result, entry)
		}
	}
	return result
}
