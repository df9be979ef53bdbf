package shm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Waiter backend names.
const (
	WaiterAuto  = "auto"
	WaiterFutex = "futex"
	WaiterPoll  = "poll"
)

// DefaultPollInterval is the poll backend interval.
const DefaultPollInterval = time.Millisecond

// Waiter blocks until a shared word becomes non-zero.
type Waiter interface {
	// Name returns the backend name.
	Name() string
	// Wait blocks until *word != 0 or ctx is done.
	Wait(ctx context.Context, word *uint32) error
	// Wake wakes goroutines or processes blocked in Wait on word.
	Wake(word *uint32)
}

// PollWaiter polls the word at a fixed interval.
type PollWaiter struct {
	Interval time.Duration
}

// Name implements Waiter.
func (PollWaiter) Name() string { return WaiterPoll }

// Wait implements Waiter.
func (w PollWaiter) Wait(ctx context.Context, word *uint32) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for atomic.LoadUint32(word) == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Wake implements Waiter. Pollers observe the store on their next tick.
func (PollWaiter) Wake(*uint32) {}

// NewWaiter returns the backend named by name.
// "auto" (or "") selects futex when the platform supports it.
func NewWaiter(name string, pollInterval time.Duration) (Waiter, error) {
	switch name {
	case "", WaiterAuto:
		if futexSupported() {
			return futexWaiter{maxSleep: maxFutexSleep(pollInterval)}, nil
		}
		return PollWaiter{Interval: pollInterval}, nil
	case WaiterFutex:
		if !futexSupported() {
			return nil, fmt.Errorf("waiter backend %q not supported on this platform", name)
		}
		return futexWaiter{maxSleep: maxFutexSleep(pollInterval)}, nil
	case WaiterPoll:
		return PollWaiter{Interval: pollInterval}, nil
	default:
		return nil, fmt.Errorf("unknown waiter backend %q", name)
	}
}

// DefaultWaiter returns the auto-detected backend with default settings.
func DefaultWaiter() Waiter {
	w, err := NewWaiter(WaiterAuto, DefaultPollInterval)
	if err != nil {
		return PollWaiter{Interval: DefaultPollInterval}
	}
	return w
}

// maxFutexSleep bounds a single futex sleep so a wake lost to a peer
// without futex support costs at most one interval.
func maxFutexSleep(pollInterval time.Duration) time.Duration {
	if d := 50 * pollInterval; d > 0 {
		return d
	}
	return 50 * DefaultPollInterval
}
