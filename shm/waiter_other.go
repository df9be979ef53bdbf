//go:build !linux

package shm

import (
	"context"
	"errors"
	"time"
)

func futexSupported() bool { return false }

// futexWaiter is unavailable off Linux; NewWaiter never returns it.
type futexWaiter struct {
	maxSleep time.Duration
}

func (futexWaiter) Name() string { return WaiterFutex }

func (futexWaiter) Wait(context.Context, *uint32) error {
	return errors.New("futex waiter not supported on this platform")
}

func (futexWaiter) Wake(*uint32) {}
