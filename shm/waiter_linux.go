//go:build linux

package shm

import (
	"context"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// futex(2) operations. Shared (non-private) ops so waits work across
// processes mapping the same file.
const (
	futexWaitOp = 0
	futexWakeOp = 1
)

func futexSupported() bool { return true }

// futexWaiter sleeps in FUTEX_WAIT on the cell word.
type futexWaiter struct {
	maxSleep time.Duration
}

func (futexWaiter) Name() string { return WaiterFutex }

func (w futexWaiter) Wait(ctx context.Context, word *uint32) error {
	for atomic.LoadUint32(word) == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		sleep := w.maxSleep
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < sleep {
				sleep = remaining
			}
		}
		if sleep <= 0 {
			return context.DeadlineExceeded
		}

		ts := unix.NsecToTimespec(sleep.Nanoseconds())
		// EAGAIN (word changed), ETIMEDOUT and EINTR all loop back to the
		// load above.
		_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(word)), futexWaitOp, 0,
			uintptr(unsafe.Pointer(&ts)), 0, 0)
	}
	return nil
}

func (futexWaiter) Wake(word *uint32) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(word)), futexWakeOp, uintptr(^uint32(0)>>1),
		0, 0, 0)
}
