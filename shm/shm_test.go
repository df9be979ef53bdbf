package shm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pithecene-io/crucible/iox"
)

func newTestRegion(t *testing.T, size int) *Region {
	t.Helper()
	r, err := NewAnonymous(size)
	if err != nil {
		t.Fatalf("NewAnonymous failed: %v", err)
	}
	t.Cleanup(iox.CloseFunc(r))
	return r
}

func TestRegion_Window(t *testing.T) {
	r := newTestRegion(t, 4096)

	w, err := r.Window(128, 64)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(w) != 64 {
		t.Errorf("len = %d, want 64", len(w))
	}

	tests := []struct {
		name           string
		offset, length int
	}{
		{"negative offset", -1, 4},
		{"negative length", 0, -4},
		{"past end", 4090, 8},
		{"offset past end", 5000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Window(tt.offset, tt.length); !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("expected ErrOutOfBounds, got %v", err)
			}
		})
	}
}

func TestRegion_ClosedAccess(t *testing.T) {
	r, err := NewAnonymous(4096)
	if err != nil {
		t.Fatalf("NewAnonymous failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := r.Window(0, 4); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestRegion_FileBackedSharedAcrossMappings(t *testing.T) {
	created, err := Create(t.TempDir(), 4096)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(iox.CloseFunc(created))

	opened, err := Open(created.Path())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(iox.CloseFunc(opened))

	created.Bytes()[10] = 42
	if got := opened.Bytes()[10]; got != 42 {
		t.Errorf("opened mapping sees %d, want 42", got)
	}
}

func TestViews(t *testing.T) {
	r := newTestRegion(t, 4096)
	b := r.Bytes()

	f64, err := Float64s(b, 4)
	if err != nil {
		t.Fatalf("Float64s failed: %v", err)
	}
	f64[0] = 1.5
	again, _ := Float64s(b, 1)
	if again[0] != 1.5 {
		t.Errorf("view does not alias region: %v", again[0])
	}

	if _, err := Float64s(b, 513); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if _, err := Float64s(b[4:], 2); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned, got %v", err)
	}
	if _, err := Uint32s(b[2:], 1); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned, got %v", err)
	}
	if v, err := Float32s(b, 0); err != nil || v != nil {
		t.Errorf("empty view = %v, %v", v, err)
	}
	if _, err := Bytes(b[:8], 9); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := newTestRegion(t, 4096)
	reg := NewRegistry()
	t.Cleanup(iox.CloseFunc(reg))
	reg.Add(r)

	ref, err := r.Ref(64, 32)
	if err != nil {
		t.Fatalf("Ref failed: %v", err)
	}
	w, err := reg.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	w[0] = 7
	if r.Bytes()[64] != 7 {
		t.Error("resolved window does not alias region at its offset")
	}

	ref.Length = 8192
	if _, err := reg.Resolve(ref); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}

	ref.Region = "anon:missing"
	if _, err := reg.Resolve(ref); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
}

func TestRegistry_OpensFileRegions(t *testing.T) {
	created, err := Create(t.TempDir(), 4096)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(iox.CloseFunc(created))
	created.Bytes()[0] = 9

	reg := NewRegistry()
	t.Cleanup(iox.CloseFunc(reg))

	ref, _ := created.Ref(0, 16)
	w, err := reg.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if w[0] != 9 {
		t.Errorf("w[0] = %d, want 9", w[0])
	}
}

func testCellHandshake(t *testing.T, waiter Waiter) {
	t.Helper()
	r := newTestRegion(t, 4096)
	cell, err := NewCell(r.Bytes()[8:12], waiter)
	if err != nil {
		t.Fatalf("NewCell failed: %v", err)
	}

	cell.Reset()
	if cell.Done() {
		t.Fatal("cell should be 0 after Reset")
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		cell.Signal()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cell.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got := cell.Load(); got != 1 {
		t.Errorf("Load() = %d, want 1", got)
	}
}

func TestCell_PollBackend(t *testing.T) {
	testCellHandshake(t, PollWaiter{Interval: time.Millisecond})
}

func TestCell_DefaultBackend(t *testing.T) {
	testCellHandshake(t, DefaultWaiter())
}

func TestCell_WaitHonorsContext(t *testing.T) {
	r := newTestRegion(t, 4096)
	cell, err := NewCell(r.Bytes()[:4], nil)
	if err != nil {
		t.Fatalf("NewCell failed: %v", err)
	}
	cell.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := cell.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestNewCell_Misaligned(t *testing.T) {
	r := newTestRegion(t, 4096)
	if _, err := NewCell(r.Bytes()[1:5], nil); !errors.Is(err, ErrMisaligned) {
		t.Errorf("expected ErrMisaligned, got %v", err)
	}
	if _, err := NewCell(r.Bytes()[:2], nil); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestNewWaiter(t *testing.T) {
	if w, err := NewWaiter(WaiterPoll, 0); err != nil || w.Name() != WaiterPoll {
		t.Errorf("NewWaiter(poll) = %v, %v", w, err)
	}
	if _, err := NewWaiter("spin", 0); err == nil {
		t.Error("expected error for unknown backend")
	}
	if w, err := NewWaiter(WaiterAuto, 0); err != nil || w == nil {
		t.Errorf("NewWaiter(auto) = %v, %v", w, err)
	}
}
