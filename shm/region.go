// Package shm provides shared memory regions, typed views over them and the
// control cell completion handshake per CONTRACT_PROTOCOL.md.
//
// A Region is an mmap'd MAP_SHARED mapping. Anonymous regions are shared by
// goroutines of one process; file-backed regions (normally under /dev/shm)
// can additionally be mapped by a child worker process by path.
package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/pithecene-io/crucible/types"
)

// Sentinel errors for region access.
var (
	// ErrOutOfBounds is returned when a window exceeds its region.
	ErrOutOfBounds = errors.New("shm: access out of bounds")
	// ErrMisaligned is returned when a typed view is not naturally aligned.
	ErrMisaligned = errors.New("shm: misaligned access")
	// ErrClosed is returned when a closed region is accessed.
	ErrClosed = errors.New("shm: region closed")
	// ErrUnknownRegion is returned when a ref names an unregistered region.
	ErrUnknownRegion = errors.New("shm: unknown region")
)

// anonPrefix marks ids of anonymous regions.
const anonPrefix = "anon:"

// DefaultDir returns the directory used for file-backed regions.
func DefaultDir() string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// Region is a shared memory mapping.
type Region struct {
	mu    sync.RWMutex
	id    string
	path  string
	owner bool
	data  []byte
}

// NewAnonymous maps an anonymous shared region of size bytes.
func NewAnonymous(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid region size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap anonymous region: %w", err)
	}
	return &Region{id: anonPrefix + uuid.New().String(), data: data, owner: true}, nil
}

// Create creates a file-backed region of size bytes in dir.
// The region owns the file and removes it on Close.
func Create(dir string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid region size %d", size)
	}
	if dir == "" {
		dir = DefaultDir()
	}
	path := filepath.Join(dir, "crucible-"+uuid.New().String()+".shm")

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create shared memory file: %w", err)
	}
	defer file.Close()

	if err := file.Truncate(int64(size)); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("truncate shared memory file: %w", err)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("mmap shared memory file: %w", err)
	}
	return &Region{id: path, path: path, data: data, owner: true}, nil
}

// Open maps an existing file-backed region created by another process.
// Closing it unmaps without removing the file.
func Open(path string) (*Region, error) {
	path = filepath.Clean(path)
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open shared memory file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat shared memory file: %w", err)
	}
	if info.Size() == 0 {
		return nil, errors.New("shared memory file has zero size")
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap shared memory file: %w", err)
	}
	return &Region{id: path, path: path, data: data}, nil
}

// ID returns the region identifier carried in SharedRef.Region.
func (r *Region) ID() string { return r.id }

// Path returns the backing file path, or "" for anonymous regions.
func (r *Region) Path() string { return r.path }

// FileBacked reports whether another process can map this region.
func (r *Region) FileBacked() bool { return r.path != "" }

// Len returns the region size in bytes.
func (r *Region) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Bytes returns the whole mapping. The slice is invalid after Close.
func (r *Region) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data
}

// Window returns the bytes [offset, offset+length) of the region.
func (r *Region) Window(offset, length int) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return nil, ErrClosed
	}
	if offset < 0 || length < 0 || offset > len(r.data) || length > len(r.data)-offset {
		return nil, fmt.Errorf("%w: window [%d,+%d) of %d-byte region %s",
			ErrOutOfBounds, offset, length, len(r.data), r.id)
	}
	return r.data[offset : offset+length : offset+length], nil
}

// Ref builds a SharedRef naming [offset, offset+length) of the region.
func (r *Region) Ref(offset, length int) (types.SharedRef, error) {
	if _, err := r.Window(offset, length); err != nil {
		return types.SharedRef{}, err
	}
	return types.SharedRef{Region: r.id, Offset: offset, Length: length}, nil
}

// Close unmaps the region and removes its file if this region created it.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if r.owner && r.path != "" {
		if rmErr := os.Remove(r.path); rmErr != nil && err == nil && !os.IsNotExist(rmErr) {
			err = rmErr
		}
	}
	return err
}
