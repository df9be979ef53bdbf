package shm

import (
	"fmt"
	"unsafe"
)

// Typed views reinterpret a byte window in place. The window must outlive
// the view and must not be shared with another writer while in use.

// Float64s views the first n float64 elements of b.
func Float64s(b []byte, n int) ([]float64, error) {
	p, err := viewBase(b, n, 8)
	if err != nil || n == 0 {
		return nil, err
	}
	return unsafe.Slice((*float64)(p), n), nil
}

// Float32s views the first n float32 elements of b.
func Float32s(b []byte, n int) ([]float32, error) {
	p, err := viewBase(b, n, 4)
	if err != nil || n == 0 {
		return nil, err
	}
	return unsafe.Slice((*float32)(p), n), nil
}

// Uint32s views the first n uint32 elements of b.
func Uint32s(b []byte, n int) ([]uint32, error) {
	p, err := viewBase(b, n, 4)
	if err != nil || n == 0 {
		return nil, err
	}
	return unsafe.Slice((*uint32)(p), n), nil
}

// Bytes views the first n bytes of b.
func Bytes(b []byte, n int) ([]byte, error) {
	if n < 0 || n > len(b) {
		return nil, fmt.Errorf("%w: %d bytes requested from %d-byte window", ErrOutOfBounds, n, len(b))
	}
	return b[:n:n], nil
}

func viewBase(b []byte, n, size int) (unsafe.Pointer, error) {
	if n < 0 || n > len(b)/size {
		return nil, fmt.Errorf("%w: %d elements of %d bytes requested from %d-byte window",
			ErrOutOfBounds, n, size, len(b))
	}
	if n == 0 {
		return nil, nil
	}
	p := unsafe.Pointer(unsafe.SliceData(b))
	if uintptr(p)%uintptr(size) != 0 {
		return nil, fmt.Errorf("%w: %d-byte view at address %#x", ErrMisaligned, size, uintptr(p))
	}
	return p, nil
}
