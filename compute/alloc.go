package compute

import (
	"fmt"
	"sort"
	"sync"
)

// allocAlign is the alignment of every allocation.
const allocAlign = 8

// allocator is a first-fit free-list allocator over offsets [allocAlign, size).
// Offset 0 is never handed out so it can mean "no allocation".
type allocator struct {
	mu    sync.Mutex
	free  []span // sorted by offset, coalesced
	live  map[uint32]uint32
	inUse uint64
}

type span struct {
	off, size uint32
}

func newAllocator(size uint32) *allocator {
	a := &allocator{live: make(map[uint32]uint32)}
	if size > allocAlign {
		a.free = []span{{off: allocAlign, size: (size - allocAlign) &^ (allocAlign - 1)}}
	}
	return a
}

func alignUp(n uint64) uint64 {
	return (n + allocAlign - 1) &^ (allocAlign - 1)
}

// alloc returns the offset of a fresh block of nbytes, or 0.
func (a *allocator) alloc(nbytes uint64) uint32 {
	if nbytes == 0 {
		return 0
	}
	size := alignUp(nbytes)

	a.mu.Lock()
	defer a.mu.Unlock()
	for i, s := range a.free {
		if uint64(s.size) < size {
			continue
		}
		off := s.off
		if uint64(s.size) == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = span{off: s.off + uint32(size), size: s.size - uint32(size)}
		}
		a.live[off] = uint32(size)
		a.inUse += size
		return off
	}
	return 0
}

// release returns a block to the free list. nbytes must match the size the
// block was allocated with.
func (a *allocator) release(off uint32, nbytes uint64) error {
	if off == 0 || nbytes == 0 {
		return nil
	}
	size := alignUp(nbytes)

	a.mu.Lock()
	defer a.mu.Unlock()
	got, ok := a.live[off]
	if !ok {
		return fmt.Errorf("%w: pointer %d is not allocated", ErrBadFree, off)
	}
	if uint64(got) != size {
		return fmt.Errorf("%w: pointer %d holds %d bytes, freed as %d", ErrBadFree, off, got, size)
	}
	delete(a.live, off)
	a.inUse -= size

	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].off > off })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = span{off: off, size: got}

	// Coalesce with the right neighbour, then the left.
	if i+1 < len(a.free) && a.free[i].off+a.free[i].size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == a.free[i].off {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
	return nil
}

func (a *allocator) bytesInUse() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}
