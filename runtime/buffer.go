package runtime

import (
	"fmt"
	"sync"

	"github.com/pithecene-io/crucible/shm"
	"github.com/pithecene-io/crucible/types"
)

// DataOffset is where the data window of a SharedBuffer starts. The control
// cell sits at offset 0; data starts on a cache line.
const DataOffset = 64

// SharedBuffer is a region holding a control cell followed by a data window.
// A buffer serves one in-flight call at a time.
type SharedBuffer struct {
	region   *shm.Region
	cell     *shm.Cell
	dataSize int

	once    sync.Once
	release func()
}

func newSharedBuffer(dataSize int, fileBacked bool, dir string, waiter shm.Waiter) (*SharedBuffer, error) {
	if dataSize <= 0 {
		return nil, fmt.Errorf("invalid shared buffer size %d", dataSize)
	}
	var (
		region *shm.Region
		err    error
	)
	if fileBacked {
		region, err = shm.Create(dir, DataOffset+dataSize)
	} else {
		region, err = shm.NewAnonymous(DataOffset + dataSize)
	}
	if err != nil {
		return nil, err
	}
	control, err := region.Window(0, shm.ControlCellSize)
	if err != nil {
		_ = region.Close()
		return nil, err
	}
	cell, err := shm.NewCell(control, waiter)
	if err != nil {
		_ = region.Close()
		return nil, err
	}
	return &SharedBuffer{region: region, cell: cell, dataSize: dataSize}, nil
}

// Region returns the backing region.
func (b *SharedBuffer) Region() *shm.Region { return b.region }

// Size returns the data window size in bytes.
func (b *SharedBuffer) Size() int { return b.dataSize }

// Cell returns the control cell.
func (b *SharedBuffer) Cell() *shm.Cell { return b.cell }

// ControlRef returns the ref of the control cell.
func (b *SharedBuffer) ControlRef() types.SharedRef {
	return types.SharedRef{Region: b.region.ID(), Offset: 0, Length: shm.ControlCellSize}
}

// Ref returns the ref of length bytes at offset within the data window.
func (b *SharedBuffer) Ref(offset, length int) (types.SharedRef, error) {
	if offset < 0 || length < 0 || offset+length > b.dataSize {
		return types.SharedRef{}, fmt.Errorf("%w: [%d, %d) of %d-byte data window",
			shm.ErrOutOfBounds, offset, offset+length, b.dataSize)
	}
	return b.region.Ref(DataOffset+offset, length)
}

// RefPtr is Ref returning a pointer, for request fields.
func (b *SharedBuffer) RefPtr(offset, length int) (*types.SharedRef, error) {
	ref, err := b.Ref(offset, length)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Data returns the data window.
func (b *SharedBuffer) Data() ([]byte, error) {
	return b.region.Window(DataOffset, b.dataSize)
}

// Float64s views n float64 elements starting at byte offset.
func (b *SharedBuffer) Float64s(offset, n int) ([]float64, error) {
	w, err := b.region.Window(DataOffset+offset, n*8)
	if err != nil {
		return nil, err
	}
	return shm.Float64s(w, n)
}

// Float32s views n float32 elements starting at byte offset.
func (b *SharedBuffer) Float32s(offset, n int) ([]float32, error) {
	w, err := b.region.Window(DataOffset+offset, n*4)
	if err != nil {
		return nil, err
	}
	return shm.Float32s(w, n)
}

// Uint32s views n uint32 elements starting at byte offset.
func (b *SharedBuffer) Uint32s(offset, n int) ([]uint32, error) {
	w, err := b.region.Window(DataOffset+offset, n*4)
	if err != nil {
		return nil, err
	}
	return shm.Uint32s(w, n)
}

// Close unregisters and unmaps the buffer.
func (b *SharedBuffer) Close() error {
	var err error
	b.once.Do(func() {
		if b.release != nil {
			b.release()
		}
		err = b.region.Close()
	})
	return err
}
