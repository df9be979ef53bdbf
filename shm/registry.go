package shm

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pithecene-io/crucible/types"
)

// Registry resolves SharedRefs to byte windows.
//
// Regions are either added explicitly (anonymous regions shared in-process)
// or opened on demand when a ref names an absolute file path. Regions opened
// by the registry are unmapped by Close; added regions stay owned by the
// caller.
type Registry struct {
	mu      sync.Mutex
	regions map[string]*Region
	opened  map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		regions: make(map[string]*Region),
		opened:  make(map[string]bool),
	}
}

// Add registers region under its ID.
func (r *Registry) Add(region *Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions[region.ID()] = region
}

// Remove unregisters id. Regions opened by the registry are unmapped.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	region, ok := r.regions[id]
	opened := r.opened[id]
	delete(r.regions, id)
	delete(r.opened, id)
	r.mu.Unlock()

	if ok && opened {
		return region.Close()
	}
	return nil
}

// Region returns the region named id, opening file-backed regions on demand.
func (r *Registry) Region(id string) (*Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if region, ok := r.regions[id]; ok {
		return region, nil
	}
	if strings.HasPrefix(id, anonPrefix) || !filepath.IsAbs(id) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, id)
	}

	region, err := Open(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownRegion, id, err)
	}
	r.regions[id] = region
	r.opened[id] = true
	return region, nil
}

// Resolve returns the window a ref names, bounds-checked against its region.
func (r *Registry) Resolve(ref types.SharedRef) ([]byte, error) {
	if ref.IsZero() {
		return nil, fmt.Errorf("%w: empty ref", ErrUnknownRegion)
	}
	region, err := r.Region(ref.Region)
	if err != nil {
		return nil, err
	}
	return region.Window(ref.Offset, ref.Length)
}

// Close unmaps every region the registry opened itself.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id := range r.opened {
		if err := r.regions[id].Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.regions, id)
	}
	r.opened = make(map[string]bool)
	return errors.Join(errs...)
}
