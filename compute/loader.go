package compute

import (
	"context"
	"fmt"
	"sync"

	"github.com/pithecene-io/crucible/shm"
)

// DefaultMemorySize is the default linear memory size (256 MiB). Pages are
// committed on first touch, so unused memory costs nothing.
const DefaultMemorySize = 256 << 20

// Config configures module loading.
type Config struct {
	// MemorySize is the linear memory size in bytes.
	MemorySize int
	// FileBacked places linear memory in a file under Dir so another
	// process can map it.
	FileBacked bool
	// Dir is the directory for file-backed memory (default shm.DefaultDir()).
	Dir string
}

// Loader loads a module once and hands the same instance to every caller.
type Loader struct {
	cfg Config

	mu     sync.Mutex
	module *Module
}

// NewLoader creates a loader. Nothing is mapped until Load.
func NewLoader(cfg Config) *Loader {
	if cfg.MemorySize <= 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	return &Loader{cfg: cfg}
}

// Load initializes the module on first call and returns it. Concurrent and
// repeated calls return the same module; a failed load is retried by the
// next call.
func (l *Loader) Load(ctx context.Context) (*Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.module != nil {
		return l.module, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		region *shm.Region
		err    error
	)
	if l.cfg.FileBacked {
		region, err = shm.Create(l.cfg.Dir, l.cfg.MemorySize)
	} else {
		region, err = shm.NewAnonymous(l.cfg.MemorySize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to map module memory: %w", err)
	}

	l.module = newModule(region)
	return l.module, nil
}

// Loaded reports whether Load has succeeded.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.module != nil
}

// Close unmaps the module memory if it was loaded.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.module == nil {
		return nil
	}
	err := l.module.memory.Close()
	l.module = nil
	return err
}
