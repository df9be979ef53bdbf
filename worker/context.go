// Package worker runs the worker side of the protocol: it reads request
// frames, lazily loads the compute module, dispatches each request to its
// handler, and writes exactly one response frame per request.
//
// All per-worker state lives in a Context; nothing is package-global, so any
// number of workers can run in one process.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/crucible/compute"
	"github.com/pithecene-io/crucible/log"
	"github.com/pithecene-io/crucible/shm"
	"github.com/pithecene-io/crucible/tuner"
	"github.com/pithecene-io/crucible/types"
)

// Default size limits.
const (
	// DefaultMaxBufferLength bounds element counts of array and buffer requests.
	DefaultMaxBufferLength = 10_000_000
	// DefaultMaxImageSize bounds image sizes in bytes.
	DefaultMaxImageSize = 16_000_000
	// DefaultMaxMatrixSize bounds the matrix dimension n.
	DefaultMaxMatrixSize = 1500
)

// Limits are the size limits enforced before any kernel runs.
type Limits struct {
	MaxBufferLength int
	MaxImageSize    int
	MaxMatrixSize   int
}

// DefaultLimits returns the default size limits.
func DefaultLimits() Limits {
	return Limits{
		MaxBufferLength: DefaultMaxBufferLength,
		MaxImageSize:    DefaultMaxImageSize,
		MaxMatrixSize:   DefaultMaxMatrixSize,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxBufferLength <= 0 {
		l.MaxBufferLength = d.MaxBufferLength
	}
	if l.MaxImageSize <= 0 {
		l.MaxImageSize = d.MaxImageSize
	}
	if l.MaxMatrixSize <= 0 {
		l.MaxMatrixSize = d.MaxMatrixSize
	}
	return l
}

// Arena is the persistent allocation handed out by sharedMemoryInit.
type Arena struct {
	Ptr    uint32
	Length int
}

// Option configures a Context.
type Option func(*Context)

// WithLoader uses loader for the compute module. The loader stays owned by
// the caller. By default each Context owns a loader with compute defaults.
func WithLoader(loader *compute.Loader) Option {
	return func(c *Context) {
		c.loader = loader
		c.ownsLoader = false
	}
}

// WithRegistry resolves shared refs through registry. Requesters in the same
// process pass their own registry so anonymous regions resolve.
func WithRegistry(registry *shm.Registry) Option {
	return func(c *Context) {
		c.registry = registry
		c.ownsRegistry = false
	}
}

// WithWaiter sets the wake backend used when signalling control cells.
func WithWaiter(waiter shm.Waiter) Option {
	return func(c *Context) { c.waiter = waiter }
}

// WithLimits overrides the size limits. Zero fields keep their defaults.
func WithLimits(limits Limits) Option {
	return func(c *Context) { c.limits = limits.withDefaults() }
}

// WithTuner configures the threshold tuner run by warmup.
func WithTuner(cfg tuner.Config) Option {
	return func(c *Context) { c.tunerConfig = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// WithSharedMemory declares that the requester can map module memory
// directly, which enables the persistent arena.
func WithSharedMemory(enabled bool) Option {
	return func(c *Context) { c.sharedMemory = enabled }
}

// Context is the state of one worker.
type Context struct {
	loader       *compute.Loader
	ownsLoader   bool
	registry     *shm.Registry
	ownsRegistry bool
	waiter       shm.Waiter
	limits       Limits
	tunerConfig  tuner.Config
	logger       *log.Logger
	sharedMemory bool

	module   *compute.Module
	tuner    *tuner.Tuner
	arena    *Arena
	handlers map[types.MessageType]HandlerFunc
}

// NewContext creates an uninitialized worker context. The compute module is
// loaded by the first accepted request.
func NewContext(opts ...Option) *Context {
	c := &Context{
		loader:       compute.NewLoader(compute.Config{}),
		ownsLoader:   true,
		registry:     shm.NewRegistry(),
		ownsRegistry: true,
		limits:       DefaultLimits(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.waiter == nil {
		c.waiter = shm.DefaultWaiter()
	}
	c.tuner = tuner.New(c.tunerConfig, c.logger)
	c.handlers = newHandlerTable(benchHandlers(), sharedHandlers(), opsHandlers())
	return c
}

// Ready reports whether the compute module has been loaded.
func (c *Context) Ready() bool {
	return c.module != nil
}

// Arena returns the current persistent arena, or nil.
func (c *Context) Arena() *Arena {
	if c.arena == nil {
		return nil
	}
	a := *c.arena
	return &a
}

// Limits returns the enforced size limits.
func (c *Context) Limits() Limits {
	return c.limits
}

// ensureReady loads the module on first use and publishes its memory to the
// registry so requesters can resolve refs into it.
func (c *Context) ensureReady(ctx context.Context) error {
	if c.module != nil {
		return nil
	}
	module, err := c.loader.Load(ctx)
	if err != nil {
		return err
	}
	c.registry.Add(module.Memory())
	c.module = module
	c.logger.Debug("compute module loaded", map[string]any{
		"memory":      module.Memory().ID(),
		"memory_size": module.Memory().Len(),
	})
	return nil
}

// Close releases the arena and everything the context owns.
func (c *Context) Close() error {
	var errs []error
	if c.module != nil {
		if c.arena != nil {
			if err := c.module.FreeU32(c.arena.Ptr, c.arena.Length); err != nil {
				errs = append(errs, fmt.Errorf("free arena: %w", err))
			}
			c.arena = nil
		}
		if err := c.registry.Remove(c.module.Memory().ID()); err != nil {
			errs = append(errs, err)
		}
		c.module = nil
	}
	if c.ownsLoader {
		if err := c.loader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ownsRegistry {
		if err := c.registry.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
