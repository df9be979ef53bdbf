package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/crucible/iox"
	"github.com/pithecene-io/crucible/log"
	"github.com/pithecene-io/crucible/metrics"
	"github.com/pithecene-io/crucible/pool"
	"github.com/pithecene-io/crucible/shm"
	"github.com/pithecene-io/crucible/types"
)

// DefaultStartTimeout bounds pool startup.
const DefaultStartTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// Transport is TransportInProcess (default) or TransportProcess.
	Transport string
	// Size is the number of workers (default pool.DefaultSize()).
	Size int
	// WorkerPath is the crucible-worker binary for the process transport.
	WorkerPath string
	// Settings configure every worker.
	Settings WorkerSettings
	// StartTimeout bounds Init (default DefaultStartTimeout).
	StartTimeout time.Duration
	// StorageBackend is recorded as a metrics dimension.
	StorageBackend string
	// Logger is used by the pool, the workers and the client.
	Logger *log.Logger
}

// Client owns a started pool and the regions its callers share with it.
type Client struct {
	transport string
	settings  WorkerSettings
	pool      *pool.Pool
	registry  *shm.Registry
	waiter    shm.Waiter
	logger    *log.Logger

	mu      sync.Mutex
	buffers map[*SharedBuffer]struct{}
}

// Start creates a pool on the configured transport and waits until every
// worker is ready.
func Start(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Transport == "" {
		cfg.Transport = TransportInProcess
	}
	if !ValidTransport(cfg.Transport) {
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = DefaultStartTimeout
	}
	settings := cfg.Settings.withDefaults()

	waiter, err := shm.NewWaiter(settings.Waiter, settings.PollInterval)
	if err != nil {
		return nil, err
	}

	size := cfg.Size
	if size < 1 {
		size = pool.DefaultSize()
	}
	id := uuid.NewString()
	logger := cfg.Logger.With("pool_id", id)
	p := pool.New(size,
		pool.WithID(id),
		pool.WithLogger(logger),
		pool.WithMetrics(metrics.NewCollector(id, size, cfg.Transport, cfg.StorageBackend)),
	)

	c := &Client{
		transport: cfg.Transport,
		settings:  settings,
		pool:      p,
		registry:  shm.NewRegistry(),
		waiter:    waiter,
		logger:    logger,
		buffers:   make(map[*SharedBuffer]struct{}),
	}

	var factory pool.Factory
	switch cfg.Transport {
	case TransportProcess:
		factory = ProcessFactory(ProcessConfig{
			WorkerPath: cfg.WorkerPath,
			Settings:   settings,
			Logger:     logger,
		})
	default:
		factory = InProcessFactory(InProcessConfig{
			Settings: settings,
			Registry: c.registry,
			Logger:   logger,
		})
	}

	initCtx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	defer cancel()
	if err := p.Init(initCtx, factory); err != nil {
		iox.DiscardClose(c.registry)
		return nil, err
	}
	return c, nil
}

// Pool returns the underlying pool.
func (c *Client) Pool() *pool.Pool { return c.pool }

// Transport returns the transport name.
func (c *Client) Transport() string { return c.transport }

// Stats returns a snapshot of the pool metrics.
func (c *Client) Stats() metrics.Snapshot { return c.pool.Stats() }

// Metrics returns the pool's metrics collector.
func (c *Client) Metrics() *metrics.Collector { return c.pool.Metrics() }

// Request sends req to the next worker and waits for its response.
// An empty request id is filled with a fresh uuid.
func (c *Client) Request(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req != nil && req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	return c.pool.Request(ctx, req)
}

// Do sends a shared-buffer request with buf's control cell and waits for
// both the response and the cell. The cell is reset before dispatch.
//
// The worker signals the cell before it responds, so a success response is
// followed by an immediate cell wait. Error responses and transport failures
// are returned as they are, without waiting: a request rejected before its
// control ref decoded has no cell to signal.
func (c *Client) Do(ctx context.Context, buf *SharedBuffer, req *types.Request) (*types.Response, error) {
	control := buf.ControlRef()
	req.Control = &control
	buf.cell.Reset()

	resp, err := c.Request(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := buf.cell.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for control cell: %w", err)
	}
	return resp, nil
}

// NewSharedBuffer allocates a region holding a control cell and dataSize
// bytes of data. The region is file-backed when the transport needs it.
func (c *Client) NewSharedBuffer(dataSize int) (*SharedBuffer, error) {
	buf, err := newSharedBuffer(dataSize, RequiresFileRegions(c.transport), c.settings.ShmDir, c.waiter)
	if err != nil {
		return nil, err
	}
	c.registry.Add(buf.region)

	c.mu.Lock()
	c.buffers[buf] = struct{}{}
	c.mu.Unlock()
	buf.release = func() {
		_ = c.registry.Remove(buf.region.ID())
		c.mu.Lock()
		delete(c.buffers, buf)
		c.mu.Unlock()
	}
	return buf, nil
}

// Resolve returns the window ref names, mapping worker regions on demand.
func (c *Client) Resolve(ref types.SharedRef) ([]byte, error) {
	return c.registry.Resolve(ref)
}

// Close terminates the pool and releases every shared buffer.
func (c *Client) Close() error {
	err := c.pool.Terminate()

	c.mu.Lock()
	buffers := make([]*SharedBuffer, 0, len(c.buffers))
	for b := range c.buffers {
		buffers = append(buffers, b)
	}
	c.mu.Unlock()

	closers := make([]func() error, 0, len(buffers)+1)
	for _, b := range buffers {
		closers = append(closers, b.Close)
	}
	closers = append(closers, c.registry.Close)
	return errors.Join(err, iox.CloseAll(closers...))
}
