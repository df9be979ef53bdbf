package runtime

import (
	"context"
	"io"
	"sync"

	"github.com/pithecene-io/crucible/compute"
	"github.com/pithecene-io/crucible/log"
	"github.com/pithecene-io/crucible/pool"
	"github.com/pithecene-io/crucible/shm"
	"github.com/pithecene-io/crucible/worker"
)

// InProcessConfig configures in-process workers.
type InProcessConfig struct {
	Settings WorkerSettings
	// Registry is shared between the requester and every worker so that
	// anonymous regions resolve on both sides.
	Registry *shm.Registry
	// FileBacked places module memory in files under Settings.ShmDir.
	FileBacked bool
	Logger     *log.Logger
}

// inProcessWorker is a goroutine running worker.Serve over two pipes.
type inProcessWorker struct {
	inW  *io.PipeWriter
	outR *io.PipeReader
	done chan error

	once sync.Once
	stop func()
}

func (w *inProcessWorker) In() io.Writer      { return w.inW }
func (w *inProcessWorker) Out() io.Reader     { return w.outR }
func (w *inProcessWorker) Done() <-chan error { return w.done }

// Terminate closes the request pipe and stops the serve loop. A request in
// progress finishes, but its response is discarded.
func (w *inProcessWorker) Terminate() error {
	w.once.Do(func() {
		w.stop()
		_ = w.inW.Close()
		_ = w.outR.Close()
	})
	return nil
}

// InProcessFactory returns a pool factory that runs workers as goroutines.
func InProcessFactory(cfg InProcessConfig) pool.Factory {
	settings := cfg.Settings.withDefaults()
	return func(_ context.Context, index int) (pool.Worker, error) {
		opts, err := settings.workerOptions()
		if err != nil {
			return nil, err
		}
		loader := compute.NewLoader(compute.Config{
			MemorySize: settings.MemorySize,
			FileBacked: cfg.FileBacked,
			Dir:        settings.ShmDir,
		})
		opts = append(opts,
			worker.WithLoader(loader),
			worker.WithRegistry(cfg.Registry),
			worker.WithSharedMemory(true),
			worker.WithLogger(cfg.Logger.WithWorker(index)),
		)

		inR, inW := io.Pipe()
		outR, outW := io.Pipe()
		ctx, cancel := context.WithCancel(context.Background())
		w := &inProcessWorker{
			inW:  inW,
			outR: outR,
			done: make(chan error, 1),
			stop: cancel,
		}

		go func() {
			err := worker.Serve(ctx, inR, outW, opts...)
			if closeErr := loader.Close(); err == nil {
				err = closeErr
			}
			_ = outW.CloseWithError(io.EOF)
			_ = inR.Close()
			w.done <- err
			close(w.done)
		}()
		return w, nil
	}
}
