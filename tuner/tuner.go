// Package tuner picks the Strassen crossover threshold of a compute module
// by timing the Strassen kernel on a fixed workload.
//
// Tuning runs at most once per Tuner. Any failure leaves the module's
// current threshold in place: the threshold only affects speed.
package tuner

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pithecene-io/crucible/kernels"
	"github.com/pithecene-io/crucible/log"
)

// Defaults for the tuning workload.
const (
	DefaultSize = 256
)

// DefaultCandidates are the thresholds tried by default.
var DefaultCandidates = []int{128, 160, 192, 256}

// Target is the subset of a compute module the tuner drives.
type Target interface {
	AllocF64(n int) uint32
	FreeF64(ptr uint32, n int) error
	F64View(ptr uint32, n int) ([]float64, error)
	SetStrassenThreshold(v int) int
	StrassenThreshold() int
	MatrixMultiplyStrassenPtr(a, b, c uint32, n int) error
}

// Config configures a Tuner.
type Config struct {
	// Size is the matrix dimension of the workload.
	Size int
	// Candidates are the thresholds to try.
	Candidates []int
	// Disabled skips tuning entirely.
	Disabled bool
}

// Result describes a completed tuning pass.
type Result struct {
	Threshold int
	Timings   map[int]time.Duration
}

// Tuner tunes one module once.
type Tuner struct {
	cfg    Config
	logger *log.Logger
	done   atomic.Bool
	clock  func() time.Time
}

// New creates a tuner. Zero config fields take defaults.
func New(cfg Config, logger *log.Logger) *Tuner {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = DefaultCandidates
	}
	return &Tuner{cfg: cfg, logger: logger, clock: time.Now}
}

// Tuned reports whether Tune has already run.
func (t *Tuner) Tuned() bool {
	return t.done.Load()
}

// Tune runs the tuning pass on first call and returns the active threshold.
// Later calls are no-ops. Failures are logged and swallowed.
func (t *Tuner) Tune(target Target) int {
	if t.cfg.Disabled || !t.done.CompareAndSwap(false, true) {
		return target.StrassenThreshold()
	}

	prior := target.StrassenThreshold()
	res, err := t.run(target)
	if err != nil {
		restored := target.SetStrassenThreshold(prior)
		t.logger.Warn("strassen threshold tuning skipped", map[string]any{
			"error":     err.Error(),
			"threshold": restored,
		})
		return restored
	}

	timings := make(map[string]float64, len(res.Timings))
	for threshold, d := range res.Timings {
		timings[fmt.Sprint(threshold)] = float64(d.Microseconds()) / 1000
	}
	t.logger.Info("strassen threshold tuned", map[string]any{
		"threshold":  res.Threshold,
		"size":       t.cfg.Size,
		"timings_ms": timings,
	})
	return res.Threshold
}

func (t *Tuner) run(target Target) (res *Result, err error) {
	// Kernel panics count as tuning failures.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tuning panicked: %v", r)
		}
	}()

	n := t.cfg.Size
	size := n * n

	var ptrs []uint32
	defer func() {
		for _, p := range ptrs {
			if freeErr := target.FreeF64(p, size); freeErr != nil {
				err = errors.Join(err, freeErr)
			}
		}
	}()

	for range 3 {
		p := target.AllocF64(size)
		if p == 0 {
			return nil, errors.New("alloc failed")
		}
		ptrs = append(ptrs, p)
	}
	a, b, c := ptrs[0], ptrs[1], ptrs[2]

	av, err := target.F64View(a, size)
	if err != nil {
		return nil, err
	}
	bv, err := target.F64View(b, size)
	if err != nil {
		return nil, err
	}
	kernels.NewLCG(kernels.SeedTuner).FillPair(av, bv)

	res = &Result{Threshold: t.cfg.Candidates[0], Timings: make(map[int]time.Duration, len(t.cfg.Candidates))}
	best := time.Duration(-1)
	for _, candidate := range t.cfg.Candidates {
		applied := target.SetStrassenThreshold(candidate)
		start := t.clock()
		if err := target.MatrixMultiplyStrassenPtr(a, b, c, n); err != nil {
			return nil, fmt.Errorf("strassen with threshold %d: %w", applied, err)
		}
		elapsed := t.clock().Sub(start)
		res.Timings[applied] = elapsed
		if best < 0 || elapsed < best {
			best = elapsed
			res.Threshold = applied
		}
	}

	res.Threshold = target.SetStrassenThreshold(res.Threshold)
	return res, nil
}
