package bench

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/crucible/log"
	"github.com/pithecene-io/crucible/metrics"
	"github.com/pithecene-io/crucible/types"
)

// Requester sends one request and waits for its response.
// *pool.Pool and *runtime.Client satisfy it.
type Requester interface {
	Request(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Option configures a Suite.
type Option func(*Suite)

// WithRuns sets how many times each case runs (default DefaultRuns).
func WithRuns(runs int) Option {
	return func(s *Suite) { s.runs = runs }
}

// WithCases replaces the default cases.
func WithCases(cases []Case) Option {
	return func(s *Suite) { s.cases = cases }
}

// WithPool records the pool shape in the report. Warmup is sent size times
// so every worker is warmed.
func WithPool(size int, transport string) Option {
	return func(s *Suite) {
		s.poolSize = size
		s.transport = transport
	}
}

// WithStats attaches a metrics snapshot source to the report.
func WithStats(stats func() metrics.Snapshot) Option {
	return func(s *Suite) { s.stats = stats }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Suite) { s.logger = logger }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Suite) { s.now = now }
}

// Suite runs benchmark cases through a Requester.
type Suite struct {
	requester Requester
	runs      int
	cases     []Case
	poolSize  int
	transport string
	stats     func() metrics.Snapshot
	logger    *log.Logger
	now       func() time.Time
}

// NewSuite creates a suite over r with the default cases.
func NewSuite(r Requester, opts ...Option) *Suite {
	s := &Suite{
		requester: r,
		runs:      DefaultRuns,
		cases:     DefaultCases(DefaultSizes()),
		poolSize:  1,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runs < 1 {
		s.runs = 1
	}
	if s.poolSize < 1 {
		s.poolSize = 1
	}
	return s
}

// Run warms every worker and runs each case. A failing case is recorded in
// its result and the suite moves on; only ctx ending, an invalid case or a
// failed warmup abort the run.
func (s *Suite) Run(ctx context.Context) (*Report, error) {
	for _, c := range s.cases {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
		PoolSize:  s.poolSize,
		Transport: s.transport,
		Runs:      s.runs,
		Cases:     make([]CaseResult, 0, len(s.cases)),
	}

	if err := s.warmup(ctx, report); err != nil {
		return nil, err
	}

	for _, c := range s.cases {
		result := s.runCase(ctx, c)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if result.Error != "" {
			s.logger.Warn("benchmark case failed", map[string]any{"case": c.Name, "error": result.Error})
		} else {
			s.logger.Info("benchmark case done", map[string]any{
				"case":    c.Name,
				"mean_ms": result.MeanMs,
				"runs":    result.Runs,
			})
		}
		report.Cases = append(report.Cases, result)
	}

	report.CompletedAt = s.now().UTC()
	if s.stats != nil {
		snap := s.stats()
		report.Metrics = &snap
	}
	return report, nil
}

func (s *Suite) warmup(ctx context.Context, report *Report) error {
	for i := range s.poolSize {
		resp, err := s.requester.Request(ctx, types.NewRequest(types.MessageTypeWarmup, uuid.NewString()))
		if err != nil {
			return fmt.Errorf("warmup %d: %w", i, err)
		}
		report.Thresholds = append(report.Thresholds, resp.Threshold)
		report.Threshold = resp.Threshold
	}
	s.logger.Info("workers warmed", map[string]any{"thresholds": report.Thresholds})
	return nil
}

func (s *Suite) runCase(ctx context.Context, c Case) CaseResult {
	result := CaseResult{
		Name:       c.Name,
		Kind:       c.Kind,
		Variant:    c.Variant,
		Size:       c.Size,
		Iterations: c.Iterations,
	}

	var total float64
	for range s.runs {
		ms, resp, err := s.runOnce(ctx, c)
		if err != nil {
			result.Error = err.Error()
			break
		}
		if result.Runs == 0 || ms < result.MinMs {
			result.MinMs = ms
		}
		result.MaxMs = math.Max(result.MaxMs, ms)
		total += ms
		result.Runs++
		if resp != nil {
			result.AlgorithmUsed = resp.AlgorithmUsed
			result.Result = resp.Result
		}
	}
	if result.Runs > 0 {
		result.MeanMs = total / float64(result.Runs)
	}
	return result
}

// runOnce returns the duration of one run in milliseconds. Worker-timed
// kinds report DurationMs; the others are timed around the round trip.
func (s *Suite) runOnce(ctx context.Context, c Case) (float64, *types.Response, error) {
	if c.Kind == KindStreamSum {
		start := s.now()
		sum, err := StreamSum(ctx, s.requester, c.Size, c.Chunk, DefaultStreamFill, s.poolSize)
		if err != nil {
			return 0, nil, err
		}
		elapsed := s.now().Sub(start)
		return durationMs(elapsed), &types.Response{Result: float64(sum)}, nil
	}

	req := c.request(uuid.NewString())
	start := s.now()
	resp, err := s.requester.Request(ctx, req)
	elapsed := s.now().Sub(start)
	if err != nil {
		return 0, nil, err
	}
	if c.Kind == KindFibonacci {
		return durationMs(elapsed), resp, nil
	}
	return resp.DurationMs, resp, nil
}

// StreamSum sums total copies of fill by sending chunks of at most chunk
// elements as sumArray requests, at most parallel at a time. The result is
// the 64-bit sum of the per-chunk u32 sums.
func StreamSum(ctx context.Context, r Requester, total, chunk int, fill uint32, parallel int) (uint64, error) {
	if total <= 0 || chunk <= 0 {
		return 0, errors.New("total and chunk must be positive")
	}
	if parallel < 1 {
		parallel = 1
	}

	chunks := (total + chunk - 1) / chunk
	sums := make([]uint64, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := range chunks {
		n := min(chunk, total-i*chunk)
		g.Go(func() error {
			data := make([]uint32, n)
			for j := range data {
				data[j] = fill
			}
			req := types.NewRequest(types.MessageTypeSumArray, uuid.NewString())
			req.Data = data
			resp, err := r.Request(gctx, req)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			sums[i] = uint64(resp.Result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var sum uint64
	for _, v := range sums {
		sum += v
	}
	return sum, nil
}

func durationMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
