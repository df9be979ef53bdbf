package bench

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pithecene-io/crucible/iox"
	"github.com/pithecene-io/crucible/metrics"
	"github.com/pithecene-io/crucible/runtime"
	"github.com/pithecene-io/crucible/shm"
	"github.com/pithecene-io/crucible/tuner"
	"github.com/pithecene-io/crucible/types"
)

// fakeRequester answers with fn and records request types.
type fakeRequester struct {
	mu    sync.Mutex
	seen  []types.MessageType
	fn    func(req *types.Request) (*types.Response, error)
}

func (f *fakeRequester) Request(_ context.Context, req *types.Request) (*types.Response, error) {
	f.mu.Lock()
	f.seen = append(f.seen, req.Type)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeRequester) count(t types.MessageType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.seen {
		if v == t {
			n++
		}
	}
	return n
}

func success(req *types.Request) *types.Response {
	t, _ := types.SuccessResponseType(req.Type)
	return types.NewResponse(t, req.RequestID)
}

func TestDefaultCases(t *testing.T) {
	cases := DefaultCases(Sizes{
		Fibonacci:  25,
		Quicksort:  []int{1000, 10, 1000},
		Matrix:     []int{64},
		StreamSum:  100,
		Iterations: 5,
		Chunk:      30,
	})

	want := []string{
		"fibonacci/module/n=25",
		"fibonacci/ref/n=25",
		"quicksort/module/len=10",
		"quicksort/ref/len=10",
		"quicksort/module/len=1000",
		"quicksort/ref/len=1000",
		"matrix/module/naive/n=64",
		"matrix/module/strassen/n=64",
		"matrix/ref/n=64",
		"stream_sum/len=100/chunk=30",
	}
	if len(cases) != len(want) {
		t.Fatalf("got %d cases, want %d: %+v", len(cases), len(want), cases)
	}
	for i, c := range cases {
		if c.Name != want[i] {
			t.Errorf("case %d = %q, want %q", i, c.Name, want[i])
		}
		if err := c.Validate(); err != nil {
			t.Errorf("case %q invalid: %v", c.Name, err)
		}
	}
}

func TestCase_Validate(t *testing.T) {
	tests := []struct {
		name    string
		c       Case
		wantErr string
	}{
		{"zero size", Case{Kind: KindQuicksort, Variant: VariantRef}, "size"},
		{"bad variant", Case{Kind: KindQuicksort, Variant: "fast", Size: 1}, "variant"},
		{"fib too large", Case{Kind: KindFibonacci, Variant: VariantModule, Size: 94, Iterations: 1}, "fibonacci n"},
		{"fib no iterations", Case{Kind: KindFibonacci, Variant: VariantModule, Size: 10}, "iterations"},
		{"bad algorithm", Case{Kind: KindMatrix, Variant: VariantModule, Size: 8, Algorithm: "winograd"}, "algorithm"},
		{"stream no chunk", Case{Kind: KindStreamSum, Variant: VariantModule, Size: 8}, "chunk"},
		{"unknown kind", Case{Kind: "fft", Variant: VariantModule, Size: 8}, "kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestCase_Request(t *testing.T) {
	tests := []struct {
		c    Case
		want types.MessageType
	}{
		{Case{Kind: KindFibonacci, Variant: VariantModule, Size: 20, Iterations: 3}, types.MessageTypeFibonacciBatch},
		{Case{Kind: KindFibonacci, Variant: VariantRef, Size: 20, Iterations: 3}, types.MessageTypeFibonacciBatchRef},
		{Case{Kind: KindQuicksort, Variant: VariantModule, Size: 9}, types.MessageTypeQuicksortBench},
		{Case{Kind: KindQuicksort, Variant: VariantRef, Size: 9}, types.MessageTypeQuicksortRefBench},
		{Case{Kind: KindMatrix, Variant: VariantModule, Size: 8, Algorithm: types.AlgorithmStrassen}, types.MessageTypeMatrixMultiplyBench},
		{Case{Kind: KindMatrix, Variant: VariantRef, Size: 8, Algorithm: types.AlgorithmStrassen}, types.MessageTypeMatrixMultiplyRefBench},
	}
	for _, tt := range tests {
		req := tt.c.request("id")
		if req.Type != tt.want {
			t.Errorf("%s/%s request type = %q, want %q", tt.c.Kind, tt.c.Variant, req.Type, tt.want)
		}
		if !types.ValidateRequest(req) {
			t.Errorf("%s request fails envelope validation", req.Type)
		}
	}

	ref := Case{Kind: KindMatrix, Variant: VariantRef, Size: 8, Algorithm: types.AlgorithmStrassen}.request("id")
	if ref.Algorithm != "" {
		t.Errorf("reference matrix request carries algorithm %q", ref.Algorithm)
	}
	if (Case{Kind: KindStreamSum}).request("id") != nil {
		t.Error("stream sum case built a single request")
	}
}

func TestSuite_AggregatesRuns(t *testing.T) {
	durations := []float64{3, 1, 2}
	var mu sync.Mutex
	call := 0
	fake := &fakeRequester{fn: func(req *types.Request) (*types.Response, error) {
		resp := success(req)
		switch req.Type {
		case types.MessageTypeWarmup:
			resp.Threshold = 160
		case types.MessageTypeMatrixMultiplyBench:
			mu.Lock()
			resp.DurationMs = durations[call%len(durations)]
			call++
			mu.Unlock()
			resp.AlgorithmUsed = types.AlgorithmNaive
		}
		return resp, nil
	}}

	start := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	snap := metrics.Snapshot{RequestsDispatched: 5}
	s := NewSuite(fake,
		WithPool(2, "inprocess"),
		WithRuns(3),
		WithCases([]Case{{Name: "m", Kind: KindMatrix, Variant: VariantModule, Size: 8, Algorithm: types.AlgorithmStrassen}}),
		WithClock(func() time.Time { return start }),
		WithStats(func() metrics.Snapshot { return snap }),
	)
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if fake.count(types.MessageTypeWarmup) != 2 {
		t.Errorf("warmups = %d, want one per worker", fake.count(types.MessageTypeWarmup))
	}
	if report.Threshold != 160 || len(report.Thresholds) != 2 {
		t.Errorf("threshold = %d, thresholds = %v", report.Threshold, report.Thresholds)
	}
	if report.PoolSize != 2 || report.Transport != "inprocess" || report.Runs != 3 {
		t.Errorf("report header = %+v", report)
	}
	if !report.StartedAt.Equal(start) || report.ID == "" {
		t.Errorf("started_at = %v, id = %q", report.StartedAt, report.ID)
	}
	if report.Metrics == nil || report.Metrics.RequestsDispatched != 5 {
		t.Errorf("metrics = %+v", report.Metrics)
	}

	c := report.Cases[0]
	if c.Runs != 3 || c.MinMs != 1 || c.MaxMs != 3 || c.MeanMs != 2 {
		t.Errorf("case = %+v, want runs=3 min=1 max=3 mean=2", c)
	}
	if c.AlgorithmUsed != types.AlgorithmNaive {
		t.Errorf("algorithm used = %q", c.AlgorithmUsed)
	}
	if report.Failed() {
		t.Error("report marked failed")
	}
}

func TestSuite_RecordsCaseFailure(t *testing.T) {
	fake := &fakeRequester{fn: func(req *types.Request) (*types.Response, error) {
		if req.Type == types.MessageTypeQuicksortBench {
			return nil, errors.New("Array length exceeds limit (10000000).")
		}
		resp := success(req)
		resp.DurationMs = 4
		return resp, nil
	}}
	s := NewSuite(fake, WithRuns(2), WithCases([]Case{
		{Name: "bad", Kind: KindQuicksort, Variant: VariantModule, Size: 10},
		{Name: "good", Kind: KindQuicksort, Variant: VariantRef, Size: 10},
	}))
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Failed() {
		t.Error("report not marked failed")
	}
	if report.Cases[0].Error == "" || report.Cases[0].Runs != 0 {
		t.Errorf("failed case = %+v", report.Cases[0])
	}
	if report.Cases[1].Error != "" || report.Cases[1].Runs != 2 || report.Cases[1].MeanMs != 4 {
		t.Errorf("good case = %+v", report.Cases[1])
	}
}

func TestSuite_WarmupFailureAborts(t *testing.T) {
	fake := &fakeRequester{fn: func(*types.Request) (*types.Response, error) {
		return nil, errors.New("worker gone")
	}}
	_, err := NewSuite(fake).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "warmup") {
		t.Errorf("Run = %v, want warmup error", err)
	}
}

func TestSuite_InvalidCaseRejectedBeforeRequests(t *testing.T) {
	fake := &fakeRequester{fn: func(req *types.Request) (*types.Response, error) {
		return success(req), nil
	}}
	_, err := NewSuite(fake, WithCases([]Case{{Name: "x", Kind: KindMatrix, Variant: VariantModule}})).Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded with invalid case")
	}
	if len(fake.seen) != 0 {
		t.Errorf("sent %d requests before validation", len(fake.seen))
	}
}

func TestStreamSum(t *testing.T) {
	fake := &fakeRequester{fn: func(req *types.Request) (*types.Response, error) {
		var sum uint32
		for _, v := range req.Data {
			sum += v
		}
		resp := types.NewResponse(types.MessageTypeSumArrayResult, req.RequestID)
		resp.Result = float64(sum)
		return resp, nil
	}}
	sum, err := StreamSum(context.Background(), fake, 105, 10, 20, 3)
	if err != nil {
		t.Fatalf("StreamSum failed: %v", err)
	}
	if sum != 2100 {
		t.Errorf("sum = %d, want 2100", sum)
	}
	if got := fake.count(types.MessageTypeSumArray); got != 11 {
		t.Errorf("chunks sent = %d, want 11", got)
	}

	if _, err := StreamSum(context.Background(), fake, 0, 10, 20, 1); err == nil {
		t.Error("StreamSum with zero total succeeded")
	}
}

func TestReport_Comparisons(t *testing.T) {
	r := &Report{Cases: []CaseResult{
		{Kind: KindMatrix, Variant: VariantModule, Size: 64, Runs: 1, MeanMs: 4},
		{Kind: KindMatrix, Variant: VariantModule, Size: 64, Runs: 1, MeanMs: 2},
		{Kind: KindMatrix, Variant: VariantRef, Size: 64, Runs: 1, MeanMs: 8},
		{Kind: KindQuicksort, Variant: VariantModule, Size: 10, Error: "boom"},
		{Kind: KindQuicksort, Variant: VariantRef, Size: 10, Runs: 1, MeanMs: 1},
	}}
	got := r.Comparisons()
	if len(got) != 1 {
		t.Fatalf("comparisons = %+v, want only the matrix pair", got)
	}
	if got[0].ModuleMs != 2 || got[0].Speedup != 4 {
		t.Errorf("comparison = %+v, want fastest module 2ms and speedup 4", got[0])
	}
}

func TestSuite_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c, err := runtime.Start(ctx, runtime.Config{
		Size: 2,
		Settings: runtime.WorkerSettings{
			MemorySize: 8 << 20,
			Waiter:     shm.WaiterPoll,
			Tuner:      tuner.Config{Size: 64, Candidates: []int{64, 128}},
		},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(iox.CloseFunc(c))

	cases := DefaultCases(Sizes{
		Fibonacci:  20,
		Quicksort:  []int{1000},
		Matrix:     []int{32},
		StreamSum:  1000,
		Iterations: 2,
		Chunk:      300,
	})
	report, err := NewSuite(c, WithPool(2, c.Transport()), WithRuns(2), WithCases(cases), WithStats(c.Stats)).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failed() {
		t.Fatalf("report has failures: %+v", report.Cases)
	}
	for _, th := range report.Thresholds {
		if th != 64 && th != 128 {
			t.Errorf("threshold %d not a tuner candidate", th)
		}
	}
	for _, cr := range report.Cases {
		if cr.Runs != 2 {
			t.Errorf("case %s runs = %d", cr.Name, cr.Runs)
		}
		if cr.Kind == KindFibonacci && cr.Result != 6765 {
			t.Errorf("case %s result = %v, want 6765", cr.Name, cr.Result)
		}
		if cr.Kind == KindStreamSum && cr.Result != 20000 {
			t.Errorf("case %s result = %v, want 20000", cr.Name, cr.Result)
		}
	}
	if report.Metrics == nil || report.Metrics.RequestsDispatched == 0 {
		t.Errorf("metrics = %+v", report.Metrics)
	}
}
