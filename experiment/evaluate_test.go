package experiment

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/cinerank/cinerank/core"
)

type fakeExpStore struct {
	mu          sync.Mutex
	configs     []*core.ExperimentConfig
	assignments map[string]string
	metrics     []*core.MetricObservation
}

func newFakeExpStore() *fakeExpStore {
	return &fakeExpStore{assignments: make(map[string]string)}
}

func (s *fakeExpStore) GetRunningConfigs(context.Context) ([]*core.ExperimentConfig, error) {
	return s.configs, nil
}

func (s *fakeExpStore) GetOrCreateAssignment(_ context.Context, testID, userID string, bucket func() string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := testID + ":" + userID
	if v, ok := s.assignments[key]; ok {
		return v, nil
	}
	v := bucket()
	s.assignments[key] = v
	return v, nil
}

func (s *fakeExpStore) AppendMetric(_ context.Context, obs *core.MetricObservation) error {
	s.metrics = append(s.metrics, obs)
	return nil
}

func (s *fakeExpStore) ListMetrics(_ context.Context, testID string) ([]*core.MetricObservation, error) {
	out := make([]*core.MetricObservation, 0, len(s.metrics))
	for _, m := range s.metrics {
		if m.TestID == testID {
			out = append(out, m)
		}
	}
	return out, nil
}

// 构造均值精确、方差可控的观测：一半 mean-0.05，一半 mean+0.05。
func seedMetric(s *fakeExpStore, testID, variant, metric string, mean float64, n int) {
	for i := 0; i < n; i++ {
		v := mean - 0.05
		if i%2 == 1 {
			v = mean + 0.05
		}
		s.metrics = append(s.metrics, &core.MetricObservation{
			TestID: testID, Variant: variant, Metric: metric, Value: v,
		})
	}
}

func lambdaTest() *core.ExperimentConfig {
	return &core.ExperimentConfig{
		ID:      "lambda-test",
		Control: "control",
		Variants: []core.Variant{
			{Name: "control"},
			{Name: "high-lambda", Params: map[string]any{"lambda": 0.45}},
		},
		TrafficSplit:  map[string]float64{"control": 0.5, "high-lambda": 0.5},
		PrimaryMetric: "ctr",
	}
}

func TestEvaluateSignificantLift(t *testing.T) {
	store := newFakeExpStore()
	cfg := lambdaTest()
	seedMetric(store, cfg.ID, "control", "ctr", 0.40, 50)
	seedMetric(store, cfg.ID, "high-lambda", "ctr", 0.46, 50)

	report, err := (&Evaluator{Store: store}).Evaluate(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Comparisons) != 1 {
		t.Fatalf("comparisons = %d, want 1", len(report.Comparisons))
	}
	c := report.Comparisons[0]

	if math.Abs(c.ControlMean-0.40) > 1e-9 || math.Abs(c.VariantMean-0.46) > 1e-9 {
		t.Errorf("means = (%v, %v), want (0.40, 0.46)", c.ControlMean, c.VariantMean)
	}
	if math.Abs(c.PercentChange-15.0) > 0.01 {
		t.Errorf("PercentChange = %v, want 15.0", c.PercentChange)
	}
	if c.PValue <= 0 || c.PValue >= 0.05 {
		t.Errorf("PValue = %v, want in (0, 0.05)", c.PValue)
	}
	// 不变式：显著标记与 p < 0.05 精确一致
	if c.IsSignificant != (c.PValue < 0.05) {
		t.Errorf("IsSignificant = %v but PValue = %v", c.IsSignificant, c.PValue)
	}
	if c.CILow >= c.CIHigh {
		t.Errorf("CI = [%v, %v]", c.CILow, c.CIHigh)
	}
}

func TestEvaluateNoDifference(t *testing.T) {
	store := newFakeExpStore()
	cfg := lambdaTest()
	seedMetric(store, cfg.ID, "control", "ctr", 0.40, 50)
	seedMetric(store, cfg.ID, "high-lambda", "ctr", 0.40, 50)

	report, err := (&Evaluator{Store: store}).Evaluate(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	c := report.Comparisons[0]
	if c.IsSignificant {
		t.Errorf("identical distributions flagged significant (p=%v)", c.PValue)
	}
	if c.PercentChange != 0 {
		t.Errorf("PercentChange = %v, want 0", c.PercentChange)
	}
}

func TestEvaluateSuppression(t *testing.T) {
	tests := []struct {
		name string
		seed func(s *fakeExpStore, testID string)
		want string
	}{
		{
			name: "insufficient samples",
			seed: func(s *fakeExpStore, id string) {
				seedMetric(s, id, "control", "ctr", 0.4, 10)
				s.metrics = append(s.metrics, &core.MetricObservation{
					TestID: id, Variant: "high-lambda", Metric: "ctr", Value: 0.5,
				})
			},
			want: "insufficient samples",
		},
		{
			name: "zero variance both sides",
			seed: func(s *fakeExpStore, id string) {
				for i := 0; i < 5; i++ {
					s.metrics = append(s.metrics,
						&core.MetricObservation{TestID: id, Variant: "control", Metric: "ctr", Value: 0.4},
						&core.MetricObservation{TestID: id, Variant: "high-lambda", Metric: "ctr", Value: 0.4},
					)
				}
			},
			want: "zero variance in both groups",
		},
		{
			name: "missing control",
			seed: func(s *fakeExpStore, id string) {
				seedMetric(s, id, "high-lambda", "ctr", 0.5, 10)
			},
			want: "no control observations",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeExpStore()
			cfg := lambdaTest()
			tt.seed(store, cfg.ID)

			report, err := (&Evaluator{Store: store}).Evaluate(context.Background(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			if len(report.Comparisons) != 0 {
				t.Errorf("comparisons = %v, want none", report.Comparisons)
			}
			if got := report.Suppressed["high-lambda/ctr"]; got != tt.want {
				t.Errorf("suppressed reason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssignSticky(t *testing.T) {
	store := newFakeExpStore()
	cfg := lambdaTest()
	a := NewAssigner(store)

	first, err := a.Assign(context.Background(), cfg, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VariantByName(first) == nil {
		t.Fatalf("assigned unknown variant %q", first)
	}
	for i := 0; i < 20; i++ {
		again, err := a.Assign(context.Background(), cfg, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("assignment changed: %q -> %q", first, again)
		}
	}
}

// 并发请求共用一个 Assigner 的随机源，race detector 下必须干净。
func TestAssignConcurrent(t *testing.T) {
	store := newFakeExpStore()
	cfg := lambdaTest()
	a := NewAssigner(store)

	const users = 32
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := a.Assign(context.Background(), cfg, fmt.Sprintf("u%d", n))
			if err != nil {
				t.Errorf("Assign: %v", err)
				return
			}
			if cfg.VariantByName(got) == nil {
				t.Errorf("assigned unknown variant %q", got)
			}
		}(i)
	}
	wg.Wait()
}

func TestBucketRespectsWeights(t *testing.T) {
	cfg := &core.ExperimentConfig{
		ID:      "t",
		Control: "a",
		Variants: []core.Variant{
			{Name: "a"}, {Name: "b"},
		},
		TrafficSplit: map[string]float64{"a": 1, "b": 0},
	}
	a := NewAssigner(newFakeExpStore())
	for i := 0; i < 100; i++ {
		if got := a.bucket(cfg); got != "a" {
			t.Fatalf("bucket = %q with zero weight on b", got)
		}
	}
}

func TestVariantParamsMerged(t *testing.T) {
	store := newFakeExpStore()
	cfg := lambdaTest()
	cfg.TrafficSplit = map[string]float64{"control": 0, "high-lambda": 1}
	store.configs = []*core.ExperimentConfig{cfg}

	a := NewAssigner(store)
	params, err := a.VariantParams(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := params["lambda"].(float64); !ok || got != 0.45 {
		t.Errorf("params[lambda] = %v, want 0.45", params["lambda"])
	}
}
