package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cinerank/cinerank/core"
)

// ExperimentStore 是 core.ExperimentStore 在 KeyValueStore 上的实现。
//
// 存储布局：
//   - 配置:   exp:configs                   JSON 数组（SaveConfigs 写入）
//   - 分配:   exp:assign:{test}:{user}      JSON Assignment，SetNX 粘性插入
//   - 指标:   exp:metrics:{test}            append-only JSON 列表
type ExperimentStore struct {
	KV core.KeyValueStore
}

func NewExperimentStore(kv core.KeyValueStore) *ExperimentStore {
	return &ExperimentStore{KV: kv}
}

const configsKey = "exp:configs"

func assignKey(testID, userID string) string { return "exp:assign:" + testID + ":" + userID }
func metricsKey(testID string) string        { return "exp:metrics:" + testID }

// SaveConfigs 覆盖写入运行中实验的配置集合。
func (s *ExperimentStore) SaveConfigs(ctx context.Context, configs []*core.ExperimentConfig) error {
	raw, err := json.Marshal(configs)
	if err != nil {
		return err
	}
	return s.KV.Set(ctx, configsKey, raw)
}

func (s *ExperimentStore) GetRunningConfigs(ctx context.Context) ([]*core.ExperimentConfig, error) {
	raw, err := s.KV.Get(ctx, configsKey)
	if core.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var configs []*core.ExperimentConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// GetOrCreateAssignment 实现粘性分配的 read-check-then-insert：
// SetNX 失败（并发首插的良性竞争）时读回先落盘的分配并沿用。
func (s *ExperimentStore) GetOrCreateAssignment(ctx context.Context, testID, userID string, bucket func() string) (string, error) {
	key := assignKey(testID, userID)

	if raw, err := s.KV.Get(ctx, key); err == nil {
		var a core.Assignment
		if err := json.Unmarshal(raw, &a); err == nil && a.Variant != "" {
			return a.Variant, nil
		}
	}

	a := core.Assignment{
		TestID:  testID,
		UserID:  userID,
		Variant: bucket(),
		At:      time.Now(),
	}
	raw, err := json.Marshal(&a)
	if err != nil {
		return "", err
	}

	ok, err := s.KV.SetNX(ctx, key, raw)
	if err != nil {
		return "", err
	}
	if ok {
		return a.Variant, nil
	}

	// 竞争输了：读回并沿用先到者的分配
	winning, err := s.KV.Get(ctx, key)
	if err != nil {
		return "", err
	}
	var existing core.Assignment
	if err := json.Unmarshal(winning, &existing); err != nil {
		return "", err
	}
	return existing.Variant, nil
}

func (s *ExperimentStore) AppendMetric(ctx context.Context, obs *core.MetricObservation) error {
	raw, err := json.Marshal(obs)
	if err != nil {
		return err
	}
	return s.KV.RPush(ctx, metricsKey(obs.TestID), raw)
}

func (s *ExperimentStore) ListMetrics(ctx context.Context, testID string) ([]*core.MetricObservation, error) {
	rows, err := s.KV.LRange(ctx, metricsKey(testID), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]*core.MetricObservation, 0, len(rows))
	for _, raw := range rows {
		var obs core.MetricObservation
		if err := json.Unmarshal(raw, &obs); err != nil {
			continue
		}
		out = append(out, &obs)
	}
	return out, nil
}

var _ core.ExperimentStore = (*ExperimentStore)(nil)
