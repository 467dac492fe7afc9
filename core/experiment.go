package core

import (
	"context"
	"time"
)

// Variant 是实验中的一个参数变体。
// Params 是核心里唯一允许的开放式参数袋：用于覆盖来源置信度常量、
// lambda 映射区间等调优参数。
type Variant struct {
	Name   string         `json:"name" yaml:"name"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// ExperimentConfig 是一个运行中实验的配置。
type ExperimentConfig struct {
	ID            string             `json:"id" yaml:"id"`
	Variants      []Variant          `json:"variants" yaml:"variants"`
	TrafficSplit  map[string]float64 `json:"traffic_split" yaml:"traffic_split"` // variant name -> weight
	PrimaryMetric string             `json:"primary_metric" yaml:"primary_metric"`
	Control       string             `json:"control" yaml:"control"` // 对照组变体名
}

// VariantByName 返回指定名称的变体；不存在时返回 nil。
func (c *ExperimentConfig) VariantByName(name string) *Variant {
	for i := range c.Variants {
		if c.Variants[i].Name == name {
			return &c.Variants[i]
		}
	}
	return nil
}

// Assignment 是 (testID, userID) 的粘性变体分配：创建一次，从不改派。
type Assignment struct {
	TestID  string    `json:"test_id"`
	UserID  string    `json:"user_id"`
	Variant string    `json:"variant"`
	At      time.Time `json:"at"`
}

// MetricObservation 是一条原始指标观测（不预聚合，便于事后重新聚合）。
type MetricObservation struct {
	ID      string    `json:"id"`
	TestID  string    `json:"test_id"`
	UserID  string    `json:"user_id"`
	Variant string    `json:"variant"`
	Metric  string    `json:"metric"`
	Value   float64   `json:"value"`
	At      time.Time `json:"at"`
}

// ExperimentStore 是实验持久化的领域接口。
type ExperimentStore interface {
	// GetRunningConfigs 返回当前运行中的实验配置
	GetRunningConfigs(ctx context.Context) ([]*ExperimentConfig, error)

	// GetOrCreateAssignment 返回 (testID, userID) 的粘性分配。
	// 首次分配时调用 bucket 产生变体名并插入；并发首次插入是良性竞争：
	// 后到者必须读回并沿用先落盘的分配，不得产生重复。
	GetOrCreateAssignment(ctx context.Context, testID, userID string, bucket func() string) (string, error)

	// AppendMetric 追加一条指标观测（append-only）
	AppendMetric(ctx context.Context, obs *MetricObservation) error

	// ListMetrics 读取一个实验的全部观测
	ListMetrics(ctx context.Context, testID string) ([]*MetricObservation, error)
}
