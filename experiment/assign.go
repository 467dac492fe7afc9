// Package experiment 实现 A/B 实验的分桶、指标记录与评估。
package experiment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinerank/cinerank/core"
)

// Assigner 负责把用户分到实验变体。
//
// 分配是粘性的：(testID, userID) 的首次分配持久化后从不改派，
// 同一用户在实验全程看到同一变体。加权随机只发生在首次分配时。
type Assigner struct {
	Store core.ExperimentStore

	// Rand 分桶随机源；为 nil 时使用时间种子。测试注入固定种子可复现。
	// rand.Rand 本身不是并发安全的，读取统一过 randMu。
	Rand *rand.Rand

	Logger zerolog.Logger

	randMu sync.Mutex
}

// NewAssigner 创建一个分配器。
func NewAssigner(store core.ExperimentStore) *Assigner {
	return &Assigner{
		Store: store,
		Rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Assign 返回用户在实验中的变体名（已分配的直接返回，否则加权随机并持久化）。
func (a *Assigner) Assign(ctx context.Context, cfg *core.ExperimentConfig, userID string) (string, error) {
	return a.Store.GetOrCreateAssignment(ctx, cfg.ID, userID, func() string {
		return a.bucket(cfg)
	})
}

// VariantParams 返回用户在全部运行中实验下的合并变体参数。
// 多个实验触及同一参数时后写的覆盖先写的（配置方应避免这样设计实验）。
func (a *Assigner) VariantParams(ctx context.Context, userID string) (map[string]any, error) {
	configs, err := a.Store.GetRunningConfigs(ctx)
	if err != nil {
		return nil, err
	}
	params := make(map[string]any)
	for _, cfg := range configs {
		name, err := a.Assign(ctx, cfg, userID)
		if err != nil {
			// 单个实验分配失败降级为不参与该实验
			a.Logger.Warn().Str("test", cfg.ID).Str("user", userID).Err(err).
				Msg("experiment assignment failed")
			continue
		}
		v := cfg.VariantByName(name)
		if v == nil {
			continue
		}
		for k, val := range v.Params {
			params[k] = val
		}
	}
	return params, nil
}

// bucket 按 TrafficSplit 的权重做一次加权随机。
// 权重缺失的变体取 0；全部为 0 时退回第一个变体。
func (a *Assigner) bucket(cfg *core.ExperimentConfig) string {
	if len(cfg.Variants) == 0 {
		return ""
	}
	total := 0.0
	for _, v := range cfg.Variants {
		total += cfg.TrafficSplit[v.Name]
	}
	if total <= 0 {
		return cfg.Variants[0].Name
	}

	x := a.randFloat() * total
	for _, v := range cfg.Variants {
		x -= cfg.TrafficSplit[v.Name]
		if x < 0 {
			return v.Name
		}
	}
	return cfg.Variants[len(cfg.Variants)-1].Name
}

// randFloat 从注入的随机源取一个 [0,1) 值；未注入时退回全局随机源。
func (a *Assigner) randFloat() float64 {
	if a.Rand == nil {
		return rand.Float64()
	}
	a.randMu.Lock()
	defer a.randMu.Unlock()
	return a.Rand.Float64()
}
