package core

import "github.com/cinerank/cinerank/pkg/utils"

// RecommendContext 承载用户 / 种子历史 / 请求参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// Profile 是本次请求使用的口味画像（可为 nil：冷启动时只按聚合分排序）
	Profile *TasteProfile

	// SeedHistory 是用户观影历史；高分条目作为来源聚合的种子，
	// 低分条目作为候选的显式负反馈
	SeedHistory []WatchedMovie

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数，包含：
	//   - 调优参数：lambda, result_count, top_k_factor
	//   - 实验变体参数（Variant.Params 合并进来，带 variant 标记）
	Params map[string]any
}

// SeedFor 返回某部影片的历史记录；不存在时 ok 为 false。
func (rctx *RecommendContext) SeedFor(itemID string) (WatchedMovie, bool) {
	for _, w := range rctx.SeedHistory {
		if w.ItemID == itemID {
			return w, true
		}
	}
	return WatchedMovie{}, false
}

// PositiveSeeds 返回可作为聚合种子的高信号历史（>=4 星或 liked）。
func (rctx *RecommendContext) PositiveSeeds() []WatchedMovie {
	out := make([]WatchedMovie, 0, len(rctx.SeedHistory))
	for _, w := range rctx.SeedHistory {
		if w.Liked || w.Rating >= 4 {
			out = append(out, w)
		}
	}
	return out
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// ParamFloat 从 Params 取 float64 参数，取不到时返回默认值。
func (rctx *RecommendContext) ParamFloat(key string, def float64) float64 {
	if rctx.Params == nil {
		return def
	}
	switch v := rctx.Params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// ParamInt 从 Params 取 int 参数，取不到时返回默认值。
func (rctx *RecommendContext) ParamInt(key string, def int) int {
	if rctx.Params == nil {
		return def
	}
	switch v := rctx.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
