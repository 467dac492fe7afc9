package recall

import (
	"context"

	"github.com/cinerank/cinerank/core"
)

// Source 表示一个可并发 fan-out 的外部推荐来源适配器。
//
// 契约：
//   - Fetch 基于 rctx 中的种子历史返回归一化信号；具体 wire 格式在适配器内消化
//   - 失败以 error 返回，不 panic 穿透聚合边界；限流/鉴权类失败返回
//     IsRateLimited 为真的错误，触发熔断冷却
//   - 空结果是合法结果，不是错误
type Source interface {
	Name() string
	Fetch(ctx context.Context, rctx *core.RecommendContext) ([]core.SourceSignal, error)
}

// SourceConfig 是单个来源在聚合器里的配置。
// 置信度常量属于聚合器配置而非适配器内部状态，因此可被实验变体覆盖。
type SourceConfig struct {
	// Weight 来源可靠性权重，参与置信度加权平均；<=0 时按 1 处理
	Weight float64

	// Quality 标记高可信来源；出现在信号集中时加固定小幅加分
	Quality bool

	// Confidence 按 reason 覆盖该来源信号的置信度常量，
	// 例如 {"recommended_by": 0.9, "similar_to": 0.7}。
	// 未覆盖的 reason 使用适配器自带的置信度。
	Confidence map[string]float64
}

// FuncSource 把一个函数包装成 Source，便于接线与测试。
type FuncSource struct {
	SourceName string
	Fn         func(ctx context.Context, rctx *core.RecommendContext) ([]core.SourceSignal, error)
}

func (s *FuncSource) Name() string { return s.SourceName }

func (s *FuncSource) Fetch(ctx context.Context, rctx *core.RecommendContext) ([]core.SourceSignal, error) {
	if s.Fn == nil {
		return nil, nil
	}
	return s.Fn(ctx, rctx)
}
