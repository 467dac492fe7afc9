package pipeline

import (
	"context"

	"github.com/cinerank/cinerank/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall      Kind = "recall"      // 聚合阶段：多来源 fan-out 生成候选集
	KindFilter      Kind = "filter"      // 过滤阶段：剔除回避集合/排除列表命中的候选
	KindRank        Kind = "rank"        // 排序阶段：按口味画像对候选打分并排序
	KindReRank      Kind = "rerank"      // 重排阶段：相关性/多样性权衡（MMR）与截断
	KindPostProcess Kind = "postprocess" // 后处理阶段：补充元数据或最终结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 items -> 输出 items"的形态，方便聚合生成、过滤截断、重排等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
