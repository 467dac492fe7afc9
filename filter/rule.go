package filter

import (
	"context"

	"github.com/cinerank/cinerank/core"
	"github.com/cinerank/cinerank/pkg/dsl"
)

// RuleFilter 按 CEL 表达式过滤，表达式返回 true 表示剔除。
// 可访问 item（分数/元数据/特征）、label 与 rctx（用户/场景/参数），例如：
//
//	item.score < 0.2
//	item.runtime > 180
//	label.consensus == "low" && rctx.scene == "feed"
type RuleFilter struct {
	Expr string
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Expr == "" {
		return false, nil
	}
	return dsl.Evaluate(f.Expr, item, rctx)
}
