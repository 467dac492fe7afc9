package filter

import (
	"context"

	"github.com/cinerank/cinerank/core"
)

// ExcludeFilter 过滤调用方显式排除的物品 ID（比如"本次不要这几部"）。
// 注意看过的影片不在排除之列：重看是合法推荐。
type ExcludeFilter struct {
	ItemIDs map[string]bool
}

// NewExcludeFilter 创建一个排除过滤器。
func NewExcludeFilter(ids []string) *ExcludeFilter {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return &ExcludeFilter{ItemIDs: m}
}

func (f *ExcludeFilter) Name() string {
	return "filter.exclude"
}

func (f *ExcludeFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	return f.ItemIDs[item.ID], nil
}
