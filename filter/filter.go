// Package filter 提供候选硬过滤。
//
// 过滤与降权的边界：画像的回避集合与显式负反馈在这里硬剔除，
// 口味不匹配只在 rank 阶段降权。看过的影片不在过滤之列，
// 喜欢过的条目会作为重看候选参与排序。
package filter

import (
	"context"

	"github.com/cinerank/cinerank/core"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}
