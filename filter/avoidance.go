package filter

import (
	"context"
	"strings"

	"github.com/cinerank/cinerank/core"
	"github.com/cinerank/cinerank/pattern"
)

// AvoidanceFilter 按画像的负向集合硬过滤：
//   - 回避类型 / 回避标签 / 回避类型组合
//   - 回避子类型（"喜欢恐怖片但回避丧尸恐怖"）
//   - 用户显式负反馈过的影片（低分且未点喜欢）
//
// 没有画像或没有元数据的候选一律放行，由 rank 阶段用共识分兜底。
type AvoidanceFilter struct {
	// Detector 用于影片子类型归类；为 nil 时使用内置分类法
	Detector *pattern.Detector
}

func (f *AvoidanceFilter) Name() string {
	return "filter.avoidance"
}

func (f *AvoidanceFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil {
		return false, nil
	}

	// 显式负反馈：看过且打了低分又没点喜欢，直接剔除
	if seed, ok := rctx.SeedFor(item.ID); ok && seed.IsNegative() {
		return true, nil
	}

	p := rctx.Profile
	if p == nil {
		return false, nil
	}
	d := item.Details()
	if d == nil {
		return false, nil
	}

	genres := d.GenreNames()
	for _, g := range genres {
		if p.IsAvoidedGenre(g) {
			return true, nil
		}
	}
	for _, kw := range d.Keywords {
		if p.AvoidKeywords[strings.ToLower(kw.Name)] {
			return true, nil
		}
	}
	if len(genres) >= 2 && p.IsAvoidedCombo(genres) {
		return true, nil
	}

	detector := f.Detector
	if detector == nil {
		detector = pattern.NewDetector(nil)
	}
	for parent, subs := range detector.FilmSubgenres(d) {
		sp := p.SubgenreFor(parent)
		if sp == nil {
			continue
		}
		for _, sub := range subs {
			if sp.IsAvoided(sub) {
				return true, nil
			}
		}
	}

	return false, nil
}
