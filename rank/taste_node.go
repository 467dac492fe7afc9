// Package rank 按口味画像对候选打分。
//
// 排序阶段不做硬过滤（那是 filter 的职责），只负责把聚合阶段的共识分
// 与画像匹配度融合为最终个性化分数，并写入可解释的 reason 标签。
package rank

import (
	"context"
	"sort"
	"strings"

	"github.com/cinerank/cinerank/core"
	"github.com/cinerank/cinerank/pattern"
	"github.com/cinerank/cinerank/pipeline"
	"github.com/cinerank/cinerank/pkg/utils"
)

// 各维度贡献的系数。数值经验性，来自对典型画像量级的标定：
// 类型/标签是主信号，导演/演员次之，年代/语言只做轻微倾斜。
const (
	baseWeight     = 1.0
	genreCoeff     = 0.30
	keywordCoeff   = 0.20
	directorCoeff  = 0.15
	actorCoeff     = 0.10
	decadeCoeff    = 0.05
	languageCoeff  = 0.05
	subgenreBoost  = 0.25
	avoidedPenalty = 0.40
	watchlistBoost = 0.15
	rewatchBoost   = 0.20
)

// TasteNode 是口味画像排序 Node。
// - 写入 labels：why（匹配原因，'|' 合并）
// - 更新 item.Score 并按分数降序稳定排序
type TasteNode struct {
	// Detector 用于影片子类型归类；为 nil 时使用内置分类法
	Detector *pattern.Detector
}

func (n *TasteNode) Name() string        { return "rank.taste" }
func (n *TasteNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *TasteNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Profile == nil || len(items) == 0 {
		return items, nil
	}
	detector := n.Detector
	if detector == nil {
		detector = pattern.NewDetector(nil)
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		score, reasons := n.score(rctx, detector, it)
		it.Score = score
		if len(reasons) > 0 {
			it.PutLabel("why", utils.Label{
				Value:  strings.Join(reasons, "|"),
				Source: "rank.taste",
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (n *TasteNode) score(
	rctx *core.RecommendContext,
	detector *pattern.Detector,
	it *core.Item,
) (float64, []string) {
	p := rctx.Profile
	score := it.Score * baseWeight
	var reasons []string

	d := it.Details()
	if d == nil {
		// 没有元数据的候选只保留聚合共识分，不做画像匹配
		return score, nil
	}

	genres := d.GenreNames()
	keywords := d.KeywordNames()

	if s, top := weightMatch(p.GenreWeights, genres); s > 0 {
		score += s * genreCoeff
		reasons = append(reasons, "genre:"+top)
	}
	if s, top := weightMatch(p.KeywordWeights, keywords); s > 0 {
		score += s * keywordCoeff
		reasons = append(reasons, "keyword:"+top)
	}
	if s, top := weightMatch(p.DirectorWeights, personNames(d.Directors)); s > 0 {
		score += s * directorCoeff
		reasons = append(reasons, "director:"+top)
	}
	if s, top := weightMatch(p.ActorWeights, personNames(d.Cast)); s > 0 {
		score += s * actorCoeff
		reasons = append(reasons, "actor:"+top)
	}
	if decade := d.Decade(); decade != "" {
		if w := p.DecadeWeights[decade]; w > 0 {
			score += normalize(w) * decadeCoeff
		}
	}
	if d.Language != "" {
		if w := p.LanguageWeights[strings.ToLower(d.Language)]; w > 0 {
			score += normalize(w) * languageCoeff
		}
	}

	// 子类型：偏好的加权，回避的减分（但不在 rank 阶段剔除）
	for parent, subs := range detector.FilmSubgenres(d) {
		sp := p.SubgenreFor(parent)
		if sp == nil {
			continue
		}
		for _, sub := range subs {
			if sp.IsPreferred(sub) {
				score += subgenreBoost
				reasons = append(reasons, "subgenre:"+sub)
			}
			if sp.IsAvoided(sub) {
				score -= avoidedPenalty
			}
		}
	}

	// 跨类型组合
	for _, cg := range p.CrossGenres {
		if b := pattern.CrossGenreBoost(cg, genres, keywords); b > 0 {
			score += b
			reasons = append(reasons, "combo:"+cg.Key())
		}
	}

	// 片单意向：类型与用户片单意向重合的发现型候选拉升
	if s, top := weightMatch(p.WatchlistGenres, genres); s > 0 {
		score += s * watchlistBoost
		reasons = append(reasons, "watchlist:"+top)
	}

	// 看过且喜欢的条目不剔除，而是作为重看候选加权
	if seed, ok := rctx.SeedFor(it.ID); ok {
		if seed.Liked || seed.Rating >= 4 {
			score += rewatchBoost
			reasons = append(reasons, "rewatch")
		}
	}

	return score, reasons
}

// personNames 返回演职员名列表（保持元数据顺序）。
func personNames(people []core.Person) []string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		names = append(names, p.Name)
	}
	return names
}

// weightMatch 对名称集合累计画像权重并归一化，返回分值与权重最高的名称。
func weightMatch(weights map[string]float64, names []string) (float64, string) {
	if len(weights) == 0 || len(names) == 0 {
		return 0, ""
	}
	sum, best, bestName := 0.0, 0.0, ""
	for _, name := range names {
		w := weights[strings.ToLower(name)]
		if w <= 0 {
			continue
		}
		sum += w
		if w > best {
			best = w
			bestName = strings.ToLower(name)
		}
	}
	if sum == 0 {
		return 0, ""
	}
	return normalize(sum), bestName
}

// normalize 把无界的累计权重压到 (0,1)：w/(w+k)，k 取典型单片权重量级。
func normalize(w float64) float64 {
	const k = 4.0
	return w / (w + k)
}
