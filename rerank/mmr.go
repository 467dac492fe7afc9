// Package rerank 在排序之后做多样性重排与截断。
package rerank

import (
	"context"
	"strings"

	"github.com/cinerank/cinerank/core"
	"github.com/cinerank/cinerank/pipeline"
	"github.com/cinerank/cinerank/pkg/utils"
)

// MMRNode 用最大边际相关（MMR）做多样性重排：
//
//	mmr(i) = λ·rel(i) − (1−λ)·max_{j∈selected} sim(i, j)
//
// 相似度是类型+标签+推荐原因构成的集合上的 Jaccard。
// λ 越大越偏相关性，越小越偏多样性。
//
// 重排是确定性的：同分按原分数降序、再按 ID 升序打破平局，
// 同样的输入永远给出同样的输出。
type MMRNode struct {
	// Lambda 相关性权重，(0,1]；<=0 取 0.7
	Lambda float64

	// K 最终保留数量；<=0 表示不截断
	K int

	// TopKFactor 参与重排的池子为 K×TopKFactor（控制 O(n²) 成本）；
	// <=0 取 3
	TopKFactor int
}

func (n *MMRNode) Name() string {
	return "rerank.mmr"
}

func (n *MMRNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *MMRNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) <= 1 {
		return items, nil
	}

	lambda := n.Lambda
	if lambda <= 0 || lambda > 1 {
		lambda = 0.7
	}

	// 截出参与重排的池子：输入已按分数降序，截前 K×factor
	pool := items
	if n.K > 0 {
		factor := n.TopKFactor
		if factor <= 0 {
			factor = 3
		}
		if poolCap := n.K * factor; len(pool) > poolCap {
			pool = pool[:poolCap]
		}
	}

	cands := make([]*mmrCand, 0, len(pool))
	for _, it := range pool {
		if it == nil {
			continue
		}
		cands = append(cands, &mmrCand{item: it, tags: tagSet(it)})
	}
	if len(cands) == 0 {
		return nil, nil
	}

	// 相关性归一化到 [0,1]，避免分数量级影响 λ 的含义
	minScore, maxScore := cands[0].item.Score, cands[0].item.Score
	for _, c := range cands[1:] {
		if c.item.Score < minScore {
			minScore = c.item.Score
		}
		if c.item.Score > maxScore {
			maxScore = c.item.Score
		}
	}
	span := maxScore - minScore
	for _, c := range cands {
		if span > 0 {
			c.rel = (c.item.Score - minScore) / span
		} else {
			c.rel = 1
		}
	}

	limit := n.K
	if limit <= 0 || limit > len(cands) {
		limit = len(cands)
	}

	out := make([]*core.Item, 0, limit)
	selected := make([]*mmrCand, 0, limit)
	remaining := cands

	for len(out) < limit && len(remaining) > 0 {
		bestIdx := 0
		bestVal := mmrValue(remaining[0], selected, lambda)
		for i := 1; i < len(remaining); i++ {
			v := mmrValue(remaining[i], selected, lambda)
			if v > bestVal ||
				(v == bestVal && betterTie(remaining[i], remaining[bestIdx])) {
				bestVal = v
				bestIdx = i
			}
		}
		pick := remaining[bestIdx]
		out = append(out, pick.item)
		selected = append(selected, pick)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return out, nil
}

type mmrCand struct {
	item *core.Item
	tags map[string]bool
	rel  float64
}

func mmrValue(c *mmrCand, selected []*mmrCand, lambda float64) float64 {
	maxSim := 0.0
	for _, s := range selected {
		if sim := jaccard(c.tags, s.tags); sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*c.rel - (1-lambda)*maxSim
}

// betterTie 同 MMR 值时的确定性平局规则：分数降序，再 ID 升序。
func betterTie(a, b *mmrCand) bool {
	if a.item.Score != b.item.Score {
		return a.item.Score > b.item.Score
	}
	return a.item.ID < b.item.ID
}

// tagSet 取类型 + 标签 + 推荐原因作为相似度的特征集合。
func tagSet(it *core.Item) map[string]bool {
	tags := make(map[string]bool, 8)
	if d := it.Details(); d != nil {
		for _, g := range d.Genres {
			tags["g:"+strings.ToLower(g.Name)] = true
		}
		for _, kw := range d.Keywords {
			tags["k:"+strings.ToLower(kw.Name)] = true
		}
	}
	// 排序阶段的匹配原因与聚合阶段的推荐理由都算相似性标签：
	// 冷启动候选没有元数据时，reason 是唯一的相似性来源
	if lbl, ok := it.GetLabel("why"); ok {
		for _, r := range utils.SplitValues(lbl) {
			tags["r:"+r] = true
		}
	}
	if lbl, ok := it.GetLabel("reason"); ok {
		for _, r := range utils.SplitValues(lbl) {
			tags["r:"+r] = true
		}
	}
	return tags
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if large[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
