package core

import "github.com/cinerank/cinerank/pkg/utils"

// Item 是推荐链路中的统一候选承载结构：聚合信号、分数、元信息、标签。
// 一个 Item 对应一部候选影片；Score 用于排序决策，Labels 用于解释与策略驱动。
//
// 约定的 Meta key：
//   - "details": *MovieDetails（候选影片的元数据，缺失时按部分特征打分）
//
// 约定的 Label key：
//   - "recall_source": 贡献该候选的来源名（多来源按 '|' 累积）
//   - "consensus":     共识等级 low / medium / high
//   - "reason":        来源给出的推荐理由（累积）
type Item struct {
	ID       string
	Title    string
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label

	// Sources 是按来源去重后的原始信号列表。
	// 不变式：经过聚合的 Item 至少有一个信号；同一来源只出现一次。
	Sources []SourceSignal
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// AddSource 追加一个来源信号，按来源名去重（后到的同名信号被忽略）。
func (it *Item) AddSource(sig SourceSignal) {
	for _, s := range it.Sources {
		if s.Source == sig.Source {
			return
		}
	}
	it.Sources = append(it.Sources, sig)
}

// SourceCount 返回去重后的来源数量。
func (it *Item) SourceCount() int { return len(it.Sources) }

// Details 返回候选影片元数据；未注入或类型不符时返回 nil。
func (it *Item) Details() *MovieDetails {
	if it.Meta == nil {
		return nil
	}
	d, _ := it.Meta["details"].(*MovieDetails)
	return d
}

// SetDetails 注入候选影片元数据。
func (it *Item) SetDetails(d *MovieDetails) {
	if it.Meta == nil {
		it.Meta = make(map[string]any)
	}
	it.Meta["details"] = d
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label。
func (it *Item) GetLabel(key string) (utils.Label, bool) {
	if it.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}
