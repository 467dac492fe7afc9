package core

import (
	"sort"
	"strings"
	"time"
)

// TasteProfile 是用户口味画像的核心抽象。
//
// 一句话定义：口味画像 = 推荐 Pipeline 的"全局上下文 + 打分依据 + 硬过滤来源"
//
// 它不是某一个 Node，而是：
//   - 被 Filter / Rank / ReRank 共享
//   - 每次画像构建由观影历史 + 显式反馈从头推导（不直接持久化）
//   - 显式反馈计数（FeatureFeedback）是唯一持久化的部分，由反馈学习环维护
//
// 设计要点：
//  维度            作用
//  正向特征权重    Rank 核心（类型/标签/导演/演员/年代/语言）
//  负向集合        硬过滤（回避类型/标签/组合）
//  子类型画像      细粒度过滤与加权（"喜欢动作片但回避超英动作"）
//  片单意向        把发现型候选拉向用户声明的意向而非只看过去行为
type TasteProfile struct {
	UserID string

	// 正向特征权重（key 均为小写名称），由合格影片加权累计
	GenreWeights    map[string]float64
	KeywordWeights  map[string]float64
	DirectorWeights map[string]float64
	ActorWeights    map[string]float64
	DecadeWeights   map[string]float64
	LanguageWeights map[string]float64

	// Top 列表：每种类型按累计权重取前 N，用于展示与反馈特征抽取
	TopFeatures map[FeatureType][]FeatureWeight

	// PreferredRuntime 是加权平均片长（分钟）；0 表示无数据
	PreferredRuntime float64

	// 负向集合（硬过滤）：低分且未点喜欢的影片（有上限的采样）贡献
	AvoidGenres   map[string]bool
	AvoidKeywords map[string]bool
	AvoidCombos   map[string]bool // ComboKey 形式

	// 子类型 / 跨类型画像
	Subgenres   map[string]*SubgenrePattern   // parent genre (小写) -> pattern
	CrossGenres map[string]*CrossGenrePattern // ComboKey -> pattern

	// 片单意向：未看的片单条目贡献的计数，加权发现型候选
	WatchlistGenres    map[string]float64
	WatchlistKeywords  map[string]float64
	WatchlistDirectors map[string]float64

	// 元数据
	FilmCount int       // 参与构建的合格影片数
	BuiltAt   time.Time // 构建时间
}

// NewTasteProfile 创建一个空画像。
func NewTasteProfile(userID string) *TasteProfile {
	return &TasteProfile{
		UserID:             userID,
		GenreWeights:       make(map[string]float64),
		KeywordWeights:     make(map[string]float64),
		DirectorWeights:    make(map[string]float64),
		ActorWeights:       make(map[string]float64),
		DecadeWeights:      make(map[string]float64),
		LanguageWeights:    make(map[string]float64),
		TopFeatures:        make(map[FeatureType][]FeatureWeight),
		AvoidGenres:        make(map[string]bool),
		AvoidKeywords:      make(map[string]bool),
		AvoidCombos:        make(map[string]bool),
		Subgenres:          make(map[string]*SubgenrePattern),
		CrossGenres:        make(map[string]*CrossGenrePattern),
		WatchlistGenres:    make(map[string]float64),
		WatchlistKeywords:  make(map[string]float64),
		WatchlistDirectors: make(map[string]float64),
		BuiltAt:            time.Now(),
	}
}

// GenreWeight 返回类型权重（按小写名称匹配）。
func (p *TasteProfile) GenreWeight(name string) float64 {
	return p.GenreWeights[strings.ToLower(name)]
}

// KeywordWeight 返回标签权重。
func (p *TasteProfile) KeywordWeight(name string) float64 {
	return p.KeywordWeights[strings.ToLower(name)]
}

// IsAvoidedGenre 报告类型是否在回避集合中。
func (p *TasteProfile) IsAvoidedGenre(name string) bool {
	return p.AvoidGenres[strings.ToLower(name)]
}

// IsAvoidedCombo 报告类型组合是否在回避集合中。
func (p *TasteProfile) IsAvoidedCombo(genres []string) bool {
	if len(p.AvoidCombos) == 0 {
		return false
	}
	return p.AvoidCombos[ComboKey(genres)]
}

// SubgenreFor 返回某个父类型的子类型画像；没有则返回 nil。
func (p *TasteProfile) SubgenreFor(parentGenre string) *SubgenrePattern {
	return p.Subgenres[strings.ToLower(parentGenre)]
}

// RebuildTop 重算每种类型的 Top-N 列表（按累计权重降序，同权重按名称升序）。
func (p *TasteProfile) RebuildTop(n int) {
	p.TopFeatures = map[FeatureType][]FeatureWeight{
		FeatureGenre:    topOf(FeatureGenre, p.GenreWeights, n),
		FeatureKeyword:  topOf(FeatureKeyword, p.KeywordWeights, n),
		FeatureDirector: topOf(FeatureDirector, p.DirectorWeights, n),
		FeatureActor:    topOf(FeatureActor, p.ActorWeights, n),
		FeatureDecade:   topOf(FeatureDecade, p.DecadeWeights, n),
		FeatureLanguage: topOf(FeatureLanguage, p.LanguageWeights, n),
	}
}

func topOf(ft FeatureType, weights map[string]float64, n int) []FeatureWeight {
	out := make([]FeatureWeight, 0, len(weights))
	for name, w := range weights {
		out = append(out, FeatureWeight{Type: ft, ID: name, Name: name, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
