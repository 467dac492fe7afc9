package core

import (
	"sort"
	"strings"
)

// SubgenreStat 是单个子类型（如 Horror 下的 folk-horror）的观影统计。
type SubgenreStat struct {
	Watched   int     // 看过的部数
	Liked     int     // 喜欢（liked 或 >=3.5 星）的部数
	RatingSum float64 // 有评分影片的评分之和
	Rated     int     // 有评分的部数
	Weight    float64 // 加权偏好累计
}

// AvgRating 返回平均评分；无评分时为 0。
func (s *SubgenreStat) AvgRating() float64 {
	if s.Rated == 0 {
		return 0
	}
	return s.RatingSum / float64(s.Rated)
}

// LikeRatio 返回喜欢比例；无观影时为 0。
func (s *SubgenreStat) LikeRatio() float64 {
	if s.Watched == 0 {
		return 0
	}
	return float64(s.Liked) / float64(s.Watched)
}

// SubgenrePattern 是一个父类型下的子类型偏好画像，每次画像构建从头重建。
//
// 分类不变式（刻意不对称、保守）：
//   - avoided:   watched >= 10 且 likeRatio < 0.2 —— 没看过不等于不喜欢
//   - preferred: watchRatio >= 0.15 且 likeRatio >= 0.6
//
// 稀有子类型永远不会仅因缺少数据而被判为 avoided。
type SubgenrePattern struct {
	ParentGenre string
	Stats       map[string]*SubgenreStat // subgenre key -> 统计
	Avoided     []string
	Preferred   []string
}

// IsAvoided 报告子类型是否被判为回避。
func (p *SubgenrePattern) IsAvoided(subgenre string) bool {
	for _, s := range p.Avoided {
		if s == subgenre {
			return true
		}
	}
	return false
}

// IsPreferred 报告子类型是否被判为偏好。
func (p *SubgenrePattern) IsPreferred(subgenre string) bool {
	for _, s := range p.Preferred {
		if s == subgenre {
			return true
		}
	}
	return false
}

// CrossGenrePattern 是对"类型组合 + 标签词汇"的习得性亲和。
// 只由喜欢 / >=3 星的历史构建；组合有序且最多 3 个类型。
type CrossGenrePattern struct {
	Combo     []string        // 排序后的类型名组合，len <= 3
	Keywords  map[string]bool // 组合下出现过的标签词汇（小写）
	Watched   int
	Liked     int
	RatingSum float64
	Rated     int
	Weight    float64
	Examples  []string // 示例片名，最多 3 个
}

// Key 返回组合的规范 key（"action+sci-fi" 形式）。
func (p *CrossGenrePattern) Key() string {
	return ComboKey(p.Combo)
}

// AvgRating 返回组合的平均评分。
func (p *CrossGenrePattern) AvgRating() float64 {
	if p.Rated == 0 {
		return 0
	}
	return p.RatingSum / float64(p.Rated)
}

// ComboKey 把类型名列表转为规范组合 key：小写、排序后以 '+' 连接。
// 所有需要组合匹配的调用点都经过这一个函数，避免各处各写一份。
func ComboKey(genres []string) string {
	lowered := make([]string, 0, len(genres))
	for _, g := range genres {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(g)))
	}
	sort.Strings(lowered)
	return strings.Join(lowered, "+")
}
