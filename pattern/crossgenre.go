package pattern

import (
	"strings"

	"github.com/cinerank/cinerank/core"
)

// minComboWatched 是跨类型加成生效的最小样本量：单点数据不产生加成。
const minComboWatched = 3

// maxComboGenres 是组合大小上限。
const maxComboGenres = 3

// maxComboExamples 是每个组合保留的示例片名上限。
const maxComboExamples = 3

// BuildCrossGenres 由观影样本重建跨类型画像。
// 只消费喜欢 / >=3 星的历史：跨类型画像刻画的是正向亲和，不做回避推断。
func (d *Detector) BuildCrossGenres(samples []FilmSample) map[string]*core.CrossGenrePattern {
	patterns := make(map[string]*core.CrossGenrePattern)

	for _, s := range samples {
		if s.Details == nil {
			continue
		}
		if !s.Movie.Liked && s.Movie.Rating < 3 {
			continue
		}
		genres := s.Details.GenreNames()
		if len(genres) < 2 {
			// 单类型影片没有"组合"可言
			continue
		}

		combo := comboOf(genres)
		key := core.ComboKey(combo)
		p, ok := patterns[key]
		if !ok {
			p = &core.CrossGenrePattern{
				Combo:    combo,
				Keywords: make(map[string]bool),
			}
			patterns[key] = p
		}

		p.Watched++
		if s.Liked() {
			p.Liked++
		}
		if s.Movie.Rating > 0 {
			p.RatingSum += s.Movie.Rating
			p.Rated++
		}
		p.Weight += s.Weight
		for _, kw := range s.Details.Keywords {
			if kw.Name != "" {
				p.Keywords[strings.ToLower(kw.Name)] = true
			}
		}
		if len(p.Examples) < maxComboExamples && s.Details.Title != "" {
			p.Examples = append(p.Examples, s.Details.Title)
		}
	}
	return patterns
}

// CrossGenreBoost 计算一个候选对某跨类型画像的连续加成。
//
// 只有画像样本量达到 minComboWatched、且候选包含组合的全部类型时才生效：
//   boost = (weight / watched) × (1 + matchedKeywordCount × 0.2)
func CrossGenreBoost(p *core.CrossGenrePattern, genres []string, keywords []string) float64 {
	if p == nil || p.Watched < minComboWatched {
		return 0
	}

	has := make(map[string]bool, len(genres))
	for _, g := range genres {
		has[strings.ToLower(g)] = true
	}
	for _, g := range p.Combo {
		if !has[g] {
			return 0
		}
	}

	matched := 0
	for _, kw := range keywords {
		if p.Keywords[strings.ToLower(kw)] {
			matched++
		}
	}
	return (p.Weight / float64(p.Watched)) * (1 + float64(matched)*0.2)
}

// comboOf 取排序后的前 maxComboGenres 个类型名（小写）作为组合。
func comboOf(genres []string) []string {
	lowered := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g != "" {
			lowered = append(lowered, g)
		}
	}
	for i := 1; i < len(lowered); i++ {
		for j := i; j > 0 && lowered[j] < lowered[j-1]; j-- {
			lowered[j], lowered[j-1] = lowered[j-1], lowered[j]
		}
	}
	if len(lowered) > maxComboGenres {
		lowered = lowered[:maxComboGenres]
	}
	return lowered
}
