package pattern

import (
	"sort"
	"strings"

	"github.com/cinerank/cinerank/core"
)

// 分类阈值：刻意不对称、保守。缺少数据绝不会被判为回避。
const (
	minAvoidWatched  = 10   // avoided 的最小观影样本量
	avoidLikeRatio   = 0.2  // 喜欢比例低于该值才可能 avoided
	preferWatchRatio = 0.15 // preferred 要求的父类型内观影占比
	preferLikeRatio  = 0.6  // preferred 要求的喜欢比例
)

// FilmSample 是画像构建与子类型检测共用的单片样本。
type FilmSample struct {
	Movie   core.WatchedMovie
	Details *core.MovieDetails
	Weight  float64 // 由评分/喜欢推导的单片权重
}

// Liked 报告该样本是否算作"喜欢"（liked 标记或 >=3.5 星）。
func (s FilmSample) Liked() bool {
	return s.Movie.Liked || s.Movie.Rating >= 3.5
}

// Detector 在规范分类法上做子类型 / 跨类型检测。
type Detector struct {
	Taxonomy *Taxonomy
}

func NewDetector(t *Taxonomy) *Detector {
	if t == nil {
		t = DefaultTaxonomy()
	}
	return &Detector{Taxonomy: t}
}

// FilmSubgenres 返回一部影片逐父类型命中的子类型 key（每个父类型内去重）。
// 这是唯一的匹配入口：检测与打分都经过它，不存在第二份匹配逻辑。
func (d *Detector) FilmSubgenres(details *core.MovieDetails) map[string][]string {
	if details == nil {
		return nil
	}
	out := make(map[string][]string)
	for _, g := range details.Genres {
		parent := strings.ToLower(g.Name)
		seen := make(map[string]bool)
		for _, kw := range details.Keywords {
			key, ok := d.Taxonomy.MatchKeyword(g.Name, kw.ID, kw.Name)
			if !ok || seen[key] {
				continue
			}
			seen[key] = true
			out[parent] = append(out[parent], key)
		}
	}
	return out
}

// BuildSubgenres 由观影样本重建逐父类型的子类型画像。
// 每次画像构建从头重建，不做增量。
func (d *Detector) BuildSubgenres(samples []FilmSample) map[string]*core.SubgenrePattern {
	patterns := make(map[string]*core.SubgenrePattern)
	parentWatched := make(map[string]int)

	for _, s := range samples {
		if s.Details == nil {
			continue
		}
		matched := d.FilmSubgenres(s.Details)
		for _, g := range s.Details.Genres {
			parent := strings.ToLower(g.Name)
			parentWatched[parent]++

			subs := matched[parent]
			if len(subs) == 0 {
				continue
			}
			p, ok := patterns[parent]
			if !ok {
				p = &core.SubgenrePattern{
					ParentGenre: parent,
					Stats:       make(map[string]*core.SubgenreStat),
				}
				patterns[parent] = p
			}
			for _, key := range subs {
				st, ok := p.Stats[key]
				if !ok {
					st = &core.SubgenreStat{}
					p.Stats[key] = st
				}
				st.Watched++
				if s.Liked() {
					st.Liked++
				}
				if s.Movie.Rating > 0 {
					st.RatingSum += s.Movie.Rating
					st.Rated++
				}
				st.Weight += s.Weight
			}
		}
	}

	for parent, p := range patterns {
		total := parentWatched[parent]
		for key, st := range p.Stats {
			// avoided：样本量门槛在先，稀有子类型不会仅因没看过而被回避
			if st.Watched >= minAvoidWatched && st.LikeRatio() < avoidLikeRatio {
				p.Avoided = append(p.Avoided, key)
				continue
			}
			if total > 0 &&
				float64(st.Watched)/float64(total) >= preferWatchRatio &&
				st.LikeRatio() >= preferLikeRatio {
				p.Preferred = append(p.Preferred, key)
			}
		}
		sort.Strings(p.Avoided)
		sort.Strings(p.Preferred)
	}
	return patterns
}
