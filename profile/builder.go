// Package profile 由观影历史 + 显式反馈计数构建口味画像。
// 画像每次从头推导，不持久化；唯一持久化的输入是反馈学习环维护的
// FeatureFeedback 计数。
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cinerank/cinerank/core"
	"github.com/cinerank/cinerank/pattern"
)

// Builder 是口味画像构建器。
type Builder struct {
	Metadata core.MetadataProvider
	Feedback core.FeedbackStore // 可为 nil：没有显式反馈时只按历史构建
	Detector *pattern.Detector  // 为 nil 时使用内置分类法

	// Workers 元数据拉取 worker 数；<=0 取 4
	Workers int

	// Pace 两次元数据调用间的节拍（尊重外部速率限制）；<=0 表示不限速
	Pace time.Duration

	// TopN 每种特征类型保留的 Top 数；<=0 取 20
	TopN int

	// NegativeSampleCap 负向累计的采样上限（约束构建成本）；<=0 取 25
	NegativeSampleCap int

	Logger zerolog.Logger
}

// 负向特征进回避集合所需的最小出现次数：
// 一部烂片不足以把它的类型打入回避。
const avoidMinOccur = 2

// 显式反馈折入的偏好阈值
const (
	feedbackBoostThreshold = 0.65
	feedbackAvoidThreshold = 0.35
)

// Build 构建用户口味画像。
//
// 失败语义：单部影片元数据缺失只是跳过，画像由成功的子集构建；
// 历史为空时返回空画像而非错误（冷启动是合法状态）。
func (b *Builder) Build(
	ctx context.Context,
	userID string,
	history []core.WatchedMovie,
	watchlist []string,
) (*core.TasteProfile, error) {
	p := core.NewTasteProfile(userID)

	// 观影 + 片单一次性水合，共享同一个 worker 池
	ids := make([]string, 0, len(history)+len(watchlist))
	for _, w := range history {
		ids = append(ids, w.ItemID)
	}
	ids = append(ids, watchlist...)

	var limiter *rate.Limiter
	if b.Pace > 0 {
		limiter = rate.NewLimiter(rate.Every(b.Pace), 1)
	}
	details := HydrateDetails(ctx, b.Metadata, ids, b.Workers, limiter, b.Logger)

	watched := make(map[string]bool, len(history))
	samples := make([]pattern.FilmSample, 0, len(history))
	negatives := make([]pattern.FilmSample, 0)

	runtimeSum, runtimeWeight := 0.0, 0.0
	negCap := b.NegativeSampleCap
	if negCap <= 0 {
		negCap = 25
	}

	for _, w := range history {
		watched[w.ItemID] = true
		if !w.HasSignal() {
			// 零信号：整条跳过，不稀释权重
			continue
		}
		d, ok := details[w.ItemID]
		if !ok {
			continue
		}

		fw := FilmWeight(w)
		sample := pattern.FilmSample{Movie: w, Details: d, Weight: fw}
		samples = append(samples, sample)
		p.FilmCount++

		if w.IsNegative() {
			if len(negatives) < negCap {
				negatives = append(negatives, sample)
			}
			continue
		}

		// 正向累计
		for _, g := range d.Genres {
			addWeight(p.GenreWeights, g.Name, fw)
		}
		for _, kw := range d.Keywords {
			addWeight(p.KeywordWeights, kw.Name, fw)
		}
		for _, dir := range d.Directors {
			addWeight(p.DirectorWeights, dir.Name, fw)
		}
		cast := d.Cast
		if len(cast) > topCastCount {
			cast = cast[:topCastCount]
		}
		for _, actor := range cast {
			addWeight(p.ActorWeights, actor.Name, fw*castMultiplier)
		}
		if decade := d.Decade(); decade != "" {
			addWeight(p.DecadeWeights, decade, fw)
		}
		if d.Language != "" {
			addWeight(p.LanguageWeights, d.Language, fw)
		}
		if d.Runtime > 0 {
			runtimeSum += float64(d.Runtime) * fw
			runtimeWeight += fw
		}
	}

	if runtimeWeight > 0 {
		p.PreferredRuntime = runtimeSum / runtimeWeight
	}

	b.accumulateNegatives(p, negatives)
	b.accumulateWatchlist(p, watchlist, watched, details)

	detector := b.Detector
	if detector == nil {
		detector = pattern.NewDetector(nil)
	}
	p.Subgenres = detector.BuildSubgenres(samples)
	p.CrossGenres = detector.BuildCrossGenres(samples)

	if err := b.foldFeedback(ctx, p); err != nil {
		// 反馈计数读不出来不致命：画像退化为纯历史画像
		b.Logger.Warn().Str("user", userID).Err(err).Msg("feedback fold-in failed")
	}

	topN := b.TopN
	if topN <= 0 {
		topN = 20
	}
	p.RebuildTop(topN)
	p.BuiltAt = time.Now()

	b.Logger.Debug().
		Str("user", userID).
		Int("films", p.FilmCount).
		Int("genres", len(p.GenreWeights)).
		Int("subgenre_patterns", len(p.Subgenres)).
		Msg("taste profile built")
	return p, nil
}

// accumulateNegatives 把负向样本的类型/标签/组合按出现次数计入回避集合。
func (b *Builder) accumulateNegatives(p *core.TasteProfile, negatives []pattern.FilmSample) {
	genreCount := make(map[string]int)
	keywordCount := make(map[string]int)
	comboCount := make(map[string]int)

	for _, s := range negatives {
		for _, g := range s.Details.Genres {
			genreCount[strings.ToLower(g.Name)]++
		}
		for _, kw := range s.Details.Keywords {
			keywordCount[strings.ToLower(kw.Name)]++
		}
		if genres := s.Details.GenreNames(); len(genres) >= 2 {
			comboCount[core.ComboKey(genres)]++
		}
	}

	for g, c := range genreCount {
		if c >= avoidMinOccur {
			p.AvoidGenres[g] = true
		}
	}
	for kw, c := range keywordCount {
		if c >= avoidMinOccur {
			p.AvoidKeywords[kw] = true
		}
	}
	for combo, c := range comboCount {
		if c >= avoidMinOccur {
			p.AvoidCombos[combo] = true
		}
	}
}

// accumulateWatchlist 把未看的片单条目计入意向计数：
// 发现型候选向用户声明的意向加权，而不只看过去行为。
func (b *Builder) accumulateWatchlist(
	p *core.TasteProfile,
	watchlist []string,
	watched map[string]bool,
	details map[string]*core.MovieDetails,
) {
	for _, id := range watchlist {
		if watched[id] {
			continue
		}
		d, ok := details[id]
		if !ok {
			continue
		}
		for _, g := range d.Genres {
			addWeight(p.WatchlistGenres, g.Name, 1)
		}
		for _, kw := range d.Keywords {
			addWeight(p.WatchlistKeywords, kw.Name, 1)
		}
		for _, dir := range d.Directors {
			addWeight(p.WatchlistDirectors, dir.Name, 1)
		}
	}
}

// foldFeedback 把持久化的显式反馈计数折入画像：
// 高偏好特征加权，低偏好的类型/标签进回避集合。
func (b *Builder) foldFeedback(ctx context.Context, p *core.TasteProfile) error {
	if b.Feedback == nil {
		return nil
	}
	rows, err := b.Feedback.List(ctx, p.UserID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		pref := row.InferredPreference()
		name := row.Name
		if name == "" {
			name = row.FeatureID
		}

		if pref >= feedbackBoostThreshold {
			// 偏好 0.5 为中性，越高加权越多
			boost := (pref - 0.5) * 4
			switch row.Type {
			case core.FeatureGenre:
				addWeight(p.GenreWeights, name, boost)
			case core.FeatureKeyword:
				addWeight(p.KeywordWeights, name, boost)
			case core.FeatureActor:
				addWeight(p.ActorWeights, name, boost)
			case core.FeatureDirector:
				addWeight(p.DirectorWeights, name, boost)
			case core.FeatureDecade:
				addWeight(p.DecadeWeights, name, boost)
			case core.FeatureLanguage:
				addWeight(p.LanguageWeights, name, boost)
			}
			continue
		}

		if pref <= feedbackAvoidThreshold {
			switch row.Type {
			case core.FeatureGenre:
				p.AvoidGenres[strings.ToLower(name)] = true
			case core.FeatureKeyword:
				p.AvoidKeywords[strings.ToLower(name)] = true
			}
		}
	}
	return nil
}

func addWeight(m map[string]float64, name string, w float64) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || w == 0 {
		return
	}
	m[name] += w
}
