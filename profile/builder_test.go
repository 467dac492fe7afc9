package profile

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinerank/cinerank/core"
)

type mapProvider map[string]*core.MovieDetails

func (p mapProvider) GetItemDetails(_ context.Context, id string) (*core.MovieDetails, error) {
	d, ok := p[id]
	if !ok {
		return nil, core.ErrMetadataNotFound
	}
	return d, nil
}

func movie(id string, genres []string, keywords []string) *core.MovieDetails {
	d := &core.MovieDetails{
		ID:          id,
		Title:       "T" + id,
		Runtime:     100,
		Language:    "en",
		ReleaseDate: time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, g := range genres {
		d.Genres = append(d.Genres, core.Genre{Name: g})
	}
	for _, kw := range keywords {
		d.Keywords = append(d.Keywords, core.Keyword{Name: kw})
	}
	return d
}

func TestFilmWeight(t *testing.T) {
	tests := []struct {
		name string
		w    core.WatchedMovie
		want float64
	}{
		{name: "zero signal", w: core.WatchedMovie{}, want: 0},
		{name: "five stars", w: core.WatchedMovie{Rating: 5}, want: 3.0},
		{name: "four and a half", w: core.WatchedMovie{Rating: 4.5}, want: 3.0},
		{name: "four stars", w: core.WatchedMovie{Rating: 4}, want: 2.5},
		{name: "three stars", w: core.WatchedMovie{Rating: 3}, want: 1.5},
		{name: "half star", w: core.WatchedMovie{Rating: 0.5}, want: 0.5},
		{name: "liked only", w: core.WatchedMovie{Liked: true}, want: 1.5 * 1.6},
		{name: "liked four stars", w: core.WatchedMovie{Rating: 4, Liked: true}, want: 2.5 * 1.6},
		{name: "rewatch", w: core.WatchedMovie{Rating: 4, Rewatch: true}, want: 2.5 * 1.2},
		{name: "liked rewatch", w: core.WatchedMovie{Rating: 4, Liked: true, Rewatch: true}, want: 2.5 * 1.6 * 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilmWeight(tt.w); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FilmWeight(%+v) = %v, want %v", tt.w, got, tt.want)
			}
		})
	}
}

// 同评分档下 liked 的权重严格更高。
func TestFilmWeightLikedStrictlyHigher(t *testing.T) {
	for _, rating := range []float64{0.5, 1, 2, 2.5, 3, 3.5, 4, 4.5, 5} {
		plain := FilmWeight(core.WatchedMovie{Rating: rating})
		liked := FilmWeight(core.WatchedMovie{Rating: rating, Liked: true})
		if liked <= plain {
			t.Errorf("rating %v: liked weight %v <= plain %v", rating, liked, plain)
		}
	}
}

func TestBuildSkipsZeroSignalAndMisses(t *testing.T) {
	md := mapProvider{
		"1": movie("1", []string{"Horror"}, []string{"zombie"}),
		"2": movie("2", []string{"Comedy"}, nil),
		// "3" 元数据缺失
	}
	b := &Builder{Metadata: md}

	history := []core.WatchedMovie{
		{ItemID: "1", Rating: 5},
		{ItemID: "2"},            // 零信号：整条跳过
		{ItemID: "3", Rating: 4}, // 元数据缺失：跳过
	}
	p, err := b.Build(context.Background(), "u", history, nil)
	if err != nil {
		t.Fatal(err)
	}

	if p.FilmCount != 1 {
		t.Errorf("FilmCount = %d, want 1", p.FilmCount)
	}
	if p.GenreWeight("horror") != 3.0 {
		t.Errorf("horror weight = %v, want 3.0", p.GenreWeight("horror"))
	}
	if p.GenreWeight("comedy") != 0 {
		t.Errorf("comedy weight = %v, want 0 (zero-signal film)", p.GenreWeight("comedy"))
	}
}

func TestBuildNegativeSetsNeedTwoOccurrences(t *testing.T) {
	md := mapProvider{
		"1": movie("1", []string{"Musical"}, []string{"singing"}),
		"2": movie("2", []string{"Musical"}, []string{"dancing"}),
		"3": movie("3", []string{"Western"}, nil),
	}
	b := &Builder{Metadata: md}

	history := []core.WatchedMovie{
		{ItemID: "1", Rating: 1},
		{ItemID: "2", Rating: 1.5},
		{ItemID: "3", Rating: 1}, // western 只出现一次
	}
	p, err := b.Build(context.Background(), "u", history, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !p.IsAvoidedGenre("Musical") {
		t.Error("musical not avoided after two negative films")
	}
	if p.IsAvoidedGenre("Western") {
		t.Error("western avoided after a single negative film")
	}
	// 负向影片不贡献正向权重
	if p.GenreWeight("musical") != 0 {
		t.Errorf("musical positive weight = %v, want 0", p.GenreWeight("musical"))
	}
}

func TestBuildWatchlistIntent(t *testing.T) {
	md := mapProvider{
		"1": movie("1", []string{"Horror"}, nil),
		"w": movie("w", []string{"Western"}, []string{"desert"}),
	}
	b := &Builder{Metadata: md}

	history := []core.WatchedMovie{{ItemID: "1", Rating: 4}}
	p, err := b.Build(context.Background(), "u", history, []string{"w", "1"})
	if err != nil {
		t.Fatal(err)
	}

	if p.WatchlistGenres["western"] != 1 {
		t.Errorf("watchlist western = %v, want 1", p.WatchlistGenres["western"])
	}
	// 已看的片单条目不计入意向
	if p.WatchlistGenres["horror"] != 0 {
		t.Errorf("watchlist horror = %v, want 0", p.WatchlistGenres["horror"])
	}
	// 片单意向不混入正向类型权重
	if p.GenreWeight("western") != 0 {
		t.Errorf("western positive weight = %v, want 0", p.GenreWeight("western"))
	}
}

type stubFeedback struct {
	rows []*core.FeatureFeedback
}

func (s *stubFeedback) Get(context.Context, string, core.FeatureType, string) (*core.FeatureFeedback, error) {
	return nil, core.ErrStoreNotFound
}
func (s *stubFeedback) List(context.Context, string) ([]*core.FeatureFeedback, error) {
	return s.rows, nil
}
func (s *stubFeedback) Incr(context.Context, string, core.FeatureType, string, string, int64, int64) error {
	return nil
}
func (s *stubFeedback) AppendPairwise(context.Context, *core.PairwiseObservation) error {
	return nil
}

func TestBuildFoldsFeedback(t *testing.T) {
	md := mapProvider{"1": movie("1", []string{"Horror"}, nil)}
	fb := &stubFeedback{rows: []*core.FeatureFeedback{
		{Type: core.FeatureGenre, FeatureID: "horror", Name: "Horror", PositiveCount: 8, NegativeCount: 0},  // pref 0.9 → boost
		{Type: core.FeatureKeyword, FeatureID: "gore", Name: "gore", PositiveCount: 0, NegativeCount: 8},    // pref 0.1 → avoid
		{Type: core.FeatureGenre, FeatureID: "comedy", Name: "Comedy", PositiveCount: 1, NegativeCount: 1},  // pref 0.5 → 无动作
	}}
	b := &Builder{Metadata: md, Feedback: fb}

	history := []core.WatchedMovie{{ItemID: "1", Rating: 4}}
	p, err := b.Build(context.Background(), "u", history, nil)
	if err != nil {
		t.Fatal(err)
	}

	// 2.5（历史）+ (0.9-0.5)×4 = 4.1
	if got := p.GenreWeight("horror"); math.Abs(got-4.1) > 1e-9 {
		t.Errorf("horror weight = %v, want 4.1", got)
	}
	if !p.AvoidKeywords["gore"] {
		t.Error("gore not avoided from negative feedback")
	}
	if p.GenreWeight("comedy") != 0 {
		t.Errorf("comedy weight = %v, want 0", p.GenreWeight("comedy"))
	}
	if p.AvoidGenres["comedy"] {
		t.Error("comedy avoided at neutral preference")
	}
}

func TestBuildEmptyHistory(t *testing.T) {
	b := &Builder{Metadata: mapProvider{}}
	p, err := b.Build(context.Background(), "u", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.FilmCount != 0 || len(p.GenreWeights) != 0 {
		t.Errorf("cold start profile not empty: %+v", p)
	}
}

func TestHydrateDetailsSkipsMisses(t *testing.T) {
	md := mapProvider{
		"1": movie("1", []string{"Horror"}, nil),
		"2": movie("2", []string{"Comedy"}, nil),
	}
	out := HydrateDetails(context.Background(), md, []string{"1", "2", "missing", "1"}, 2, nil, zerolog.Nop())
	if len(out) != 2 {
		t.Fatalf("got %d details, want 2", len(out))
	}
	if out["1"] == nil || out["2"] == nil {
		t.Errorf("missing hydrated entries: %v", out)
	}
}
