package feedback

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/cinerank/cinerank/core"
)

type incrKey struct {
	ft core.FeatureType
	id string
}

type recordingStore struct {
	pos      map[incrKey]int64
	neg      map[incrKey]int64
	pairwise []*core.PairwiseObservation
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		pos: make(map[incrKey]int64),
		neg: make(map[incrKey]int64),
	}
}

func (s *recordingStore) Get(context.Context, string, core.FeatureType, string) (*core.FeatureFeedback, error) {
	return nil, core.ErrStoreNotFound
}

func (s *recordingStore) List(context.Context, string) ([]*core.FeatureFeedback, error) {
	return nil, nil
}

func (s *recordingStore) Incr(_ context.Context, _ string, ft core.FeatureType, featureID, _ string, posDelta, negDelta int64) error {
	k := incrKey{ft, featureID}
	s.pos[k] += posDelta
	s.neg[k] += negDelta
	return nil
}

func (s *recordingStore) AppendPairwise(_ context.Context, obs *core.PairwiseObservation) error {
	s.pairwise = append(s.pairwise, obs)
	return nil
}

type singleProvider core.MovieDetails

func (p *singleProvider) GetItemDetails(_ context.Context, id string) (*core.MovieDetails, error) {
	if id != p.ID {
		return nil, core.ErrMetadataNotFound
	}
	return (*core.MovieDetails)(p), nil
}

func testWorker(store *recordingStore) *Worker {
	md := &singleProvider{
		ID:     "m1",
		Genres: []core.Genre{{ID: "27", Name: "Horror"}},
		Keywords: []core.Keyword{
			{ID: "12377", Name: "zombie"},
			{Name: "gore"},
		},
		Directors: []core.Person{{ID: "d1", Name: "Carpenter"}},
	}
	return &Worker{Metadata: md, Store: store}
}

func event(t *testing.T, kind string, payload any) *message.Message {
	t.Helper()
	raw, err := wrap(kind, payload)
	if err != nil {
		t.Fatal(err)
	}
	return message.NewMessage("test", raw)
}

func TestThumbUpdatesAllFeatures(t *testing.T) {
	store := newRecordingStore()
	w := testWorker(store)

	msg := event(t, KindThumb, ThumbEvent{UserID: "u", ItemID: "m1", Up: true})
	if err := w.handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	// 类型 + 两个标签 + 导演全都 +2
	for _, k := range []incrKey{
		{core.FeatureGenre, "27"},
		{core.FeatureKeyword, "12377"},
		{core.FeatureKeyword, "gore"},
		{core.FeatureDirector, "d1"},
	} {
		if store.pos[k] != 2 {
			t.Errorf("pos[%v] = %d, want 2", k, store.pos[k])
		}
		if store.neg[k] != 0 {
			t.Errorf("neg[%v] = %d, want 0", k, store.neg[k])
		}
	}
}

func TestStrongThumbDelta(t *testing.T) {
	store := newRecordingStore()
	w := testWorker(store)

	msg := event(t, KindThumb, ThumbEvent{UserID: "u", ItemID: "m1", Up: false, Strong: true})
	if err := w.handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	k := incrKey{core.FeatureGenre, "27"}
	if store.neg[k] != 3 {
		t.Errorf("neg = %d, want 3 for strong thumb", store.neg[k])
	}
}

func TestTargetedThumbOnlyHitsNamedFeature(t *testing.T) {
	store := newRecordingStore()
	w := testWorker(store)

	msg := event(t, KindThumb, ThumbEvent{UserID: "u", ItemID: "m1", Up: false, Reason: "keyword:gore"})
	if err := w.handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	if got := store.neg[incrKey{core.FeatureKeyword, "gore"}]; got != 2 {
		t.Errorf("targeted neg = %d, want 2", got)
	}
	// 其余特征不动："不喜欢是因为太血腥"不惩罚导演
	if got := store.neg[incrKey{core.FeatureDirector, "d1"}]; got != 0 {
		t.Errorf("director neg = %d, want 0", got)
	}
	if got := store.neg[incrKey{core.FeatureGenre, "27"}]; got != 0 {
		t.Errorf("genre neg = %d, want 0", got)
	}
}

func TestQuizAnswerDeltas(t *testing.T) {
	tests := []struct {
		answer  string
		wantPos int64
		wantNeg int64
	}{
		{answer: AnswerLove, wantPos: 3, wantNeg: 0},
		{answer: AnswerLike, wantPos: 2, wantNeg: 0},
		{answer: AnswerNeutral, wantPos: 1, wantNeg: 1},
		{answer: AnswerDislike, wantPos: 0, wantNeg: 2},
		{answer: AnswerHate, wantPos: 0, wantNeg: 3},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			store := newRecordingStore()
			w := testWorker(store)
			msg := event(t, KindQuiz, QuizEvent{UserID: "u", ItemID: "m1", Answer: tt.answer})
			if err := w.handle(context.Background(), msg); err != nil {
				t.Fatal(err)
			}
			k := incrKey{core.FeatureGenre, "27"}
			if store.pos[k] != tt.wantPos || store.neg[k] != tt.wantNeg {
				t.Errorf("%s: (%d, %d), want (%d, %d)",
					tt.answer, store.pos[k], store.neg[k], tt.wantPos, tt.wantNeg)
			}
		})
	}
}

func TestPairwiseAppendsRawObservation(t *testing.T) {
	store := newRecordingStore()
	w := testWorker(store)

	msg := event(t, KindPairwise, PairwiseEvent{
		UserID: "u", WinnerID: "m1", LoserID: "m2", SharedReasons: []string{"genre:horror"},
	})
	if err := w.handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	// 胜者特征 +2（败者 m2 无元数据，计数无处落地）
	if got := store.pos[incrKey{core.FeatureGenre, "27"}]; got != 2 {
		t.Errorf("winner pos = %d, want 2", got)
	}
	// 原始观测必须落库
	if len(store.pairwise) != 1 {
		t.Fatalf("pairwise log len = %d, want 1", len(store.pairwise))
	}
	obs := store.pairwise[0]
	if obs.WinnerID != "m1" || obs.LoserID != "m2" || obs.ID == "" {
		t.Errorf("observation = %+v", obs)
	}
}

func TestMissingMetadataDropsEvent(t *testing.T) {
	store := newRecordingStore()
	w := testWorker(store)

	msg := event(t, KindThumb, ThumbEvent{UserID: "u", ItemID: "unknown", Up: true})
	if err := w.handle(context.Background(), msg); err != nil {
		t.Fatalf("missing metadata should be dropped, got %v", err)
	}
	if len(store.pos) != 0 {
		t.Errorf("counts updated for unknown item: %v", store.pos)
	}
}

func TestMalformedPayloadAcked(t *testing.T) {
	store := newRecordingStore()
	w := testWorker(store)
	msg := message.NewMessage("bad", []byte("{not json"))
	if err := w.handle(context.Background(), msg); err != nil {
		t.Fatalf("malformed payload should not error (no point retrying), got %v", err)
	}
}

// Laplace 平滑偏好的不变式：严格落在 (0,1)，且固定负例时随正例单调不减。
func TestInferredPreferenceInvariants(t *testing.T) {
	cases := []core.FeatureFeedback{
		{PositiveCount: 0, NegativeCount: 0},
		{PositiveCount: 1, NegativeCount: 0},
		{PositiveCount: 0, NegativeCount: 100},
		{PositiveCount: 1000, NegativeCount: 0},
	}
	for _, f := range cases {
		p := f.InferredPreference()
		if p <= 0 || p >= 1 {
			t.Errorf("pref(%d, %d) = %v, want in (0,1)", f.PositiveCount, f.NegativeCount, p)
		}
	}

	prev := 0.0
	for pos := int64(0); pos <= 50; pos++ {
		f := core.FeatureFeedback{PositiveCount: pos, NegativeCount: 10}
		p := f.InferredPreference()
		if p < prev {
			t.Fatalf("pref not monotone at pos=%d: %v < %v", pos, p, prev)
		}
		prev = p
	}

	neutral := core.FeatureFeedback{PositiveCount: 0, NegativeCount: 0}
	if got := neutral.InferredPreference(); got != 0.5 {
		t.Errorf("pref(0,0) = %v, want 0.5", got)
	}
}

func TestExtractFeaturesSharedVocabulary(t *testing.T) {
	d := &core.MovieDetails{
		ID:       "m",
		Genres:   []core.Genre{{ID: "27", Name: "Horror"}},
		Keywords: []core.Keyword{{Name: "Gore"}}, // 无权威标识 → 小写名称兜底
		Language: "en",
	}
	refs := ExtractFeatures(d)

	var gotGore bool
	for _, r := range refs {
		if r.Type == core.FeatureKeyword && r.ID == "gore" {
			gotGore = true
		}
	}
	if !gotGore {
		t.Errorf("refs = %v, want keyword id fallback to lowercase name", refs)
	}
	if ExtractFeatures(nil) != nil {
		t.Error("nil details should give nil refs")
	}
}

func TestMatchReason(t *testing.T) {
	refs := []core.FeatureRef{
		{Type: core.FeatureGenre, ID: "27", Name: "Horror"},
		{Type: core.FeatureKeyword, ID: "gore", Name: "gore"},
	}
	if ref, ok := MatchReason(refs, "genre:horror"); !ok || ref.ID != "27" {
		t.Errorf("MatchReason genre:horror = (%v, %v)", ref, ok)
	}
	if _, ok := MatchReason(refs, "actor:nobody"); ok {
		t.Error("unexpected match for absent feature")
	}
	if _, ok := MatchReason(refs, "malformed"); ok {
		t.Error("unexpected match for reason without separator")
	}
}
