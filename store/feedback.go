package store

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cinerank/cinerank/core"
)

// FeedbackStore 是 core.FeedbackStore 在 KeyValueStore 上的实现。
//
// 存储布局：
//   - 计数 Hash:  ff:{user}       field "{type}:{id}:pos" / "{type}:{id}:neg"
//   - 名称 Hash:  ff:names:{user} field "{type}:{id}" -> 展示名
//   - 成对日志:   ff:pairwise:{user} append-only JSON 列表
//
// Incr 走 HIncrBy，原子性由后端保证（Redis 原生命令 / 内存锁内读改写）。
type FeedbackStore struct {
	KV core.KeyValueStore
}

func NewFeedbackStore(kv core.KeyValueStore) *FeedbackStore {
	return &FeedbackStore{KV: kv}
}

func feedbackKey(userID string) string  { return "ff:" + userID }
func namesKey(userID string) string     { return "ff:names:" + userID }
func pairwiseKey(userID string) string  { return "ff:pairwise:" + userID }
func fieldOf(ft core.FeatureType, featureID, suffix string) string {
	return string(ft) + ":" + featureID + ":" + suffix
}

func (s *FeedbackStore) Get(ctx context.Context, userID string, ft core.FeatureType, featureID string) (*core.FeatureFeedback, error) {
	all, err := s.KV.HGetAll(ctx, feedbackKey(userID))
	if err != nil {
		return nil, err
	}
	pos, okPos := parseCount(all[fieldOf(ft, featureID, "pos")])
	neg, okNeg := parseCount(all[fieldOf(ft, featureID, "neg")])
	if !okPos && !okNeg {
		return nil, core.ErrStoreNotFound
	}

	name := featureID
	if raw, err := s.KV.HGet(ctx, namesKey(userID), string(ft)+":"+featureID); err == nil {
		name = string(raw)
	}
	return &core.FeatureFeedback{
		UserID:        userID,
		Type:          ft,
		FeatureID:     featureID,
		Name:          name,
		PositiveCount: pos,
		NegativeCount: neg,
	}, nil
}

func (s *FeedbackStore) List(ctx context.Context, userID string) ([]*core.FeatureFeedback, error) {
	all, err := s.KV.HGetAll(ctx, feedbackKey(userID))
	if err != nil {
		return nil, err
	}
	names, err := s.KV.HGetAll(ctx, namesKey(userID))
	if err != nil {
		names = map[string][]byte{}
	}

	byFeature := make(map[string]*core.FeatureFeedback)
	order := make([]string, 0)
	for field, raw := range all {
		ft, featureID, suffix, ok := parseField(field)
		if !ok {
			continue
		}
		cnt, ok := parseCount(raw)
		if !ok {
			continue
		}
		fk := string(ft) + ":" + featureID
		row, exists := byFeature[fk]
		if !exists {
			name := featureID
			if n, ok := names[fk]; ok {
				name = string(n)
			}
			row = &core.FeatureFeedback{
				UserID:    userID,
				Type:      ft,
				FeatureID: featureID,
				Name:      name,
			}
			byFeature[fk] = row
			order = append(order, fk)
		}
		if suffix == "pos" {
			row.PositiveCount = cnt
		} else {
			row.NegativeCount = cnt
		}
	}

	out := make([]*core.FeatureFeedback, 0, len(order))
	for _, fk := range order {
		out = append(out, byFeature[fk])
	}
	return out, nil
}

func (s *FeedbackStore) Incr(ctx context.Context, userID string, ft core.FeatureType, featureID, name string, posDelta, negDelta int64) error {
	key := feedbackKey(userID)
	if posDelta != 0 {
		if _, err := s.KV.HIncrBy(ctx, key, fieldOf(ft, featureID, "pos"), posDelta); err != nil {
			return err
		}
	}
	if negDelta != 0 {
		if _, err := s.KV.HIncrBy(ctx, key, fieldOf(ft, featureID, "neg"), negDelta); err != nil {
			return err
		}
	}
	if name != "" {
		// 名称只是展示用途，写失败不影响计数
		_ = s.KV.HSet(ctx, namesKey(userID), string(ft)+":"+featureID, []byte(name))
	}
	return nil
}

func (s *FeedbackStore) AppendPairwise(ctx context.Context, obs *core.PairwiseObservation) error {
	raw, err := json.Marshal(obs)
	if err != nil {
		return err
	}
	return s.KV.RPush(ctx, pairwiseKey(obs.UserID), raw)
}

// ListPairwise 读取用户的全部成对原始观测（离线分析用）。
func (s *FeedbackStore) ListPairwise(ctx context.Context, userID string) ([]*core.PairwiseObservation, error) {
	rows, err := s.KV.LRange(ctx, pairwiseKey(userID), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]*core.PairwiseObservation, 0, len(rows))
	for _, raw := range rows {
		var obs core.PairwiseObservation
		if err := json.Unmarshal(raw, &obs); err != nil {
			continue
		}
		out = append(out, &obs)
	}
	return out, nil
}

// parseField 解析 "{type}:{id}:pos|neg"；id 自身可含 ':'。
func parseField(field string) (core.FeatureType, string, string, bool) {
	first := strings.Index(field, ":")
	last := strings.LastIndex(field, ":")
	if first < 0 || last <= first {
		return "", "", "", false
	}
	suffix := field[last+1:]
	if suffix != "pos" && suffix != "neg" {
		return "", "", "", false
	}
	return core.FeatureType(field[:first]), field[first+1 : last], suffix, true
}

func parseCount(raw []byte) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var _ core.FeedbackStore = (*FeedbackStore)(nil)
