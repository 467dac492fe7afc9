package core

import (
	"context"
	"time"
)

// FeatureFeedback 是由反馈学习环维护的持久化特征计数。
//
// 生命周期：首次触及某特征的反馈事件创建该行，此后只自增，从不删除；
// 每次画像构建时整体读出并折入权重。
type FeatureFeedback struct {
	UserID        string
	Type          FeatureType
	FeatureID     string
	Name          string
	PositiveCount int64
	NegativeCount int64
}

// InferredPreference 返回 Laplace 平滑的偏好概率：(pos+1)/(pos+neg+2)。
// 不变式：严格落在 (0,1)，且固定 NegativeCount 时随 PositiveCount 单调不减。
func (f *FeatureFeedback) InferredPreference() float64 {
	return float64(f.PositiveCount+1) / float64(f.PositiveCount+f.NegativeCount+2)
}

// PairwiseObservation 是一条 "A 胜 B" 的原始成对观测。
// append-only，从不做破坏性聚合，留给离线分析。
type PairwiseObservation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	WinnerID      string    `json:"winner_id"`
	LoserID       string    `json:"loser_id"`
	SharedReasons []string  `json:"shared_reasons,omitempty"`
	At            time.Time `json:"at"`
}

// FeedbackStore 是特征反馈计数的领域接口。
//
// Incr 要求原子自增语义：并发对同一 (user, type, featureID) 的更新不得丢失。
type FeedbackStore interface {
	// Get 读取单个特征的计数；不存在时返回 IsNotFound 为真的错误
	Get(ctx context.Context, userID string, ft FeatureType, featureID string) (*FeatureFeedback, error)

	// List 读取用户的全部特征计数（画像构建时整体折入）
	List(ctx context.Context, userID string) ([]*FeatureFeedback, error)

	// Incr 原子地对计数自增（posDelta / negDelta 均可为 0）
	Incr(ctx context.Context, userID string, ft FeatureType, featureID, name string, posDelta, negDelta int64) error

	// AppendPairwise 追加一条成对原始观测
	AppendPairwise(ctx context.Context, obs *PairwiseObservation) error
}
