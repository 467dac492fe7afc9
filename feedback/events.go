// Package feedback 实现显式反馈的学习环。
//
// 事件经消息总线异步投递：推荐请求路径上只做一次发布（fire-and-forget），
// 计数更新由独立 worker 消费完成。特征词汇与画像构建共用同一套抽取逻辑，
// 保证"反馈针对的特征"与"画像累计的特征"一一对应。
package feedback

import (
	"encoding/json"
	"time"
)

// Topic 是反馈事件的总线主题。
const Topic = "feedback.events"

// 事件种类
const (
	KindThumb    = "thumb"
	KindQuiz     = "quiz"
	KindPairwise = "pairwise"
)

// ThumbEvent 是对一条推荐结果的点赞/点踩。
// Reason 非空时反馈只落到匹配的特征上（"不喜欢是因为太血腥"），
// 格式为 "type:name"（如 "keyword:gore"）；为空时落到影片的全部特征。
type ThumbEvent struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	Up     bool   `json:"up"`
	Strong bool   `json:"strong,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// QuizEvent 是口味问答的一次作答。
// Answer 取 love / like / neutral / dislike / hate。
type QuizEvent struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	Answer string `json:"answer"`
}

// PairwiseEvent 是"二选一"比较的结果。
type PairwiseEvent struct {
	UserID        string   `json:"user_id"`
	WinnerID      string   `json:"winner_id"`
	LoserID       string   `json:"loser_id"`
	SharedReasons []string `json:"shared_reasons,omitempty"`
}

// envelope 是总线上的统一信封：Kind 决定 Payload 的解法。
type envelope struct {
	Kind    string          `json:"kind"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

func wrap(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: kind, At: time.Now(), Payload: raw})
}
