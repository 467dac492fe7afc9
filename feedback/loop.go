package feedback

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cinerank/cinerank/core"
)

// 口味问答的候选答案
const (
	AnswerLove    = "love"
	AnswerLike    = "like"
	AnswerNeutral = "neutral"
	AnswerDislike = "dislike"
	AnswerHate    = "hate"
)

// 各类事件对计数的增量。点赞/点踩比隐式历史信号重，强烈反馈再加一档。
const (
	thumbDelta    = 2
	strongDelta   = 3
	pairwiseDelta = 2
)

// Worker 消费反馈事件并更新持久化的特征计数。
//
// 失败语义：单条事件处理失败 Nack 等待重投；影片元数据缺失视为
// 不可恢复（重投也不会有），Ack 后丢弃。
type Worker struct {
	Subscriber message.Subscriber
	Metadata   core.MetadataProvider
	Store      core.FeedbackStore
	Logger     zerolog.Logger
}

// Run 阻塞消费直到 ctx 取消或订阅通道关闭。
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.Subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := w.handle(ctx, msg); err != nil {
				w.Logger.Warn().Str("msg", msg.UUID).Err(err).
					Msg("feedback event failed, will retry")
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *message.Message) error {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		// 格式坏掉的消息重投也救不回来，打日志后当作处理成功
		w.Logger.Error().Str("msg", msg.UUID).Err(err).Msg("malformed feedback event")
		return nil
	}

	switch env.Kind {
	case KindThumb:
		var ev ThumbEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil
		}
		return w.applyThumb(ctx, ev)
	case KindQuiz:
		var ev QuizEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil
		}
		return w.applyQuiz(ctx, ev)
	case KindPairwise:
		var ev PairwiseEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil
		}
		return w.applyPairwise(ctx, ev)
	default:
		w.Logger.Warn().Str("kind", env.Kind).Msg("unknown feedback event kind")
		return nil
	}
}

func (w *Worker) applyThumb(ctx context.Context, ev ThumbEvent) error {
	refs, err := w.featuresOf(ctx, ev.ItemID)
	if err != nil || refs == nil {
		return err
	}

	delta := int64(thumbDelta)
	if ev.Strong {
		delta = strongDelta
	}

	// 带原因的反馈只落到被点名的特征：
	// "不喜欢是因为太血腥"不该惩罚整部片的导演和年代。
	if ev.Reason != "" {
		ref, ok := MatchReason(refs, ev.Reason)
		if !ok {
			w.Logger.Debug().Str("item", ev.ItemID).Str("reason", ev.Reason).
				Msg("thumb reason matched no feature, dropping")
			return nil
		}
		refs = []core.FeatureRef{ref}
	}

	return w.incrAll(ctx, ev.UserID, refs, ev.Up, delta)
}

func (w *Worker) applyQuiz(ctx context.Context, ev QuizEvent) error {
	refs, err := w.featuresOf(ctx, ev.ItemID)
	if err != nil || refs == nil {
		return err
	}

	var pos, neg int64
	switch ev.Answer {
	case AnswerLove:
		pos, neg = 3, 0
	case AnswerLike:
		pos, neg = 2, 0
	case AnswerNeutral:
		pos, neg = 1, 1
	case AnswerDislike:
		pos, neg = 0, 2
	case AnswerHate:
		pos, neg = 0, 3
	default:
		return nil
	}

	for _, ref := range refs {
		if err := w.Store.Incr(ctx, ev.UserID, ref.Type, ref.ID, ref.Name, pos, neg); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) applyPairwise(ctx context.Context, ev PairwiseEvent) error {
	winRefs, err := w.featuresOf(ctx, ev.WinnerID)
	if err != nil {
		return err
	}
	loseRefs, err := w.featuresOf(ctx, ev.LoserID)
	if err != nil {
		return err
	}

	if err := w.incrAll(ctx, ev.UserID, winRefs, true, pairwiseDelta); err != nil {
		return err
	}
	if err := w.incrAll(ctx, ev.UserID, loseRefs, false, pairwiseDelta); err != nil {
		return err
	}

	// 原始观测 append-only 落库，留给离线分析
	return w.Store.AppendPairwise(ctx, &core.PairwiseObservation{
		ID:            uuid.NewString(),
		UserID:        ev.UserID,
		WinnerID:      ev.WinnerID,
		LoserID:       ev.LoserID,
		SharedReasons: ev.SharedReasons,
		At:            time.Now(),
	})
}

// featuresOf 拉取影片元数据并抽取特征。
// 元数据缺失返回 (nil, nil)：该事件无处落地，调用方应丢弃而非重试。
func (w *Worker) featuresOf(ctx context.Context, itemID string) ([]core.FeatureRef, error) {
	d, err := w.Metadata.GetItemDetails(ctx, itemID)
	if err != nil {
		if core.IsNotFound(err) {
			w.Logger.Debug().Str("item", itemID).Msg("no metadata for feedback event")
			return nil, nil
		}
		return nil, err
	}
	return ExtractFeatures(d), nil
}

func (w *Worker) incrAll(
	ctx context.Context,
	userID string,
	refs []core.FeatureRef,
	positive bool,
	delta int64,
) error {
	for _, ref := range refs {
		var pos, neg int64
		if positive {
			pos = delta
		} else {
			neg = delta
		}
		if err := w.Store.Incr(ctx, userID, ref.Type, ref.ID, ref.Name, pos, neg); err != nil {
			return err
		}
	}
	return nil
}
