package feedback

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cinerank/cinerank/core"
)

// Bus 把反馈事件发布到消息总线。
//
// 发布是 fire-and-forget：推荐请求路径不等待计数落库，
// 发布失败只打日志（丢一次点赞不值得让请求失败）。
type Bus struct {
	Publisher message.Publisher
	Logger    zerolog.Logger
}

// SubmitThumb 发布一条点赞/点踩事件。
func (b *Bus) SubmitThumb(ev ThumbEvent) error {
	return b.publish(KindThumb, ev, ev.UserID)
}

// SubmitQuiz 发布一条口味问答事件。
func (b *Bus) SubmitQuiz(ev QuizEvent) error {
	if !validQuizAnswer(ev.Answer) {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput,
			"unknown quiz answer: "+ev.Answer)
	}
	return b.publish(KindQuiz, ev, ev.UserID)
}

// SubmitPairwise 发布一条二选一比较事件。
func (b *Bus) SubmitPairwise(ev PairwiseEvent) error {
	if ev.WinnerID == ev.LoserID {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput,
			"pairwise winner and loser are the same item")
	}
	return b.publish(KindPairwise, ev, ev.UserID)
}

func (b *Bus) publish(kind string, payload any, userID string) error {
	raw, err := wrap(kind, payload)
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.NewString(), raw)
	msg.Metadata.Set("kind", kind)
	msg.Metadata.Set("user_id", userID)

	if err := b.Publisher.Publish(Topic, msg); err != nil {
		b.Logger.Warn().Str("kind", kind).Str("user", userID).Err(err).
			Msg("feedback publish failed")
		return err
	}
	return nil
}

func validQuizAnswer(answer string) bool {
	switch answer {
	case AnswerLove, AnswerLike, AnswerNeutral, AnswerDislike, AnswerHate:
		return true
	}
	return false
}
