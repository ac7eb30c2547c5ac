package analysis

import (
	"context"
	"fmt"
	"time"

	"carecall-platform/pkg/logger"
)

const summaryPrompt = `당신은 대화 요약 전문가입니다.
주어진 대화 내용을 분석하여, 전체 맥락을 포괄하는 핵심적인 내용으로 한줄의 짧은 문장으로 요약해주세요.
반드시 한국어로 요약해야 합니다. 최대 글자수 제한은 30자 입니다.`

// Fixed answers when there is nothing to send to the model.
const (
	NoRecentCallsSummary  = "최근 7일간의 대화 기록이 없습니다."
	NoConversationSummary = "분석할 대화 내용이 없습니다."
)

// Summarizer condenses a member's last Window of conversation into one line.
type Summarizer struct {
	calls CallSource
	model Classifier
	clock func() time.Time
}

func NewSummarizer(src CallSource, model Classifier) *Summarizer {
	return &Summarizer{calls: src, model: model, clock: time.Now}
}

// Summarize covers calls requested in [now-Window, now]. Members without
// calls, or whose transcripts are all unreadable, get a fixed line and the
// model is not asked.
func (s *Summarizer) Summarize(ctx context.Context, memberID string) (string, error) {
	if memberID == "" {
		return "", fmt.Errorf("analysis: summarize: empty member id")
	}
	log := logger.From(ctx).With("member_id", memberID)

	now := s.clock()
	recs, err := s.calls.ListByMemberBetween(ctx, memberID, now.Add(-Window), now)
	if err != nil {
		return "", fmt.Errorf("analysis: list calls: %w", err)
	}
	if len(recs) == 0 {
		assistCounter.WithLabelValues("summary", "no_calls").Inc()
		return NoRecentCallsSummary, nil
	}

	convo := aggregate(recs, func(id string, err error) {
		log.Warn("skipping unreadable transcript", "call_record_id", id, "err", err)
	})
	if convo == "" {
		assistCounter.WithLabelValues("summary", "no_conversation").Inc()
		return NoConversationSummary, nil
	}

	out, err := s.model.Prompt(ctx, summaryPrompt, convo)
	if err != nil {
		assistCounter.WithLabelValues("summary", "model_error").Inc()
		return "", fmt.Errorf("analysis: summarize: %w", err)
	}
	assistCounter.WithLabelValues("summary", "ok").Inc()
	return out, nil
}
