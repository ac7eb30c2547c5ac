package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"carecall-platform/internal/calls"
	"carecall-platform/internal/sessions"
	"carecall-platform/pkg/logger"
)

// Window is how far back from the anchor transcripts are considered.
const Window = 7 * 24 * time.Hour

const statusPrompt = `당신은 사용자의 통화 대화를 분석하여 현재 심리 상태를 "안전", "주의", "확인 필요" 중 하나의 태그로 분류하는 전문가입니다.
대화는 사용자(User)와 AI의 상호작용으로 구성됩니다.
각 상태 태그의 기준은 다음과 같습니다:
- "안전": 사용자가 긍정적이거나 안정적인 감정을 표현하며, 특별한 우려 사항이 감지되지 않습니다. 일상적인 대화가 주를 이룹니다.
- "주의": 사용자가 약간의 외로움, 스트레스, 불안감, 또는 가벼운 부정적인 감정을 표현합니다. 직접적인 위험은 없지만 지속적인 관심이 필요해 보입니다.
- "확인 필요": 사용자가 심각한 우울감, 극심한 외로움, 자살 암시, 무기력감, 또는 기타 즉각적인 개입이나 확인이 필요한 심각한 심리적 어려움을 표현합니다.

분석 결과는 오직 다음 세 가지 단어 중 하나로만 응답해야 합니다: "안전", "주의", "확인 필요".
다른 어떤 추가적인 설명이나 문장 없이 오직 상태 태그 단어 하나만 출력해주세요.`

const statusRequestPrefix = "다음 대화를 분석하여 사용자의 심리 상태를 판단해주세요:\n"

var modelTags = map[string]Tag{
	"안전":    TagSafe,
	"주의":    TagCaution,
	"확인 필요": TagNeedsCheck,
}

// Classifier answers a single prompt under a system prompt.
type Classifier interface {
	Prompt(ctx context.Context, systemPrompt, user string) (string, error)
}

// CallSource lists a member's calls in a time range.
type CallSource interface {
	ListByMemberBetween(ctx context.Context, memberID string, from, to time.Time) ([]calls.CallRecord, error)
}

// StatusAnalyzer tags a member from the transcripts of their recent calls.
type StatusAnalyzer struct {
	calls      CallSource
	classifier Classifier
	statuses   StatusRepository
	clock      func() time.Time
}

func NewStatusAnalyzer(src CallSource, classifier Classifier, statuses StatusRepository) *StatusAnalyzer {
	return &StatusAnalyzer{calls: src, classifier: classifier, statuses: statuses, clock: time.Now}
}

// Analyze classifies memberID over [anchor-Window, anchor] and stores the tag.
// With no usable transcripts the member is safe; an answer outside the
// known tags becomes needs_check. A classifier failure keeps the previous tag.
func (a *StatusAnalyzer) Analyze(ctx context.Context, memberID string, anchor time.Time) error {
	log := logger.From(ctx).With("member_id", memberID)

	recs, err := a.calls.ListByMemberBetween(ctx, memberID, anchor.Add(-Window), anchor)
	if err != nil {
		return fmt.Errorf("analysis: list calls: %w", err)
	}

	convo := aggregate(recs, func(id string, err error) {
		log.Warn("skipping unreadable transcript", "call_record_id", id, "err", err)
	})
	if convo == "" {
		log.Info("no recent conversation, marking safe")
		return a.store(ctx, memberID, TagSafe)
	}

	answer, err := a.classifier.Prompt(ctx, statusPrompt, statusRequestPrefix+convo)
	if err != nil {
		analysisCounter.WithLabelValues("classifier_error").Inc()
		return fmt.Errorf("analysis: classify: %w", err)
	}
	tag, ok := ParseModelTag(answer)
	if !ok {
		log.Warn("unexpected status answer, defaulting to needs_check", "answer", answer)
	}
	return a.store(ctx, memberID, tag)
}

func (a *StatusAnalyzer) store(ctx context.Context, memberID string, tag Tag) error {
	if err := a.statuses.Upsert(ctx, MemberStatus{MemberID: memberID, Tag: tag, AnalyzedAt: a.clock().UTC()}); err != nil {
		analysisCounter.WithLabelValues("store_error").Inc()
		return err
	}
	analysisCounter.WithLabelValues(string(tag)).Inc()
	logger.From(ctx).Info("member status updated", "member_id", memberID, "status_tag", tag)
	return nil
}

// ParseModelTag maps the model's answer to a Tag. Unknown answers map to
// TagNeedsCheck with ok=false.
func ParseModelTag(answer string) (Tag, bool) {
	answer = strings.Trim(strings.TrimSpace(answer), `"'.`)
	if tag, ok := modelTags[answer]; ok {
		return tag, true
	}
	return TagNeedsCheck, false
}

// aggregate renders every readable transcript as "Speaker: message" lines.
func aggregate(recs []calls.CallRecord, onBad func(id string, err error)) string {
	var b strings.Builder
	for _, rec := range recs {
		if rec.Transcript == nil || *rec.Transcript == "" {
			continue
		}
		var turns []sessions.Turn
		if err := json.Unmarshal([]byte(*rec.Transcript), &turns); err != nil {
			onBad(rec.ID, err)
			continue
		}
		for _, t := range turns {
			b.WriteString(string(t.Speaker))
			b.WriteString(": ")
			b.WriteString(t.Message)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
