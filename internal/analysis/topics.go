package analysis

import (
	"context"
	"strings"

	"carecall-platform/pkg/logger"
)

const topicsPrompt = `당신은 대화 주제를 추천하는 AI입니다.
사용자가 흥미를 느낄만한 일상적인 대화 주제 3개를 추천해주세요.
각 주제는 '주요 키워드: 세부 주제' 형식으로 한 줄씩 작성해야 합니다.

세부 주제 같은 경우 최소 10자 최대 15자로 제한 해야해.

주요 키워드 예시: 음악, 여행, 운동, 독서, 패션, 반려동물

출력예시:
가족: 최근에 가족과 있었던 재미있는 일
커리어: 현재 직무에서 느끼는 만족감과 어려움
여행: 지금까지 갔던 여행 중 가장 기억에 남는 곳`

const topicsRequest = "대화 주제 3개를 추천해주세요."

// Topic is one suggested conversation opener.
type Topic struct {
	MainKeyword string `json:"main_keyword"`
	SubTopic    string `json:"sub_topic"`
}

// DefaultTopics is served when the model fails or returns nothing usable.
func DefaultTopics() []Topic {
	return []Topic{
		{MainKeyword: "뉴스", SubTopic: "오늘의 주요 기사"},
		{MainKeyword: "건강", SubTopic: "가벼운 스트레칭"},
		{MainKeyword: "가족", SubTopic: "자녀 출산 고민"},
	}
}

type TopicRecommender struct {
	model Classifier
}

func NewTopicRecommender(model Classifier) *TopicRecommender {
	return &TopicRecommender{model: model}
}

// Recommend never fails; errors fall back to DefaultTopics.
func (r *TopicRecommender) Recommend(ctx context.Context) []Topic {
	out, err := r.model.Prompt(ctx, topicsPrompt, topicsRequest)
	if err != nil {
		logger.From(ctx).Warn("topic recommendation failed, using defaults", "err", err)
		assistCounter.WithLabelValues("topics", "model_error").Inc()
		return DefaultTopics()
	}
	topics := parseTopics(out)
	if len(topics) == 0 {
		assistCounter.WithLabelValues("topics", "unparsed").Inc()
		return DefaultTopics()
	}
	assistCounter.WithLabelValues("topics", "ok").Inc()
	return topics
}

// parseTopics reads "keyword: subtopic" lines, splitting on the first colon.
func parseTopics(s string) []Topic {
	var out []Topic
	for _, line := range strings.Split(s, "\n") {
		key, sub, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key, sub = strings.TrimSpace(key), strings.TrimSpace(sub)
		if key == "" || sub == "" {
			continue
		}
		out = append(out, Topic{MainKeyword: key, SubTopic: sub})
	}
	return out
}
