package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carecall-platform/internal/sessions"

	"github.com/sashabaranov/go-openai"
)

// CounsellorPrompt steers the assistant during a care call.
const CounsellorPrompt = `당신은 사용자의 이야기를 들어주고 공감하며, 가끔은 조언을 해주는 AI 상담가 입니다.
대화의 전체 맥락을 파악하고, 사용자와 더 깊은 대화를 할 수 있도록 유도한다.
너무 말은 딱딱하게 하지 말고 부드럽게 답변해줘.
답변은 항상 한국어로, 두문장에서 세문장 정도로 대답하며 상황에 따라 공감하고 조언을 할 수도 있고 그에 대한 질문도 던질 수 있어.`

var ErrEmptyCompletion = errors.New("completion: model returned no content")

// chatAPI is the slice of the OpenAI client we use.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint (proxies, compatible servers).
	BaseURL string
}

// Client asks an OpenAI chat model for the next line of a conversation.
type Client struct {
	api   chatAPI
	model string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("completion: api key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{api: openai.NewClientWithConfig(oc), model: model}, nil
}

// Complete returns the assistant's next line for transcript.
// System turns in the transcript are bookkeeping and are not sent.
func (c *Client) Complete(ctx context.Context, transcript []sessions.Turn) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(transcript)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: CounsellorPrompt})
	for _, t := range transcript {
		switch t.Speaker {
		case sessions.SpeakerAssistant:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.Message})
		case sessions.SpeakerUser:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Message})
		}
	}
	return c.Ask(ctx, msgs)
}

// Prompt sends a single user message under a custom system prompt.
func (c *Client) Prompt(ctx context.Context, systemPrompt, user string) (string, error) {
	return c.Ask(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: user},
	})
}

func (c *Client) Ask(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("completion: chat request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}
