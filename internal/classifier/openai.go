package classifier

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/deusflow/newscurator/internal/ratelimit"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIModel generates text with the OpenAI chat completions API.
type OpenAIModel struct {
	client  *openai.Client
	model   string
	limiter *ratelimit.Limiter
}

// NewOpenAIModel creates a model client. baseURL may be empty.
func NewOpenAIModel(apiKey, model, baseURL string, limiter *ratelimit.Limiter) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg), model: model, limiter: limiter}
}

func (o *OpenAIModel) Name() string { return "openai:" + o.model }

func (o *OpenAIModel) Generate(ctx context.Context, prompt string) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
