package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// answerClient runs grounded answer completions against the OpenAI chat API.
// One request, one non-streaming completion; the first choice's text is
// returned verbatim.
type answerClient struct {
	api   *openai.Client
	model string
}

func NewOpenAIClient(opts Options) Client {
	cfg := openai.DefaultConfig(opts.OpenAIAPIKey)
	if opts.OpenAIBaseURL != "" {
		cfg.BaseURL = opts.OpenAIBaseURL
	}
	return &answerClient{api: openai.NewClientWithConfig(cfg), model: opts.Model}
}

func (c *answerClient) Generate(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion came back with no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		converted[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	return converted
}

var _ Client = (*answerClient)(nil)
