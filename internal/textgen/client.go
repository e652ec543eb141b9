package textgen

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/conjurecontent/backend/pkg/config"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
)

// Client generates story text through the OpenAI chat completion API.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a text-generation client from configuration.
func NewClient(cfg config.OpenAIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	model := cfg.ChatModel
	if model == "" {
		model = openai.GPT4o
	}
	return &Client{
		api:   openai.NewClient(cfg.APIKey),
		model: model,
	}, nil
}

// Ask sends the prompt as a single user message and returns the raw model
// text, which may wrap the requested JSON in prose.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", errors.New("prompt is required")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
