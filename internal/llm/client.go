package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"pmcbot/internal/contextutil"
)

// Client generates answers through an OpenAI-compatible chat completions API.
type Client struct {
	BaseURL string
	Params  ChatParams
	client  openai.Client
}

// NewClient creates a new LLM client. baseURL includes the API version
// prefix, e.g. https://api.openai.com/v1. An empty apiKey is allowed for
// local servers.
func NewClient(baseURL, apiKey string, params ChatParams, opts ...option.RequestOption) *Client {
	return &Client{
		BaseURL: baseURL,
		Params:  params,
		client:  openai.NewClient(requestOptions(baseURL, apiKey, opts)...),
	}
}

// requestOptions disables the SDK's retries; a failed call surfaces at once.
// extra is applied last and may turn them back on.
func requestOptions(baseURL, apiKey string, extra []option.RequestOption) []option.RequestOption {
	opts := make([]option.RequestOption, 0, len(extra)+3)
	opts = append(opts, option.WithMaxRetries(0))
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return append(opts, extra...)
}

// Generate sends the prompt as a single user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if c.Params.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(c.Params.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.Params.Model),
		Messages:    messages,
		Temperature: openai.Float(c.Params.Temperature),
	}
	if c.Params.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.Params.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			logger.ErrorContext(ctx, "chat completion rejected", "status", apiErr.StatusCode, "model", c.Params.Model)
			return "", fmt.Errorf("bad status %d from chat completions", apiErr.StatusCode)
		}
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	logger.DebugContext(ctx, "chat completion received",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return resp.Choices[0].Message.Content, nil
}
