package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/STRATINT/replybot/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 60 * time.Second

// OpenAIClient wraps the OpenAI chat completion API for single-turn generation.
type OpenAIClient struct {
	client  *openai.Client
	config  config.OpenAIConfig
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAIClient creates a generation client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	return newOpenAIClient(openai.DefaultConfig(cfg.APIKey), cfg, logger)
}

// NewOpenAIClientWithBaseURL targets an OpenAI compatible endpoint.
func NewOpenAIClientWithBaseURL(cfg config.OpenAIConfig, baseURL string, logger *slog.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	return newOpenAIClient(clientCfg, cfg, logger)
}

func newOpenAIClient(clientCfg openai.ClientConfig, cfg config.OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		config:  cfg,
		timeout: defaultTimeout,
		logger:  logger,
	}
}

// GenerateText runs one completion with the configured model, temperature
// and token ceiling. An empty completion is returned as "" with no error.
func (c *OpenAIClient) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	apiCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Reasoning models (o1, o3, o4, gpt-5) reject temperature and system messages.
	model := strings.ToLower(c.config.Model)
	isReasoningModel := strings.Contains(model, "o1") ||
		strings.Contains(model, "o3") ||
		strings.Contains(model, "o4") ||
		strings.Contains(model, "gpt-5")

	var request openai.ChatCompletionRequest
	if isReasoningModel {
		request = openai.ChatCompletionRequest{
			Model: c.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: systemPrompt + "\n\n" + userPrompt,
				},
			},
		}
	} else {
		request = openai.ChatCompletionRequest{
			Model:       c.config.Model,
			Temperature: c.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
		}
	}
	if c.config.MaxTokens > 0 {
		request.MaxCompletionTokens = c.config.MaxTokens
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(apiCtx, request)
	if err != nil {
		return "", fmt.Errorf("openai api call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn("openai returned no choices", "model", c.config.Model)
		return "", nil
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("openai generate text response",
		"model", c.config.Model,
		"content_length", len(content),
		"finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
		"latency_ms", time.Since(start).Milliseconds(),
		"is_reasoning_model", isReasoningModel)

	return content, nil
}
