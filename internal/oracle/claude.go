package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"github.com/sentryfeed/sentryfeed/internal/resilience/circuitbreaker"
	"github.com/sentryfeed/sentryfeed/internal/resilience/retry"
)

// ClaudeProvider implements Provider over Anthropic's API, reusing the
// teacher's circuit-breaker + retry wrapping (internal/infra/summarizer
// .Claude) around a single free-form Complete call instead of a
// fixed-shape Summarize call.
type ClaudeProvider struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
	maxTokens      int
	timeout        time.Duration
}

// NewClaudeProvider builds a ClaudeProvider for the given API key and
// model name (config.AppConfig.OracleModel).
func NewClaudeProvider(apiKey, model string) *ClaudeProvider {
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	return &ClaudeProvider{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          model,
		maxTokens:      2048,
		timeout:        60 * time.Second,
	}
}

// Complete sends one system+user prompt pair through the circuit breaker
// and retry wrapper, returning the first text block of the response.
func (c *ClaudeProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userPrompt = clampPrompt(userPrompt)

	var result string
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doComplete(ctx, systemPrompt, userPrompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("oracle circuit breaker open, request rejected",
					slog.String("provider", "claude"), slog.String("state", c.circuitBreaker.State().String()))
				return &ErrOracleUnavailable{Provider: "claude", Cause: err}
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("claude oracle completion failed: %w", retryErr)
	}
	return result, nil
}

func (c *ClaudeProvider) doComplete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}
	return textBlock.Text, nil
}
