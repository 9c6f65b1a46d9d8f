package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model name is configured.
const DefaultAnthropicModel = "claude-opus-4-1-20250805"

// AnthropicClient is a Completer backed by the Claude Messages API.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
}

type AnthropicConfig struct {
	APIKey      string
	ModelName   string
	Temperature float64
	MaxTokens   int
}

func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key must be set")
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	model := cfg.ModelName
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (a *AnthropicClient) Provider() string { return "anthropic" }

func (a *AnthropicClient) Model() string { return a.model }

// Complete implements Completer. Text blocks of the reply are concatenated.
func (a *AnthropicClient) Complete(ctx context.Context, p Prompt) (string, error) {
	temp := a.temperature
	if p.Temperature != nil {
		temp = *p.Temperature
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(temp),
		System:      []anthropic.TextBlockParam{{Text: p.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
