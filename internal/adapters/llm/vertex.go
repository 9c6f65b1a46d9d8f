package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type VertexClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
	maxTokens   int32
}

// VertexConfig holds what NewVertexClient needs.
type VertexConfig struct {
	ProjectID   string
	Location    string
	ModelName   string
	Temperature float64
	MaxTokens   int
}

// NewVertexClient creates a Completer based on Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex project and location must be set")
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:      client,
		modelName:   modelName,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

func (v *VertexClient) Provider() string { return "vertex" }

func (v *VertexClient) Model() string { return v.modelName }

// Complete implements Completer using Vertex AI.
func (v *VertexClient) Complete(ctx context.Context, p Prompt) (string, error) {
	temp := v.temperature
	if p.Temperature != nil {
		temp = float32(*p.Temperature)
	}

	cfg := &genai.GenerateContentConfig{
		// The SDK examples pass the system instruction with the user role.
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   v.maxTokens,
	}

	contents := []*genai.Content{genai.NewContentFromText(p.User, genai.RoleUser)}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	return res.Text(), nil
}
