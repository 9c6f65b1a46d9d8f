package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lindalindashu/novel-agent/internal/domain"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

// Completer sends one prompt to a provider and returns its text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Provider() string
	Model() string
}

// Generator implements domain.LLMClient on top of any Completer.
type Generator struct {
	completer Completer
	now       func() time.Time
}

var _ domain.LLMClient = (*Generator)(nil)

func NewGenerator(c Completer) *Generator {
	return &Generator{completer: c, now: time.Now}
}

// WithClock replaces the clock used for date headings.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// GenerateDiary implements domain.LLMClient.
func (g *Generator) GenerateDiary(ctx context.Context, req domain.DiaryRequest) (domain.Generation, error) {
	text, err := g.complete(ctx, BuildDiaryPrompt(req))
	if err != nil {
		return domain.Generation{}, err
	}

	return domain.Generation{
		Text:     EnsureDateHeading(text, g.now()),
		Provider: g.completer.Provider(),
		Model:    g.completer.Model(),
	}, nil
}

// ExtractEntities implements domain.LLMClient.
func (g *Generator) ExtractEntities(ctx context.Context, text string) (*domain.Extraction, error) {
	raw, err := g.complete(ctx, BuildExtractionPrompt(text))
	if err != nil {
		return nil, err
	}
	return ParseExtraction(raw), nil
}

func (g *Generator) complete(ctx context.Context, p Prompt) (string, error) {
	start := time.Now()
	text, err := g.completer.Complete(ctx, p)
	observability.RecordLLMCall(g.completer.Provider(), time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %s complete: %w", domain.ErrProvider, g.completer.Provider(), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrEmptyGeneration
	}
	return text, nil
}

// ParseExtraction decodes the model's JSON answer, tolerating markdown code
// fences. Output that is not JSON is kept in Raw only.
func ParseExtraction(raw string) *domain.Extraction {
	out := &domain.Extraction{Raw: raw}

	body := strings.TrimSpace(raw)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}

	var parsed domain.Extraction
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return out
	}

	out.Entities = parsed.Entities
	out.Events = parsed.Events
	out.Emotions = parsed.Emotions
	return out
}
