package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is an offline Completer for local development and tests.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Provider() string { return "mock" }

func (m *MockLLM) Model() string { return "mock" }

func (m *MockLLM) Complete(ctx context.Context, p Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if strings.HasPrefix(p.User, "Extract information from this text:") {
		return `{"entities": [], "events": [], "emotions": []}`, nil
	}

	if strings.HasPrefix(p.User, "Original input: ") {
		return fmt.Sprintf("Dear diary, let me try that again.\n\n%s", p.User), nil
	}
	return fmt.Sprintf("Dear diary, today went like this: %s", p.User), nil
}
