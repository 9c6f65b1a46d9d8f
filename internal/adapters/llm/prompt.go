package llm

import (
	"strings"
	"time"

	"github.com/lindalindashu/novel-agent/internal/domain"
)

const diarySystemPrompt = `You are a talented ghostwriter that transforms casual conversations and notes
into beautiful, literary diary entries. Transform the user's input into a diary-style narrative
that is emotionally resonant, well-written, and captures the essence of what they're describing.
Write in first person as if it's a diary entry. Start with the date in this format: **[Date]**`

const extractionSystemPrompt = `You are an expert at extracting key information from conversations.
Extract and return a JSON object with the following structure:
{
  "entities": [{"name": "...", "type": "person|place|thing", "role": "..."}],
  "events": [{"action": "...", "time": "...", "significance": "high|medium|low"}],
  "emotions": [{"feeling": "...", "intensity": "1-10", "trigger": "..."}]
}`

const (
	contextHeader = "PREVIOUS ENTRIES (for narrative continuity):"
	separator     = "---"

	// headingWindow is how far into the text a ** date heading may start.
	headingWindow = 20

	extractionTemperature = 0.3
)

// Prompt represents the system prompt + the content to send as "user".
type Prompt struct {
	System string
	User   string

	// Temperature overrides the completer default when non-nil.
	Temperature *float64
}

// BuildDiaryPrompt builds the system prompt (with narrative context from
// previous entries) and the user content (input, plus feedback when refining).
func BuildDiaryPrompt(req domain.DiaryRequest) Prompt {
	system := diarySystemPrompt
	if ctx := buildContext(req.Previous); ctx != "" {
		system += "\n\n" + ctx
	}

	user := req.UserInput
	if strings.TrimSpace(req.Feedback) != "" {
		var b strings.Builder
		b.WriteString("Original input: ")
		b.WriteString(req.UserInput)
		b.WriteString("\n\nUser feedback on previous version: ")
		b.WriteString(req.Feedback)
		b.WriteString("\n\nPlease regenerate the diary entry addressing this feedback.")
		user = b.String()
	}

	return Prompt{System: system, User: user}
}

// BuildExtractionPrompt asks for the who/what/how of text as JSON.
func BuildExtractionPrompt(text string) Prompt {
	t := extractionTemperature
	return Prompt{
		System:      extractionSystemPrompt,
		User:        "Extract information from this text:\n\n" + text,
		Temperature: &t,
	}
}

// buildContext lists previous diaries oldest first. previous is newest first.
func buildContext(previous []*domain.Entry) string {
	if len(previous) == 0 {
		return ""
	}

	parts := []string{contextHeader}
	for i := len(previous) - 1; i >= 0; i-- {
		if previous[i] == nil {
			continue
		}
		parts = append(parts, separator, previous[i].Diary)
	}
	parts = append(parts, separator)

	return strings.Join(parts, "\n")
}

// EnsureDateHeading prefixes text with a bold "Month D, YYYY" heading unless
// one already starts within the first few characters.
func EnsureDateHeading(text string, now time.Time) string {
	head := text
	if r := []rune(text); len(r) > headingWindow {
		head = string(r[:headingWindow])
	}
	if strings.Contains(head, "**") {
		return text
	}
	return "**" + now.Format("January 02, 2006") + "**\n\n" + text
}
