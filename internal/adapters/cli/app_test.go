package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindalindashu/novel-agent/internal/adapters/llm"
	"github.com/lindalindashu/novel-agent/internal/adapters/storage/memory"
	"github.com/lindalindashu/novel-agent/internal/app/diary"
	"github.com/lindalindashu/novel-agent/internal/domain"
)

func newDiaryService() *diary.Service {
	return diary.NewService(llm.NewGenerator(llm.NewMockLLM()), memory.NewEntryStore(), memory.NewUserStore())
}

type harness struct {
	app    *App
	svc    Service
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T, svc Service, input string) *harness {
	t.Helper()
	h := &harness{svc: svc, out: new(bytes.Buffer), errOut: new(bytes.Buffer)}
	h.app = NewApp(svc, strings.NewReader(input), h.out, h.errOut, Options{})
	return h
}

func (h *harness) entries(t *testing.T) []*domain.Entry {
	t.Helper()
	list, err := h.svc.List(context.Background(), domain.ListEntriesInput{})
	require.NoError(t, err)
	return list
}

func seed(t *testing.T, svc Service, inputs ...string) {
	t.Helper()
	for _, in := range inputs {
		_, err := svc.Create(context.Background(), domain.CreateEntryInput{Input: in})
		require.NoError(t, err)
	}
}

// flakyRefine fails the first refinement and then behaves normally.
type flakyRefine struct {
	Service
	failed bool
}

func (f *flakyRefine) Refine(ctx context.Context, in domain.RefineEntryInput) (*domain.Entry, error) {
	if !f.failed {
		f.failed = true
		return nil, errors.New("provider timeout")
	}
	return f.Service.Refine(ctx, in)
}

func TestWrite_AcceptFirstDraft(t *testing.T) {
	h := newHarness(t, newDiaryService(), "walked the dog\nin the rain\nEND\nyes\n")

	require.NoError(t, h.app.Write(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Enter your notes")
	assert.Contains(t, out, "---\nDear diary")
	assert.Contains(t, out, "[OK] Entry #1 saved to your chronicle!")

	list := h.entries(t)
	require.Len(t, list, 1)
	assert.Equal(t, "walked the dog\nin the rain", list[0].RawInput)
}

func TestWrite_FeedbackRefinesInPlace(t *testing.T) {
	h := newHarness(t, newDiaryService(), "notes\nend\nmake it sadder\ny\n")

	require.NoError(t, h.app.Write(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Regenerating...")
	assert.Contains(t, out, "let me try that again")
	assert.Contains(t, out, "Entry #1 saved")

	list := h.entries(t)
	require.Len(t, list, 1)
	assert.Equal(t, domain.EntryID(1), list[0].ID)
	assert.Equal(t, "make it sadder", list[0].Metadata["last_feedback"])
}

func TestWrite_NoAsksForChange(t *testing.T) {
	h := newHarness(t, newDiaryService(), "notes\nEND\nn\nmore rain\nyes\n")

	require.NoError(t, h.app.Write(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "What should I change?")
	assert.Contains(t, out, "let me try that again")
	assert.Equal(t, "more rain", h.entries(t)[0].Metadata["last_feedback"])
}

func TestWrite_EmptyInput(t *testing.T) {
	h := newHarness(t, newDiaryService(), "  \nEND\n")

	require.NoError(t, h.app.Write(context.Background()))
	assert.Contains(t, h.errOut.String(), "[ERROR] No input provided.")
	assert.Empty(t, h.entries(t))
}

func TestWrite_RefineFailureKeepsEntry(t *testing.T) {
	svc := &flakyRefine{Service: newDiaryService()}
	h := newHarness(t, svc, "notes\nEND\nfix it\nfix it\nyes\n")

	require.NoError(t, h.app.Write(context.Background()))

	assert.Contains(t, h.errOut.String(), "[ERROR] Failed to regenerate diary")
	assert.Contains(t, h.out.String(), "let me try that again")
	assert.Contains(t, h.out.String(), "Entry #1 saved")
	assert.Len(t, h.entries(t), 1)
}

func TestWrite_ClearKeepsStoredEntry(t *testing.T) {
	h := newHarness(t, newDiaryService(), "notes\nEND\nclear\n")

	require.NoError(t, h.app.Write(context.Background()))
	assert.Contains(t, h.out.String(), "Session cleared. Entry #1 stays in your chronicle.")
	assert.Len(t, h.entries(t), 1)
}

func TestWrite_EndOfInputDuringReview(t *testing.T) {
	h := newHarness(t, newDiaryService(), "notes\nEND\n")

	require.NoError(t, h.app.Write(context.Background()))
	assert.Contains(t, h.out.String(), "Entry #1 saved")
}

func TestList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		h := newHarness(t, newDiaryService(), "")
		require.NoError(t, h.app.List(context.Background(), 0))
		assert.Contains(t, h.out.String(), "No entries yet. Start writing!")
	})

	t.Run("newest first with limit", func(t *testing.T) {
		svc := newDiaryService()
		seed(t, svc, "first", "second", "third")
		h := newHarness(t, svc, "")

		require.NoError(t, h.app.List(context.Background(), 2))

		out := h.out.String()
		assert.Contains(t, out, "Your Recent Entries (2):")
		assert.Contains(t, out, "PREVIEW")
		assert.Contains(t, out, "third")
		assert.Contains(t, out, "second")
		assert.NotContains(t, out, "first")
	})
}

func TestShow(t *testing.T) {
	svc := newDiaryService()
	seed(t, svc, "went hiking")
	h := newHarness(t, svc, "")

	require.NoError(t, h.app.Show(context.Background(), 1))
	assert.Contains(t, h.out.String(), "Entry #1 ·")
	assert.Contains(t, h.out.String(), "went hiking")

	err := h.app.Show(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Entry not found", err.Error())
}

func TestDelete(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		svc := newDiaryService()
		seed(t, svc, "one")
		h := newHarness(t, svc, "y\n")

		require.NoError(t, h.app.Delete(context.Background(), 1, false))
		assert.Contains(t, h.out.String(), "Delete entry #1? (y/N): ")
		assert.Contains(t, h.out.String(), "[OK] Entry #1 deleted.")
		assert.Empty(t, h.entries(t))
	})

	t.Run("declined", func(t *testing.T) {
		svc := newDiaryService()
		seed(t, svc, "one")
		h := newHarness(t, svc, "\n")

		require.NoError(t, h.app.Delete(context.Background(), 1, false))
		assert.Contains(t, h.out.String(), "Delete cancelled.")
		assert.Len(t, h.entries(t), 1)
	})

	t.Run("skip confirmation", func(t *testing.T) {
		svc := newDiaryService()
		seed(t, svc, "one")
		h := newHarness(t, svc, "")

		require.NoError(t, h.app.Delete(context.Background(), 1, true))
		assert.NotContains(t, h.out.String(), "(y/N)")
		assert.Empty(t, h.entries(t))
	})
}

func TestBrowse(t *testing.T) {
	t.Run("read then delete", func(t *testing.T) {
		svc := newDiaryService()
		seed(t, svc, "one", "two")
		h := newHarness(t, svc, "1\nd 2\nyes\n\n")

		require.NoError(t, h.app.Browse(context.Background()))

		out := h.out.String()
		assert.Contains(t, out, "Your Recent Entries (2):")
		assert.Contains(t, out, "Entry #1 ·")
		assert.Contains(t, out, "[OK] Entry #2 deleted.")
		assert.Contains(t, out, "Your Recent Entries (1):")

		list := h.entries(t)
		require.Len(t, list, 1)
		assert.Equal(t, domain.EntryID(1), list[0].ID)
	})

	t.Run("declined delete", func(t *testing.T) {
		svc := newDiaryService()
		seed(t, svc, "one")
		h := newHarness(t, svc, "d 1\nn\n\n")

		require.NoError(t, h.app.Browse(context.Background()))
		assert.Contains(t, h.out.String(), "Delete cancelled.")
		assert.Len(t, h.entries(t), 1)
	})

	t.Run("bad commands", func(t *testing.T) {
		svc := newDiaryService()
		seed(t, svc, "one")
		h := newHarness(t, svc, "l 0\n99\nd\nl x\n\n")

		require.NoError(t, h.app.Browse(context.Background()))

		errs := h.errOut.String()
		assert.Contains(t, errs, "limit must be positive")
		assert.Contains(t, errs, "entry 99 is not listed")
		assert.Contains(t, errs, "usage: d <id>")
		assert.Contains(t, errs, `limit must be a number: "x"`)
	})

	t.Run("limit change refetches", func(t *testing.T) {
		svc := newDiaryService()
		seed(t, svc, "one", "two", "three")
		h := newHarness(t, svc, "l 1\n\n")

		require.NoError(t, h.app.Browse(context.Background()))
		assert.Contains(t, h.out.String(), "Your Recent Entries (3):")
		assert.Contains(t, h.out.String(), "Your Recent Entries (1):")
	})
}

func TestExtract(t *testing.T) {
	h := newHarness(t, newDiaryService(), "Alice met Bob\nEND\n")

	require.NoError(t, h.app.Extract(context.Background()))
	assert.Contains(t, h.out.String(), "Extracting entities...")
	assert.Contains(t, h.out.String(), `"entities"`)
}

func TestPrintExtraction(t *testing.T) {
	h := newHarness(t, newDiaryService(), "")
	h.app.printExtraction(&domain.Extraction{
		Entities: []domain.ExtractedEntity{{Name: "Alice", Type: "person", Role: "friend"}},
		Emotions: []domain.ExtractedEmotion{{Feeling: "joy", Intensity: "high", Trigger: "reunion"}},
	})

	out := h.out.String()
	assert.Contains(t, out, "  - Alice (person): friend")
	assert.Contains(t, out, "  - joy (high): reunion")
	assert.NotContains(t, out, "Events")
}

func TestMenu(t *testing.T) {
	t.Run("exit", func(t *testing.T) {
		h := newHarness(t, newDiaryService(), "4\n")
		require.NoError(t, h.app.Menu(context.Background()))

		out := h.out.String()
		assert.Contains(t, out, "Welcome to Chronicle Weaver - AI Ghostwriter")
		assert.Contains(t, out, "You have 0 recent entries")
		assert.Contains(t, out, "Goodbye!")
	})

	t.Run("invalid choice then end of input", func(t *testing.T) {
		h := newHarness(t, newDiaryService(), "7\n")
		require.NoError(t, h.app.Menu(context.Background()))
		assert.Contains(t, h.errOut.String(), "Invalid choice. Please try again.")
		assert.Contains(t, h.out.String(), "Goodbye!")
	})

	t.Run("write then view", func(t *testing.T) {
		h := newHarness(t, newDiaryService(), "1\ncoffee with Sam\nEND\ny\n2\n\n4\n")
		require.NoError(t, h.app.Menu(context.Background()))

		out := h.out.String()
		assert.Contains(t, out, "Entry #1 saved")
		assert.Contains(t, out, "Your Recent Entries (1):")
	})
}
