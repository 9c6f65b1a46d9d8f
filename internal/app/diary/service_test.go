package diary_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindalindashu/novel-agent/internal/adapters/llm"
	"github.com/lindalindashu/novel-agent/internal/adapters/storage/memory"
	"github.com/lindalindashu/novel-agent/internal/app/diary"
	"github.com/lindalindashu/novel-agent/internal/domain"
)

// recordingLLM returns canned text and remembers every request.
type recordingLLM struct {
	text string
	err  error
	reqs []domain.DiaryRequest
}

func (r *recordingLLM) GenerateDiary(ctx context.Context, req domain.DiaryRequest) (domain.Generation, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return domain.Generation{}, r.err
	}
	return domain.Generation{Text: r.text, Provider: "fake", Model: "fake-1"}, nil
}

func (r *recordingLLM) ExtractEntities(ctx context.Context, text string) (*domain.Extraction, error) {
	return &domain.Extraction{Raw: text}, nil
}

type fixture struct {
	svc     *diary.Service
	llm     *recordingLLM
	entries *memory.EntryStore
	users   *memory.UserStore
}

func newFixture(t *testing.T, opts ...diary.Option) *fixture {
	t.Helper()
	f := &fixture{
		llm:     &recordingLLM{text: "**October 14, 2026**\n\nA quiet day."},
		entries: memory.NewEntryStore(),
		users:   memory.NewUserStore(),
	}
	clock := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	opts = append([]diary.Option{diary.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})}, opts...)
	f.svc = diary.NewService(f.llm, f.entries, f.users, opts...)
	return f
}

func TestCreate_WithMockProvider(t *testing.T) {
	ctx := context.Background()
	gen := llm.NewGenerator(llm.NewMockLLM())
	svc := diary.NewService(gen, memory.NewEntryStore(), memory.NewUserStore())

	input := "Had coffee with an old friend, talked for hours."
	e, err := svc.Create(ctx, domain.CreateEntryInput{Input: input})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if e.ID == 0 {
		t.Fatalf("expected entry id, got zero")
	}
	if e.RawInput != input {
		t.Fatalf("raw input altered: %q", e.RawInput)
	}
	if !strings.Contains(e.Diary, "Dear diary") {
		t.Fatalf("unexpected diary text %q", e.Diary)
	}
}

func TestCreate_StoresRawInputUntrimmed(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.Create(context.Background(), domain.CreateEntryInput{Input: "  spaced out  \n"})
	require.NoError(t, err)
	assert.Equal(t, "  spaced out  \n", e.RawInput)

	stored, err := f.entries.GetEntry(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "  spaced out  \n", stored.RawInput)
	assert.Equal(t, "fake-1", stored.Metadata["model"])
	assert.Equal(t, 0, stored.Metadata["context_entries"])
}

func TestCreate_EmptyInputIsValidationError(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateEntryInput{Input: " \t\n"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.llm.reqs)
}

func TestCreate_PassesNewestContext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, diary.WithContextLimit(2))

	for _, in := range []string{"one", "two", "three"} {
		_, err := f.svc.Create(ctx, domain.CreateEntryInput{Input: in})
		require.NoError(t, err)
	}

	last := f.llm.reqs[len(f.llm.reqs)-1]
	require.Len(t, last.Previous, 2)
	assert.Equal(t, "two", last.Previous[0].RawInput)
	assert.Equal(t, "one", last.Previous[1].RawInput)
}

func TestCreate_NothingPersistedOnFailure(t *testing.T) {
	ctx := context.Background()

	for name, f := range map[string]*fixture{
		"provider error": func() *fixture { f := newFixture(t); f.llm.err = errors.New("upstream down"); return f }(),
		"empty text":     func() *fixture { f := newFixture(t); f.llm.text = "   "; return f }(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, domain.CreateEntryInput{Input: "something"})
			require.Error(t, err)

			list, err := f.svc.List(ctx, domain.ListEntriesInput{})
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestRefine_InPlaceKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, domain.CreateEntryInput{Input: "earlier day"})
	require.NoError(t, err)
	orig, err := f.svc.Create(ctx, domain.CreateEntryInput{Input: "went hiking"})
	require.NoError(t, err)

	f.llm.text = "**October 14, 2026**\n\nA windswept, tearful climb."
	got, err := f.svc.Refine(ctx, domain.RefineEntryInput{
		EntryID:  orig.ID,
		Input:    "ignored when an id is given",
		Feedback: "make it more emotional",
	})
	require.NoError(t, err)

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.OwnerID, got.OwnerID)
	assert.Equal(t, "went hiking", got.RawInput)
	assert.Equal(t, orig.CreatedAt, got.CreatedAt)
	assert.Contains(t, got.Diary, "tearful")
	assert.Equal(t, 1, got.Metadata["refinements"])
	assert.Equal(t, "make it more emotional", got.Metadata["last_feedback"])

	req := f.llm.reqs[len(f.llm.reqs)-1]
	assert.Equal(t, "went hiking", req.UserInput)
	assert.Equal(t, "make it more emotional", req.Feedback)
	for _, p := range req.Previous {
		assert.NotEqual(t, orig.ID, p.ID, "refined entry must not be its own context")
	}

	// a second round bumps the counter
	got, err = f.svc.Refine(ctx, domain.RefineEntryInput{EntryID: orig.ID, Feedback: "shorter"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Metadata["refinements"])

	list, err := f.svc.List(ctx, domain.ListEntriesInput{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRefine_WithoutIDCreatesNewEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	got, err := f.svc.Refine(ctx, domain.RefineEntryInput{Input: "notes", Feedback: "funnier"})
	require.NoError(t, err)
	assert.NotZero(t, got.ID)
	assert.Equal(t, "notes", got.RawInput)
	assert.Equal(t, "funnier", f.llm.reqs[0].Feedback)
}

func TestRefine_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Refine(ctx, domain.RefineEntryInput{EntryID: 1, Feedback: "  "})
	assert.ErrorIs(t, err, diary.ErrNoFeedback)

	_, err = f.svc.Refine(ctx, domain.RefineEntryInput{Feedback: "more"})
	assert.ErrorIs(t, err, diary.ErrNoInput)
	assert.Empty(t, f.llm.reqs)
}

func TestRefine_UnknownOrForeignEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Refine(ctx, domain.RefineEntryInput{EntryID: 99, Feedback: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	theirs, err := f.svc.Create(ctx, domain.CreateEntryInput{Input: "private", Username: "someone"})
	require.NoError(t, err)

	_, err = f.svc.Refine(ctx, domain.RefineEntryInput{EntryID: theirs.ID, Feedback: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefine_FailureLeavesEntryUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	orig, err := f.svc.Create(ctx, domain.CreateEntryInput{Input: "went hiking"})
	require.NoError(t, err)

	f.llm.err = errors.New("timeout")
	_, err = f.svc.Refine(ctx, domain.RefineEntryInput{EntryID: orig.ID, Feedback: "again"})
	require.Error(t, err)

	stored, err := f.svc.Get(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, orig.Diary, stored.Diary)
	assert.NotContains(t, stored.Metadata, "refinements")
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var ids []domain.EntryID
	for _, in := range []string{"a", "b", "c"} {
		e, err := f.svc.Create(ctx, domain.CreateEntryInput{Input: in})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	list, err := f.svc.List(ctx, domain.ListEntriesInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)

	require.NoError(t, f.svc.Delete(ctx, ids[1]))
	assert.ErrorIs(t, f.svc.Delete(ctx, ids[1]), domain.ErrNotFound)

	_, err = f.svc.Get(ctx, ids[1])
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err = f.svc.List(ctx, domain.ListEntriesInput{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestList_UsersAreSeparate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, domain.CreateEntryInput{Input: "mine"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, domain.CreateEntryInput{Input: "theirs", Username: "other"})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, domain.ListEntriesInput{Username: domain.DefaultUsername})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].RawInput)
}

func TestExtract(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Extract(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := f.svc.Extract(context.Background(), "met Ana at the lake")
	require.NoError(t, err)
	assert.Equal(t, "met Ana at the lake", got.Raw)
}

type countingUsers struct {
	domain.UserStore
	calls int
}

func (c *countingUsers) GetOrCreateUser(ctx context.Context, username string) (*domain.User, error) {
	c.calls++
	return c.UserStore.GetOrCreateUser(ctx, username)
}

func TestUserCache(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves each username once", func(t *testing.T) {
		users := &countingUsers{UserStore: memory.NewUserStore()}
		svc := diary.NewService(&recordingLLM{text: "text"}, memory.NewEntryStore(), users)

		for range 3 {
			_, err := svc.List(ctx, domain.ListEntriesInput{Username: "ada"})
			require.NoError(t, err)
		}
		_, err := svc.List(ctx, domain.ListEntriesInput{})
		require.NoError(t, err)

		assert.Equal(t, 2, users.calls)
	})

	t.Run("disabled", func(t *testing.T) {
		users := &countingUsers{UserStore: memory.NewUserStore()}
		svc := diary.NewService(&recordingLLM{text: "text"}, memory.NewEntryStore(), users, diary.WithUserCacheSize(0))

		for range 3 {
			_, err := svc.List(ctx, domain.ListEntriesInput{Username: "ada"})
			require.NoError(t, err)
		}
		assert.Equal(t, 3, users.calls)
	})
}
