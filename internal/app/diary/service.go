package diary

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lindalindashu/novel-agent/internal/domain"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

const (
	// DefaultContextLimit is how many recent entries are given to the model.
	DefaultContextLimit = 3
	// DefaultUserCacheSize bounds the username to user cache.
	DefaultUserCacheSize = 128

	kindCreate = "create"
	kindRefine = "refine"
)

var (
	ErrNoInput    = fmt.Errorf("%w: no input provided", domain.ErrValidation)
	ErrNoFeedback = fmt.Errorf("%w: no feedback provided", domain.ErrValidation)
)

type Service struct {
	llm     domain.LLMClient
	entries domain.EntryStore
	users   domain.UserStore
	now     func() time.Time

	contextLimit    int
	defaultUsername string
	userCacheSize   int

	// userCache is nil when caching is disabled. Users are never deleted,
	// so cached rows do not go stale.
	userCache *lru.Cache[string, domain.User]
}

type Option func(*Service)

func WithContextLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.contextLimit = n
		}
	}
}

func WithDefaultUsername(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultUsername = name
		}
	}
}

// WithUserCacheSize sets how many resolved users are kept in memory. 0 disables the cache.
func WithUserCacheSize(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.userCacheSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	llm domain.LLMClient,
	entries domain.EntryStore,
	users domain.UserStore,
	opts ...Option,
) *Service {
	s := &Service{
		llm:             llm,
		entries:         entries,
		users:           users,
		now:             time.Now,
		contextLimit:    DefaultContextLimit,
		defaultUsername: domain.DefaultUsername,
		userCacheSize:   DefaultUserCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.userCacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		s.userCache, _ = lru.New[string, domain.User](s.userCacheSize)
	}
	return s
}

// Create generates a diary entry from raw input and persists it.
// The raw input is stored exactly as submitted.
func (s *Service) Create(ctx context.Context, in domain.CreateEntryInput) (out *domain.Entry, err error) {
	defer func() { observability.RecordGeneration(kindCreate, err) }()

	if strings.TrimSpace(in.Input) == "" {
		return nil, ErrNoInput
	}

	user, err := s.user(ctx, in.Username)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("user", user.Username)
	log.Info("generating diary entry", "input_len", len(in.Input))

	return s.generateNew(ctx, user, in.Input, "")
}

// Refine regenerates a diary with feedback. With an EntryID the existing
// entry is updated in place from its stored raw input; without one a new
// entry is created from Input.
func (s *Service) Refine(ctx context.Context, in domain.RefineEntryInput) (out *domain.Entry, err error) {
	defer func() { observability.RecordGeneration(kindRefine, err) }()

	if strings.TrimSpace(in.Feedback) == "" {
		return nil, ErrNoFeedback
	}
	if in.EntryID == 0 && strings.TrimSpace(in.Input) == "" {
		return nil, ErrNoInput
	}

	user, err := s.user(ctx, in.Username)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"user", user.Username,
		"entry_id", in.EntryID,
	)
	log.Info("refining diary entry")

	if in.EntryID == 0 {
		return s.generateNew(ctx, user, in.Input, in.Feedback)
	}

	entry, err := s.entries.GetEntry(ctx, in.EntryID)
	if err != nil {
		log.Error("failed to load entry for refinement", "error", err)
		return nil, err
	}
	if entry.OwnerID != user.ID {
		return nil, domain.ErrNotFound
	}

	previous, err := s.recent(ctx, user.ID, entry.ID)
	if err != nil {
		log.Error("failed to load context entries", "error", err)
		return nil, err
	}

	gen, err := s.generate(ctx, domain.DiaryRequest{
		UserInput: entry.RawInput,
		Feedback:  in.Feedback,
		Previous:  previous,
	})
	if err != nil {
		log.Error("diary refinement failed", "error", err)
		return nil, err
	}

	meta := maps.Clone(entry.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	annotate(meta, gen, len(previous))
	meta["refinements"] = intValue(meta["refinements"]) + 1
	meta["last_feedback"] = in.Feedback

	if err := s.entries.UpdateEntryDiary(ctx, entry.ID, gen.Text, meta); err != nil {
		log.Error("failed to update entry", "error", err)
		return nil, err
	}

	entry.Diary = gen.Text
	entry.Metadata = meta

	log.Info("diary entry refined", "refinements", meta["refinements"])
	return entry, nil
}

func (s *Service) List(ctx context.Context, in domain.ListEntriesInput) ([]*domain.Entry, error) {
	user, err := s.user(ctx, in.Username)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"user", user.Username,
		"limit", in.Limit,
	)

	entries, err := s.entries.ListEntriesByUser(ctx, user.ID, in.Limit)
	if err != nil {
		log.Error("failed to list entries", "error", err)
		return nil, err
	}

	log.Info("listed entries", "count", len(entries))
	return entries, nil
}

func (s *Service) Get(ctx context.Context, id domain.EntryID) (*domain.Entry, error) {
	return s.entries.GetEntry(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id domain.EntryID) error {
	log := observability.LoggerFromContext(ctx).With("entry_id", id)

	if err := s.entries.DeleteEntry(ctx, id); err != nil {
		log.Error("failed to delete entry", "error", err)
		return err
	}

	log.Info("entry deleted")
	return nil
}

// Extract pulls entities, events and emotions out of free text.
func (s *Service) Extract(ctx context.Context, text string) (*domain.Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoInput
	}
	return s.llm.ExtractEntities(ctx, text)
}

func (s *Service) generateNew(ctx context.Context, user *domain.User, input, feedback string) (*domain.Entry, error) {
	log := observability.LoggerFromContext(ctx).With("user", user.Username)

	previous, err := s.recent(ctx, user.ID, 0)
	if err != nil {
		log.Error("failed to load context entries", "error", err)
		return nil, err
	}

	gen, err := s.generate(ctx, domain.DiaryRequest{
		UserInput: input,
		Feedback:  feedback,
		Previous:  previous,
	})
	if err != nil {
		log.Error("diary generation failed", "error", err)
		return nil, err
	}

	meta := map[string]any{}
	annotate(meta, gen, len(previous))
	if feedback != "" {
		meta["refinements"] = 1
		meta["last_feedback"] = feedback
	}

	entry := &domain.Entry{
		OwnerID:   user.ID,
		RawInput:  input,
		Diary:     gen.Text,
		CreatedAt: s.now(),
		Metadata:  meta,
	}
	if err := s.entries.CreateEntry(ctx, entry); err != nil {
		log.Error("failed to save entry", "error", err)
		return nil, err
	}

	log.Info("diary entry saved", "entry_id", entry.ID)
	return entry, nil
}

func (s *Service) generate(ctx context.Context, req domain.DiaryRequest) (domain.Generation, error) {
	gen, err := s.llm.GenerateDiary(ctx, req)
	if err != nil {
		return domain.Generation{}, err
	}
	if strings.TrimSpace(gen.Text) == "" {
		return domain.Generation{}, domain.ErrEmptyGeneration
	}
	return gen, nil
}

// recent returns up to contextLimit newest entries of the user, skipping exclude.
func (s *Service) recent(ctx context.Context, userID domain.UserID, exclude domain.EntryID) ([]*domain.Entry, error) {
	if s.contextLimit == 0 {
		return nil, nil
	}

	limit := s.contextLimit
	if exclude != 0 {
		limit++
	}

	entries, err := s.entries.ListEntriesByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID == exclude {
			continue
		}
		out = append(out, e)
	}
	if len(out) > s.contextLimit {
		out = out[:s.contextLimit]
	}
	return out, nil
}

func (s *Service) user(ctx context.Context, username string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		username = s.defaultUsername
	}
	if s.userCache != nil {
		if u, ok := s.userCache.Get(username); ok {
			return &u, nil
		}
	}

	u, err := s.users.GetOrCreateUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if s.userCache != nil {
		s.userCache.Add(username, *u)
	}
	return u, nil
}

func annotate(meta map[string]any, gen domain.Generation, contextEntries int) {
	meta["provider"] = gen.Provider
	meta["model"] = gen.Model
	meta["context_entries"] = contextEntries
}

// intValue reads a counter that may have round-tripped through JSON.
func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
