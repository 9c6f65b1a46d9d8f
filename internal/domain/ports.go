package domain

import "context"

// DiaryRequest is everything the LLM needs to write one diary entry.
type DiaryRequest struct {
	UserInput string
	Feedback  string

	// Previous holds recent entries, newest first, for narrative continuity.
	Previous []*Entry
}

// LLMClient defines how the application talks to the text-generation provider.
type LLMClient interface {
	GenerateDiary(ctx context.Context, req DiaryRequest) (Generation, error)
	ExtractEntities(ctx context.Context, text string) (*Extraction, error)
}

// Generation is a generated diary body plus the parameters that produced it.
type Generation struct {
	Text     string
	Provider string
	Model    string
}

// EntryStore defines entry persistence.
type EntryStore interface {
	// CreateEntry assigns entry.ID and persists the entry.
	CreateEntry(ctx context.Context, entry *Entry) error
	// UpdateEntryDiary replaces the diary text and metadata of an existing entry.
	UpdateEntryDiary(ctx context.Context, id EntryID, diary string, metadata map[string]any) error
	GetEntry(ctx context.Context, id EntryID) (*Entry, error)
	// ListEntriesByUser returns entries newest first. limit <= 0 returns all.
	ListEntriesByUser(ctx context.Context, userID UserID, limit int) ([]*Entry, error)
	DeleteEntry(ctx context.Context, id EntryID) error
}

// UserStore defines user persistence.
type UserStore interface {
	GetOrCreateUser(ctx context.Context, username string) (*User, error)
}

type CreateEntryInput struct {
	Input    string
	Username string
}

type RefineEntryInput struct {
	// EntryID selects the entry to regenerate in place. Zero creates a new entry.
	EntryID  EntryID
	Input    string
	Feedback string
	Username string
}

type ListEntriesInput struct {
	Username string
	Limit    int
}

// EntryService is the boundary the client-side components call: it wraps
// generation and persistence behind atomic request/response operations.
type EntryService interface {
	Create(ctx context.Context, in CreateEntryInput) (*Entry, error)
	Refine(ctx context.Context, in RefineEntryInput) (*Entry, error)
	List(ctx context.Context, in ListEntriesInput) ([]*Entry, error)
	Delete(ctx context.Context, id EntryID) error
}
