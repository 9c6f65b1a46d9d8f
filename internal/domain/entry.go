package domain

import (
	"maps"
	"strings"
)

// Entry pairs the raw user input with the AI-generated diary text.
type Entry struct {
	ID        EntryID
	OwnerID   UserID
	RawInput  string
	Diary     string
	CreatedAt Timestamp

	// Metadata holds auxiliary annotations (generation parameters and so on).
	// It is passed through unchanged by the client-side components.
	Metadata map[string]any
}

// Clone returns a copy that shares no mutable state with e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Metadata = maps.Clone(e.Metadata)
	return &c
}

// Complete reports whether e carries both a raw input and a generated diary.
// Incomplete entries are never persisted.
func (e *Entry) Complete() bool {
	return e != nil && strings.TrimSpace(e.RawInput) != "" && strings.TrimSpace(e.Diary) != ""
}
