package httpadapter

import (
	"maps"
	"time"

	"github.com/lindalindashu/novel-agent/internal/domain"
)

// ─────────────────────────────────────────────
// Wire types, shared with the HTTP client
// ─────────────────────────────────────────────

type EntryDTO struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"user_id"`
	RawInput       string         `json:"raw_input"`
	GeneratedDiary string         `json:"generated_diary"`
	CreatedAt      time.Time      `json:"created_at"`
	Metadata       map[string]any `json:"metadata"`
}

type DiaryRequest struct {
	Input    string `json:"input"`
	Feedback string `json:"feedback,omitempty"`
	Username string `json:"username,omitempty"`
	// EntryID, with Feedback, regenerates that entry in place.
	EntryID int64 `json:"entry_id,omitempty"`
}

type ExtractRequest struct {
	Input string `json:"input"`
}

type EntryResponse struct {
	Success bool     `json:"success"`
	Entry   EntryDTO `json:"entry"`
}

type EntriesResponse struct {
	Success bool       `json:"success"`
	Entries []EntryDTO `json:"entries"`
	Count   int        `json:"count"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ExtractResponse struct {
	Success  bool               `json:"success"`
	Entities *domain.Extraction `json:"entities"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func EntryToDTO(e *domain.Entry) EntryDTO {
	meta := maps.Clone(e.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	return EntryDTO{
		ID:             int64(e.ID),
		UserID:         int64(e.OwnerID),
		RawInput:       e.RawInput,
		GeneratedDiary: e.Diary,
		CreatedAt:      e.CreatedAt,
		Metadata:       meta,
	}
}

func EntriesToDTO(entries []*domain.Entry) []EntryDTO {
	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryToDTO(e))
	}
	return out
}

func (d EntryDTO) ToDomain() *domain.Entry {
	meta := d.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return &domain.Entry{
		ID:        domain.EntryID(d.ID),
		OwnerID:   domain.UserID(d.UserID),
		RawInput:  d.RawInput,
		Diary:     d.GeneratedDiary,
		CreatedAt: d.CreatedAt,
		Metadata:  meta,
	}
}
