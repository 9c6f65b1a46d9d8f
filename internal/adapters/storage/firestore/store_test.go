package firestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lindalindashu/novel-agent/internal/domain"
)

func TestEntryDocument_RoundTrip(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	e := &domain.Entry{
		ID:        12,
		OwnerID:   3,
		RawInput:  "rain all day",
		Diary:     "**October 14, 2026**\n\nIt rained.",
		CreatedAt: at,
		Metadata:  map[string]any{"refinements": 1},
	}

	doc := toEntryDocument(e)
	assert.Equal(t, int64(12), doc.ID)
	assert.Equal(t, int64(3), doc.UserID)
	assert.Equal(t, "**October 14, 2026**\n\nIt rained.", doc.GeneratedDiary)

	// the document owns its own metadata map
	doc.Metadata["refinements"] = 2
	assert.Equal(t, 1, e.Metadata["refinements"])

	back := doc.toDomain()
	assert.Equal(t, e.ID, back.ID)
	assert.Equal(t, e.OwnerID, back.OwnerID)
	assert.Equal(t, e.RawInput, back.RawInput)
	assert.Equal(t, at, back.CreatedAt)
}

func TestEntryDocument_NilMetadataBecomesEmpty(t *testing.T) {
	back := entryDocument{ID: 1}.toDomain()
	assert.NotNil(t, back.Metadata)
	assert.Empty(t, back.Metadata)
}
