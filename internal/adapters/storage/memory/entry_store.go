package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/lindalindashu/novel-agent/internal/domain"
)

// EntryStore is a simple in-memory implementation of domain.EntryStore.
// It is NOT persistent and is only suitable for development / local mode.
type EntryStore struct {
	mu     sync.RWMutex
	nextID domain.EntryID
	// entries are kept as clones so callers cannot mutate stored state.
	entries  map[domain.EntryID]*domain.Entry
	byUserID map[domain.UserID][]domain.EntryID
}

// NewEntryStore creates a new in-memory EntryStore.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		entries:  make(map[domain.EntryID]*domain.Entry),
		byUserID: make(map[domain.UserID][]domain.EntryID),
	}
}

// CreateEntry saves a new entry and assigns its ID.
func (s *EntryStore) CreateEntry(ctx context.Context, entry *domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}

	s.entries[entry.ID] = entry.Clone()
	s.byUserID[entry.OwnerID] = append(s.byUserID[entry.OwnerID], entry.ID)

	return nil
}

func (s *EntryStore) UpdateEntryDiary(ctx context.Context, id domain.EntryID, diary string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.ErrNotFound
	}

	e.Diary = diary
	e.Metadata = maps.Clone(metadata)
	return nil
}

func (s *EntryStore) GetEntry(ctx context.Context, id domain.EntryID) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e.Clone(), nil
}

// ListEntriesByUser returns the newest `limit` entries for a user.
// If limit <= 0, returns all.
func (s *EntryStore) ListEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUserID[userID]
	out := make([]*domain.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			out = append(out, e.Clone())
		}
	}

	// ids are ascending, which breaks ties between equal timestamps newest first.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *EntryStore) DeleteEntry(ctx context.Context, id domain.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.entries, id)

	ids := s.byUserID[e.OwnerID]
	for i, v := range ids {
		if v == id {
			s.byUserID[e.OwnerID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
