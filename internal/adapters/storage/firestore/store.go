package firestore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lindalindashu/novel-agent/internal/domain"
)

const (
	entriesCollection  = "entries"
	usersCollection    = "users"
	countersCollection = "counters"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (CHRONICLE_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) entriesCol() *firestore.CollectionRef {
	return s.client.Collection(entriesCollection)
}

func (s *Store) entryDoc(id domain.EntryID) *firestore.DocumentRef {
	return s.entriesCol().Doc(id.String())
}

func (s *Store) userDoc(username string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(username)
}

func (s *Store) counterDoc(name string) *firestore.DocumentRef {
	return s.client.Collection(countersCollection).Doc(name)
}

// nextID reads and bumps the named counter inside tx. Firestore requires
// every read in a transaction to happen before its first write.
func nextID(tx *firestore.Transaction, ref *firestore.DocumentRef) (int64, error) {
	snap, err := tx.Get(ref)
	if err != nil && status.Code(err) != codes.NotFound {
		return 0, err
	}

	var c counterDoc
	if snap != nil && snap.Exists() {
		if err := snap.DataTo(&c); err != nil {
			return 0, fmt.Errorf("decode counterDoc: %w", err)
		}
	}
	c.Last++
	return c.Last, nil
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type counterDoc struct {
	Last int64 `firestore:"last"`
}

type entryDocument struct {
	ID             int64          `firestore:"id"`
	UserID         int64          `firestore:"user_id"`
	RawInput       string         `firestore:"raw_input"`
	GeneratedDiary string         `firestore:"generated_diary"`
	CreatedAt      time.Time      `firestore:"created_at"`
	Metadata       map[string]any `firestore:"metadata"`
}

type userDocument struct {
	ID        int64     `firestore:"id"`
	Username  string    `firestore:"username"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toEntryDocument(e *domain.Entry) entryDocument {
	return entryDocument{
		ID:             int64(e.ID),
		UserID:         int64(e.OwnerID),
		RawInput:       e.RawInput,
		GeneratedDiary: e.Diary,
		CreatedAt:      e.CreatedAt,
		Metadata:       maps.Clone(e.Metadata),
	}
}

func (d entryDocument) toDomain() *domain.Entry {
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

// ─────────────────────────────────────────
// EntryStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateEntry(ctx context.Context, entry *domain.Entry) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		counter := s.counterDoc(entriesCollection)
		id, err := nextID(tx, counter)
		if err != nil {
			return err
		}

		entry.ID = domain.EntryID(id)
		if err := tx.Set(counter, counterDoc{Last: id}); err != nil {
			return err
		}
		return tx.Create(s.entryDoc(entry.ID), toEntryDocument(entry))
	})
	if err != nil {
		return fmt.Errorf("firestore CreateEntry: %w", err)
	}
	return nil
}

func (s *Store) UpdateEntryDiary(ctx context.Context, id domain.EntryID, diary string, metadata map[string]any) error {
	_, err := s.entryDoc(id).Update(ctx, []firestore.Update{
		{Path: "generated_diary", Value: diary},
		{Path: "metadata", Value: maps.Clone(metadata)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore UpdateEntryDiary: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id domain.EntryID) (*domain.Entry, error) {
	snap, err := s.entryDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetEntry: %w", err)
	}

	var doc entryDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetEntry decode: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Entry, error) {
	q := s.entriesCol().
		Where("user_id", "==", int64(userID)).
		OrderBy("created_at", firestore.Desc).
		OrderBy("id", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Entry
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListEntriesByUser: %w", err)
		}

		var doc entryDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode entryDocument: %w", err)
		}
		out = append(out, doc.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id domain.EntryID) error {
	// Delete on a missing document succeeds, so require existence explicitly.
	_, err := s.entryDoc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore DeleteEntry: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// UserStore implementation
// ─────────────────────────────────────────

func (s *Store) GetOrCreateUser(ctx context.Context, username string) (*domain.User, error) {
	var user *domain.User

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := s.userDoc(username)

		snap, err := tx.Get(ref)
		if err == nil {
			var doc userDocument
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode userDocument: %w", err)
			}
			user = &domain.User{ID: domain.UserID(doc.ID), Username: doc.Username, CreatedAt: doc.CreatedAt}
			return nil
		}
		if status.Code(err) != codes.NotFound {
			return err
		}

		counter := s.counterDoc(usersCollection)
		id, err := nextID(tx, counter)
		if err != nil {
			return err
		}

		doc := userDocument{ID: id, Username: username, CreatedAt: time.Now().UTC()}
		if err := tx.Set(counter, counterDoc{Last: id}); err != nil {
			return err
		}
		if err := tx.Create(ref, doc); err != nil {
			return err
		}
		user = &domain.User{ID: domain.UserID(id), Username: username, CreatedAt: doc.CreatedAt}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("firestore GetOrCreateUser: %w", err)
	}
	return user, nil
}
