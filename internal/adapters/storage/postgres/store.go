package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/lindalindashu/novel-agent/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var entryColumns = []string{"id", "user_id", "raw_input", "generated_diary", "created_at", "metadata"}

type Store struct {
	db DBTX
}

func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

const (
	insertEntrySQL = `INSERT INTO entries (user_id, raw_input, generated_diary, created_at, metadata)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	updateEntrySQL = `UPDATE entries SET generated_diary = $2, metadata = $3 WHERE id = $1`
	selectEntrySQL = `SELECT id, user_id, raw_input, generated_diary, created_at, metadata FROM entries`
	deleteEntrySQL = `DELETE FROM entries WHERE id = $1`
	upsertUserSQL  = `INSERT INTO users (username) VALUES ($1)
ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
RETURNING id, username, created_at`
)

func (s *Store) CreateEntry(ctx context.Context, entry *domain.Entry) error {
	meta, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	var id int64
	err = s.db.QueryRow(ctx, insertEntrySQL,
		int64(entry.OwnerID), entry.RawInput, entry.Diary, entry.CreatedAt, meta,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("postgres: insert entry: %w", err)
	}

	entry.ID = domain.EntryID(id)
	return nil
}

func (s *Store) UpdateEntryDiary(ctx context.Context, id domain.EntryID, diary string, metadata map[string]any) error {
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, updateEntrySQL, int64(id), diary, meta)
	if err != nil {
		return fmt.Errorf("postgres: update entry %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id domain.EntryID) (*domain.Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, selectEntrySQL+" WHERE id = $1", int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get entry %d: %w", id, err)
	}
	return e, nil
}

func (s *Store) ListEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Entry, error) {
	b := psql.Select(entryColumns...).
		From("entries").
		Where(sq.Eq{"user_id": int64(userID)}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build list query: %w", err)
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list entries: %w", err)
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list entries: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id domain.EntryID) error {
	tag, err := s.db.Exec(ctx, deleteEntrySQL, int64(id))
	if err != nil {
		return fmt.Errorf("postgres: delete entry %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetOrCreateUser upserts on the unique username so concurrent callers get the same row.
func (s *Store) GetOrCreateUser(ctx context.Context, username string) (*domain.User, error) {
	var (
		id      int64
		u       domain.User
		created time.Time
	)
	if err := s.db.QueryRow(ctx, upsertUserSQL, username).Scan(&id, &u.Username, &created); err != nil {
		return nil, fmt.Errorf("postgres: get or create user %q: %w", username, err)
	}
	u.ID = domain.UserID(id)
	u.CreatedAt = created
	return &u, nil
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		id, userID int64
		meta       []byte
		created    time.Time
		e          domain.Entry
	)
	if err := row.Scan(&id, &userID, &e.RawInput, &e.Diary, &created, &meta); err != nil {
		return nil, err
	}

	e.ID = domain.EntryID(id)
	e.OwnerID = domain.UserID(userID)
	e.CreatedAt = created
	e.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &e, nil
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode metadata: %w", err)
	}
	return b, nil
}
