// Package archive keeps a client-side view of past entries in sync with the
// entry service while refreshes and deletes overlap.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/lindalindashu/novel-agent/internal/domain"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

// DefaultLimit is the number of entries requested until SetLimit is called.
const DefaultLimit = 10

const (
	fetchFallback  = "Failed to fetch entries"
	deleteFallback = "Failed to delete entry"
)

// ErrDeleteDeclined is returned when the confirmation callback says no.
var ErrDeleteDeclined = errors.New("delete not confirmed")

// Confirm is asked before a delete is sent. Returning false cancels it.
type Confirm func(entry *domain.Entry) bool

// Confirmed approves every delete.
func Confirmed(*domain.Entry) bool { return true }

type Archive struct {
	svc      domain.EntryService
	username string
	log      *slog.Logger

	mu       sync.Mutex
	entries  []*domain.Entry
	selected domain.EntryID
	limit    int

	// issued numbers refreshes; only the latest issued one may apply.
	issued uint64
	// deleted maps an id to the value of issued when its delete succeeded.
	// Refreshes issued at or before that point may still list it.
	deleted map[domain.EntryID]uint64
}

type Option func(*Archive)

func WithUsername(name string) Option {
	return func(a *Archive) { a.username = name }
}

func WithLimit(n int) Option {
	return func(a *Archive) {
		if n > 0 {
			a.limit = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		if l != nil {
			a.log = l
		}
	}
}

func New(svc domain.EntryService, opts ...Option) *Archive {
	a := &Archive{
		svc:      svc,
		username: domain.DefaultUsername,
		log:      observability.Logger(),
		limit:    DefaultLimit,
		deleted:  make(map[domain.EntryID]uint64),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "archive")
	return a
}

// Entries returns copies of the listed entries, newest first as the
// service ordered them.
func (a *Archive) Entries() []*domain.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*domain.Entry, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Clone()
	}
	return out
}

// Selected returns the selected entry or nil.
func (a *Archive) Selected() *domain.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.index(a.selected); i >= 0 {
		return a.entries[i].Clone()
	}
	return nil
}

func (a *Archive) Limit() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limit
}

// SetLimit changes the number of entries requested and refreshes.
func (a *Archive) SetLimit(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", domain.ErrValidation, n)
	}

	a.mu.Lock()
	a.limit = n
	a.mu.Unlock()

	return a.Refresh(ctx)
}

// Refresh replaces the list with the service's answer. If another refresh
// was issued while this one was in flight, the answer is dropped and
// Refresh returns nil.
func (a *Archive) Refresh(ctx context.Context) error {
	a.mu.Lock()
	a.issued++
	seq := a.issued
	limit := a.limit
	a.mu.Unlock()

	entries, err := a.svc.List(ctx, domain.ListEntriesInput{Username: a.username, Limit: limit})

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.issued {
		a.log.Debug("dropping superseded refresh", "seq", seq, "latest", a.issued, "limit", limit)
		return nil
	}
	if err != nil {
		a.log.Warn("refresh failed", "limit", limit, "error", err)
		return domain.NewFailure(domain.ErrFetch, fetchFallback, err)
	}

	fresh := make([]*domain.Entry, 0, len(entries))
	for _, e := range entries {
		if at, ok := a.deleted[e.ID]; ok && seq <= at {
			continue
		}
		fresh = append(fresh, e.Clone())
	}
	for id, at := range a.deleted {
		if at < seq {
			delete(a.deleted, id)
		}
	}

	a.entries = fresh
	if a.index(a.selected) < 0 {
		a.selected = 0
	}

	a.log.Debug("refreshed", "limit", limit, "count", len(fresh))
	return nil
}

// Select marks a listed entry as selected.
func (a *Archive) Select(id domain.EntryID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.index(id) < 0 {
		return fmt.Errorf("%w: entry %d is not listed", domain.ErrInvalidOperation, id)
	}
	a.selected = id
	return nil
}

func (a *Archive) Deselect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selected = 0
}

// Delete removes a listed entry after confirm approves it and the service
// reports success. On any failure the list and selection are unchanged.
func (a *Archive) Delete(ctx context.Context, id domain.EntryID, confirm Confirm) error {
	a.mu.Lock()
	i := a.index(id)
	if i < 0 {
		a.mu.Unlock()
		return fmt.Errorf("%w: entry %d is not listed", domain.ErrInvalidOperation, id)
	}
	entry := a.entries[i].Clone()
	a.mu.Unlock()

	if confirm == nil || !confirm(entry) {
		return ErrDeleteDeclined
	}

	if err := a.svc.Delete(ctx, id); err != nil {
		a.log.Warn("delete failed", "entry_id", id, "error", err)
		return domain.NewFailure(domain.ErrDeletion, deleteFallback, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.deleted[id] = a.issued
	if i := a.index(id); i >= 0 {
		a.entries = slices.Delete(a.entries, i, i+1)
	}
	if a.selected == id {
		a.selected = 0
	}

	a.log.Info("entry deleted", "entry_id", id)
	return nil
}

// index must be called with mu held.
func (a *Archive) index(id domain.EntryID) int {
	if id == 0 {
		return -1
	}
	return slices.IndexFunc(a.entries, func(e *domain.Entry) bool { return e.ID == id })
}
