// Package domaintest provides a scriptable domain.EntryService for tests.
package domaintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/lindalindashu/novel-agent/internal/domain"
)

const (
	OpCreate = "create"
	OpRefine = "refine"
	OpList   = "list"
	OpDelete = "delete"
)

// Reply is the answer to one Call.
type Reply struct {
	Entry   *domain.Entry
	Entries []*domain.Entry
	Err     error
}

// Call is one request seen by EntryService while Calls is set.
type Call struct {
	Op     string
	Create domain.CreateEntryInput
	Refine domain.RefineEntryInput
	List   domain.ListEntriesInput
	ID     domain.EntryID

	reply chan Reply
}

// Respond unblocks the caller with r.
func (c *Call) Respond(r Reply) {
	c.reply <- r
}

// EntryService answers with the *Func fields, or, when Calls is non-nil,
// hands every request to the test and blocks until it is answered. The
// second mode lets a test choose the order in which responses arrive.
type EntryService struct {
	CreateFunc func(ctx context.Context, in domain.CreateEntryInput) (*domain.Entry, error)
	RefineFunc func(ctx context.Context, in domain.RefineEntryInput) (*domain.Entry, error)
	ListFunc   func(ctx context.Context, in domain.ListEntriesInput) ([]*domain.Entry, error)
	DeleteFunc func(ctx context.Context, id domain.EntryID) error

	Calls chan *Call

	mu     sync.Mutex
	counts map[string]int
}

var _ domain.EntryService = (*EntryService)(nil)

// Count returns how many times op was invoked.
func (f *EntryService) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op]
}

func (f *EntryService) Create(ctx context.Context, in domain.CreateEntryInput) (*domain.Entry, error) {
	f.record(OpCreate)
	if f.Calls != nil {
		r := f.await(ctx, &Call{Op: OpCreate, Create: in})
		return r.Entry, r.Err
	}
	if f.CreateFunc == nil {
		return nil, unexpected(OpCreate)
	}
	return f.CreateFunc(ctx, in)
}

func (f *EntryService) Refine(ctx context.Context, in domain.RefineEntryInput) (*domain.Entry, error) {
	f.record(OpRefine)
	if f.Calls != nil {
		r := f.await(ctx, &Call{Op: OpRefine, Refine: in})
		return r.Entry, r.Err
	}
	if f.RefineFunc == nil {
		return nil, unexpected(OpRefine)
	}
	return f.RefineFunc(ctx, in)
}

func (f *EntryService) List(ctx context.Context, in domain.ListEntriesInput) ([]*domain.Entry, error) {
	f.record(OpList)
	if f.Calls != nil {
		r := f.await(ctx, &Call{Op: OpList, List: in})
		return r.Entries, r.Err
	}
	if f.ListFunc == nil {
		return nil, unexpected(OpList)
	}
	return f.ListFunc(ctx, in)
}

func (f *EntryService) Delete(ctx context.Context, id domain.EntryID) error {
	f.record(OpDelete)
	if f.Calls != nil {
		return f.await(ctx, &Call{Op: OpDelete, ID: id}).Err
	}
	if f.DeleteFunc == nil {
		return unexpected(OpDelete)
	}
	return f.DeleteFunc(ctx, id)
}

func (f *EntryService) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[op]++
}

func (f *EntryService) await(ctx context.Context, c *Call) Reply {
	c.reply = make(chan Reply, 1)
	select {
	case f.Calls <- c:
	case <-ctx.Done():
		return Reply{Err: ctx.Err()}
	}
	select {
	case r := <-c.reply:
		return r
	case <-ctx.Done():
		return Reply{Err: ctx.Err()}
	}
}

func unexpected(op string) error {
	return fmt.Errorf("domaintest: unexpected %s call", op)
}

// Entry builds a complete entry for tests.
func Entry(id domain.EntryID, raw, diary string) *domain.Entry {
	return &domain.Entry{
		ID:       id,
		OwnerID:  1,
		RawInput: raw,
		Diary:    diary,
		Metadata: map[string]any{},
	}
}

// Entries builds complete entries with the given ids, in order.
func Entries(ids ...domain.EntryID) []*domain.Entry {
	out := make([]*domain.Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, Entry(id, fmt.Sprintf("raw %d", id), fmt.Sprintf("diary %d", id)))
	}
	return out
}
