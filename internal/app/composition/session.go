// Package composition drives the write, refine and accept cycle of a single
// diary entry on the client side.
package composition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lindalindashu/novel-agent/internal/domain"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

type Phase int

const (
	Idle Phase = iota
	Generating
	Reviewing
	Refining
	Accepted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case Reviewing:
		return "reviewing"
	case Refining:
		return "refining"
	case Accepted:
		return "accepted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// InFlight reports whether a service request is outstanding.
func (p Phase) InFlight() bool {
	return p == Generating || p == Refining
}

const (
	generateFallback = "Failed to generate diary"
	refineFallback   = "Failed to regenerate diary"
)

// State is a copy of the session's observable state.
type State struct {
	Phase         Phase
	DraftInput    string
	ActiveEntry   *domain.Entry
	FeedbackDraft string
}

// Session is the state machine for producing one diary entry. It is safe
// for concurrent use; the lock is not held while a service call is in
// flight, and the in-flight phases reject overlapping requests.
type Session struct {
	svc      domain.EntryService
	username string
	log      *slog.Logger
	onAccept func(*domain.Entry)

	mu            sync.Mutex
	phase         Phase
	draftInput    string
	active        *domain.Entry
	feedbackDraft string
}

type Option func(*Session)

func WithUsername(name string) Option {
	return func(s *Session) { s.username = name }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAcceptHook registers fn to receive each entry once it is accepted.
func WithAcceptHook(fn func(*domain.Entry)) Option {
	return func(s *Session) { s.onAccept = fn }
}

func New(svc domain.EntryService, opts ...Option) *Session {
	s := &Session{
		svc:      svc,
		username: domain.DefaultUsername,
		log:      observability.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "composition")
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Phase:         s.phase,
		DraftInput:    s.draftInput,
		ActiveEntry:   s.active.Clone(),
		FeedbackDraft: s.feedbackDraft,
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetDraft edits the draft input. Only allowed before the first generation.
func (s *Session) SetDraft(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Idle {
		return fmt.Errorf("%w: draft is fixed while %s", domain.ErrInvalidOperation, s.phase)
	}
	s.draftInput = text
	return nil
}

// SetFeedback edits the feedback for the next refinement round.
func (s *Session) SetFeedback(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Reviewing {
		return fmt.Errorf("%w: no entry to give feedback on while %s", domain.ErrInvalidOperation, s.phase)
	}
	s.feedbackDraft = text
	return nil
}

// Generate asks the service for a new entry from draftInput. On failure the
// session returns to Idle with the draft kept.
func (s *Session) Generate(ctx context.Context, draftInput string) (*domain.Entry, error) {
	if strings.TrimSpace(draftInput) == "" {
		return nil, fmt.Errorf("%w: input is empty", domain.ErrValidation)
	}

	s.mu.Lock()
	if s.phase != Idle {
		phase := s.phase
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot generate while %s", domain.ErrInvalidOperation, phase)
	}
	s.draftInput = draftInput
	s.phase = Generating
	s.mu.Unlock()

	s.log.Debug("generating entry", "input_len", len(draftInput))
	entry, err := s.svc.Create(ctx, domain.CreateEntryInput{Input: draftInput, Username: s.username})
	if err == nil && !entry.Complete() {
		err = fmt.Errorf("service returned an incomplete entry: %w", domain.ErrEmptyGeneration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.phase = Idle
		s.log.Warn("generation failed", "error", err)
		return nil, domain.NewFailure(domain.ErrGeneration, generateFallback, err)
	}

	s.active = entry.Clone()
	s.feedbackDraft = ""
	s.phase = Reviewing
	s.log.Info("entry generated", "entry_id", entry.ID)
	return entry.Clone(), nil
}

// Refine regenerates the active entry with feedback. On failure the session
// stays in Reviewing with the entry and feedback kept for a retry.
func (s *Session) Refine(ctx context.Context, feedback string) (*domain.Entry, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("%w: feedback is empty", domain.ErrValidation)
	}

	s.mu.Lock()
	if s.phase.InFlight() {
		phase := s.phase
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot refine while %s", domain.ErrInvalidOperation, phase)
	}
	if s.active == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no entry to refine", domain.ErrValidation)
	}
	in := domain.RefineEntryInput{
		EntryID:  s.active.ID,
		Input:    s.draftInput,
		Feedback: feedback,
		Username: s.username,
	}
	s.feedbackDraft = feedback
	s.phase = Refining
	s.mu.Unlock()

	s.log.Debug("refining entry", "entry_id", in.EntryID)
	entry, err := s.svc.Refine(ctx, in)
	if err == nil && !entry.Complete() {
		err = fmt.Errorf("service returned an incomplete entry: %w", domain.ErrEmptyGeneration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = Reviewing
	if err != nil {
		s.log.Warn("refinement failed", "entry_id", in.EntryID, "error", err)
		return nil, domain.NewFailure(domain.ErrRefinement, refineFallback, err)
	}

	s.active = entry.Clone()
	s.feedbackDraft = ""
	s.log.Info("entry refined", "entry_id", entry.ID)
	return entry.Clone(), nil
}

// Accept marks the active entry as accepted and hands it back. The session
// keeps no reference to it afterwards. Repeated calls before Clear return
// (nil, nil) and change nothing.
func (s *Session) Accept() (*domain.Entry, error) {
	s.mu.Lock()
	switch {
	case s.phase == Accepted:
		s.mu.Unlock()
		return nil, nil
	case s.phase.InFlight():
		phase := s.phase
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot accept while %s", domain.ErrInvalidOperation, phase)
	case s.active == nil:
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no entry to accept", domain.ErrInvalidOperation)
	}

	entry := s.active
	s.active = nil
	s.feedbackDraft = ""
	s.phase = Accepted
	hook := s.onAccept
	s.mu.Unlock()

	s.log.Info("entry accepted", "entry_id", entry.ID)
	if hook != nil {
		hook(entry.Clone())
	}
	return entry, nil
}

// Clear discards the session and returns it to Idle. It fails while a
// request is in flight.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.InFlight() {
		return fmt.Errorf("%w: cannot clear while %s", domain.ErrInvalidOperation, s.phase)
	}

	s.draftInput = ""
	s.active = nil
	s.feedbackDraft = ""
	s.phase = Idle
	return nil
}
