package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks empty or malformed required input. It never reaches the service.
	ErrValidation = errors.New("validation error")
	// ErrInvalidOperation marks an operation invoked in a state that forbids it.
	ErrInvalidOperation = errors.New("invalid operation")

	ErrNotFound       = errors.New("not found")
	ErrInvalidEntryID = errors.New("invalid entry id")

	// ErrEmptyGeneration is returned when the provider answers with no text.
	ErrEmptyGeneration = errors.New("llm returned empty text")
	// ErrProvider wraps failures reported by the text-generation provider.
	ErrProvider = errors.New("llm provider error")

	// Failure kinds surfaced by the client-side components.
	ErrGeneration = errors.New("generation failed")
	ErrRefinement = errors.New("refinement failed")
	ErrDeletion   = errors.New("deletion failed")
	ErrFetch      = errors.New("fetch failed")
)

// RemoteError is a non-success answer from the entry service.
type RemoteError struct {
	StatusCode int
	// Message is the service-provided error string, possibly empty.
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("entry service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("entry service returned status %d: %s", e.StatusCode, e.Message)
}

// Failure is a recovered service-call failure. Error returns a message fit
// for the user; errors.Is matches both Kind and the underlying Cause.
type Failure struct {
	Kind    error
	Message string
	Cause   error
}

// NewFailure builds a Failure whose message is the service-provided error
// string when the cause carries one, and fallback otherwise.
func NewFailure(kind error, fallback string, cause error) *Failure {
	msg := fallback
	var re *RemoteError
	if errors.As(cause, &re) && re.Message != "" {
		msg = re.Message
	}
	return &Failure{Kind: kind, Message: msg, Cause: cause}
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() []error {
	errs := []error{f.Kind}
	if f.Cause != nil {
		errs = append(errs, f.Cause)
	}
	return errs
}
