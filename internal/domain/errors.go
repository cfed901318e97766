package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors returned by session operations.
var (
	// ErrEmptyMessage indicates that a chat or comparison input was blank
	// after trimming.
	ErrEmptyMessage = errors.New("empty message")

	// ErrNoModel indicates that no chat model is active.
	ErrNoModel = errors.New("no model selected")

	// ErrNoCollection indicates that no document collection is active.
	ErrNoCollection = errors.New("no collection selected")

	// ErrNoCandidates indicates that a comparison has no candidate models.
	ErrNoCandidates = errors.New("no candidate models selected")

	// ErrNoJudge indicates that a comparison has no judge model.
	ErrNoJudge = errors.New("no judge model selected")

	// ErrJudgeIsCandidate indicates that the judge model is also one of the
	// candidates being scored.
	ErrJudgeIsCandidate = errors.New("judge model is a candidate")

	// ErrRequestInFlight indicates that an action was attempted while the
	// same kind of request is still outstanding.
	ErrRequestInFlight = errors.New("request already in flight")

	// ErrUnknownSelection indicates that a model or collection is not part of
	// the loaded catalog.
	ErrUnknownSelection = errors.New("unknown selection")

	// ErrPromptOpen indicates that a change was requested while another
	// confirmation prompt is still open.
	ErrPromptOpen = errors.New("confirmation prompt already open")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError represents a precondition failure detected locally,
// before any request reaches the network.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of user-facing validation messages.
	Errors []string

	// Cause is the sentinel describing the first failure, if any.
	Cause error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns the sentinel cause so callers can use errors.Is.
func (e *ValidationError) Unwrap() error { return e.Cause }

// Message returns the validation messages without the entity prefix,
// suitable for showing to a user.
func (e *ValidationError) Message() string { return strings.Join(e.Errors, "; ") }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// Invalid is a shorthand for a single-message ValidationError wrapping cause.
func Invalid(entity string, cause error, msg string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: []string{msg},
		Cause:  cause,
	}
}
