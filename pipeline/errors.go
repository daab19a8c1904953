package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the status store and leaser
var (
	// ErrConflict means another writer already moved the job; the caller
	// must re-read instead of retrying blindly.
	ErrConflict = errors.New("status conflict: job moved by another writer")
	// ErrNotFound means no job exists for the entity.
	ErrNotFound = errors.New("job not found")
	// ErrAlreadyExists means a job was already created for the entity.
	ErrAlreadyExists = errors.New("job already exists for entity")
	// ErrLeaseHeld means another worker currently holds the entity lease.
	ErrLeaseHeld = errors.New("lease already held")
	// ErrInvalidTransition means the requested transition is not a legal
	// move in the job's state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// TransientError wraps a worker failure that is eligible for retry with
// backoff (network timeout, rate limit, upstream 5xx).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient marks err as retryable
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is retryable
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ValidationError wraps a non-retryable worker failure (malformed URL,
// unsupported content type). It moves the job directly to failed.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid marks err as a terminal validation failure
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

// IsValidation reports whether err is a terminal validation failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
