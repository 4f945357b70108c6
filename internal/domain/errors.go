package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for bad parameters (empty topic, zero questions, empty quiz).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is the parent of every lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrAttemptNotFound indicates an unknown result id.
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)
	// ErrSessionNotFound is returned when a quiz session is not registered.
	ErrSessionNotFound = fmt.Errorf("quiz session %w", ErrNotFound)
	// ErrProvider marks a failed live generation call. Always recoverable via the template generator.
	ErrProvider = errors.New("generation provider failed")
	// ErrTimeout marks an operation that exceeded its budget; callers may retry.
	ErrTimeout = errors.New("operation timed out")
	// ErrSubmission indicates scoring could not complete. No result is fabricated.
	ErrSubmission = errors.New("submission failed")
	// ErrInvalidTransition is returned when a session operation is not allowed in its current state.
	ErrInvalidTransition = errors.New("invalid session transition")
)
