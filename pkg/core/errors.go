package core

import (
	"errors"
	"fmt"

	"github.com/yashdiniz/focusa-remind/pkg/embedder"
	"github.com/yashdiniz/focusa-remind/pkg/storage"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested memory was not found.
	ErrNotFound = errors.New("memory not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingFailed indicates that the embedding provider could not
	// produce a vector. Nothing is written when this is returned.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrDimensionMismatch indicates that a vector does not have the
	// deployment's fixed dimension. This is a configuration error.
	ErrDimensionMismatch = embedder.ErrDimensionMismatch

	// ErrUpdateFailed indicates that a supersede transaction rolled back,
	// typically because the parent is missing, deleted or owned by someone else.
	ErrUpdateFailed = errors.New("update failed")

	// ErrNothingDeleted signals that a Delete matched no active records.
	// It is a no-op signal, not a failure.
	ErrNothingDeleted = errors.New("nothing deleted")

	// ErrStoreUnavailable indicates that the database could not be reached
	// or a transaction could not be started.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrLLMOperation indicates that an LLM operation failed.
	ErrLLMOperation = errors.New("llm operation failed")
)

// MemoryError wraps errors with operation context.
//
// Example:
//
//	err := &MemoryError{
//	    Op:  "Add",
//	    Err: ErrEmbeddingFailed,
//	}
//	// Error() returns: "remind: Add: embedding generation failed"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns "remind: <Op>: <Err>".
func (e *MemoryError) Error() string {
	return fmt.Sprintf("remind: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As work.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
// If err is nil, returns nil.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}

// IsFatal reports whether err should abort the current conversational turn.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrDimensionMismatch)
}

// IsBenign reports whether err is a no-op signal rather than a failure.
func IsBenign(err error) bool {
	return errors.Is(err, ErrNothingDeleted)
}

// UserMessage returns the text an end user may see for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsBenign(err):
		return "nothing to forget"
	default:
		return "something went wrong"
	}
}

// classifyStoreError maps a storage-layer error onto the client taxonomy.
// fallback is used for failures that are not about reachability or
// vector dimensions.
func classifyStoreError(err, fallback error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, ErrDimensionMismatch):
		return err
	case fallback != nil:
		return fmt.Errorf("%w: %w", fallback, err)
	default:
		return err
	}
}
