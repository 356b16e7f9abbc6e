package visibility

import (
	"errors"
	"fmt"

	"github.com/websapdev/ai-visibility/internal/store"
)

var (
	// ErrNotFound is returned when the brand does not exist
	ErrNotFound = store.ErrNotFound
	// ErrValidation is returned when a required input is missing
	ErrValidation = errors.New("validation error")
)

// FetchError reports an engine fetch that failed
type FetchError struct {
	Engine   string
	PromptID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s for prompt %s failed: %v", e.Engine, e.PromptID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed store operation; it always aborts a poll
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
