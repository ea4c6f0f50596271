// Package errors defines the sentinel errors shared by the indexing and
// query subsystems. Callers classify failures with errors.Is and decide
// whether to degrade (search unavailable) or abort (commit failure).
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexUnavailable indicates the search index could not be opened
	// (missing or corrupt). Callers should degrade gracefully, e.g. by
	// skipping search, rather than treat this as fatal.
	ErrIndexUnavailable = errors.New("search index unavailable")

	// ErrInvalidFieldSet indicates a query named a field that is not
	// declared searchable in the schema.
	ErrInvalidFieldSet = errors.New("invalid query field set")

	// ErrStaleDocument indicates delete-before-reindex found more than one
	// indexed document for a single post UID. The index invariant allows at
	// most one; the whole batch is aborted.
	ErrStaleDocument = errors.New("multiple indexed documents for uid")

	// ErrCommitFailed indicates the final batch commit failed. Nothing from
	// the batch is visible; the run must be retried from scratch.
	ErrCommitFailed = errors.New("index commit failed")

	// ErrPostStore indicates the post store could not be read.
	ErrPostStore = errors.New("post store unavailable")
)

// Wrap annotates err with a sentinel so callers can match on the sentinel
// while retaining the underlying cause.
func Wrap(sentinel error, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// Wrapf annotates a sentinel with formatted context.
func Wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
