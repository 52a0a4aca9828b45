package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is recorded per file when a path to save does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedContentType is never returned: unknown extensions use the
	// plain text chunk policy.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrIndexOperation wraps purge, upsert and search failures of the backend.
	ErrIndexOperation = errors.New("index operation failed")

	// ErrEmbedding wraps embedder failures during save and recall.
	ErrEmbedding = errors.New("embedding failed")

	// ErrNotConfirmed describes a destructive operation whose confirmation
	// did not match. Store methods report it through DeleteResult.Err.
	ErrNotConfirmed = errors.New("not confirmed")

	// ErrEmptyQuery is returned by Recall for a blank query.
	ErrEmptyQuery = errors.New("query is empty")
)

// FileError records why a single file in a batch was not saved.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}
