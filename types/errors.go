package types

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionFailed means the upload could not be turned into text.
	// Nothing is persisted when it occurs.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrEmbeddingService marks a failure of the embedding collaborator
	// after retries are exhausted.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrIndexService marks a failure of the vector index collaborator.
	ErrIndexService = errors.New("index service error")

	// ErrDocumentNotFound is returned by registry lookups.
	ErrDocumentNotFound = errors.New("document not found")
)

// ProcessingError reports an ingestion run that aborted after committing
// part of its chunks. There is no rollback; the committed count is carried
// so the partial state can be reported to the caller.
type ProcessingError struct {
	Committed int
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed after %d chunks committed: %v", e.Committed, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
