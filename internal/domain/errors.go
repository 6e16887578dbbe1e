package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals rejected input (missing image, empty owner).
	ErrValidation = errors.New("validation failed")
	// ErrRecognitionFailed signals that the recognition service was
	// unreachable, timed out, or returned an unusable response.
	ErrRecognitionFailed = errors.New("recognition failed")
	// ErrEnrichmentUnavailable signals a failed encyclopedia lookup.
	// Never surfaced to callers; enrichment degrades to defaults.
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")
	// ErrPersistenceFailed signals that the history or bookmark storage
	// could not complete a write.
	ErrPersistenceFailed = errors.New("persistence failed")
)
