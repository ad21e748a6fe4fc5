package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying failures across the engine. Services
// wrap these with context; HTTP handlers map them to status codes.
var (
	// ErrInvalidInput marks request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks lookups for contracts that are not indexed.
	ErrNotFound = errors.New("not found")
	// ErrSearchBackend marks failures talking to the search backend.
	ErrSearchBackend = errors.New("search backend error")
	// ErrEmbedding marks failures generating embeddings.
	ErrEmbedding = errors.New("embedding error")
	// ErrExtraction marks failures extracting structured metadata.
	ErrExtraction = errors.New("metadata extraction error")
)

// BackendError carries the operation and cause of a search backend
// failure. It matches ErrSearchBackend under errors.Is.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("search backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrSearchBackend }

// EmbeddingError carries the model and cause of an embedding failure.
// It matches ErrEmbedding under errors.Is.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding (%s): %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }
