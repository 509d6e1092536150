package rag

import "errors"

var (
	// ErrEmbeddingFailure means the embedding function failed or timed out.
	// Non-fatal: the prior record is kept and flagged stale.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrModelVersionMismatch means a query vector and the indexed vectors come
	// from different embedding models or dimensions.
	ErrModelVersionMismatch = errors.New("embedding model version mismatch")

	// ErrGenerationTimeout is surfaced after the single retry also timed out.
	ErrGenerationTimeout = errors.New("answer generation timed out")

	// ErrExtractionFailure means OCR failed or returned low confidence text.
	ErrExtractionFailure = errors.New("text extraction failure")

	ErrSessionNotFound = errors.New("chat session not found or access denied")
	ErrNoteNotFound    = errors.New("note not found or access denied")
	ErrSubjectNotFound = errors.New("subject not found or access denied")
)
