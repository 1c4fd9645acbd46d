package domain

import "errors"

var (
	// ErrRecordNotFound signals a missing raw record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrBookmarkNotFound signals a missing bookmark.
	ErrBookmarkNotFound = errors.New("bookmark not found")
	// ErrAlreadyExists signals an exclusive create against an existing entity.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSource signals an unknown source name.
	ErrInvalidSource = errors.New("invalid source")

	// ErrSessionExpired signals that the authenticated source no longer accepts the stored session.
	ErrSessionExpired = errors.New("session expired")
	// ErrCredentialMissing signals that the session artifact is absent.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrContentTooShort signals that a record has too little text to summarize.
	ErrContentTooShort = errors.New("content too short")
	// ErrMalformedOutput signals a completion response that is not the expected JSON.
	ErrMalformedOutput = errors.New("malformed completion output")
	// ErrCompletionProviderError signals a completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
