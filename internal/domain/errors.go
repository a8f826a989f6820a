package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a missing data directory or index file.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed input such as an empty document batch.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyInput indicates an index build was requested with no chunks.
	ErrEmptyInput = errors.New("empty input")

	// ErrIngestion indicates a document could not be read or parsed.
	ErrIngestion = errors.New("ingestion failed")

	// ErrAuthentication indicates a missing or rejected provider credential.
	ErrAuthentication = errors.New("authentication failed")

	// ErrProvider indicates an upstream LLM or embedding failure.
	ErrProvider = errors.New("provider error")

	// ErrIndexUnavailable indicates no usable vector index exists.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrIndexCorrupt indicates the persisted index failed its integrity check.
	ErrIndexCorrupt = errors.New("vector index corrupt")

	// ErrLLMUnavailable indicates the LLM client could not be constructed.
	ErrLLMUnavailable = errors.New("LLM unavailable")
)

// ProviderErrorKind classifies upstream failures so callers can pick a retry policy.
type ProviderErrorKind string

const (
	ProviderRateLimited ProviderErrorKind = "rate_limited"
	ProviderTimeout     ProviderErrorKind = "timeout"
	ProviderMalformed   ProviderErrorKind = "malformed_response"
	ProviderUpstream    ProviderErrorKind = "upstream"
)

// ProviderError is an upstream failure. It matches ErrProvider with errors.Is.
type ProviderError struct {
	Provider   string
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// Retryable reports whether a retry could plausibly succeed.
func (e *ProviderError) Retryable() bool {
	return e.Kind == ProviderRateLimited || e.Kind == ProviderTimeout
}
