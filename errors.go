package khoj

import "errors"

// Sentinel errors for common validation failures.

var (
	// ErrProviderNotFound is returned when a provider is not registered.
	// Usually means you forgot to import the provider package with an underscore.
	ErrProviderNotFound = errors.New("khoj provider not found")

	// ErrQueryTooShort is returned when the query value is shorter than MinSearchChars.
	ErrQueryTooShort = errors.New("query too short")

	// ErrLimitExceeded is returned when the requested limit exceeds MaxLimit.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrEmptyID is returned when an empty ID is provided to Index or Delete.
	ErrEmptyID = errors.New("empty ID")

	// ErrEmptyGurmukhi is returned when a line without Gurmukhi is provided to Index.
	ErrEmptyGurmukhi = errors.New("empty gurmukhi")

	// ErrClosed is returned by a Searcher or Session after Close.
	ErrClosed = errors.New("khoj is closed")

	// ErrSearcherRequired is returned when a Session is created without a Searcher.
	ErrSearcherRequired = errors.New("searcher is required")
)
