package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidChannel = errors.New("invalid channel")

	// Source level; recovered by excluding the source from the cycle.
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSourceFormat      = errors.New("source format error")
	ErrSourceNonPositive = errors.New("source returned non-positive price")

	// Persistence level; recovered by the history store or the caller.
	ErrHistoryCorrupt     = errors.New("history corrupt")
	ErrHistoryWriteFailed = errors.New("history write failed")
)
