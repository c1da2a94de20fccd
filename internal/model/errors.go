package model

import "errors"

// Error taxonomy for the analysis pipeline.
//
// ErrInsufficientData means the caller asked for a computation over fewer
// candles than the indicator requires. Recoverable: wait for more history.
//
// ErrInvalidInput means mismatched array lengths or malformed records — a
// caller bug, never retried.
//
// Degenerate computations (zero denominators inside a recurrence) are not
// errors at all: they resolve internally to "unavailable" series entries.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidInput     = errors.New("invalid input")
)
