// Package domain defines domain-level errors for the download feature.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound indicates that the requested symbol column is absent from the header row.
	ErrColumnNotFound = errors.New("column not found in header")

	// ErrEmptyHeader indicates that the symbol table has no header row.
	ErrEmptyHeader = errors.New("symbol table has no header row")

	// ErrUnexpectedStatus indicates that the remote source answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrRunNotFound is returned when no run exists for the given ID.
	ErrRunNotFound = errors.New("run not found")
)

// ConfigurationError reports missing or invalid input that must abort a run
// before any download is dispatched.
type ConfigurationError struct {
	Field string // Offending input (e.g., "csv", "col", "delim")
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// FetchError reports a failed request for one symbol. It never aborts the batch.
type FetchError struct {
	Symbol     string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http %d: %v", e.Symbol, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError reports a failure persisting one symbol's response. It never aborts the batch.
type WriteError struct {
	Symbol string
	Path   string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s to %s: %v", e.Symbol, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
