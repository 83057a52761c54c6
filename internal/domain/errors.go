// Package domain holds the data model shared across the crawl and pipeline
// subsystems: source definitions, crawled items, crawl results and the
// process-wide state records the scheduler and storage layer maintain.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level operations. Fetchers, the registry and
// the storage layer wrap these with fmt.Errorf("%w: ...") so callers can
// classify failures with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrValidationFailed   = errors.New("validation failed")
	ErrUnknownFetcherKind = errors.New("unknown fetcher kind")
	ErrSelectorMiss       = errors.New("selector matched nothing")
)

// ValidationError carries the offending field alongside a human message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
