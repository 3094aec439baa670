// Package apperr defines the error taxonomy shared by the store, the order
// workflow, the access layer and the HTTP surface.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrAuthenticationRequired = errors.New("authentication credentials were not provided or are invalid")
	ErrPermissionDenied       = errors.New("you do not have permission to perform this action")
)

// NotFound reports a missing entity of the given kind
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// ValidationError carries field-level messages for malformed input
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates a validation error with a single field message
func NewValidationError(field, msg string) *ValidationError {
	return (&ValidationError{}).Add(field, msg)
}

// Add appends a message for field and returns the receiver
func (e *ValidationError) Add(field, msg string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
	return e
}

// Empty reports whether no field messages were recorded
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns nil when nothing was recorded, so callers can collect
// messages and return the result directly.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// InsufficientStockError aborts an order when a line asks for more units
// than the product has in stock.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}
