package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrOverloaded is returned when no pipeline slot frees up in time.
	ErrOverloaded = errors.New("too many queries in flight")
	// ErrNotFound is returned when a requested query is unknown.
	ErrNotFound = errors.New("not found")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// QueryError ties a request-path failure to the query it belongs to.
type QueryError struct {
	QueryID uuid.UUID
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.QueryID, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// QueryIDOf returns the query id carried by err, if any.
func QueryIDOf(err error) (uuid.UUID, bool) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.QueryID, true
	}
	return uuid.Nil, false
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
