// Package apperrors defines the error taxonomy shared by the pipeline.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Wrap them with New or match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrExtractionFailure = errors.New("extraction failure")
	ErrStorageFailure    = errors.New("storage failure")
	ErrIndexFailure      = errors.New("index failure")
	ErrQueueFailure      = errors.New("queue failure")
)

// Error tags an underlying error with a kind and the operation that failed.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New wraps err with kind. err may be nil.
func New(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound reports a missing entity.
func NotFound(entity, id string) *Error {
	return New(ErrNotFound, entity, fmt.Errorf("id %s", id))
}

// HTTPStatus maps an error to the status code the controller layer should send.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrStorageFailure), errors.Is(err, ErrQueueFailure), errors.Is(err, ErrIndexFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
