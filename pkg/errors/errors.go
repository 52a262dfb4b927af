package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Team formation error taxonomy. Fatal errors abort the run; the remainder
// are collected into the formation report rather than raised one at a time.
var (
	// ErrIncompleteApplication signals a required role has fewer eligible
	// candidates than open teams demand. Formation halts for the session.
	ErrIncompleteApplication = New("INCOMPLETE_APPLICATION", http.StatusUnprocessableEntity, "insufficient candidates for a required role")

	// ErrOverlapUnsatisfiable signals a team cannot meet the overlap
	// minimums; that team is left unformed while others proceed.
	ErrOverlapUnsatisfiable = New("OVERLAP_UNSATISFIABLE", http.StatusUnprocessableEntity, "team cannot meet overlap minimums")

	// ErrDuplicateAssignment signals a membership already holds a team.
	// Fatal: the whole formation run rolls back.
	ErrDuplicateAssignment = New("DUPLICATE_ASSIGNMENT", http.StatusConflict, "membership already assigned to a team")

	// ErrStaleVacancy signals a promotion target was filled by a concurrent
	// writer. Retried once against fresh state, then reported.
	ErrStaleVacancy = New("STALE_VACANCY", http.StatusConflict, "vacancy already filled")

	// ErrAlreadyDispatched signals the session's result notifications have
	// already been sent.
	ErrAlreadyDispatched = New("ALREADY_DISPATCHED", http.StatusConflict, "result notifications already sent")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
