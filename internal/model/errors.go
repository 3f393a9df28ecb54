package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced aggregate (trailer, movement)
// does not exist. Handlers map it to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is the sentinel wrapped by ValidationError. Handlers map it
// to HTTP 422.
var ErrValidation = errors.New("validation error")

// ErrConflict covers state-machine violations and yard capacity exhaustion.
// Nothing has been persisted when it is returned. Handlers map it to HTTP 409.
var ErrConflict = errors.New("conflict")

// Violation names a single offending field in a submission.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError aggregates every structural violation found in a submission
// payload. The validator never partially accepts: one bad field fails the
// whole request.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation error"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Path, v.Message)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match a ValidationError.
func (e *ValidationError) Unwrap() error { return ErrValidation }
