package users

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a user lookup finds no matching record.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when a registration uses an already-registered email.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateUsername is returned when a registration uses a taken username.
var ErrDuplicateUsername = errors.New("username already taken")

// ValidationError carries one human-readable message per invalid field,
// keyed by the field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports that Field (email or username) is already in use.
// It unwraps to ErrDuplicateEmail or ErrDuplicateUsername.
type ConflictError struct {
	Field string
	err   error
}

func (e *ConflictError) Error() string {
	if e.err == nil {
		return e.Field + " already in use"
	}
	return e.err.Error()
}

func (e *ConflictError) Unwrap() error { return e.err }

// conflictFrom converts a duplicate-key sentinel into a ConflictError.
// It returns nil for any other error.
func conflictFrom(err error) *ConflictError {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return &ConflictError{Field: "email", err: ErrDuplicateEmail}
	case errors.Is(err, ErrDuplicateUsername):
		return &ConflictError{Field: "username", err: ErrDuplicateUsername}
	}
	return nil
}

// InternalError wraps an unexpected failure during Op. Its message is for
// logs only; callers show a generic message instead.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *InternalError) Unwrap() error { return e.Err }
