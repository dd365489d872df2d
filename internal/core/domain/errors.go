package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("access forbidden")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage failure")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrRegistrationClosed = errors.New("helper registration is currently closed")
)

// ValidationError reports malformed input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing assignment, user or category.
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AuthorizationError reports an actor lacking the required role or ownership.
type AuthorizationError struct {
	Reason string
}

func NewAuthorizationError(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason}
}

func (e *AuthorizationError) Error() string { return e.Reason }

func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

// ConflictError reports a violated state-machine precondition. Current holds
// the status observed after the failed attempt so callers can decide whether
// to retry with fresh data.
type ConflictError struct {
	AssignmentID string
	Current      AssignmentStatus
	Reason       string
}

func NewConflictError(a *Assignment, reason string) *ConflictError {
	e := &ConflictError{Reason: reason}
	if a != nil {
		e.AssignmentID = a.ID
		e.Current = a.Status
	}
	return e
}

func (e *ConflictError) Error() string {
	if e.Current == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s (current status: %s)", e.Reason, e.Current)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// StorageError wraps an underlying persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// WrapStorage passes typed domain errors through and wraps anything else in a
// StorageError.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrValidation) || errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrStorage) || errors.Is(err, ErrUserExists) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
