package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	ErrGeneratorAuth        = errors.New("text generator rejected credentials")
	ErrGeneratorRateLimited = errors.New("text generator rate limited")
)

// ValidationError reports a missing or malformed field. Message is shown to
// the client as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError covers both absence and foreign ownership.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}
