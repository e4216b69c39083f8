package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes the boundary layer dispatches on.
type ErrorKind string

const (
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindValidation     ErrorKind = "VALIDATION_ERROR"
	KindStorageFailure ErrorKind = "STORAGE_FAILURE"
)

// Error is a classified failure. TaskID is set for NotFound, Field for
// Validation when the rule belongs to one input field, Err for StorageFailure.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	TaskID  int64
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

func NotFound(id int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Todo item with id %d not found", id),
		TaskID:  id,
	}
}

func Validation(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Field:   field,
	}
}

func StorageFailure(message string, cause error) *Error {
	return &Error{
		Kind:    KindStorageFailure,
		Message: message,
		Err:     cause,
	}
}

// AsError extracts the classified error from a chain.
func AsError(err error) (*Error, bool) {
	var dErr *Error

	if errors.As(err, &dErr) && dErr != nil {
		return dErr, true
	}

	return nil, false
}

// KindOf returns the kind of err, or an empty kind when err is unclassified.
func KindOf(err error) ErrorKind {
	if dErr, ok := AsError(err); ok {
		return dErr.Kind
	}

	return ""
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

func IsStorageFailure(err error) bool {
	return KindOf(err) == KindStorageFailure
}

// Classify guarantees err surfaces as exactly one kind: unclassified errors
// become StorageFailure with the given message.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}

	if _, ok := AsError(err); ok {
		return err
	}

	return StorageFailure(message, err)
}
