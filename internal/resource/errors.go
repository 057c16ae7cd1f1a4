package resource

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the (namespace, key) pair has no entry.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeTypeMismatch indicates the stored value is not of the requested type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeReadOnly indicates a write through a handle that may only read.
	ErrCodeReadOnly ErrorCode = "READ_ONLY"
)

// Error is returned by typed store access.
//
// NotFound and TypeMismatch are wiring bugs, never legitimate runtime
// conditions; callers that cannot handle them usually panic with the value.
type Error struct {
	Code      ErrorCode
	Namespace string
	Key       string

	// Want and Got describe the requested and stored types for TYPE_MISMATCH.
	Want string
	Got  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeTypeMismatch:
		return fmt.Sprintf("%s: %s/%s holds %s, requested %s", e.Code, e.Namespace, e.Key, e.Got, e.Want)
	case ErrCodeReadOnly:
		return fmt.Sprintf("%s: %s/%s is not writable from this handle", e.Code, e.Namespace, e.Key)
	default:
		return fmt.Sprintf("%s: %s/%s", e.Code, e.Namespace, e.Key)
	}
}

// IsNotFound returns true if err is a NOT_FOUND store error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsTypeMismatch returns true if err is a TYPE_MISMATCH store error.
func IsTypeMismatch(err error) bool {
	return hasCode(err, ErrCodeTypeMismatch)
}

// IsReadOnly returns true if err is a READ_ONLY store error.
func IsReadOnly(err error) bool {
	return hasCode(err, ErrCodeReadOnly)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func notFound(ns, key string) *Error {
	return &Error{Code: ErrCodeNotFound, Namespace: ns, Key: key}
}
