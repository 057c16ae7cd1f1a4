package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/framegraph/internal/resource"
)

// RuntimeError represents a structural error raised by the scheduler.
//
// Runtime errors include:
//   - Duplicate key: a task key is registered twice
//   - Init failure: a task's Init returned an error or panicked
//   - Missing task: an addressed task does not exist
//
// Resource access errors (NOT_FOUND, TYPE_MISMATCH, READ_ONLY on values)
// come from package resource and are matched by the same Is helpers.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Task is the task key the error is about.
	Task string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDuplicateKey indicates a task key that already exists.
	ErrCodeDuplicateKey RuntimeErrorCode = "DUPLICATE_KEY"

	// ErrCodeInitFailure indicates a task whose Init failed; it was not registered.
	ErrCodeInitFailure RuntimeErrorCode = "INIT_FAILURE"

	// ErrCodeTaskNotFound indicates an addressed task does not exist.
	ErrCodeTaskNotFound RuntimeErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.Task)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// TaskError reports a failure inside a task's IsActive or Eval during a frame.
// The frame pass stops at the failing task.
type TaskError struct {
	Task  string
	Phase string // "is_active" or "eval"
	Frame int64
	Err   error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("frame %d: task %s: %s: %v", e.Frame, e.Task, e.Phase, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsDuplicateKey returns true if the error is a duplicate task key error.
// Uses errors.As to handle wrapped errors.
func IsDuplicateKey(err error) bool {
	return hasCode(err, ErrCodeDuplicateKey)
}

// IsInitFailure returns true if the error is a task init failure.
func IsInitFailure(err error) bool {
	return hasCode(err, ErrCodeInitFailure)
}

// IsNotFound returns true for a missing task or a missing resource.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeTaskNotFound) || resource.IsNotFound(err)
}

// IsTypeMismatch returns true if a resource holds a different type.
func IsTypeMismatch(err error) bool {
	return resource.IsTypeMismatch(err)
}

// IsReadOnly returns true if a write went through a read-only handle.
func IsReadOnly(err error) bool {
	return resource.IsReadOnly(err)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewDuplicateKeyError creates a RuntimeError for an already registered key.
func NewDuplicateKeyError(task string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDuplicateKey,
		Message: "task key already registered",
		Task:    task,
	}
}

// NewInitError creates a RuntimeError wrapping a failed Init.
func NewInitError(task string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInitFailure,
		Message: "task init failed",
		Task:    task,
		Err:     cause,
	}
}

// NewTaskNotFoundError creates a RuntimeError for a missing task.
func NewTaskNotFoundError(task string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTaskNotFound,
		Message: "task not registered",
		Task:    task,
	}
}

// panicError converts a recovered panic value into an error.
func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
