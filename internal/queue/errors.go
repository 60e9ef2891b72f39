package queue

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes queue operation failures.
type ErrorCode string

const (
	// ErrCodeQueueFull indicates a push against a full bounded queue.
	ErrCodeQueueFull ErrorCode = "QUEUE_FULL"

	// ErrCodeQueueEmpty indicates a pop from an empty queue.
	ErrCodeQueueEmpty ErrorCode = "QUEUE_EMPTY"

	// ErrCodeNegativeBound indicates a negative capacity was requested.
	ErrCodeNegativeBound ErrorCode = "NEGATIVE_BOUND"

	// ErrCodeInternal indicates an unexpected fault inside a critical section.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error is the result of a failed queue operation.
//
// Message is the reason written into the operation's log record.
// Cause holds the recovered panic value for internal faults.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is works against the
// sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	// ErrQueueFull is returned when pushing into a full bounded queue.
	ErrQueueFull = &Error{Code: ErrCodeQueueFull, Message: "Buffer full"}

	// ErrQueueEmpty is returned when popping from an empty queue.
	ErrQueueEmpty = &Error{Code: ErrCodeQueueEmpty, Message: "Buffer empty"}

	// ErrNegativeBound is returned when SetCapacity receives n < 0.
	ErrNegativeBound = &Error{Code: ErrCodeNegativeBound, Message: "negative bound"}
)

// NewInternalError wraps a recovered panic value.
func NewInternalError(cause any) *Error {
	return &Error{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf("internal fault: %v", cause),
		Cause:   cause,
	}
}

// IsInternal reports whether err is an internal fault.
// Uses errors.As to handle wrapped errors.
func IsInternal(err error) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeInternal
	}
	return false
}

// CodeOf returns the error code of err, or the empty code when err is nil
// or not a queue error.
func CodeOf(err error) ErrorCode {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// Reason returns the text used after " - " in a failure record.
func Reason(err error) string {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Message
	}
	return err.Error()
}
