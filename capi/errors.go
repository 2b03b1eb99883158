package capi

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"
)

// ErrorCode identifies the class of an engine failure.
type ErrorCode uint32

const (
	Success ErrorCode = iota
	ErrorMalformedModule
	ErrorInvalidModule
	ErrorInstantiationFailed
	ErrorMemoryAllocationFailed
	ErrorOther
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "success"
	case ErrorMalformedModule:
		return "malformed module"
	case ErrorInvalidModule:
		return "invalid module"
	case ErrorInstantiationFailed:
		return "instantiation failed"
	case ErrorMemoryAllocationFailed:
		return "memory allocation failed"
	case ErrorOther:
		return "other"
	default:
		return fmt.Sprintf("code(%d)", uint32(c))
	}
}

// MessageCapacity is the size of Error.Message including the NUL terminator.
const MessageCapacity = 256

// Error is the out-record filled by fallible engine calls.
// Message holds NUL-terminated text and is empty on success.
type Error struct {
	Code    ErrorCode
	Message [MessageCapacity]byte
}

// MessageString returns the message up to the first NUL.
func (e *Error) MessageString() string {
	if e == nil {
		return ""
	}
	n := bytes.IndexByte(e.Message[:], 0)
	if n < 0 {
		n = len(e.Message)
	}
	return string(e.Message[:n])
}

// Error implements the error interface so a record can be logged directly.
func (e *Error) Error() string {
	return e.Code.String() + ": " + e.MessageString()
}

func setSuccess(e *Error) {
	if e == nil {
		return
	}
	e.Code = Success
	e.Message[0] = 0
}

// setError records code and message. Messages that do not fit are cut
// and end in "...".
func setError(e *Error, code ErrorCode, message string) {
	Logger().Debug("engine call failed", zap.Stringer("code", code), zap.String("message", message))
	if e == nil {
		return
	}
	e.Code = code
	n := copy(e.Message[:MessageCapacity-1], message)
	if len(message) > MessageCapacity-1 {
		copy(e.Message[n-3:n], "...")
	}
	e.Message[n] = 0
}
