package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode classifies failures raised while reading or writing PDF structure.
type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodeUnexpectedEOF
	CodeInvalidObject
	CodeInvalidDataType
	CodeInvalidStream
	CodeBrokenFile
	CodeValueOutOfRange
	CodeMaxRecursionReached
	CodeInvalidXRef
)

// String returns the name of the error code
func (c ErrorCode) String() string {
	switch c {
	case CodeUnexpectedEOF:
		return "UnexpectedEOF"
	case CodeInvalidObject:
		return "InvalidObject"
	case CodeInvalidDataType:
		return "InvalidDataType"
	case CodeInvalidStream:
		return "InvalidStream"
	case CodeBrokenFile:
		return "BrokenFile"
	case CodeValueOutOfRange:
		return "ValueOutOfRange"
	case CodeMaxRecursionReached:
		return "MaxRecursionReached"
	case CodeInvalidXRef:
		return "InvalidXRef"
	default:
		return "Unknown"
	}
}

// Error is a classified PDF error. Two errors match under errors.Is when
// their codes are equal, so callers compare against the Err* sentinels.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Msg
}

// Is reports whether target carries the same error code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnexpectedEOF       = &Error{Code: CodeUnexpectedEOF}
	ErrInvalidObject       = &Error{Code: CodeInvalidObject}
	ErrInvalidDataType     = &Error{Code: CodeInvalidDataType}
	ErrInvalidStream       = &Error{Code: CodeInvalidStream}
	ErrBrokenFile          = &Error{Code: CodeBrokenFile}
	ErrValueOutOfRange     = &Error{Code: CodeValueOutOfRange}
	ErrMaxRecursionReached = &Error{Code: CodeMaxRecursionReached}
	ErrInvalidXRef         = &Error{Code: CodeInvalidXRef}
)

// NewError creates a classified error carrying a stack trace.
func NewError(code ErrorCode, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Code: code, Msg: fmt.Sprintf(format, args...)})
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
