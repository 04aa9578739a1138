package diag

import (
	"errors"
	"fmt"

	"mica/internal/source"
)

// Error is a fatal lowering failure. Every failure in the backend is fatal
// for its compilation unit: there are no retryable or partially-recoverable
// errors, and no partially-lowered module is ever handed downstream.
type Error struct {
	Code    Code
	Primary source.Span
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a fatal diagnostic error.
func New(code Code, primary source.Span, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Primary: primary,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unimplemented reports an unsupported construct.
func Unimplemented(primary source.Span, format string, args ...any) *Error {
	return New(CodeUnimplemented, primary, format, args...)
}

// Internal reports a violated invariant.
func Internal(format string, args ...any) *Error {
	return New(CodeInternal, source.Span{}, format, args...)
}

// Verify wraps a structural verification failure.
func Verify(err error) *Error {
	return New(CodeVerify, source.Span{}, "%v", err)
}

// CodeOf extracts the failure code from an error chain, or UnknownCode.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return UnknownCode
}
