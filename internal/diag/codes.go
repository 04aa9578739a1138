package diag

import (
	"fmt"
)

// Code classifies a lowering failure.
type Code uint16

const (
	UnknownCode Code = 0

	// CodeUnimplemented reports a source construct or lowering shape the
	// backend does not support yet. Never silently approximated.
	CodeUnimplemented Code = 1001
	// CodeVerify reports a lowered module failing well-formedness checks.
	CodeVerify Code = 1002
	// CodeInternal reports a defensive condition that must always hold.
	// Treated as a defect, not a recoverable condition.
	CodeInternal Code = 1003
)

func (c Code) String() string {
	switch c {
	case CodeUnimplemented:
		return "unimplemented feature"
	case CodeVerify:
		return "structural verification failure"
	case CodeInternal:
		return "internal invariant violation"
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}
