package command

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

// Kind classifies command errors
type Kind uint8

const (
	KindUnknown Kind = iota
	KindWrongType
	KindSyntax
	KindInvalidExpire
	KindNotInteger
	KindNotFloat
	KindOverflow
	KindInvalidFloat
	KindSizeLimit
	KindOffsetRange
	KindArity
	KindUnknownCommand
	KindInvalidGroup
)

func (k Kind) String() string {
	switch k {
	case KindWrongType:
		return "WrongType"
	case KindSyntax:
		return "SyntaxError"
	case KindInvalidExpire:
		return "InvalidExpire"
	case KindNotInteger:
		return "NotAnInteger"
	case KindNotFloat:
		return "NotAFloat"
	case KindOverflow:
		return "Overflow"
	case KindInvalidFloat:
		return "InvalidFloatResult"
	case KindSizeLimit:
		return "SizeLimitExceeded"
	case KindOffsetRange:
		return "OffsetOutOfRange"
	case KindArity:
		return "ArityError"
	case KindUnknownCommand:
		return "UnknownCommand"
	case KindInvalidGroup:
		return "InvalidGroup"
	default:
		return "Unknown"
	}
}

// Error is the error reply of a command.
// Errors of the same kind match with errors.Is, whatever their message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Is reports whether target is a command error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError creates an error of the given kind
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Sentinel errors, compare with errors.Is
var (
	ErrWrongType      = &Error{KindWrongType, "WRONGTYPE Operation against a key holding the wrong kind of value"}
	ErrSyntax         = &Error{KindSyntax, "syntax error"}
	ErrInvalidExpire  = &Error{KindInvalidExpire, "invalid expire time"}
	ErrNotInteger     = &Error{KindNotInteger, "value is not an integer or out of range"}
	ErrNotFloat       = &Error{KindNotFloat, "value is not a valid float"}
	ErrOverflow       = &Error{KindOverflow, "increment or decrement would overflow"}
	ErrInvalidFloat   = &Error{KindInvalidFloat, "increment would produce NaN or Infinity"}
	ErrSizeLimit      = &Error{KindSizeLimit, "string exceeds maximum allowed size (512MB)"}
	ErrOffsetRange    = &Error{KindOffsetRange, "offset is out of range"}
	ErrArity          = &Error{KindArity, "wrong number of arguments"}
	ErrUnknownCommand = &Error{KindUnknownCommand, "unknown command"}
	ErrInvalidGroup   = &Error{KindInvalidGroup, "invalid group id"}
)

func errInvalidExpire(cmd string) *Error {
	return NewError(KindInvalidExpire, "invalid expire time in %s", cmd)
}

func errArity(cmd string) *Error {
	return NewError(KindArity, "wrong number of arguments for '%s' command", cmd)
}
