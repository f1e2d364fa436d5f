package store

import (
	"fmt"

	"github.com/ValentinKolb/sKV/lib/command"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the command error the code stands for, so that
// errors.Is(err, command.ErrOverflow) works on every store implementation.
func (e *Error) Unwrap() error {
	kind, ok := codeToKind[e.Code]
	if !ok {
		return nil
	}
	return &command.Error{Kind: kind, Msg: e.Msg}
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// FromCommandError converts a command error into a store error
func FromCommandError(err *command.Error) *Error {
	code, ok := kindToCode[err.Kind]
	if !ok {
		code = RetCInternalError
	}
	return NewError(code, err.Msg)
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCWrongType                           // 4: Key holds a value of another type.
	RetCSyntax                              // 5: Conflicting or malformed options.
	RetCInvalidExpire                       // 6: Expire time <= 0 or out of range.
	RetCNotInteger                          // 7: Value or argument is not an integer.
	RetCNotFloat                            // 8: Value or argument is not a float.
	RetCOverflow                            // 9: Integer increment would overflow.
	RetCInvalidFloat                        // 10: Float increment would produce NaN or Infinity.
	RetCSizeLimit                           // 11: Value would exceed the maximum size.
	RetCOffsetRange                         // 12: Negative offset.
	RetCArity                               // 13: Wrong number of arguments.
	RetCUnknownCommand                      // 14: No such command.
	RetCInvalidGroup                        // 15: Malformed group id.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	}
	if kind, ok := codeToKind[c]; ok {
		return kind.String()
	}
	return "Unknown"
}

var kindToCode = map[command.Kind]RetCode{
	command.KindWrongType:      RetCWrongType,
	command.KindSyntax:         RetCSyntax,
	command.KindInvalidExpire:  RetCInvalidExpire,
	command.KindNotInteger:     RetCNotInteger,
	command.KindNotFloat:       RetCNotFloat,
	command.KindOverflow:       RetCOverflow,
	command.KindInvalidFloat:   RetCInvalidFloat,
	command.KindSizeLimit:      RetCSizeLimit,
	command.KindOffsetRange:    RetCOffsetRange,
	command.KindArity:          RetCArity,
	command.KindUnknownCommand: RetCUnknownCommand,
	command.KindInvalidGroup:   RetCInvalidGroup,
}

var codeToKind = func() map[RetCode]command.Kind {
	m := make(map[RetCode]command.Kind, len(kindToCode))
	for k, c := range kindToCode {
		m[c] = k
	}
	return m
}()
