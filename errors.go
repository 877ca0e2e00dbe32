package jshell

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind identifies one of the recurring failures a native routine reports to
// script code.
type Kind int

const (
	KindOutOfMemory Kind = iota + 1
	KindArrayExpected
	KindIndexOutOfBounds
	KindTypeMismatch
	KindNonNegativeExpected
	KindUnsupportedOnPlatform
)

func (k Kind) String() string {
	switch k {
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindArrayExpected:
		return "ArrayExpected"
	case KindIndexOutOfBounds:
		return "IndexOutOfBounds"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindNonNegativeExpected:
		return "NonNegativeExpected"
	case KindUnsupportedOnPlatform:
		return "UnsupportedOnPlatform"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is. Any ScriptError matches the sentinel of its kind.
var (
	ErrOutOfMemory           = &ScriptError{Kind: KindOutOfMemory}
	ErrArrayExpected         = &ScriptError{Kind: KindArrayExpected}
	ErrIndexOutOfBounds      = &ScriptError{Kind: KindIndexOutOfBounds}
	ErrTypeMismatch          = &ScriptError{Kind: KindTypeMismatch}
	ErrNonNegativeExpected   = &ScriptError{Kind: KindNonNegativeExpected}
	ErrUnsupportedOnPlatform = &ScriptError{Kind: KindUnsupportedOnPlatform}
)

// ScriptError is a recoverable error raised into the calling script. Every kind
// renders through exactly one message template so identical failures read
// identically.
type ScriptError struct {
	Kind     Kind
	Index    int64
	Expected string
	Value    int64
	Platform string

	cause error
}

func OutOfMemory(cause error) *ScriptError {
	return &ScriptError{Kind: KindOutOfMemory, cause: cause}
}

func ArrayExpected() *ScriptError {
	return &ScriptError{Kind: KindArrayExpected}
}

func IndexOutOfBounds(index int64) *ScriptError {
	return &ScriptError{Kind: KindIndexOutOfBounds, Index: index}
}

func TypeMismatch(expected string) *ScriptError {
	return &ScriptError{Kind: KindTypeMismatch, Expected: expected}
}

func NonNegativeExpected(value int64) *ScriptError {
	return &ScriptError{Kind: KindNonNegativeExpected, Value: value}
}

func UnsupportedOnPlatform() *ScriptError {
	return &ScriptError{Kind: KindUnsupportedOnPlatform, Platform: runtime.GOOS}
}

func (e *ScriptError) Error() string {
	switch e.Kind {
	case KindOutOfMemory:
		return "Out of memory"
	case KindArrayExpected:
		return "Array expected"
	case KindIndexOutOfBounds:
		return fmt.Sprintf("Index out of bound (%d)", e.Index)
	case KindTypeMismatch:
		return fmt.Sprintf("%s expected", e.Expected)
	case KindNonNegativeExpected:
		return fmt.Sprintf("Non negative number expected: %d", e.Value)
	case KindUnsupportedOnPlatform:
		return fmt.Sprintf("Not supported on %s", e.Platform)
	}
	return e.Kind.String()
}

// Unwrap returns the engine or host failure that caused the error, if any.
func (e *ScriptError) Unwrap() error {
	return e.cause
}

func (e *ScriptError) Is(target error) bool {
	t, ok := target.(*ScriptError)
	return ok && t.Kind == e.Kind
}

// Class is the script-side error constructor name used when the error is
// thrown into the engine.
func (e *ScriptError) Class() string {
	switch e.Kind {
	case KindArrayExpected, KindTypeMismatch:
		return "TypeError"
	case KindIndexOutOfBounds, KindNonNegativeExpected:
		return "RangeError"
	}
	return "Error"
}

// errorClass picks the script error constructor for any error returned by a
// native routine.
func errorClass(err error) string {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Class()
	}
	return "Error"
}
