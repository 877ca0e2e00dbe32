package jshell

import (
	"fmt"
	"reflect"
	"runtime"
)

// Routine is a native function callable from script code. A non-nil error
// aborts the call and is thrown into the script as a catchable exception.
type Routine func(c *Call) (interface{}, error)

// Constructor builds the native value behind a new script object. The value is
// wrapped in a TypedHandle tagged with the constructor's type name.
type Constructor func(c *Call) (interface{}, error)

// Finalizer releases the native value of an instance that became unreachable.
type Finalizer func(native interface{})

// Call describes one invocation of a native routine.
type Call struct {
	Name string
	// This is the handle of the receiving instance for methods, nil otherwise
	// or when the receiver is not a native object.
	This *TypedHandle
	Args []interface{}
}

// Arg returns the i-th argument or nil when fewer were passed.
func (c *Call) Arg(i int) interface{} {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Int returns the i-th argument as an integer.
func (c *Call) Int(i int) (int64, error) {
	v := reflect.ValueOf(c.Arg(i))
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(v.Float()), nil
	}
	return 0, TypeMismatch("Number")
}

// Float returns the i-th argument as a float.
func (c *Call) Float(i int) (float64, error) {
	v := reflect.ValueOf(c.Arg(i))
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}
	return 0, TypeMismatch("Number")
}

func (c *Call) String(i int) (string, error) {
	s, ok := c.Arg(i).(string)
	if !ok {
		return "", TypeMismatch("String")
	}
	return s, nil
}

func (c *Call) Bool(i int) (bool, error) {
	b, ok := c.Arg(i).(bool)
	if !ok {
		return false, TypeMismatch("Boolean")
	}
	return b, nil
}

// TypedHandle carries a native value through the engine's generic value type.
// Its fields are unexported so scripts cannot read or forge them.
type TypedHandle struct {
	tag   string
	value interface{}
}

// NewTypedHandle wraps value under tag. When fin is non-nil it runs once the
// handle is garbage collected.
func NewTypedHandle(tag string, value interface{}, fin Finalizer) *TypedHandle {
	h := &TypedHandle{tag: tag, value: value}
	if fin != nil {
		runtime.SetFinalizer(h, func(h *TypedHandle) {
			fin(h.value)
		})
	}
	return h
}

func (h *TypedHandle) Tag() string {
	return h.tag
}

func (h *TypedHandle) Value() interface{} {
	return h.value
}

func (h *TypedHandle) String() string {
	return fmt.Sprintf("[object %s]", h.tag)
}

// invoke runs fn, converting a panic in native code into an error.
func invoke(fn func(*Call) (interface{}, error), c *Call) (res interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("%s: %w", c.Name, e)
				return
			}
			err = fmt.Errorf("%s: %v", c.Name, r)
		}
	}()
	return fn(c)
}
