package jshell

import (
	"reflect"

	"golang.org/x/exp/constraints"
)

// RequireHandleType returns the native value behind v when v is a handle tagged
// expectedTag. Anything else yields TypeMismatch(expectedTag); the caller must
// return immediately.
func RequireHandleType(v interface{}, expectedTag string) (interface{}, error) {
	var h *TypedHandle
	switch x := v.(type) {
	case *TypedHandle:
		h = x
	case TypedHandle:
		h = &x
	}
	if h == nil || h.tag != expectedTag {
		return nil, TypeMismatch(expectedTag)
	}
	return h.value, nil
}

// RequireNonNegative returns v unchanged when it is not negative.
func RequireNonNegative[T constraints.Signed | constraints.Float](v T) (T, error) {
	if v < 0 {
		return v, NonNegativeExpected(int64(v))
	}
	return v, nil
}

// RequireArray accepts any slice or array value and returns its elements.
func RequireArray(v interface{}) ([]interface{}, error) {
	if v == nil {
		return nil, ArrayExpected()
	}
	if a, ok := v.([]interface{}); ok {
		return a, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, ArrayExpected()
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// RequireIndex checks 0 <= i < length.
func RequireIndex(i int64, length int) (int, error) {
	if i < 0 || i >= int64(length) {
		return 0, IndexOutOfBounds(i)
	}
	return int(i), nil
}
