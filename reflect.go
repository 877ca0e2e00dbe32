package jshell

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// FuncRoutine adapts a plain Go function into a Routine. Arguments are
// converted to the parameter types, a trailing error result aborts the call and
// the first remaining result is returned to the script.
func FuncRoutine(goFuncPtr interface{}) (Routine, error) {
	goFuncVal := reflect.ValueOf(goFuncPtr)
	if goFuncVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("jshell: %T is not a function", goFuncPtr)
	}
	goFuncType := goFuncVal.Type()
	if goFuncType.IsVariadic() {
		return nil, fmt.Errorf("jshell: variadic %s not supported", goFuncType)
	}

	goParamsNum := goFuncType.NumIn()
	return func(c *Call) (interface{}, error) {
		in := make([]reflect.Value, goParamsNum)
		for i := 0; i < goParamsNum; i++ {
			v, err := convertArg(c.Arg(i), goFuncType.In(i))
			if err != nil {
				return nil, err
			}
			in[i] = v
		}

		goRets := goFuncVal.Call(in)
		if n := len(goRets); n > 0 && goFuncType.Out(n-1) == errorType {
			if err, _ := goRets[n-1].Interface().(error); err != nil {
				return nil, err
			}
			goRets = goRets[:n-1]
		}
		if len(goRets) == 0 {
			return nil, nil
		}
		return goRets[0].Interface(), nil
	}, nil
}

func convertArg(v interface{}, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumber(rv.Kind()) && isNumber(t.Kind()) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, TypeMismatch(scriptTypeName(t))
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func scriptTypeName(t reflect.Type) string {
	switch {
	case isNumber(t.Kind()):
		return "Number"
	case t.Kind() == reflect.String:
		return "String"
	case t.Kind() == reflect.Bool:
		return "Boolean"
	case t.Kind() == reflect.Slice:
		return "Array"
	}
	return t.String()
}
