package jshell

import (
	"fmt"
	"strings"

	"github.com/robertkrimen/otto"
)

const (
	TypeEngineJs = "js"
)

// handleKey is the hidden property holding an instance's native handle.
const handleKey = "__handle__"

const definePropertySource = `(function (target, name, value, writable, enumerable, configurable) {
	Object.defineProperty(target, name, {
		value: value,
		writable: writable,
		enumerable: enumerable,
		configurable: configurable
	});
})`

// handleBox keeps the handle opaque: otto exposes exported fields and methods
// of Go structs, and handleBox has neither.
type handleBox struct {
	h *TypedHandle
}

type JsEngine struct {
	vm     *otto.Otto
	global otto.Value
	define otto.Value

	wrappers     map[int]otto.Value
	constructors map[int]otto.Value
	types        map[string]*otto.Object
	// methods holds the current routine behind each prototype method, so a
	// method bound again replaces the routine without redefining the
	// non-configurable property.
	methods map[string]map[string]Routine
}

func NewJsEngine() *JsEngine {
	e := &JsEngine{}
	e.New()
	return e
}

func (e *JsEngine) New() {
	e.vm = otto.New()
	e.global = e.mustRun("(function () { return this; })()")
	e.define = e.mustRun(definePropertySource)
	e.wrappers = make(map[int]otto.Value)
	e.constructors = make(map[int]otto.Value)
	e.types = make(map[string]*otto.Object)
	e.methods = make(map[string]map[string]Routine)
}

func (e *JsEngine) mustRun(source string) otto.Value {
	v, err := e.vm.Run(source)
	if err != nil {
		panic(err)
	}
	return v
}

func (e *JsEngine) Kind() string {
	return TypeEngineJs
}

func (e *JsEngine) Extension() string {
	return ".js"
}

func (e *JsEngine) Compile(name string, src []byte) (*Program, error) {
	script, err := e.vm.Compile(name, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return &Program{Name: name, code: script}, nil
}

func (e *JsEngine) Run(p *Program) error {
	script, ok := p.code.(*otto.Script)
	if !ok {
		return fmt.Errorf("%w: %s was not compiled by the js engine", ErrRuntime, p.Name)
	}
	if _, err := e.vm.Run(script); err != nil {
		return fmt.Errorf("%w: %s", ErrRuntime, jsErrorText(err))
	}
	return nil
}

func jsErrorText(err error) string {
	if oe, ok := err.(*otto.Error); ok {
		return strings.TrimSpace(oe.String())
	}
	return err.Error()
}

func (e *JsEngine) DefineGlobal(name string, value interface{}, flags PropFlags) error {
	v, err := e.vm.ToValue(value)
	if err != nil {
		return err
	}
	return e.defineOn(e.global, name, v, flags)
}

func (e *JsEngine) DefineFunction(name string, fn Routine, arity int, flags PropFlags) error {
	v, err := e.function(name, fn, arity, false)
	if err != nil {
		return err
	}
	return e.defineOn(e.global, name, v, flags)
}

func (e *JsEngine) DefineConstructor(typeName string, ctor Constructor, fin Finalizer, arity int) error {
	init, err := e.vm.ToValue(func(call otto.FunctionCall) otto.Value {
		native, err := invoke(ctor, e.newCall(typeName, call, false))
		if err != nil {
			panic(e.raise(err))
		}
		box, err := e.vm.ToValue(&handleBox{h: NewTypedHandle(typeName, native, fin)})
		if err != nil {
			panic(e.raise(OutOfMemory(err)))
		}
		if err := e.defineOn(call.This, handleKey, box, Builtin); err != nil {
			panic(e.raise(OutOfMemory(err)))
		}
		return otto.UndefinedValue()
	})
	if err != nil {
		return err
	}
	factory, err := e.cached(e.constructors, arity, constructorSource)
	if err != nil {
		return err
	}
	ctorValue, err := factory.Call(otto.UndefinedValue(), typeName, init)
	if err != nil {
		return err
	}
	if err := e.defineOn(e.global, typeName, ctorValue, DontEnum); err != nil {
		return err
	}
	e.types[typeName] = ctorValue.Object()
	e.methods[typeName] = make(map[string]Routine)
	return nil
}

func (e *JsEngine) DefineMethod(typeName, methodName string, fn Routine, arity int, flags PropFlags) error {
	ctor, ok := e.types[typeName]
	if !ok {
		return fmt.Errorf("jshell: %w: %s", ErrUnknownType, typeName)
	}
	bound := e.methods[typeName]
	if _, ok := bound[methodName]; ok {
		bound[methodName] = fn
		return nil
	}
	proto, err := ctor.Get("prototype")
	if err != nil {
		return err
	}
	v, err := e.function(typeName+".prototype."+methodName, func(c *Call) (interface{}, error) {
		return bound[methodName](c)
	}, arity, true)
	if err != nil {
		return err
	}
	if err := e.defineOn(proto, methodName, v, flags); err != nil {
		return err
	}
	bound[methodName] = fn
	return nil
}

func (e *JsEngine) defineOn(target otto.Value, name string, v otto.Value, flags PropFlags) error {
	_, err := e.define.Call(otto.UndefinedValue(), target, name, v,
		!flags.Has(ReadOnly), !flags.Has(DontEnum), !flags.Has(DontConf))
	return err
}

// function wraps fn in a script function whose length is arity.
func (e *JsEngine) function(name string, fn Routine, arity int, method bool) (otto.Value, error) {
	native, err := e.vm.ToValue(func(call otto.FunctionCall) otto.Value {
		res, err := invoke(fn, e.newCall(name, call, method))
		if err != nil {
			panic(e.raise(err))
		}
		if res == nil {
			return otto.UndefinedValue()
		}
		v, err := e.vm.ToValue(res)
		if err != nil {
			panic(e.raise(OutOfMemory(err)))
		}
		return v
	})
	if err != nil {
		return otto.UndefinedValue(), err
	}
	wrapper, err := e.cached(e.wrappers, arity, wrapperSource)
	if err != nil {
		return otto.UndefinedValue(), err
	}
	return wrapper.Call(otto.UndefinedValue(), native)
}

// cached compiles the factory produced by source for arity once per engine.
func (e *JsEngine) cached(cache map[int]otto.Value, arity int, source func(params string) string) (otto.Value, error) {
	if v, ok := cache[arity]; ok {
		return v, nil
	}
	if arity < 0 {
		arity = 0
	}
	params := make([]string, arity)
	for i := range params {
		params[i] = fmt.Sprintf("a%d", i)
	}
	v, err := e.vm.Run(source(strings.Join(params, ", ")))
	if err != nil {
		return otto.UndefinedValue(), err
	}
	cache[arity] = v
	return v, nil
}

func wrapperSource(params string) string {
	return `(function (fn) {
	return function (` + params + `) {
		return fn.apply(this, arguments);
	};
})`
}

func constructorSource(params string) string {
	return `(function (name, init) {
	var ctor = function (` + params + `) {
		if (!(this instanceof ctor)) {
			throw new TypeError(name + " must be called with new");
		}
		init.apply(this, arguments);
	};
	return ctor;
})`
}

func (e *JsEngine) newCall(name string, call otto.FunctionCall, method bool) *Call {
	c := &Call{Name: name, Args: make([]interface{}, len(call.ArgumentList))}
	for i, arg := range call.ArgumentList {
		c.Args[i] = e.export(arg)
	}
	if method {
		c.This = e.handleOf(call.This)
	}
	return c
}

func (e *JsEngine) raise(err error) otto.Value {
	switch errorClass(err) {
	case "TypeError":
		return e.vm.MakeTypeError(err.Error())
	case "RangeError":
		return e.vm.MakeRangeError(err.Error())
	}
	return e.vm.MakeCustomError("Error", err.Error())
}

// export converts a script value for native code. Native instances come back
// as their *TypedHandle.
func (e *JsEngine) export(v otto.Value) interface{} {
	if h := e.handleOf(v); h != nil {
		return h
	}
	data, err := v.Export()
	if err != nil {
		return nil
	}
	return data
}

func (e *JsEngine) handleOf(v otto.Value) *TypedHandle {
	if !v.IsObject() {
		return nil
	}
	hv, err := v.Object().Get(handleKey)
	if err != nil || !hv.IsObject() {
		return nil
	}
	data, err := hv.Export()
	if err != nil {
		return nil
	}
	switch box := data.(type) {
	case *handleBox:
		return box.h
	case handleBox:
		return box.h
	}
	return nil
}

func (e *JsEngine) Get(name string) (interface{}, error) {
	v, err := e.vm.Get(name)
	if err != nil {
		return nil, err
	}
	return e.export(v), nil
}

func (e *JsEngine) Call(scriptFuncName string, args ...interface{}) (interface{}, error) {
	value, err := e.vm.Call(scriptFuncName, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRuntime, jsErrorText(err))
	}
	return e.export(value), nil
}

func (e *JsEngine) Close() {
}
