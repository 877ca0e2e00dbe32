package jshell

import (
	"bytes"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/ailncode/gluaxmlpath"
	"github.com/ciaos/gluahttp"
	"github.com/cjoudrey/gluaurl"
	"github.com/yuin/gluamapper"
	"github.com/yuin/gluare"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
	luar "layeh.com/gopher-luar"
)

const (
	TypeEngineLua = "lua"
)

// luaType is a native type bound into a LuaEngine. Script code reaches the
// methods through proxy, an empty table whose metatable serves methods and
// rejects writes.
type luaType struct {
	meta    *lua.LTable
	methods *lua.LTable
	proxy   *lua.LTable
}

type LuaEngine struct {
	vm    *lua.LState
	types map[string]*luaType
	// noNetwork leaves the http module out of the preloads.
	noNetwork bool
}

func NewLuaEngine(opts ...EngineOption) *LuaEngine {
	var cfg engineConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &LuaEngine{noNetwork: cfg.noNetwork}
	e.New()
	return e
}

func (e *LuaEngine) New() {
	e.vm = lua.NewState()
	e.types = make(map[string]*luaType)
	luajson.Preload(e.vm)
	e.vm.PreloadModule("url", gluaurl.Loader)
	e.vm.PreloadModule("re", gluare.Loader)
	if !e.noNetwork {
		e.vm.PreloadModule("http", gluahttp.NewHttpModule(&http.Client{
			Timeout: 30 * time.Second,
		}).Loader)
	}
	e.vm.PreloadModule("xmlpath", gluaxmlpath.Loader)
}

func (e *LuaEngine) Kind() string {
	return TypeEngineLua
}

func (e *LuaEngine) Extension() string {
	return ".lua"
}

func (e *LuaEngine) Compile(name string, src []byte) (*Program, error) {
	fn, err := e.vm.Load(bytes.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return &Program{Name: name, code: fn}, nil
}

func (e *LuaEngine) Run(p *Program) error {
	fn, ok := p.code.(*lua.LFunction)
	if !ok {
		return fmt.Errorf("%w: %s was not compiled by the lua engine", ErrRuntime, p.Name)
	}
	top := e.vm.GetTop()
	defer e.vm.SetTop(top)
	e.vm.Push(fn)
	if err := e.vm.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("%w: %s", ErrRuntime, err.Error())
	}
	return nil
}

func (e *LuaEngine) toLuaValue(L *lua.LState, src interface{}) lua.LValue {
	if src == nil {
		return lua.LNil
	}
	if h, ok := src.(*TypedHandle); ok {
		ud := L.NewUserData()
		ud.Value = h
		if t, ok := e.types[h.Tag()]; ok {
			L.SetMetatable(ud, t.meta)
		}
		return ud
	}
	if reflect.ValueOf(src).Kind() == reflect.Map {
		dst := L.NewTable()
		srcVal := reflect.ValueOf(src)
		for _, key := range srcVal.MapKeys() {
			dst.RawSet(luar.New(L, key.Interface()), e.toLuaValue(L, srcVal.MapIndex(key).Interface()))
		}
		return dst
	} else if reflect.ValueOf(src).Kind() == reflect.Slice {
		dst := L.NewTable()
		srcVal := reflect.ValueOf(src)
		for i := 0; i < srcVal.Len(); i++ {
			dst.Append(e.toLuaValue(L, srcVal.Index(i).Interface()))
		}
		return dst
	} else {
		return luar.New(L, src)
	}
}

func (e *LuaEngine) toGoValue(src lua.LValue) interface{} {
	switch v := src.(type) {
	case *lua.LTable:
		maxn := v.MaxN()
		if maxn == 0 { // table
			ret := make(map[string]interface{})
			v.ForEach(func(key, value lua.LValue) {
				ret[fmt.Sprint(e.toGoValue(key))] = e.toGoValue(value)
			})
			return ret
		} else { // array
			ret := make([]interface{}, 0, maxn)
			for i := 1; i <= maxn; i++ {
				ret = append(ret, e.toGoValue(v.RawGetInt(i)))
			}
			return ret
		}
	case *lua.LUserData:
		return v.Value
	default:
		return gluamapper.ToGoValue(src, gluamapper.Option{NameFunc: gluamapper.Id})
	}
}

func (e *LuaEngine) DefineGlobal(name string, value interface{}, flags PropFlags) error {
	e.vm.SetGlobal(name, e.toLuaValue(e.vm, value))
	return nil
}

func (e *LuaEngine) DefineFunction(name string, fn Routine, arity int, flags PropFlags) error {
	e.vm.SetGlobal(name, e.function(name, fn, false))
	return nil
}

func (e *LuaEngine) DefineConstructor(typeName string, ctor Constructor, fin Finalizer, arity int) error {
	L := e.vm
	readOnly := L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("%s.%s is read-only", typeName, L.Get(2).String())
		return 0
	})

	t := &luaType{
		meta:    L.NewTypeMetatable(typeName),
		methods: L.NewTable(),
		proxy:   L.NewTable(),
	}
	guard := L.NewTable()
	guard.RawSetString("__index", t.methods)
	guard.RawSetString("__newindex", readOnly)
	guard.RawSetString("__metatable", lua.LFalse)
	L.SetMetatable(t.proxy, guard)

	t.meta.RawSetString("__index", t.proxy)
	t.meta.RawSetString("__newindex", readOnly)
	t.meta.RawSetString("__metatable", lua.LString(typeName))
	t.meta.RawSetString("__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("[object " + typeName + "]"))
		return 1
	}))

	class := L.NewTable()
	classMeta := L.NewTable()
	classMeta.RawSetString("__call", L.NewFunction(func(L *lua.LState) int {
		// argument 1 is the class table itself
		native, err := invoke(ctor, e.newCall(L, typeName, 2, false))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		ud := L.NewUserData()
		ud.Value = NewTypedHandle(typeName, native, fin)
		L.SetMetatable(ud, t.meta)
		L.Push(ud)
		return 1
	}))
	classMeta.RawSetString("__index", t.proxy)
	classMeta.RawSetString("__newindex", readOnly)
	classMeta.RawSetString("__metatable", lua.LString(typeName))
	L.SetMetatable(class, classMeta)
	L.SetGlobal(typeName, class)

	e.types[typeName] = t
	return nil
}

func (e *LuaEngine) DefineMethod(typeName, methodName string, fn Routine, arity int, flags PropFlags) error {
	t, ok := e.types[typeName]
	if !ok {
		return fmt.Errorf("jshell: %w: %s", ErrUnknownType, typeName)
	}
	f := e.function(typeName+"."+methodName, fn, true)
	if flags.Has(ReadOnly) {
		t.methods.RawSetString(methodName, f)
	} else {
		t.proxy.RawSetString(methodName, f)
	}
	return nil
}

func (e *LuaEngine) function(name string, fn Routine, method bool) *lua.LFunction {
	return e.vm.NewFunction(func(L *lua.LState) int {
		res, err := invoke(fn, e.newCall(L, name, 1, method))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		if res == nil {
			return 0
		}
		L.Push(e.toLuaValue(L, res))
		return 1
	})
}

// newCall collects the arguments starting at stack index first. For methods
// the receiver sits at index 1.
func (e *LuaEngine) newCall(L *lua.LState, name string, first int, method bool) *Call {
	c := &Call{Name: name}
	if method {
		if ud, ok := L.Get(1).(*lua.LUserData); ok {
			c.This, _ = ud.Value.(*TypedHandle)
		}
		first = 2
	}
	for i := first; i <= L.GetTop(); i++ {
		c.Args = append(c.Args, e.toGoValue(L.Get(i)))
	}
	return c
}

func (e *LuaEngine) Get(name string) (interface{}, error) {
	return e.toGoValue(e.vm.GetGlobal(name)), nil
}

func (e *LuaEngine) Call(scriptFuncName string, args ...interface{}) (interface{}, error) {
	luaArgs := make([]lua.LValue, len(args))
	for i := 0; i < len(args); i++ {
		luaArgs[i] = e.toLuaValue(e.vm, args[i])
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      e.vm.GetGlobal(scriptFuncName),
		NRet:    1,
		Protect: true,
		Handler: nil,
	}, luaArgs...); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRuntime, err.Error())
	}

	luaRet := e.vm.Get(-1)
	e.vm.Pop(1)
	return e.toGoValue(luaRet), nil
}

func (e *LuaEngine) Close() {
	e.vm.Close()
}
