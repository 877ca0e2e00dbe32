package jshell

import (
	"errors"
	"fmt"
)

var (
	// ErrCompile marks errors returned by Engine.Compile.
	ErrCompile = errors.New("compile error")
	// ErrRuntime marks errors returned by Engine.Run and Engine.Call.
	ErrRuntime = errors.New("runtime error")
	// ErrUnknownType is returned when a method is bound to a type that has no
	// constructor in the engine.
	ErrUnknownType = errors.New("unknown native type")
	// ErrUnknownEngine is returned by NewEngine for an unsupported kind.
	ErrUnknownEngine = errors.New("unknown engine type")
)

// Program is compiled source ready to run in the engine that compiled it.
type Program struct {
	Name string
	code interface{}
}

// Engine is the embedded script runtime capabilities are bound into.
type Engine interface {
	Kind() string
	// Extension is the file extension of scripts the engine runs.
	Extension() string

	Compile(name string, src []byte) (*Program, error)
	Run(p *Program) error

	DefineGlobal(name string, value interface{}, flags PropFlags) error
	DefineFunction(name string, fn Routine, arity int, flags PropFlags) error
	DefineConstructor(typeName string, ctor Constructor, fin Finalizer, arity int) error
	DefineMethod(typeName, methodName string, fn Routine, arity int, flags PropFlags) error

	Get(name string) (interface{}, error)
	Call(scriptFuncName string, args ...interface{}) (interface{}, error)

	Close()
}

type engineConfig struct {
	noNetwork bool
}

// EngineOption tunes an engine created by NewEngine.
type EngineOption func(*engineConfig)

// WithoutNetwork keeps networking modules out of the engine. Engines without
// such modules ignore it.
func WithoutNetwork() EngineOption {
	return func(c *engineConfig) {
		c.noNetwork = true
	}
}

// NewEngine creates an engine of the given kind.
func NewEngine(engineType string, opts ...EngineOption) (Engine, error) {
	switch engineType {
	case TypeEngineJs:
		return NewJsEngine(), nil
	case TypeEngineLua:
		return NewLuaEngine(opts...), nil
	}
	return nil, fmt.Errorf("jshell: %w: %q", ErrUnknownEngine, engineType)
}

// RunSource compiles and runs src in e.
func RunSource(e Engine, name string, src []byte) error {
	p, err := e.Compile(name, src)
	if err != nil {
		return err
	}
	return e.Run(p)
}
