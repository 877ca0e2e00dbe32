package jshell

import (
	"fmt"
	"go/parser"
	"go/token"
	"reflect"

	"github.com/spf13/afero"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// HostImportPath is the import path Go-source modules use for the host API.
const HostImportPath = "github.com/icyseptember2237/jshell"

// Symbols is the host API visible to Go-source modules.
var Symbols = interp.Exports{
	HostImportPath + "/jshell": {
		"Call":        reflect.ValueOf((*Call)(nil)),
		"Constructor": reflect.ValueOf((*Constructor)(nil)),
		"Finalizer":   reflect.ValueOf((*Finalizer)(nil)),
		"Namespace":   reflect.ValueOf((*Namespace)(nil)),
		"Routine":     reflect.ValueOf((*Routine)(nil)),
		"ScriptError": reflect.ValueOf((*ScriptError)(nil)),
		"TypedHandle": reflect.ValueOf((*TypedHandle)(nil)),

		"RequireArray":       reflect.ValueOf(RequireArray),
		"RequireHandleType":  reflect.ValueOf(RequireHandleType),
		"RequireIndex":       reflect.ValueOf(RequireIndex),
		"RequireNonNegative": reflect.ValueOf(RequireNonNegative[int64]),

		"ArrayExpected":         reflect.ValueOf(ArrayExpected),
		"IndexOutOfBounds":      reflect.ValueOf(IndexOutOfBounds),
		"NonNegativeExpected":   reflect.ValueOf(NonNegativeExpected),
		"OutOfMemory":           reflect.ValueOf(OutOfMemory),
		"TypeMismatch":          reflect.ValueOf(TypeMismatch),
		"UnsupportedOnPlatform": reflect.ValueOf(UnsupportedOnPlatform),
	},
}

// GoLoader runs native modules shipped as Go source, interpreted by yaegi.
// Each module gets its own interpreter.
type GoLoader struct {
	fs afero.Fs
}

type goModule struct {
	path string
	pkg  string
	i    *interp.Interpreter
}

func NewGoLoader(fs afero.Fs) *GoLoader {
	return &GoLoader{fs: fs}
}

func (l *GoLoader) Extension() string {
	return ".go"
}

func (l *GoLoader) LoadNative(path string) (Handle, error) {
	src, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("jshell: load %s: %w", path, err)
	}
	f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.PackageClauseOnly)
	if err != nil {
		return nil, fmt.Errorf("jshell: load %s: %w", path, err)
	}
	if f.Name.Name == "main" {
		return nil, fmt.Errorf("jshell: load %s: module must not be package main", path)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("jshell: load %s: %w", path, err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("jshell: load %s: %w", path, err)
	}
	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("jshell: load %s: %w", path, err)
	}
	return &goModule{path: path, pkg: f.Name.Name, i: i}, nil
}

func (l *GoLoader) LookupSymbol(h Handle, name string) (interface{}, error) {
	m, ok := h.(*goModule)
	if !ok {
		return nil, fmt.Errorf("jshell: foreign handle %T", h)
	}
	v, err := m.i.Eval(m.pkg + "." + name)
	if err != nil || !v.IsValid() {
		return nil, fmt.Errorf("jshell: %s: %w: %s", m.path, ErrSymbolNotFound, name)
	}
	return v.Interface(), nil
}

// UnloadNative drops the interpreter; yaegi has no explicit release.
func (l *GoLoader) UnloadNative(h Handle) error {
	if m, ok := h.(*goModule); ok {
		m.i = nil
	}
	return nil
}
