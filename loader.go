package jshell

import (
	"errors"
	"fmt"
)

// Symbols every native module may export.
const (
	// InitSymbol names the required entry point, a func(*Namespace) error
	// that binds the module's capabilities.
	InitSymbol = "Init"
	// ShutdownSymbol names the optional teardown hook, func() error or func().
	ShutdownSymbol = "Shutdown"
)

var (
	ErrLibraryNotFound = errors.New("library not found")
	ErrSymbolNotFound  = errors.New("symbol not found")
	ErrBadSymbol       = errors.New("symbol has unexpected type")
)

// Loader turns a module path into a handle and resolves symbols in it.
type Loader interface {
	Unloader
	// Extension is the file extension of modules the loader understands.
	Extension() string
	LoadNative(path string) (Handle, error)
	LookupSymbol(h Handle, name string) (interface{}, error)
}

// Resolver is implemented by loaders that locate modules without the
// library search path.
type Resolver interface {
	Resolve(name string) (string, bool)
}

func initFunc(sym interface{}) (func(*Namespace) error, error) {
	switch fn := sym.(type) {
	case func(*Namespace) error:
		return fn, nil
	case *func(*Namespace) error:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %s is %T", ErrBadSymbol, InitSymbol, sym)
}

func shutdownFunc(sym interface{}) (ShutdownHook, error) {
	switch fn := sym.(type) {
	case nil:
		return nil, nil
	case ShutdownHook:
		return fn, nil
	case func() error:
		return fn, nil
	case func():
		return func() error {
			fn()
			return nil
		}, nil
	case *func() error:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	case *func():
		if fn != nil && *fn != nil {
			f := *fn
			return func() error {
				f()
				return nil
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s is %T", ErrBadSymbol, ShutdownSymbol, sym)
}
