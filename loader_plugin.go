//go:build (linux || darwin || freebsd) && cgo

package jshell

import (
	"fmt"
	"plugin"
)

// PluginLoader loads modules built with -buildmode=plugin.
type PluginLoader struct{}

func NewPluginLoader() *PluginLoader {
	return &PluginLoader{}
}

func (l *PluginLoader) Extension() string {
	return ".so"
}

func (l *PluginLoader) LoadNative(path string) (Handle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jshell: load %s: %w", path, err)
	}
	return p, nil
}

func (l *PluginLoader) LookupSymbol(h Handle, name string) (interface{}, error) {
	p, ok := h.(*plugin.Plugin)
	if !ok {
		return nil, fmt.Errorf("jshell: foreign handle %T", h)
	}
	sym, err := p.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("jshell: %w: %s", ErrSymbolNotFound, name)
	}
	return sym, nil
}

// UnloadNative is a no-op: Go plugins stay mapped until the process exits.
func (l *PluginLoader) UnloadNative(h Handle) error {
	return nil
}
