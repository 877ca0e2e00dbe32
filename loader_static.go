package jshell

import (
	"fmt"
	"sync"
)

// Module is a native module compiled into the host binary.
type Module struct {
	Init     func(ns *Namespace) error
	Shutdown func() error
}

// StaticLoader serves modules linked into the host. It works on every
// platform.
type StaticLoader struct {
	mu      sync.RWMutex
	modules map[string]Module
}

type staticHandle struct {
	name   string
	module Module
}

func NewStaticLoader() *StaticLoader {
	return &StaticLoader{modules: make(map[string]Module)}
}

// Add makes m loadable under name, replacing any module already there.
func (l *StaticLoader) Add(name string, m Module) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules[name] = m
}

func (l *StaticLoader) Extension() string {
	return ""
}

func (l *StaticLoader) Resolve(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.modules[name]
	return name, ok
}

func (l *StaticLoader) LoadNative(path string) (Handle, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.modules[path]
	if !ok {
		return nil, fmt.Errorf("jshell: %w: %s", ErrLibraryNotFound, path)
	}
	return &staticHandle{name: path, module: m}, nil
}

func (l *StaticLoader) LookupSymbol(h Handle, name string) (interface{}, error) {
	sh, ok := h.(*staticHandle)
	if !ok {
		return nil, fmt.Errorf("jshell: foreign handle %T", h)
	}
	switch {
	case name == InitSymbol && sh.module.Init != nil:
		return sh.module.Init, nil
	case name == ShutdownSymbol && sh.module.Shutdown != nil:
		return sh.module.Shutdown, nil
	}
	return nil, fmt.Errorf("jshell: %s: %w: %s", sh.name, ErrSymbolNotFound, name)
}

func (l *StaticLoader) UnloadNative(h Handle) error {
	return nil
}
