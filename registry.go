package jshell

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Handle is an opaque token owning a loaded native module.
type Handle interface{}

// ShutdownHook releases a module's resources at teardown.
type ShutdownHook func() error

// Unloader releases module handles during teardown.
type Unloader interface {
	UnloadNative(h Handle) error
}

// LibraryRecord is one loaded native module.
type LibraryRecord struct {
	Name     string
	Handle   Handle
	Shutdown ShutdownHook
}

// Registry tracks loaded native modules. It starts empty, accepts each name
// once and is drained exactly once by TeardownAll, after which it rejects
// every registration.
type Registry struct {
	mu       sync.Mutex
	records  []LibraryRecord
	closed   bool
	unloader Unloader
	logger   *log.Logger
}

// NewRegistry creates an empty registry. unloader may be nil when handles need
// no release.
func NewRegistry(unloader Unloader, logger *log.Logger) *Registry {
	if logger == nil {
		logger = discardLogger()
	}
	return &Registry{
		unloader: unloader,
		logger:   logger,
	}
}

// Register records a loaded module. It returns false without side effects
// when name is already registered or teardown has begun.
func (r *Registry) Register(name string, handle Handle, shutdown ShutdownHook) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn("registry closed, rejecting library", "name", name)
		return false
	}
	if r.indexOf(name) >= 0 {
		return false
	}
	r.records = append(r.records, LibraryRecord{Name: name, Handle: handle, Shutdown: shutdown})
	r.logger.Debug("library registered", "name", name)
	return true
}

func (r *Registry) IsRegistered(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexOf(name) >= 0
}

func (r *Registry) indexOf(name string) int {
	for i, rec := range r.records {
		if rec.Name == name {
			return i
		}
	}
	return -1
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.records))
	for i, rec := range r.records {
		names[i] = rec.Name
	}
	return names
}

// Closed reports whether teardown has begun.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// TeardownAll runs every shutdown hook and releases every handle, newest
// module first. Failures are logged and teardown continues. Calls after the
// first do nothing.
func (r *Registry) TeardownAll() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	records := r.records
	r.records = nil
	r.mu.Unlock()

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.Shutdown != nil {
			if err := runShutdown(rec.Shutdown); err != nil {
				r.logger.Warn("library shutdown failed", "name", rec.Name, "err", err)
			}
		}
		if r.unloader != nil && rec.Handle != nil {
			if err := r.unloader.UnloadNative(rec.Handle); err != nil {
				r.logger.Warn("library unload failed", "name", rec.Name, "err", err)
			}
		}
		r.logger.Debug("library torn down", "name", rec.Name)
	}
}

func runShutdown(hook ShutdownHook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return hook()
}
