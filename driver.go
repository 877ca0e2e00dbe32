package jshell

import (
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

var ErrFileNotFound = errors.New("file not found")

// Status is the outcome of running a script file.
type Status int

const (
	StatusSuccess Status = iota
	StatusCompileError
	StatusRuntimeError
	StatusFileNotFound
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusCompileError:
		return "compileError"
	case StatusRuntimeError:
		return "runtimeError"
	case StatusFileNotFound:
		return "fileNotFound"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is a step of a RunFile call.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateCompiled
	StateCompileError
	StateRuntimeError
	StateCompleted
	StateFileNotFound
)

var stateNames = [...]string{"Idle", "Loading", "Compiled", "CompileError", "RuntimeError", "Completed", "FileNotFound"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Driver runs script files synchronously in one engine.
type Driver struct {
	engine Engine
	fs     afero.Fs
	logger *log.Logger
	state  State
}

func NewDriver(e Engine, fs afero.Fs, logger *log.Logger) *Driver {
	if logger == nil {
		logger = discardLogger()
	}
	return &Driver{engine: e, fs: fs, logger: logger}
}

// State returns the last state reached by RunFile.
func (d *Driver) State() State {
	return d.state
}

func (d *Driver) transition(s State, path string) {
	d.state = s
	d.logger.Debug("script", "file", path, "state", s)
}

// RunFile loads, compiles and runs path to completion. Compile and runtime
// failures are logged as uncaught script errors and returned with their
// status.
func (d *Driver) RunFile(path string) (Status, error) {
	d.transition(StateLoading, path)
	src, err := afero.ReadFile(d.fs, path)
	if errors.Is(err, iofs.ErrNotExist) {
		d.transition(StateFileNotFound, path)
		return StatusFileNotFound, fmt.Errorf("jshell: %w: %s: %w", ErrFileNotFound, path, err)
	}
	if err != nil {
		// present but unreadable
		d.transition(StateRuntimeError, path)
		d.logger.Error("script load failed", "file", path, "err", err)
		return StatusRuntimeError, fmt.Errorf("jshell: read %s: %w", path, err)
	}

	p, err := d.engine.Compile(path, src)
	if err != nil {
		d.transition(StateCompileError, path)
		d.logger.Error("uncaught script error", "file", path, "err", err)
		return StatusCompileError, err
	}
	d.transition(StateCompiled, path)

	if err := d.engine.Run(p); err != nil {
		d.transition(StateRuntimeError, path)
		d.logger.Error("uncaught script error", "file", path, "err", err)
		return StatusRuntimeError, err
	}
	d.transition(StateCompleted, path)
	return StatusSuccess, nil
}
