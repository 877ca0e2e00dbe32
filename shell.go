package jshell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

const (
	// Version is reported to scripts as JSH_VERSION.
	Version = "1.0.0"

	DefaultBootDir     = "JSBOOT/"
	DefaultBootArchive = "JSBOOT.ZIP"
	DefaultLogFile     = "JSLOG.TXT"

	// BootPathVar is the global holding the boot directory prefix.
	BootPathVar = "JSBOOTPATH"
	VersionVar  = "JSH_VERSION"
)

var ErrShellClosed = errors.New("shell closed")

// Options configures a Shell. Zero values select the defaults.
type Options struct {
	// EngineType selects the engine when Engine is nil.
	EngineType string
	Engine     Engine
	Fs         afero.Fs
	// Loader loads native modules. Without one every LoadLibrary reports
	// UnsupportedOnPlatform.
	Loader      Loader
	LibraryPath []string
	BootDir     string
	// BootArchive is mounted beneath Fs when it exists. Set to "-" to disable.
	BootArchive string
	Logger      *log.Logger
	Stdout      io.Writer
	// NoNetwork keeps networking modules out of the engine.
	NoNetwork bool
}

// Shell ties one engine to its capability namespace, native module registry
// and script driver. It is not safe for concurrent use.
type Shell struct {
	engine   Engine
	ns       *Namespace
	registry *Registry
	driver   *Driver
	loader   Loader
	fs       afero.Fs
	logger   *log.Logger
	stdout   io.Writer

	bootDir     string
	libraryPath []string
	closed      bool
}

func New(opts Options) (*Shell, error) {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.BootDir == "" {
		opts.BootDir = DefaultBootDir
	}
	if opts.BootArchive == "" {
		opts.BootArchive = DefaultBootArchive
	}
	if len(opts.LibraryPath) == 0 {
		opts.LibraryPath = []string{"."}
	}

	fs := opts.Fs
	if opts.BootArchive != "-" {
		mounted, ok, err := MountBootArchive(fs, opts.BootArchive)
		if err != nil {
			return nil, err
		}
		if ok {
			opts.Logger.Info("boot archive mounted", "archive", opts.BootArchive)
		}
		fs = mounted
	}

	e := opts.Engine
	if e == nil {
		if opts.EngineType == "" {
			opts.EngineType = TypeEngineJs
		}
		var engineOpts []EngineOption
		if opts.NoNetwork {
			engineOpts = append(engineOpts, WithoutNetwork())
		}
		var err error
		if e, err = NewEngine(opts.EngineType, engineOpts...); err != nil {
			return nil, err
		}
	}

	s := &Shell{
		engine:      e,
		ns:          NewNamespace(e),
		registry:    NewRegistry(opts.Loader, opts.Logger),
		driver:      NewDriver(e, fs, opts.Logger),
		loader:      opts.Loader,
		fs:          fs,
		logger:      opts.Logger,
		stdout:      opts.Stdout,
		bootDir:     opts.BootDir,
		libraryPath: opts.LibraryPath,
	}
	if err := s.installBuiltins(); err != nil {
		e.Close()
		return nil, err
	}
	return s, nil
}

func (s *Shell) Engine() Engine {
	return s.engine
}

func (s *Shell) Namespace() *Namespace {
	return s.ns
}

func (s *Shell) Registry() *Registry {
	return s.registry
}

func (s *Shell) Fs() afero.Fs {
	return s.fs
}

// Boot runs every script in the boot directory in lexical order. A missing
// boot directory is not an error.
func (s *Shell) Boot() error {
	infos, err := afero.ReadDir(s.fs, s.bootDir)
	if err != nil {
		s.logger.Debug("no boot directory", "dir", s.bootDir)
		return nil
	}
	for _, info := range infos {
		if info.IsDir() || filepath.Ext(info.Name()) != s.engine.Extension() {
			continue
		}
		path := filepath.Join(s.bootDir, info.Name())
		if status, err := s.driver.RunFile(path); status != StatusSuccess {
			return fmt.Errorf("jshell: boot %s: %s: %w", path, status, err)
		}
	}
	return nil
}

// RunFile runs a script file in the shell's engine.
func (s *Shell) RunFile(path string) (Status, error) {
	if s.closed {
		return StatusRuntimeError, ErrShellClosed
	}
	return s.driver.RunFile(path)
}

// LoadLibrary loads the native module name, binds its capabilities and records
// it in the registry. It returns false when the module is already loaded.
func (s *Shell) LoadLibrary(name string) (bool, error) {
	if s.registry.IsRegistered(name) {
		return false, nil
	}
	if s.registry.Closed() {
		return false, fmt.Errorf("jshell: load %s: %w", name, ErrShellClosed)
	}
	if s.loader == nil {
		return false, UnsupportedOnPlatform()
	}

	path, err := s.resolve(name)
	if err != nil {
		return false, err
	}
	h, err := s.loader.LoadNative(path)
	if err != nil {
		return false, err
	}

	ok, err := s.initLibrary(name, h)
	if err != nil || !ok {
		if uerr := s.loader.UnloadNative(h); uerr != nil {
			s.logger.Warn("library unload failed", "name", name, "err", uerr)
		}
		return false, err
	}
	s.logger.Info("library loaded", "name", name, "path", path)
	return true, nil
}

func (s *Shell) initLibrary(name string, h Handle) (bool, error) {
	sym, err := s.loader.LookupSymbol(h, InitSymbol)
	if err != nil {
		return false, err
	}
	init, err := initFunc(sym)
	if err != nil {
		return false, err
	}

	var shutdown ShutdownHook
	sym, err = s.loader.LookupSymbol(h, ShutdownSymbol)
	switch {
	case err == nil:
		if shutdown, err = shutdownFunc(sym); err != nil {
			return false, err
		}
	case !errors.Is(err, ErrSymbolNotFound):
		return false, err
	}

	before := s.ns.names()
	if err := init(s.ns); err != nil {
		if left := s.ns.namesSince(before); len(left) > 0 {
			s.logger.Warn("library init failed, bindings stay in place", "name", name, "bound", left)
		}
		return false, fmt.Errorf("jshell: init %s: %w", name, err)
	}
	if !s.registry.Register(name, h, shutdown) {
		// lost against a concurrent load or teardown
		if shutdown != nil {
			if err := runShutdown(shutdown); err != nil {
				s.logger.Warn("library shutdown failed", "name", name, "err", err)
			}
		}
		return false, nil
	}
	return true, nil
}

func (s *Shell) resolve(name string) (string, error) {
	if r, ok := s.loader.(Resolver); ok {
		if path, ok := r.Resolve(name); ok {
			return path, nil
		}
		return "", fmt.Errorf("jshell: %w: %s", ErrLibraryNotFound, name)
	}
	file := name
	if ext := s.loader.Extension(); ext != "" && !strings.HasSuffix(name, ext) {
		file += ext
	}
	for _, dir := range s.libraryPath {
		path := filepath.Join(dir, file)
		if ok, _ := afero.Exists(s.fs, path); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("jshell: %w: %s", ErrLibraryNotFound, name)
}

// Close tears down every loaded library and closes the engine. Calls after
// the first do nothing.
func (s *Shell) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.registry.TeardownAll()
	s.engine.Close()
}
