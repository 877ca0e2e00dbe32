package jshell

import (
	"fmt"
	"strings"
)

// installBuiltins binds the shell's own capabilities.
func (s *Shell) installBuiltins() error {
	isLoaded, err := FuncRoutine(s.registry.IsRegistered)
	if err != nil {
		return err
	}
	loadLibrary, err := FuncRoutine(s.LoadLibrary)
	if err != nil {
		return err
	}

	for _, f := range []struct {
		name  string
		fn    Routine
		arity int
	}{
		{"Print", s.print(false), 1},
		{"Println", s.print(true), 1},
		{"Include", s.include, 1},
		{"LoadLibrary", loadLibrary, 1},
		{"IsLibraryLoaded", isLoaded, 1},
	} {
		if err := s.ns.ExposeGlobalFunction(f.name, f.fn, f.arity); err != nil {
			return fmt.Errorf("jshell: bind %s: %w", f.name, err)
		}
	}

	if err := s.ns.ExposeProperty(BootPathVar, s.bootDir); err != nil {
		return err
	}
	if err := s.ns.ExposeProperty(VersionVar, Version); err != nil {
		return err
	}
	return s.installFile()
}

func (s *Shell) print(newline bool) Routine {
	return func(c *Call) (interface{}, error) {
		parts := make([]string, len(c.Args))
		for i, a := range c.Args {
			parts[i] = scriptString(a)
		}
		line := strings.Join(parts, " ")
		if newline {
			line += "\n"
		}
		_, err := fmt.Fprint(s.stdout, line)
		return nil, err
	}
}

func scriptString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "undefined"
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
	}
	return fmt.Sprint(v)
}

func (s *Shell) include(c *Call) (interface{}, error) {
	path, err := c.String(0)
	if err != nil {
		return nil, err
	}
	if status, err := s.driver.RunFile(path); status != StatusSuccess {
		return nil, fmt.Errorf("include %s: %s: %w", path, status, err)
	}
	return nil, nil
}
