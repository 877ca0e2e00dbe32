package jshell

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// FileType is the script type name of File instances.
const FileType = "File"

var errFileClosed = errors.New("file already closed")

type scriptFile struct {
	f      afero.File
	r      *bufio.Reader
	closed bool
}

func (sf *scriptFile) close() error {
	if sf.closed {
		return nil
	}
	sf.closed = true
	return sf.f.Close()
}

func (s *Shell) installFile() error {
	if err := s.ns.ExposeConstructor(FileType, s.newFile, closeLeakedFile, 2); err != nil {
		return err
	}
	for _, m := range []struct {
		name  string
		fn    Routine
		arity int
	}{
		{"ReadLine", fileReadLine, 0},
		{"WriteString", fileWrite(false), 1},
		{"WriteLine", fileWrite(true), 1},
		{"WriteBytes", fileWriteBytes, 1},
		{"Close", fileClose, 0},
	} {
		if err := s.ns.ExposeMethod(FileType, m.name, m.fn, m.arity); err != nil {
			return err
		}
	}
	return nil
}

// newFile opens path with mode "r" (default), "w" or "a".
func (s *Shell) newFile(c *Call) (interface{}, error) {
	path, err := c.String(0)
	if err != nil {
		return nil, err
	}
	mode := "r"
	if c.Arg(1) != nil {
		if mode, err = c.String(1); err != nil {
			return nil, err
		}
	}
	var flag int
	switch mode {
	case "r":
		flag = os.O_RDONLY
	case "w":
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "a":
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return nil, TypeMismatch(`Mode "r", "w" or "a"`)
	}
	f, err := s.fs.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	return &scriptFile{f: f, r: bufio.NewReader(f)}, nil
}

func closeLeakedFile(native interface{}) {
	if sf, ok := native.(*scriptFile); ok {
		_ = sf.close()
	}
}

func thisFile(c *Call) (*scriptFile, error) {
	native, err := RequireHandleType(c.This, FileType)
	if err != nil {
		return nil, err
	}
	sf := native.(*scriptFile)
	if sf.closed {
		return nil, errFileClosed
	}
	return sf, nil
}

// fileReadLine returns the next line without its terminator, or null at end
// of file.
func fileReadLine(c *Call) (interface{}, error) {
	sf, err := thisFile(c)
	if err != nil {
		return nil, err
	}
	line, err := sf.r.ReadString('\n')
	if err == io.EOF && line == "" {
		return nil, nil
	}
	if err != nil && err != io.EOF {
		return nil, err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func fileWrite(newline bool) Routine {
	return func(c *Call) (interface{}, error) {
		sf, err := thisFile(c)
		if err != nil {
			return nil, err
		}
		text, err := c.String(0)
		if err != nil {
			return nil, err
		}
		if newline {
			text += "\n"
		}
		_, err = io.WriteString(sf.f, text)
		return nil, err
	}
}

func fileWriteBytes(c *Call) (interface{}, error) {
	sf, err := thisFile(c)
	if err != nil {
		return nil, err
	}
	elems, err := RequireArray(c.Arg(0))
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(elems))
	bytesCall := &Call{Name: c.Name, Args: elems}
	for i := range elems {
		n, err := bytesCall.Int(i)
		if err != nil {
			return nil, err
		}
		if n, err = RequireNonNegative(n); err != nil {
			return nil, err
		}
		if n > 0xff {
			return nil, TypeMismatch("Byte")
		}
		data[i] = byte(n)
	}
	_, err = sf.f.Write(data)
	return nil, err
}

func fileClose(c *Call) (interface{}, error) {
	sf, err := thisFile(c)
	if err != nil {
		return nil, err
	}
	return nil, sf.close()
}
