package jshell

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// LogPrefix marks lines written by the shell itself.
const LogPrefix = ">>>"

// NewLogger creates the shell logger writing to w.
func NewLogger(w io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          LogPrefix,
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
