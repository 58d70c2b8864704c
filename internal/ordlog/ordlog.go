// Package ordlog is the ambient logger: one *log.Logger per open index, silent unless
// the caller's DebugLog tunable is set, so a quiet embedded index never writes to the
// host process's stderr uninvited.
package ordlog

import (
	"log"
	"os"
)

// Logger gates debug output behind a single bool so a quiet index pays nothing for it.
type Logger struct {
	enabled bool
	l       *log.Logger
}

// New returns a Logger that writes to stderr with an "ordinex: " prefix when enabled is true.
func New(enabled bool) *Logger {
	return &Logger{enabled: enabled, l: log.New(os.Stderr, "ordinex: ", log.LstdFlags)}
}

// Printf logs a formatted line when debug logging is enabled; otherwise it's a no-op.
func (lg *Logger) Printf(format string, args ...interface{}) {
	if lg == nil || !lg.enabled { return }
	lg.l.Printf(format, args...)
}
