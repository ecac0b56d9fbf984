// Package debug provides conditional debug logging for agglo.
//
// Debug logging is enabled by setting the AGGLO_DEBUG environment variable:
//
//	AGGLO_DEBUG=1 agglo
//
// When enabled, debug messages are written to stderr with timestamps.
// When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	debug.Log("loaded %d rows", n)
//	defer debug.LogEnterExit("BuildMap")()
package debug

import (
	"io"
	"log"
	"os"
	"time"
)

const prefix = "[AGGLO_DEBUG] "

var (
	// enabled is true when AGGLO_DEBUG env var is set
	enabled bool
	// logger writes to stderr with [AGGLO_DEBUG] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("AGGLO_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output. The Bubble Tea UI owns stderr's terminal,
// so the TUI points this at a log file instead.
func SetOutput(w io.Writer) {
	if logger == nil {
		logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
		return
	}
	logger.SetOutput(w)
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogChange records a selection change as "name = value".
func LogChange(name string, value any) {
	if !enabled {
		return
	}
	logger.Printf("change %s = %v", name, value)
}

// LogEnterExit logs function entry and exit with timing.
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Section logs a section header for visual organization in debug output.
func Section(name string) {
	if !enabled {
		return
	}
	logger.Printf("=== %s ===", name)
}
