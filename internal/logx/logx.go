// Package logx provides the small component-prefixed, debug-gated logger used
// throughout this module: a stdlib log.Printf wrapper that only emits when
// Debug is set.
package logx

import (
	"log"
)

// Logger is a [component]-prefixed logger that is silent unless debug is enabled.
type Logger struct {
	component string
	debug     bool
}

// New returns a Logger for component, active only when debug is true.
func New(component string, debug bool) *Logger {
	return &Logger{component: component, debug: debug}
}

// Printf logs format/args with the component prefix, iff debug logging is enabled.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || !l.debug {
		return
	}
	log.Printf("[%s] "+format, append([]any{l.component}, args...)...)
}

// Enabled reports whether debug logging is active for this logger.
func (l *Logger) Enabled() bool { return l != nil && l.debug }
