// Package logx provides the small leveled logger used by every wrapper
// in this module, adapted from printmaster's common/logger: same
// Level/New(level, ...)/per-level-method shape, stripped of the file
// rotation, rate limiting and SSE-broadcast machinery that don't apply
// to an in-process library with no daemon lifecycle.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	Error Level = iota
	Warning
	Info
	Debug
)

var levelNames = map[Level]string{
	Error:   "ERROR",
	Warning: "WARNING",
	Info:    "INFO",
	Debug:   "DEBUG",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "UNKNOWN"
}

// Logger writes leveled, prefixed messages to an io.Writer (stderr by
// default), mirroring the original C source's lis_log_error/warning/
// info/debug call sites throughout every normalizer and workaround.
type Logger struct {
	mu     sync.Mutex
	level  Level
	out    io.Writer
	prefix string
}

// New creates a Logger at the given level. prefix identifies the
// wrapper (e.g. "bmp2raw", "dedicated_process:worker") the way the
// original's NAME #define does for each wrapper's log lines.
func New(level Level, prefix string) *Logger {
	return &Logger{level: level, out: os.Stderr, prefix: prefix}
}

// Named returns a copy of l scoped to a sub-component, e.g.
// base.Named("source_nodes").
func (l *Logger) Named(sub string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := sub
	if l.prefix != "" {
		prefix = l.prefix + ":" + sub
	}
	return &Logger{level: l.level, out: l.out, prefix: prefix}
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	var b strings.Builder
	b.WriteString(level.String())
	if l.prefix != "" {
		b.WriteString(" [")
		b.WriteString(l.prefix)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(msg)
	b.WriteString("\n")
	io.WriteString(l.out, b.String())
}

func (l *Logger) Errorf(format string, args ...interface{})   { l.log(Error, format, args...) }
func (l *Logger) Warningf(format string, args ...interface{}) { l.log(Warning, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})    { l.log(Info, format, args...) }
func (l *Logger) Debugf(format string, args ...interface{})   { l.log(Debug, format, args...) }

// Default is the package-level logger every package in this module
// logs through, directly or via Named. Its level defaults to Warning so a
// library import is quiet by default.
var Default = New(Warning, "")
