// Package isolog provides the leveled, process-wide-free logger used across
// isobusfs. It is injected into the engine and loop as a small config
// record rather than read from package globals (see DESIGN.md, "Global
// mutable logging and interactive-mode flags").
package isolog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is the --log-level value from the CLI (§6.2 of the spec).
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "?"
	}
}

// Logger is a small level-gated logger. The zero value has no writer
// and is not usable; build one with New or Nop.
type Logger struct {
	mu     sync.Mutex
	level  Level
	out    io.Writer
	color  bool
	prefix string
}

// New creates a Logger writing to a colorable stderr, matching the
// behaviour of an interactive terminal session; non-tty output (piped
// to a file, or under a test harness) degrades to plain text.
func New(level Level, prefix string) *Logger {
	f := os.Stderr
	color := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return &Logger{
		level:  level,
		out:    colorable.NewColorable(f),
		color:  color,
		prefix: prefix,
	}
}

// SetLevel adjusts the logger's level at runtime (e.g. in response to a
// config reload); it never needs external synchronization beyond the
// Logger's own mutex.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		fmt.Fprintf(l.out, "%s %-5s %s: %s\n", ts, level, l.prefix, msg)
	} else {
		fmt.Fprintf(l.out, "%s %-5s %s\n", ts, level, msg)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Tracef(format string, args ...interface{}) { l.logf(LevelTrace, format, args...) }

// WithPrefix returns a derived logger sharing level and destination but
// tagged with a different prefix (e.g. a per-client-session logger on
// the server side, tagged with the J1939 source address).
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{level: l.level, out: l.out, color: l.color, prefix: prefix}
}

// Nop returns a logger that discards everything, used in tests that do
// not care about log output.
func Nop() *Logger {
	return &Logger{level: LevelError - 1, out: io.Discard}
}
