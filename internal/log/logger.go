// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var (
	currentLevel atomic.Uint32
	backend      = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)
	root         = &Logger{}
)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects every logger. The bars TUI uses this to keep the
// alternate screen clean.
func SetOutput(w io.Writer) {
	backend.SetOutput(w)
}

func enabled(level LogLevel) bool {
	return level >= GetLevel()
}

// Logger writes leveled messages tagged with a component name. The zero
// value logs without a tag.
type Logger struct {
	name string
}

// Named returns a logger whose messages are prefixed with "name: ".
func Named(name string) *Logger {
	return &Logger{name: name}
}

func (l *Logger) output(level LogLevel, msg string) {
	// Pad the short level names so messages line up.
	pad := ""
	if level == LevelInfo || level == LevelWarn {
		pad = " "
	}
	if l.name == "" {
		backend.Printf("[%s]%s %s", level, pad, msg)
		return
	}
	backend.Printf("[%s]%s %s: %s", level, pad, l.name, msg)
}

// Enabled reports whether messages at level would be written. Hot paths use
// it to skip formatting entirely.
func (l *Logger) Enabled(level LogLevel) bool {
	return enabled(level)
}

func (l *Logger) Debugf(format string, v ...any) {
	if enabled(LevelDebug) {
		l.output(LevelDebug, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Infof(format string, v ...any) {
	if enabled(LevelInfo) {
		l.output(LevelInfo, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Warnf(format string, v ...any) {
	if enabled(LevelWarn) {
		l.output(LevelWarn, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Errorf(format string, v ...any) {
	if enabled(LevelError) {
		l.output(LevelError, fmt.Sprintf(format, v...))
	}
}

// Fatalf always logs, then exits the process.
func (l *Logger) Fatalf(format string, v ...any) {
	l.output(LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Package-level helpers log through the untagged root logger.

func Debugf(format string, v ...any) { root.Debugf(format, v...) }
func Infof(format string, v ...any)  { root.Infof(format, v...) }
func Warnf(format string, v ...any)  { root.Warnf(format, v...) }
func Errorf(format string, v ...any) { root.Errorf(format, v...) }
func Fatalf(format string, v ...any) { root.Fatalf(format, v...) }

func Debug(v ...any) {
	if enabled(LevelDebug) {
		root.output(LevelDebug, fmt.Sprint(v...))
	}
}

func Info(v ...any) {
	if enabled(LevelInfo) {
		root.output(LevelInfo, fmt.Sprint(v...))
	}
}

func Warn(v ...any) {
	if enabled(LevelWarn) {
		root.output(LevelWarn, fmt.Sprint(v...))
	}
}

func Error(v ...any) {
	if enabled(LevelError) {
		root.output(LevelError, fmt.Sprint(v...))
	}
}

func Fatal(v ...any) {
	root.output(LevelFatal, fmt.Sprint(v...))
	os.Exit(1)
}
