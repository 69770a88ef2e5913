// Package logging provides a small leveled logger on top of the standard
// log package.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is a logging severity.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger writes messages at or below its level. A nil *Logger discards
// everything.
type Logger struct {
	level  Level
	logger *log.Logger
}

// New creates a logger writing to w with the given prefix.
func New(w io.Writer, level Level, prefix string) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
	}
}

// NewStderr creates a logger writing to standard error.
func NewStderr(level Level) *Logger {
	return New(os.Stderr, level, "diffsim ")
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return New(io.Discard, LevelError, "")
}

// Level returns the current level.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelError
	}
	return l.level
}

// SetLevel adjusts the level.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.level = level
}

func (l *Logger) logf(target Level, format string, args ...any) {
	if l == nil || target > l.level {
		return
	}
	l.logger.Output(3, "["+target.String()+"] "+fmt.Sprintf(format, args...))
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...any) { l.logf(LevelWarn, format, args...) }

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }
