package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

type Logger struct {
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
	level Level
}

// New returns a logger writing to stdout (stderr for errors) at the level
// named by LOG_LEVEL.
func New() *Logger {
	return NewWithWriter(os.Stdout, os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
}

func NewWithWriter(out, errOut io.Writer, level Level) *Logger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	return &Logger{
		debug: log.New(out, "DEBUG: ", flags),
		info:  log.New(out, "INFO: ", flags),
		warn:  log.New(out, "WARN: ", flags),
		error: log.New(errOut, "ERROR: ", flags),
		level: level,
	}
}

// ParseLevel is case-insensitive; unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if l.level <= LevelDebug {
		l.debug.Output(2, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	if l.level <= LevelInfo {
		l.info.Output(2, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if l.level <= LevelWarn {
		l.warn.Output(2, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.error.Output(2, fmt.Sprintf(format, v...))
}
