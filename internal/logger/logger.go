package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LevelEnv selects the minimum level; "debug" enables Debug output.
const LevelEnv = "DENTALSYNTH_LOG_LEVEL"

// Logger provides leveled logging to a writer and an optional file.
type Logger struct {
	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	debug      bool
	file       *os.File
	mu         sync.Mutex
}

// New creates a Logger writing to w. Debug output follows LevelEnv.
func New(w io.Writer) *Logger {
	l := &Logger{debug: strings.EqualFold(os.Getenv(LevelEnv), "debug")}
	l.setupLoggers(w)
	return l
}

// NewWithFile creates a Logger that writes to w and appends to path.
func NewWithFile(w io.Writer, path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	l := New(io.MultiWriter(w, f))
	l.file = f
	return l, nil
}

func (l *Logger) setupLoggers(w io.Writer) {
	flags := log.Ldate | log.Ltime
	l.debugLog = log.New(w, "DEBUG   ", flags)
	l.infoLog = log.New(w, "INFO    ", flags)
	l.warningLog = log.New(w, "WARNING ", flags)
	l.errorLog = log.New(w, "ERROR   ", flags)
}

// SetDebug toggles debug output.
func (l *Logger) SetDebug(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = on
}

// Debug writes a formatted debug-level entry when debug output is enabled.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.debug {
		l.debugLog.Printf(format, v...)
	}
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard)
}
