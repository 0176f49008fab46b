package system

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// LogLevel represents logging severity
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

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
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel maps a config string to a LogLevel. Unknown values fall back to info.
func ParseLogLevel(s string) LogLevel {
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

func (l LogLevel) logrus() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// LoggerOptions controls where the global logger writes.
type LoggerOptions struct {
	Dir   string
	Level LogLevel
	// Console mirrors entries to stdout. The terminal dashboard turns it off
	// because stdout belongs to the renderer there.
	Console bool
}

// Logger provides file-based logging with daily rotation
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	entries *log.Logger
	logDir  string
	console bool
	date    string
}

// Global logger instance
var globalLogger *Logger

// InitLogger initializes the global logger
func InitLogger(opts LoggerOptions) error {
	if opts.Dir == "" {
		opts.Dir = "./logs"
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	entries := log.New()
	entries.Formatter = &log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	}
	entries.Level = opts.Level.logrus()

	l := &Logger{
		entries: entries,
		logDir:  opts.Dir,
		console: opts.Console,
	}
	if err := l.rotateIfNeeded(); err != nil {
		return err
	}

	globalLogger = l
	return nil
}

// rotateIfNeeded checks if log rotation is needed (daily)
func (l *Logger) rotateIfNeeded() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if l.date == today && l.file != nil {
		return nil
	}

	if l.file != nil {
		l.file.Close()
	}

	logPath := filepath.Join(l.logDir, fmt.Sprintf("cwatch-dashboard-%s.log", today))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = file
	if l.console {
		out = io.MultiWriter(os.Stdout, file)
	}

	l.file = file
	l.entries.SetOutput(out)
	l.date = today

	return nil
}

// Log writes a log entry
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	if l == nil || l.entries == nil {
		log.StandardLogger().Logf(level.logrus(), format, args...)
		return
	}

	_ = l.rotateIfNeeded()
	l.entries.Logf(level.logrus(), format, args...)
}

// WithFields returns an entry carrying structured fields, for callers that
// want key/value context instead of formatted text.
func WithFields(fields map[string]interface{}) *log.Entry {
	if globalLogger != nil && globalLogger.entries != nil {
		_ = globalLogger.rotateIfNeeded()
		return globalLogger.entries.WithFields(fields)
	}
	return log.WithFields(fields)
}

// Package-level logging functions

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	globalLogger.Log(LevelDebug, format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	globalLogger.Log(LevelInfo, format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	globalLogger.Log(LevelWarn, format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	globalLogger.Log(LevelError, format, args...)
}

// Close closes the logger
func Close() {
	if globalLogger == nil {
		return
	}
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	if globalLogger.file != nil {
		globalLogger.file.Close()
		globalLogger.file = nil
	}
}
