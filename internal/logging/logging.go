// Package logging provides a simple leveled logger for the RDP gateway.
// Because one process multiplexes many concurrent browser sessions, the
// logger supports attaching structured fields (session id, surface id) to
// a derived Logger so related log lines can be correlated without every
// call site formatting the id into the message by hand.
package logging

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// Level represents log severity levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Fields is a set of structured key/value context carried by a Logger
// derived with WithFields, e.g. Fields{"session": id, "surface": surfaceID}.
type Fields map[string]interface{}

// Logger provides leveled logging. A Logger produced by WithFields shares
// its parent's level and output but prepends its fields to every line.
type Logger struct {
	level  Level
	mu     sync.RWMutex
	logger *log.Logger
	fields Fields
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the default logger instance
func Default() *Logger {
	once.Do(func() {
		defaultLogger = &Logger{
			level:  LevelInfo,
			logger: log.New(os.Stderr, "", log.LstdFlags|log.LUTC),
		}
	})
	return defaultLogger
}

// WithFields returns a derived Logger that prepends fields (merged over
// any the receiver already carries) to every line it logs. The derived
// logger's level is a snapshot of the receiver's at call time; later
// SetLevel calls on the receiver are not observed by loggers already
// derived from it.
func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		level:  l.GetLevel(),
		logger: l.logger,
		fields: merged,
	}
}

// WithSession returns a Logger tagged with sessionID, for correlating the
// many GFX/input/audio log lines one browser connection produces.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.WithFields(Fields{"session": sessionID})
}

// WithSurface returns a Logger tagged with surfaceID, for correlating log
// lines against a specific GFX surface within a session.
func (l *Logger) WithSurface(surfaceID uint32) *Logger {
	return l.WithFields(Fields{"surface": surfaceID})
}

// WithSession returns a Logger derived from the default logger, tagged
// with sessionID.
func WithSession(sessionID string) *Logger {
	return Default().WithSession(sessionID)
}

// WithSurface returns a Logger derived from the default logger, tagged
// with surfaceID.
func WithSurface(surfaceID uint32) *Logger {
	return Default().WithSurface(surfaceID)
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetLevelFromString sets the log level from a string
func (l *Logger) SetLevelFromString(levelStr string) {
	switch strings.ToLower(levelStr) {
	case "debug":
		l.SetLevel(LevelDebug)
	case "info":
		l.SetLevel(LevelInfo)
	case "warn", "warning":
		l.SetLevel(LevelWarn)
	case "error":
		l.SetLevel(LevelError)
	default:
		l.SetLevel(LevelInfo)
	}
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// GetLevelString returns the current log level as a string
func (l *Logger) GetLevelString() string {
	return levelNames[l.GetLevel()]
}

// GetLevelString returns the default logger's level as a string
func GetLevelString() string {
	return Default().GetLevelString()
}

// fieldString renders the logger's fields as sorted "key=value" pairs so
// output is deterministic across runs.
func (l *Logger) fieldString() string {
	if len(l.fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, l.fields[k])
	}
	return " " + strings.Join(parts, " ")
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.RLock()
	currentLevel := l.level
	l.mu.RUnlock()

	if level < currentLevel {
		return
	}

	prefix := levelNames[level]
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s]%s %s", prefix, l.fieldString(), msg)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Package-level convenience functions

// SetLevel sets the default logger's level
func SetLevel(level Level) {
	Default().SetLevel(level)
}

// SetLevelFromString sets the default logger's level from a string
func SetLevelFromString(levelStr string) {
	Default().SetLevelFromString(levelStr)
}

// Debug logs a debug message to the default logger
func Debug(format string, args ...interface{}) {
	Default().Debug(format, args...)
}

// Info logs an info message to the default logger
func Info(format string, args ...interface{}) {
	Default().Info(format, args...)
}

// Warn logs a warning message to the default logger
func Warn(format string, args ...interface{}) {
	Default().Warn(format, args...)
}

// Error(format string, args ...interface{}) logs an error message to the default logger
func Error(format string, args ...interface{}) {
	Default().Error(format, args...)
}
