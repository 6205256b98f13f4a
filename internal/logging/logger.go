// Package logging provides categorized logging for noesis on top of zap.
// Every subsystem logs through a category so pipeline traces can be
// filtered without grepping free text.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system.
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup and wiring
	CategoryPipeline Category = "pipeline" // Stage transitions
	CategoryRouting  Category = "routing"  // Route/difficulty decisions
	CategoryTools    Category = "tools"    // Tool client and subprocess IPC
	CategoryCache    Category = "cache"    // Answer cache hits/evictions
	CategoryAPI      Category = "api"      // LLM role invocations
	CategoryStream   Category = "stream"   // Streaming facade events
	CategoryUsage    Category = "usage"    // Telemetry recorder
)

// Logger is a category-scoped printf-style logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    *zap.Logger
	loggers = make(map[Category]*Logger)
)

// Initialize installs the process-wide zap logger. Verbose enables debug
// level. Safe to call more than once; the last call wins.
func Initialize(verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger
	loggers = make(map[Category]*Logger)
	return nil
}

// SetLogger replaces the backing zap logger. Used by tests to capture output.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = logger
	loggers = make(map[Category]*Logger)
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// Get returns the logger for a category, creating it on first use.
// Before Initialize, returned loggers are no-ops.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	b := base
	if b == nil {
		b = zap.NewNop()
	}
	l := &Logger{sugar: b.Sugar().With("cat", string(category))}
	loggers[category] = l
	return l
}

// Debug logs a debug-level message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info-level message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warn-level message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error-level message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}
