package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yourusername/linkedin-connector/internal/config"
)

var (
	mu  sync.RWMutex
	log *zap.SugaredLogger
)

// Init builds the global logger: console output always, JSON file output when enabled
func Init(cfg config.LoggingConfig) error {
	var cores []zapcore.Core

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	zapLevel, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zapLevel,
	))

	if cfg.ToFile {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(file),
			zapLevel,
		))
	}

	Set(zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// Set replaces the global logger. Tests install zap.NewNop() through it.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l.Sugar()
}

// Get returns the global logger instance
func Get() *zap.SugaredLogger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}

	defaultLogger, _ := zap.NewProduction(zap.AddCallerSkip(1))
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = defaultLogger.Sugar()
	}
	return log
}

// Debug logs a debug message
func Debug(msg string, keysAndValues ...interface{}) {
	Get().Debugw(msg, keysAndValues...)
}

// Info logs an info message
func Info(msg string, keysAndValues ...interface{}) {
	Get().Infow(msg, keysAndValues...)
}

// Warn logs a warning message
func Warn(msg string, keysAndValues ...interface{}) {
	Get().Warnw(msg, keysAndValues...)
}

// Error logs an error message
func Error(msg string, keysAndValues ...interface{}) {
	Get().Errorw(msg, keysAndValues...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return Get().Sync()
}

// With creates a child logger with additional fields
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return Get().Desugar().WithOptions(zap.AddCallerSkip(-1)).Sugar().With(keysAndValues...)
}
