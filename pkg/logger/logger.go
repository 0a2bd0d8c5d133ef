// Package logger provides structured logging for the ninjutsu application
package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a new structured logger
func NewLogger(level logrus.Level) *Logger {
	logger := logrus.New()

	logger.SetLevel(level)

	// Use JSON formatter for structured logging in production
	if os.Getenv("ENV") == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	return &Logger{Logger: logger}
}

// WithProvider adds provider-specific fields to the logger
func (l *Logger) WithProvider(engine string) *logrus.Entry {
	return l.Logger.WithField("engine", engine)
}

// WithDork adds dork-specific fields to the logger
func (l *Logger) WithDork(dorkID, category string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"dork_id":  dorkID,
		"category": category,
	})
}

// WithError adds error context to the logger
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields(fields))
}

// LogTaskExecution logs the start and end of a search task
func (l *Logger) LogTaskExecution(engine, dorkID string, fn func() error) error {
	start := time.Now()

	l.WithFields(Fields{
		"engine":  engine,
		"dork_id": dorkID,
		"action":  "start",
	}).Debug("Search task started")

	err := fn()
	duration := time.Since(start)

	fields := Fields{
		"engine":   engine,
		"dork_id":  dorkID,
		"action":   "complete",
		"duration": duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.WithFields(fields).Warn("Search task failed")
	} else {
		l.WithFields(fields).Debug("Search task completed")
	}

	return err
}

// Default logger instance
var defaultLogger = NewLogger(logrus.InfoLevel)

// SetLevel sets the log level for the default logger
func SetLevel(level logrus.Level) {
	defaultLogger.SetLevel(level)
}

// Info logs an info message using the default logger
func Info(args ...interface{}) {
	defaultLogger.Info(args...)
}

// Infof logs a formatted info message using the default logger
func Infof(format string, args ...interface{}) {
	defaultLogger.Infof(format, args...)
}

// Error logs an error message using the default logger
func Error(args ...interface{}) {
	defaultLogger.Error(args...)
}

// Errorf logs a formatted error message using the default logger
func Errorf(format string, args ...interface{}) {
	defaultLogger.Errorf(format, args...)
}

// WithFields returns an entry with the specified fields using the default logger
func WithFields(fields Fields) *logrus.Entry {
	return defaultLogger.WithFields(fields)
}

// LogTaskExecution instruments fn with the default logger
func LogTaskExecution(engine, dorkID string, fn func() error) error {
	return defaultLogger.LogTaskExecution(engine, dorkID, fn)
}
