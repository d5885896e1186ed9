package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerAdapter hands out category loggers, falling back to a single logger
// when file logging is not configured.
type LoggerAdapter struct {
	multiLogger  *MultiLogger
	singleLogger *zap.Logger
}

// NewLoggerAdapter creates an adapter that writes batch and error events to
// both the category files and the application logger
func NewLoggerAdapter(multiLogger *MultiLogger, app *zap.Logger) *LoggerAdapter {
	if app == nil {
		app = zap.NewNop()
	}
	return &LoggerAdapter{
		multiLogger:  multiLogger,
		singleLogger: app,
	}
}

// NewSingleLoggerAdapter creates an adapter for a single logger
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	return NewLoggerAdapter(nil, logger)
}

// App returns the application logger
func (la *LoggerAdapter) App() *zap.Logger {
	return la.singleLogger
}

// Batch returns a logger that writes to the batch file as well as the app log
func (la *LoggerAdapter) Batch() *zap.Logger {
	if la.multiLogger == nil {
		return la.singleLogger
	}
	return zap.New(zapcore.NewTee(la.singleLogger.Core(), la.multiLogger.Batch().Core()))
}

// Error returns a logger that writes to the error file as well as the app log
func (la *LoggerAdapter) Error() *zap.Logger {
	if la.multiLogger == nil {
		return la.singleLogger
	}
	return zap.New(zapcore.NewTee(la.singleLogger.Core(), la.multiLogger.Error().Core()))
}

// LogBatchEvent records a batch lifecycle event
func (la *LoggerAdapter) LogBatchEvent(event string, fields ...zap.Field) {
	if la.multiLogger != nil {
		la.multiLogger.LogBatchEvent(event, fields...)
	}
	la.singleLogger.Info(event, fields...)
}

// LogError logs an application error to the app log and the error file
func (la *LoggerAdapter) LogError(msg string, fields ...zap.Field) {
	if la.multiLogger != nil {
		la.multiLogger.LogAppError(msg, fields...)
	}
	la.singleLogger.Error(msg, fields...)
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.multiLogger != nil {
		if err := la.multiLogger.Sync(); err != nil {
			return err
		}
	}
	return la.singleLogger.Sync()
}

// GetMultiLogger returns the underlying multi-logger (if available)
func (la *LoggerAdapter) GetMultiLogger() *MultiLogger {
	return la.multiLogger
}
