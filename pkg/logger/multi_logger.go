package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryBatch LogCategory = "batch" // Batch lifecycle events (JSON)
	CategoryError LogCategory = "error" // Application errors (JSON)
)

var categoryLevels = map[LogCategory]zapcore.Level{
	CategoryBatch: zapcore.DebugLevel, // replaced by the configured level
	CategoryError: zapcore.ErrorLevel,
}

type categorySink struct {
	logger *zap.Logger
	file   *os.File
}

// MultiLogger writes categorised JSON logs into one file per category and day,
// e.g. batch-20240102.log. Files roll over on the first write after midnight.
type MultiLogger struct {
	sinks       map[LogCategory]*categorySink
	config      MultiLoggerConfig
	level       zapcore.Level
	mu          sync.RWMutex
	currentDate string
	now         func() time.Time
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		sinks:  make(map[LogCategory]*categorySink),
		config: config,
		level:  level,
		now:    time.Now,
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if err := ml.openAllLocked(); err != nil {
		ml.closeAllLocked()
		return nil, err
	}
	return ml, nil
}

func (ml *MultiLogger) openAllLocked() error {
	date := ml.now().Format("20060102")
	for category, level := range categoryLevels {
		if category == CategoryBatch {
			level = ml.level
		}
		sink, err := ml.openSink(category, date, level)
		if err != nil {
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		ml.sinks[category] = sink
	}
	ml.currentDate = date
	return nil
}

func (ml *MultiLogger) openSink(category LogCategory, date string, level zapcore.Level) (*categorySink, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""

	path := filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	return &categorySink{logger: zap.New(core), file: file}, nil
}

func (ml *MultiLogger) closeAllLocked() error {
	var lastErr error
	for category, sink := range ml.sinks {
		_ = sink.logger.Sync()
		if err := sink.file.Close(); err != nil {
			lastErr = err
		}
		delete(ml.sinks, category)
	}
	return lastErr
}

// rotate reopens every category file when the date has changed.
func (ml *MultiLogger) rotate() {
	date := ml.now().Format("20060102")

	ml.mu.RLock()
	same := date == ml.currentDate
	ml.mu.RUnlock()
	if same {
		return
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if date == ml.currentDate {
		return
	}
	ml.closeAllLocked()
	if err := ml.openAllLocked(); err != nil {
		fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
	}
}

// LogPath returns the file currently used for category
func (ml *MultiLogger) LogPath(category LogCategory) string {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, ml.currentDate))
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.rotate()

	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if sink, ok := ml.sinks[category]; ok {
		return sink.logger
	}
	if sink, ok := ml.sinks[CategoryError]; ok {
		return sink.logger
	}
	return zap.NewNop()
}

// Batch returns the batch lifecycle logger
func (ml *MultiLogger) Batch() *zap.Logger {
	return ml.GetLogger(CategoryBatch)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error (Go errors, panics)
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogBatchEvent logs a batch lifecycle event with structured data
func (ml *MultiLogger) LogBatchEvent(event string, fields ...zap.Field) {
	ml.Batch().Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, sink := range ml.sinks {
		if err := sink.logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes and closes every category file
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.closeAllLocked()
}
