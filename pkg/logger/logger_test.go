package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.Info("hello", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", Format: "console", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}

func TestMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{Level: "info"})
	assert.Error(t, err)
}

func TestMultiLogger_BatchEventsAreReadable(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.LogBatchEvent("batch_started", zap.String("batch_id", "b1"), zap.Int("total", 16))
	ml.LogBatchEvent("batch_started", zap.String("batch_id", "b2"))
	ml.LogBatchEvent("batch_completed", zap.String("batch_id", "b1"), zap.Bool("success", true))
	ml.LogAppError("boom", zap.String("batch_id", "b1"))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)
	entries, err := reader.BatchLogs("b1", time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "batch_started", entries[0].Message)
	assert.Equal(t, float64(16), entries[0].Fields["total"])
	assert.Equal(t, "batch_completed", entries[1].Message)
	assert.Equal(t, "info", entries[1].Level)

	errs, err := reader.ReadLogs(CategoryError, time.Now(), 0, nil)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Message)
}

func TestMultiLogger_RotatesOnDateChange(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)
	defer ml.Close()

	tomorrow := time.Now().Add(24 * time.Hour)
	ml.now = func() time.Time { return tomorrow }

	ml.LogBatchEvent("batch_started", zap.String("batch_id", "late"))
	require.NoError(t, ml.Sync())

	assert.Equal(t, filepath.Join(dir, "batch-"+tomorrow.Format("20060102")+".log"), ml.LogPath(CategoryBatch))
	entries, err := NewLogReader(dir).BatchLogs("late", tomorrow, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLogReader_LimitAndMissingFile(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)

	entries, err := reader.ReadLogs(CategoryBatch, time.Now(), 10, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)

	content := "{\"msg\":\"one\"}\nnot json\n{\"msg\":\"three\"}\n"
	require.NoError(t, os.WriteFile(reader.GetLogPath(CategoryBatch, time.Now()), []byte(content), 0644))

	entries, err = reader.ReadLogs(CategoryBatch, time.Now(), 2, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "not json", entries[0].Message)
	assert.Equal(t, "three", entries[1].Message)
}

func TestLoggerAdapter_SingleFallback(t *testing.T) {
	adapter := NewSingleLoggerAdapter(nil)
	assert.NotNil(t, adapter.App())
	assert.NotNil(t, adapter.Batch())
	assert.Nil(t, adapter.GetMultiLogger())
	adapter.LogBatchEvent("noop")
	adapter.LogError("noop")
}
