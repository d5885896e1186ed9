package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/pkg/logger"
)

// LogHandler handles log-related requests
type LogHandler struct {
	logReader *logger.LogReader
}

// NewLogHandler creates a new log handler
func NewLogHandler(logsDir string) *LogHandler {
	return &LogHandler{
		logReader: logger.NewLogReader(logsDir),
	}
}

var validCategories = map[logger.LogCategory]bool{
	logger.CategoryBatch: true,
	logger.CategoryError: true,
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return limit
}

func parseDate(c *gin.Context) (time.Time, error) {
	dateStr := c.Query("date")
	if dateStr == "" {
		return time.Now(), nil
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date format, use YYYY-MM-DD", domain.ErrInvalidInput)
	}
	return date, nil
}

// GetCategories handles GET /api/v1/logs/categories
func (h *LogHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": []string{string(logger.CategoryBatch), string(logger.CategoryError)},
	})
}

// GetLogs handles GET /api/v1/logs/:category
func (h *LogHandler) GetLogs(c *gin.Context) {
	category := logger.LogCategory(c.Param("category"))
	if !validCategories[category] {
		respondError(c, fmt.Errorf("%w: invalid category", domain.ErrInvalidInput))
		return
	}
	date, err := parseDate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.logReader.ReadLogs(category, date, parseLimit(c), nil)
	if err != nil {
		respondError(c, fmt.Errorf("failed to read logs: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"date":     date.Format("2006-01-02"),
		"count":    len(entries),
		"entries":  entries,
	})
}

// GetBatchLog handles GET /api/v1/batches/:id/log
func (h *LogHandler) GetBatchLog(c *gin.Context) {
	date, err := parseDate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	batchID := c.Param("id")
	entries, err := h.logReader.BatchLogs(batchID, date, parseLimit(c))
	if err != nil {
		respondError(c, fmt.Errorf("failed to read batch log: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id": batchID,
		"date":     date.Format("2006-01-02"),
		"count":    len(entries),
		"entries":  entries,
	})
}

// ExportLogs handles GET /api/v1/logs/:category/export
func (h *LogHandler) ExportLogs(c *gin.Context) {
	category := logger.LogCategory(c.Param("category"))
	if !validCategories[category] {
		respondError(c, fmt.Errorf("%w: invalid category", domain.ErrInvalidInput))
		return
	}
	date, err := parseDate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	logPath := h.logReader.GetLogPath(category, date)
	if _, err := os.Stat(logPath); err != nil {
		respondError(c, fmt.Errorf("log file: %w", domain.ErrNotFound))
		return
	}

	filename := string(category) + "-" + date.Format("20060102") + ".log"
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/octet-stream")

	c.File(logPath)
}
