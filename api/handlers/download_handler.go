package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// DownloadHandler handles search and batch requests
type DownloadHandler struct {
	searcher Searcher
	batches  BatchController
	history  domain.BatchRepository
	logger   *zap.Logger
}

// NewDownloadHandler creates a new download handler. history may be nil when
// persistence is disabled.
func NewDownloadHandler(searcher Searcher, batches BatchController, history domain.BatchRepository, logger *zap.Logger) *DownloadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadHandler{
		searcher: searcher,
		batches:  batches,
		history:  history,
		logger:   logger,
	}
}

// StartBatchRequest starts a batch either from a query or an explicit sound list
type StartBatchRequest struct {
	Query  string                   `json:"query"`
	Sounds []domain.SoundDescriptor `json:"sounds,omitempty"`
}

// Search handles GET /api/v1/search?q=
func (h *DownloadHandler) Search(c *gin.Context) {
	sounds, err := h.searcher.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":  strings.TrimSpace(c.Query("q")),
		"count":  len(sounds),
		"sounds": sounds,
	})
}

// StartBatch handles POST /api/v1/batches
func (h *DownloadHandler) StartBatch(c *gin.Context) {
	var req StartBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	var (
		snap domain.BatchSnapshot
		err  error
	)
	switch {
	case len(req.Sounds) > 0:
		snap, err = h.searcher.Start(c.Request.Context(), req.Sounds, strings.TrimSpace(req.Query))
	case strings.TrimSpace(req.Query) != "":
		snap, err = h.searcher.SearchAndStart(c.Request.Context(), req.Query)
	default:
		err = fmt.Errorf("%w: query or sounds required", domain.ErrInvalidInput)
	}
	if err != nil {
		h.logger.Warn("Failed to start batch", zap.String("query", req.Query), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, snap)
}

// GetCurrent handles GET /api/v1/batches/current
func (h *DownloadHandler) GetCurrent(c *gin.Context) {
	snap, err := h.batches.Snapshot()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CancelCurrent handles POST /api/v1/batches/current/cancel
func (h *DownloadHandler) CancelCurrent(c *gin.Context) {
	snap, err := h.batches.CancelBatch(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ListBatches handles GET /api/v1/batches
func (h *DownloadHandler) ListBatches(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, []*domain.BatchRecord{})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := h.history.FindRecent(limit)
	if err != nil {
		h.logger.Error("Failed to list batches", zap.Error(err))
		respondError(c, err)
		return
	}
	if records == nil {
		records = []*domain.BatchRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// GetBatch handles GET /api/v1/batches/:id
func (h *DownloadHandler) GetBatch(c *gin.Context) {
	if h.history == nil {
		respondError(c, domain.ErrNotFound)
		return
	}
	record, err := h.history.FindByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetStats handles GET /api/v1/batches/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, &domain.BatchStats{})
		return
	}
	stats, err := h.history.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
