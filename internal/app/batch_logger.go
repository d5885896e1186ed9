package app

import (
	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/pkg/logger"
)

// BatchEventLogger records throttled progress in the batch log. Lifecycle
// transitions are logged by the manager itself.
type BatchEventLogger struct {
	logs *logger.LoggerAdapter
	last map[string]int
}

// NewBatchEventLogger creates a fabric listener writing to the batch log
func NewBatchEventLogger(logs *logger.LoggerAdapter) *BatchEventLogger {
	return &BatchEventLogger{logs: logs, last: make(map[string]int)}
}

// OnEvent implements events.Listener. Deliveries for one subscription are
// sequential, so no locking is needed.
func (l *BatchEventLogger) OnEvent(event domain.Event) {
	switch e := event.(type) {
	case domain.ProgressChanged:
		settled := e.CompletedCount + e.FailedCount
		if settled == 0 || l.last[e.BatchID] == settled {
			return
		}
		l.last[e.BatchID] = settled
		l.logs.Batch().Info("batch_progress",
			zap.String("batch_id", e.BatchID),
			zap.Int("completed", e.CompletedCount),
			zap.Int("failed", e.FailedCount),
			zap.Int("total", e.TotalCount))
	case domain.BatchCompleted, domain.BatchCancelled:
		delete(l.last, e.Batch())
	}
}
