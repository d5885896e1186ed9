package app

import (
	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/internal/infrastructure"
)

// MetadataWriter writes the attribution sidecar into a batch directory
type MetadataWriter struct {
	logger *zap.Logger
}

// NewMetadataWriter creates a new metadata writer
func NewMetadataWriter(logger *zap.Logger) *MetadataWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataWriter{logger: logger}
}

// Write replaces the sidecar of snap's directory with one entry per
// succeeded task
func (w *MetadataWriter) Write(snap domain.BatchSnapshot) error {
	sidecar := infrastructure.SidecarFromBatch(snap)
	if err := infrastructure.WriteSidecar(snap.Directory, sidecar); err != nil {
		return err
	}

	w.logger.Debug("Wrote metadata sidecar",
		zap.String("batch_id", snap.ID),
		zap.Int("entries", len(sidecar.Samples)))
	return nil
}
