package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// fileSink tags file system errors so they classify as write failures even
// after passing through the fetcher
type fileSink struct {
	file *os.File
}

func (s fileSink) Write(p []byte) (int, error) {
	n, err := s.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", domain.ErrWrite, err)
	}
	return n, nil
}

// runTask drives one task to a terminal state. Network failures are retried;
// write failures and cancellation are final. Nothing escapes this function:
// every outcome is recorded on the task.
func (dm *DownloadManager) runTask(ctx context.Context, run *batchRun, index int) {
	desc := run.tasks[index].Descriptor // descriptors never change after start
	part := run.parts[index]

	var lastErr error
	for attempt := 1; attempt <= dm.config.MaxRetries+1; attempt++ {
		if attempt > 1 {
			dm.logger.Debug("Retrying download",
				zap.String("batch_id", run.id),
				zap.String("sound_id", desc.ID),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))

			select {
			case <-time.After(dm.config.RetryDelay):
			case <-ctx.Done():
				lastErr = fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
			}
			if ctx.Err() != nil {
				break
			}
		}

		if err := ctx.Err(); err != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrCancelled, err)
			break
		}

		if !dm.beginAttempt(run, index, attempt) {
			dm.removePart(part)
			return
		}

		lastErr = dm.attempt(ctx, run, index, desc, part)
		if lastErr == nil {
			return
		}
		dm.removePart(part)

		// a transport error caused by our own cancellation is a cancellation
		if ctx.Err() != nil && !errors.Is(lastErr, domain.ErrCancelled) {
			lastErr = fmt.Errorf("%w: %v", domain.ErrCancelled, lastErr)
		}
		if domain.ClassifyFailure(lastErr) != domain.FailureNetwork {
			break
		}
	}

	dm.failTask(run, index, lastErr)

	if domain.ClassifyFailure(lastErr) != domain.FailureCancelled {
		dm.logger.Warn("Download failed",
			zap.String("batch_id", run.id),
			zap.Int("index", index),
			zap.String("sound_id", desc.ID),
			zap.Error(lastErr))
	}
}

// attempt performs one transfer into the part file and commits it on success
func (dm *DownloadManager) attempt(ctx context.Context, run *batchRun, index int, desc domain.SoundDescriptor, part string) error {
	file, err := os.OpenFile(part, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: create part file: %v", domain.ErrWrite, err)
	}

	fetchErr := dm.fetcher.Fetch(ctx, desc.PreviewURL, fileSink{file: file}, func(written, total int64) {
		dm.reportBytes(run, index, written, total)
	})
	closeErr := file.Close()
	if fetchErr != nil {
		return fetchErr
	}
	if closeErr != nil {
		return fmt.Errorf("%w: close part file: %v", domain.ErrWrite, closeErr)
	}

	if dm.tagger != nil {
		if err := dm.tagger.Tag(part, desc); err != nil {
			// attribution also lives in the sidecar
			dm.logger.Warn("Failed to tag sound",
				zap.String("sound_id", desc.ID),
				zap.Error(err))
		}
	}

	return dm.commitTask(run, index)
}

func (dm *DownloadManager) removePart(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		dm.logger.Debug("Failed to remove part file", zap.String("path", path), zap.Error(err))
	}
}
