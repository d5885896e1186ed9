package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/pkg/logger"
)

// EventPublisher receives lifecycle events from the manager. Publish must not
// block; it is called while the manager holds its lock so that every
// subscriber sees progress in the order it was computed.
type EventPublisher interface {
	Publish(event domain.Event)
}

// SidecarWriter persists the attribution record of a completed batch
type SidecarWriter interface {
	Write(snap domain.BatchSnapshot) error
}

// batchRun is the manager-owned state of one batch. Every field is guarded by
// DownloadManager.mu; tasks is an arena indexed by descriptor position.
type batchRun struct {
	id         string
	query      string
	dir        string
	state      domain.BatchState
	startedAt  time.Time
	finishedAt *time.Time
	tasks      []domain.TaskSnapshot
	parts      []string
	lastEmit   time.Time
	finalized  bool

	// highest fraction reported so far; published progress never goes back
	lastFraction float64

	cancel   context.CancelFunc
	finished chan struct{} // closed once completion has been published
}

// DownloadManager runs batches of sound downloads under a concurrency cap
type DownloadManager struct {
	fetcher   domain.Fetcher
	publisher EventPublisher
	writer    SidecarWriter
	repo      domain.BatchRepository
	tagger    domain.Tagger
	config    *domain.DownloadConfig
	logger    *zap.Logger
	logs      *logger.LoggerAdapter

	mu      sync.Mutex
	current *batchRun

	// control serialises StartBatch, CancelBatch and Shutdown
	control sync.Mutex
}

// NewDownloadManager creates a new download manager. repo may be nil.
func NewDownloadManager(
	fetcher domain.Fetcher,
	publisher EventPublisher,
	writer SidecarWriter,
	repo domain.BatchRepository,
	config *domain.DownloadConfig,
	log *zap.Logger,
) *DownloadManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &DownloadManager{
		fetcher:   fetcher,
		publisher: publisher,
		writer:    writer,
		repo:      repo,
		config:    config,
		logger:    log,
		logs:      logger.NewSingleLoggerAdapter(log),
	}
}

// SetTagger enables attribution tagging of downloaded files
func (dm *DownloadManager) SetTagger(tagger domain.Tagger) {
	dm.tagger = tagger
}

// SetLoggerAdapter routes batch lifecycle and error logs to category files
func (dm *DownloadManager) SetLoggerAdapter(adapter *logger.LoggerAdapter) {
	if adapter != nil {
		dm.logs = adapter
	}
}

// StartBatch supersedes any active batch, resets dir and starts downloading
// descriptors into it. Setup failures are returned before any task runs.
func (dm *DownloadManager) StartBatch(ctx context.Context, descriptors []domain.SoundDescriptor, dir string, opts domain.BatchOptions) (domain.BatchSnapshot, error) {
	if len(descriptors) == 0 {
		return domain.BatchSnapshot{}, fmt.Errorf("%w: batch has no descriptors", domain.ErrEmptyResult)
	}
	if dir == "" {
		return domain.BatchSnapshot{}, fmt.Errorf("%w: destination directory not set", domain.ErrBatchStartFailed)
	}

	prefix := dm.config.FilePrefix
	if prefix == "" {
		prefix = domain.DefaultFilePrefix
	}

	// task i owns file i; two descriptors may not share a name
	names := make(map[string]int, len(descriptors))
	for i, desc := range descriptors {
		name := desc.FileName(prefix)
		if j, ok := names[name]; ok {
			return domain.BatchSnapshot{}, fmt.Errorf("%w: descriptors %d and %d both map to %s", domain.ErrInvalidInput, j, i, name)
		}
		names[name] = i
	}

	dm.control.Lock()
	defer dm.control.Unlock()

	if previous := dm.cancelActive(ctx); previous != nil {
		dm.logger.Info("Superseded active batch", zap.String("batch_id", previous.id))
	}

	if err := prepareDirectory(dir); err != nil {
		dm.logs.LogError("Batch start failed", zap.String("dir", dir), zap.Error(err))
		return domain.BatchSnapshot{}, fmt.Errorf("%w: %w", domain.ErrBatchStartFailed, err)
	}

	id := uuid.New().String()
	run := &batchRun{
		id:        id,
		query:     opts.Query,
		dir:       dir,
		state:     domain.BatchStateActive,
		startedAt: time.Now(),
		tasks:     make([]domain.TaskSnapshot, len(descriptors)),
		parts:     make([]string, len(descriptors)),
		finished:  make(chan struct{}),
	}
	for i, desc := range descriptors {
		dest := filepath.Join(dir, desc.FileName(prefix))
		run.tasks[i] = domain.TaskSnapshot{
			Index:           i,
			Descriptor:      desc,
			DestinationPath: dest,
			State:           domain.TaskPending,
			TotalBytes:      domain.UnknownSize,
		}
		run.parts[i] = partPath(id, i, dest)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run.cancel = cancel

	dm.mu.Lock()
	dm.current = run
	snap := run.snapshotLocked()
	dm.publisher.Publish(domain.BatchStarted{
		BatchID:   run.id,
		Query:     run.query,
		Directory: run.dir,
		Total:     len(run.tasks),
	})
	dm.publisher.Publish(domain.ProgressChanged{Progress: snap.Progress})
	dm.mu.Unlock()

	if dm.repo != nil {
		if err := dm.repo.Create(domain.NewBatchRecord(snap)); err != nil {
			dm.logs.LogError("Failed to record batch", zap.String("batch_id", id), zap.Error(err))
		}
	}

	dm.logs.LogBatchEvent("batch_started",
		zap.String("batch_id", id),
		zap.String("query", opts.Query),
		zap.String("dir", dir),
		zap.Int("total", len(descriptors)))

	go dm.execute(runCtx, run)

	return snap, nil
}

// CancelBatch cancels the current batch and returns once it has settled or
// the grace period has elapsed. Cancelling a finished batch is a no-op.
func (dm *DownloadManager) CancelBatch(ctx context.Context) (domain.BatchSnapshot, error) {
	dm.control.Lock()
	defer dm.control.Unlock()

	dm.mu.Lock()
	run := dm.current
	dm.mu.Unlock()
	if run == nil {
		return domain.BatchSnapshot{}, domain.ErrNoActiveBatch
	}

	dm.cancelActive(ctx)
	return dm.snapshotOf(run), nil
}

// Snapshot returns a copy of the current or most recent batch
func (dm *DownloadManager) Snapshot() (domain.BatchSnapshot, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.current == nil {
		return domain.BatchSnapshot{}, domain.ErrNoActiveBatch
	}
	return dm.current.snapshotLocked(), nil
}

// Wait blocks until the current batch has completed or been cancelled
func (dm *DownloadManager) Wait(ctx context.Context) (domain.BatchSnapshot, error) {
	dm.mu.Lock()
	run := dm.current
	dm.mu.Unlock()
	if run == nil {
		return domain.BatchSnapshot{}, domain.ErrNoActiveBatch
	}

	select {
	case <-run.finished:
		return dm.snapshotOf(run), nil
	case <-ctx.Done():
		return dm.snapshotOf(run), ctx.Err()
	}
}

// Shutdown cancels the active batch within the grace period and removes the
// batch directory when cleanup on exit is enabled
func (dm *DownloadManager) Shutdown(ctx context.Context) error {
	dm.control.Lock()
	defer dm.control.Unlock()

	run := dm.cancelActive(ctx)
	if run == nil {
		dm.mu.Lock()
		run = dm.current
		dm.mu.Unlock()
	}
	if run == nil || !dm.config.CleanupOnExit {
		return nil
	}

	if err := os.RemoveAll(run.dir); err != nil {
		return fmt.Errorf("failed to remove batch directory: %w", err)
	}
	dm.logger.Info("Removed batch directory", zap.String("dir", run.dir))
	return nil
}

// cancelActive cancels the current batch if it has not finished and waits for
// it up to the grace period. It returns the batch it had to cancel, if any.
// Caller holds dm.control.
func (dm *DownloadManager) cancelActive(ctx context.Context) *batchRun {
	dm.mu.Lock()
	run := dm.current
	if run == nil || run.finalized {
		dm.mu.Unlock()
		if run != nil {
			// completion is being published; it never waits on the network
			<-run.finished
		}
		return nil
	}
	run.state = domain.BatchStateCancelled
	dm.mu.Unlock()

	run.cancel()

	grace := dm.config.CancelGrace
	if grace <= 0 {
		grace = 2 * time.Second
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-run.finished:
		return run
	case <-timer.C:
	case <-ctx.Done():
	}

	if abandoned := dm.abandon(run); abandoned > 0 {
		dm.logger.Warn("Abandoned unresponsive tasks",
			zap.String("batch_id", run.id),
			zap.Int("count", abandoned))
	}
	dm.finish(run)
	return run
}

// abandon force-fails every non-terminal task of run
func (dm *DownloadManager) abandon(run *batchRun) int {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	count := 0
	for i := range run.tasks {
		t := &run.tasks[i]
		if t.State.IsTerminal() {
			continue
		}
		t.State = domain.TaskFailed
		t.Failure = domain.FailureCancelled
		t.ErrorDetail = "abandoned after cancel grace period"
		t.Abandoned = true
		count++
	}
	if count > 0 {
		dm.emitProgressLocked(run, true)
	}
	return count
}

// execute schedules every task of run in descriptor order on a bounded pool
func (dm *DownloadManager) execute(ctx context.Context, run *batchRun) {
	limit := dm.config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i := range run.tasks {
		index := i
		if ctx.Err() != nil {
			dm.failTask(run, index, fmt.Errorf("%w: batch cancelled before start", domain.ErrCancelled))
			continue
		}
		g.Go(func() error {
			dm.runTask(ctx, run, index)
			return nil
		})
	}

	_ = g.Wait()
	dm.finish(run)
}

// finish publishes the batch outcome once. Completed batches get their
// sidecar written before BatchCompleted is published.
func (dm *DownloadManager) finish(run *batchRun) {
	dm.mu.Lock()
	if run.finalized {
		dm.mu.Unlock()
		return
	}
	run.finalized = true
	now := time.Now()
	run.finishedAt = &now
	if run.state == domain.BatchStateActive {
		run.state = domain.BatchStateCompleted
	}
	snap := run.snapshotLocked()
	dm.mu.Unlock()

	defer close(run.finished)

	var sidecarErr error
	if snap.State == domain.BatchStateCancelled {
		dm.publisher.Publish(domain.BatchCancelled{BatchID: snap.ID, Progress: snap.Progress})
	} else {
		if sidecarErr = dm.writer.Write(snap); sidecarErr != nil {
			dm.logs.LogError("Metadata write failed", zap.String("batch_id", snap.ID), zap.Error(sidecarErr))
			dm.publisher.Publish(domain.MetadataWriteFailed{BatchID: snap.ID, Reason: sidecarErr.Error()})
		}
		dm.publisher.Publish(completedEvent(snap))
	}

	if dm.repo != nil {
		record := domain.NewBatchRecord(snap)
		record.MarkFinished(snap, sidecarErr)
		if err := dm.repo.Update(record); err != nil {
			dm.logs.LogError("Failed to update batch record", zap.String("batch_id", snap.ID), zap.Error(err))
		}
	}

	dm.logs.LogBatchEvent("batch_"+string(snap.State),
		zap.String("batch_id", snap.ID),
		zap.Int("completed", snap.Progress.CompletedCount),
		zap.Int("failed", snap.Progress.FailedCount),
		zap.Int("total", snap.Progress.TotalCount),
		zap.Duration("elapsed", now.Sub(snap.StartedAt)))
}

func completedEvent(snap domain.BatchSnapshot) domain.BatchCompleted {
	failed := snap.FailedTasks()
	ids := make([]string, 0, len(failed))
	indices := make([]int, 0, len(failed))
	for _, t := range failed {
		ids = append(ids, t.Descriptor.ID)
		indices = append(indices, t.Index)
	}
	return domain.BatchCompleted{
		BatchID:             snap.ID,
		Directory:           snap.Directory,
		Success:             snap.Progress.CompletedCount > 0,
		SucceededPaths:      snap.SucceededPaths(),
		FailedDescriptorIDs: ids,
		FailedIndices:       indices,
		Progress:            snap.Progress,
	}
}

// beginAttempt marks a task in flight. It returns false when the task was
// already settled, e.g. abandoned by a cancel that timed out.
func (dm *DownloadManager) beginAttempt(run *batchRun, index, attempt int) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	t := &run.tasks[index]
	if t.State.IsTerminal() {
		return false
	}
	t.State = domain.TaskInFlight
	t.Attempts = attempt
	t.BytesReceived = 0
	dm.emitProgressLocked(run, true)
	return true
}

func (dm *DownloadManager) reportBytes(run *batchRun, index int, written, total int64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	t := &run.tasks[index]
	if t.State != domain.TaskInFlight {
		return
	}
	t.BytesReceived = written
	t.TotalBytes = total
	dm.emitProgressLocked(run, false)
}

// commitTask publishes the part file under its final name. The rename and the
// transition to Succeeded happen under one lock so that a final file exists
// exactly when its task has succeeded.
func (dm *DownloadManager) commitTask(run *batchRun, index int) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	t := &run.tasks[index]
	if t.State.IsTerminal() {
		return fmt.Errorf("%w: task %d settled before commit", domain.ErrCancelled, index)
	}
	if err := os.Rename(run.parts[index], t.DestinationPath); err != nil {
		return fmt.Errorf("%w: rename %s: %v", domain.ErrWrite, filepath.Base(t.DestinationPath), err)
	}
	t.State = domain.TaskSucceeded
	if t.TotalBytes < 0 {
		t.TotalBytes = t.BytesReceived
	}
	t.Failure = domain.FailureNone
	t.ErrorDetail = ""
	dm.emitProgressLocked(run, true)
	return nil
}

func (dm *DownloadManager) failTask(run *batchRun, index int, err error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	t := &run.tasks[index]
	if t.State.IsTerminal() {
		return
	}
	t.State = domain.TaskFailed
	t.Failure = domain.ClassifyFailure(err)
	t.ErrorDetail = err.Error()
	dm.emitProgressLocked(run, true)
}

// emitProgressLocked publishes the aggregate progress of run. Byte updates
// are coalesced to one per progress interval; state changes always emit.
func (dm *DownloadManager) emitProgressLocked(run *batchRun, stateChange bool) {
	if run.finalized {
		return
	}
	now := time.Now()
	if !stateChange && now.Sub(run.lastEmit) < dm.config.ProgressInterval {
		return
	}
	run.lastEmit = now
	dm.publisher.Publish(domain.ProgressChanged{Progress: run.progressLocked()})
}

func (dm *DownloadManager) snapshotOf(run *batchRun) domain.BatchSnapshot {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return run.snapshotLocked()
}

func (r *batchRun) snapshotLocked() domain.BatchSnapshot {
	tasks := make([]domain.TaskSnapshot, len(r.tasks))
	copy(tasks, r.tasks)

	snap := domain.BatchSnapshot{
		ID:        r.id,
		Query:     r.query,
		Directory: r.dir,
		State:     r.state,
		StartedAt: r.startedAt,
		Tasks:     tasks,
		Progress:  r.progressLocked(),
	}
	if r.finishedAt != nil {
		finished := *r.finishedAt
		snap.FinishedAt = &finished
	}
	return snap
}

// progressLocked aggregates task state. The fraction is byte based when every
// size is known and count based otherwise, and never drops below what was
// already reported (a size becoming known or a retry can lower the raw value).
func (r *batchRun) progressLocked() domain.Progress {
	p := domain.Progress{BatchID: r.id, TotalCount: len(r.tasks)}

	var received, total int64
	sizesKnown := true
	for _, t := range r.tasks {
		switch t.State {
		case domain.TaskSucceeded:
			p.CompletedCount++
		case domain.TaskFailed:
			p.FailedCount++
		}
		if t.TotalBytes < 0 {
			sizesKnown = false
			continue
		}
		total += t.TotalBytes
		if t.State.IsTerminal() {
			received += t.TotalBytes
		} else {
			received += min(t.BytesReceived, t.TotalBytes)
		}
	}

	switch {
	case p.TotalCount == 0 || p.Done():
		p.OverallFraction = 1
	case sizesKnown && total > 0:
		p.OverallFraction = float64(received) / float64(total)
	default:
		p.OverallFraction = float64(p.CompletedCount+p.FailedCount) / float64(p.TotalCount)
	}
	p.OverallFraction = max(p.OverallFraction, r.lastFraction)
	r.lastFraction = p.OverallFraction
	return p
}

// prepareDirectory clears dir, recreates it and checks it is writable
func prepareDirectory(dir string) error {
	clean := filepath.Clean(dir)
	if filepath.Dir(clean) == clean {
		return fmt.Errorf("%w: refusing to use %s as batch directory", domain.ErrWrite, clean)
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("%w: clear %s: %v", domain.ErrWrite, clean, err)
	}
	if err := os.MkdirAll(clean, 0755); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrWrite, clean, err)
	}
	probe, err := os.CreateTemp(clean, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %s is not writable: %v", domain.ErrWrite, clean, err)
	}
	probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWrite, err)
	}
	return nil
}

// partPath names the hidden in-progress file of a task. The batch and index
// prefix keeps a late write from a superseded batch away from live names.
func partPath(batchID string, index int, dest string) string {
	short := batchID
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf(".%s-%03d-%s.part", short, index, filepath.Base(dest))
	return filepath.Join(filepath.Dir(dest), name)
}
