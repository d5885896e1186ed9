package domain

import "time"

// BatchState is the lifecycle state of a download batch
type BatchState string

const (
	BatchStateActive    BatchState = "active"
	BatchStateCompleted BatchState = "completed"
	BatchStateCancelled BatchState = "cancelled"
)

// Progress is the aggregate view of a batch at one point in time.
type Progress struct {
	BatchID         string  `json:"batch_id"`
	CompletedCount  int     `json:"completed_count"`
	FailedCount     int     `json:"failed_count"`
	TotalCount      int     `json:"total_count"`
	OverallFraction float64 `json:"overall_fraction"`
}

// Done reports whether every task has reached a terminal state.
func (p Progress) Done() bool {
	return p.CompletedCount+p.FailedCount == p.TotalCount
}

// BatchSnapshot is an immutable copy of a batch and its tasks.
type BatchSnapshot struct {
	ID         string         `json:"id"`
	Query      string         `json:"query,omitempty"`
	Directory  string         `json:"directory"`
	State      BatchState     `json:"state"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Tasks      []TaskSnapshot `json:"tasks"`
	Progress   Progress       `json:"progress"`
}

// SucceededPaths returns destination paths of succeeded tasks in index order.
func (b BatchSnapshot) SucceededPaths() []string {
	paths := make([]string, 0, len(b.Tasks))
	for _, t := range b.Tasks {
		if t.State == TaskSucceeded && !t.Abandoned {
			paths = append(paths, t.DestinationPath)
		}
	}
	return paths
}

// FailedTasks returns the failed tasks in index order.
func (b BatchSnapshot) FailedTasks() []TaskSnapshot {
	var failed []TaskSnapshot
	for _, t := range b.Tasks {
		if t.State == TaskFailed {
			failed = append(failed, t)
		}
	}
	return failed
}

// Descriptors returns the batch descriptors in task order.
func (b BatchSnapshot) Descriptors() []SoundDescriptor {
	out := make([]SoundDescriptor, len(b.Tasks))
	for i, t := range b.Tasks {
		out[i] = t.Descriptor
	}
	return out
}

// BatchOptions carries optional attributes for a new batch
type BatchOptions struct {
	Query string
}
