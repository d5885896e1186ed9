package domain

// EventKind identifies the type of a lifecycle event
type EventKind string

const (
	EventBatchStarted        EventKind = "batch_started"
	EventProgressChanged     EventKind = "progress_changed"
	EventBatchCompleted      EventKind = "batch_completed"
	EventBatchCancelled      EventKind = "batch_cancelled"
	EventMetadataWriteFailed EventKind = "metadata_write_failed"
)

// Event is a notification published by the download manager.
// Payloads are values; listeners never see live manager state.
type Event interface {
	Kind() EventKind
	Batch() string
}

// BatchStarted is published once the batch directory is ready and tasks are queued.
type BatchStarted struct {
	BatchID   string `json:"batch_id"`
	Query     string `json:"query,omitempty"`
	Directory string `json:"directory"`
	Total     int    `json:"total"`
}

func (e BatchStarted) Kind() EventKind { return EventBatchStarted }
func (e BatchStarted) Batch() string   { return e.BatchID }

// ProgressChanged carries the aggregate progress after a task update.
type ProgressChanged struct {
	Progress
}

func (e ProgressChanged) Kind() EventKind { return EventProgressChanged }
func (e ProgressChanged) Batch() string   { return e.BatchID }

// BatchCompleted is published after every task is terminal and the sidecar
// write has been attempted.
type BatchCompleted struct {
	BatchID             string   `json:"batch_id"`
	Directory           string   `json:"directory"`
	Success             bool     `json:"success"`
	SucceededPaths      []string `json:"succeeded_paths"`
	FailedDescriptorIDs []string `json:"failed_descriptor_ids"`
	FailedIndices       []int    `json:"failed_indices"`
	Progress            Progress `json:"progress"`
}

func (e BatchCompleted) Kind() EventKind { return EventBatchCompleted }
func (e BatchCompleted) Batch() string   { return e.BatchID }

// BatchCancelled is published when a cancelled batch has settled.
type BatchCancelled struct {
	BatchID  string   `json:"batch_id"`
	Progress Progress `json:"progress"`
}

func (e BatchCancelled) Kind() EventKind { return EventBatchCancelled }
func (e BatchCancelled) Batch() string   { return e.BatchID }

// MetadataWriteFailed reports a non-fatal sidecar write failure.
type MetadataWriteFailed struct {
	BatchID string `json:"batch_id"`
	Reason  string `json:"reason"`
}

func (e MetadataWriteFailed) Kind() EventKind { return EventMetadataWriteFailed }
func (e MetadataWriteFailed) Batch() string   { return e.BatchID }

// EventEnvelope is the wire form of an event on the event stream.
type EventEnvelope struct {
	Kind    EventKind `json:"kind"`
	BatchID string    `json:"batch_id"`
	Payload Event     `json:"payload"`
}

// Envelope wraps an event for transport.
func Envelope(e Event) EventEnvelope {
	return EventEnvelope{Kind: e.Kind(), BatchID: e.Batch(), Payload: e}
}
