package domain

// TaskState is the lifecycle state of a single download task
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskInFlight  TaskState = "in_flight"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

// IsTerminal reports whether no further transitions can happen.
func (s TaskState) IsTerminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// FailureKind classifies why a task failed
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureNetwork   FailureKind = "network_error"
	FailureWrite     FailureKind = "write_error"
	FailureCancelled FailureKind = "cancelled"
)

// UnknownSize marks a task whose total size has not been announced.
const UnknownSize int64 = -1

// TaskSnapshot is an immutable copy of a download task
type TaskSnapshot struct {
	Index           int             `json:"index"`
	Descriptor      SoundDescriptor `json:"descriptor"`
	DestinationPath string          `json:"destination_path"`
	State           TaskState       `json:"state"`
	BytesReceived   int64           `json:"bytes_received"`
	TotalBytes      int64           `json:"total_bytes"`
	Attempts        int             `json:"attempts"`
	Failure         FailureKind     `json:"failure,omitempty"`
	ErrorDetail     string          `json:"error_detail,omitempty"`
	Abandoned       bool            `json:"abandoned,omitempty"`
}

// IsCancelled reports whether the task ended because cancellation was honoured.
func (t TaskSnapshot) IsCancelled() bool {
	return t.State == TaskFailed && t.Failure == FailureCancelled
}
