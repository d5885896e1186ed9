package domain

import "errors"

var (
	// ErrNetwork covers connection failures, timeouts and non-2xx responses.
	ErrNetwork = errors.New("network error")

	// ErrWrite covers local file system failures.
	ErrWrite = errors.New("write error")

	// ErrCancelled marks work stopped by cancellation.
	ErrCancelled = errors.New("cancelled")

	// ErrEmptyResult is returned when a search yields nothing or a batch has no descriptors.
	ErrEmptyResult = errors.New("empty result")

	// ErrBatchStartFailed is returned synchronously when a batch cannot be set up.
	ErrBatchStartFailed = errors.New("batch start failed")

	// ErrNoSidecar is returned when a directory has no metadata sidecar.
	ErrNoSidecar = errors.New("no metadata sidecar")

	// ErrNoActiveBatch is returned when an operation needs an active batch.
	ErrNoActiveBatch = errors.New("no active batch")

	// ErrNotFound is returned by repositories for missing records.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks a request that fails validation.
	ErrInvalidInput = errors.New("invalid input")
)

// ClassifyFailure maps an error onto the task failure taxonomy.
func ClassifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrCancelled):
		return FailureCancelled
	case errors.Is(err, ErrWrite):
		return FailureWrite
	default:
		return FailureNetwork
	}
}
