package asr

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across vendor clients
var (
	// ErrPollTimeout means the task did not reach a terminal state within the
	// wait window. Callers treat this differently from a vendor-side failure,
	// so it is never wrapped inside a TaskFailedError.
	ErrPollTimeout = errors.New("timed out waiting for transcription task")

	// ErrTaskNotFound means the vendor no longer knows the job handle
	ErrTaskNotFound = errors.New("transcription task not found")
)

// SubmitError normalizes all submission failure modes (signing, network,
// vendor-side validation rejection) into one error carrying the vendor's
// code and message.
type SubmitError struct {
	Provider string
	Code     string
	Message  string
	Cause    error
}

func (e *SubmitError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s submit failed: %s (code %s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s submit failed: %s", e.Provider, e.Message)
}

func (e *SubmitError) Unwrap() error {
	return e.Cause
}

// NewSubmitError creates a SubmitError for the given provider
func NewSubmitError(provider, code, message string, cause error) *SubmitError {
	return &SubmitError{Provider: provider, Code: code, Message: message, Cause: cause}
}

// TaskFailedError means the vendor reported the job as terminally failed.
// These are often transient (quota, vendor outage), so the record stays
// eligible for retry.
type TaskFailedError struct {
	Provider string
	Code     string
	Message  string
}

func (e *TaskFailedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s task failed: %s (code %s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s task failed: %s", e.Provider, e.Message)
}
