package asr

import (
	"context"
	"fmt"
	"time"

	"github.com/wensia/callscribe/internal/models"
)

// TaskState is the reduced lifecycle every vendor's native status codes map
// onto. Unrecognized vendor statuses map to TaskRunning unless the vendor
// explicitly documents them as terminal failures, so transient status churn
// never aborts a poll loop early.
type TaskState string

const (
	TaskRunning TaskState = "RUNNING"
	TaskSuccess TaskState = "SUCCESS"
	TaskFailed  TaskState = "FAILED"
)

// TaskStatus is one poll observation of an asynchronous transcription task
type TaskStatus struct {
	State TaskState
	// RawResult holds the vendor's result payload once State is TaskSuccess.
	// Its shape is vendor-specific and only the owning client can parse it.
	RawResult string
	// Code and Message carry the vendor's failure detail when State is
	// TaskFailed
	Code    string
	Message string
}

// Options carries the per-request transcription knobs shared by all vendors
type Options struct {
	// ChannelNum is the audio channel count. Two channels (8kHz telephony)
	// asks the vendor to separate speakers by channel; one channel asks for
	// algorithmic diarization with SpeakerCount expected speakers.
	ChannelNum int
	// SpeakerCount is the expected speaker count for diarization
	SpeakerCount int
	// CorrectTableName names a vendor-side replacement dictionary
	// (Volcengine only; other vendors ignore it)
	CorrectTableName string
	// QPS caps request throughput for vendors with a shared per-second
	// rate budget (Volcengine only)
	QPS int
}

// SpeakerOverrides remaps raw vendor channel/speaker ids to roles. When nil,
// each client applies its own default mapping.
type SpeakerOverrides map[string]models.SpeakerRole

// Client is the contract every vendor transcription client implements
type Client interface {
	// Submit creates an asynchronous transcription task for the audio URL
	// and returns an opaque job handle
	Submit(ctx context.Context, audioURL string, opts Options) (string, error)

	// Poll fetches the current task status, reduced to the shared lifecycle
	Poll(ctx context.Context, taskID string) (*TaskStatus, error)

	// Parse decodes the vendor's raw result into ordered transcript segments
	Parse(rawResult string, overrides SpeakerOverrides) (models.TranscriptSegments, error)

	// Provider returns the provider tag this client serves
	Provider() string
}

const (
	// DefaultPollInterval is the fixed wait between polls
	DefaultPollInterval = 4 * time.Second
	// DefaultWaitTimeout bounds one record's whole poll loop
	DefaultWaitTimeout = 600 * time.Second
)

// WaitConfig tunes the poll loop
type WaitConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

func (c WaitConfig) withDefaults() WaitConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultWaitTimeout
	}
	return c
}

// WaitForTask polls the task at a fixed interval until it reaches a terminal
// state or the wall-clock timeout elapses. Timeout yields ErrPollTimeout
// rather than a vendor failure; the sleep is context-aware so cancellation
// never strands an in-flight record.
func WaitForTask(ctx context.Context, client Client, taskID string, cfg WaitConfig) (*TaskStatus, error) {
	cfg = cfg.withDefaults()
	deadline := time.Now().Add(cfg.Timeout)

	for {
		status, err := client.Poll(ctx, taskID)
		if err != nil {
			return nil, err
		}

		switch status.State {
		case TaskSuccess:
			return status, nil
		case TaskFailed:
			return status, &TaskFailedError{
				Provider: client.Provider(),
				Code:     status.Code,
				Message:  status.Message,
			}
		}

		if time.Now().Add(cfg.PollInterval).After(deadline) {
			return nil, fmt.Errorf("%s task %s: %w after %s",
				client.Provider(), taskID, ErrPollTimeout, cfg.Timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.PollInterval):
		}
	}
}

// Transcribe is the composite submit + poll-until-terminal + parse flow
func Transcribe(ctx context.Context, client Client, audioURL string, opts Options, overrides SpeakerOverrides, wait WaitConfig) (models.TranscriptSegments, error) {
	taskID, err := client.Submit(ctx, audioURL, opts)
	if err != nil {
		return nil, err
	}

	status, err := WaitForTask(ctx, client, taskID, wait)
	if err != nil {
		return nil, err
	}

	segments, err := client.Parse(status.RawResult, overrides)
	if err != nil {
		return nil, fmt.Errorf("%s task %s: parsing result: %w", client.Provider(), taskID, err)
	}

	return segments, nil
}

// defaultSpeakerForChannel maps a raw channel id using overrides when given,
// falling back to the shared Tencent/Alibaba convention: 0 is the staff
// channel, 1 the customer channel. Volcengine does not use this helper
// because its channel numbering is reversed by contract.
func defaultSpeakerForChannel(raw string, overrides SpeakerOverrides) models.SpeakerRole {
	if role, ok := overrides[raw]; ok {
		return role
	}
	if raw == "1" {
		return models.SpeakerCustomer
	}
	return models.SpeakerStaff
}
