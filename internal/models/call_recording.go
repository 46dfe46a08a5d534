package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// TranscriptStatus values for CallRecording.TranscriptStatus. A nil status
// means the recording has never been picked up for transcription.
const (
	TranscriptStatusPending   = "pending"
	TranscriptStatusCompleted = "completed"
	TranscriptStatusEmpty     = "empty"
)

// RawPayload is the arbitrary key/value payload a call recording was ingested
// with. The playable audio URL, when present, lives under one of several
// alias keys depending on the upstream source.
type RawPayload map[string]interface{}

// Value implements driver.Valuer interface for RawPayload
func (p RawPayload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface for RawPayload
func (p *RawPayload) Scan(value interface{}) error {
	if value == nil {
		*p = make(RawPayload)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, p)
}

// CallRecording represents one recorded call. Ingestion owns the payload and
// duration; the transcription pipeline only reads those and writes
// Transcript/TranscriptStatus.
type CallRecording struct {
	gorm.Model
	CallTime         time.Time          `json:"call_time" gorm:"index:idx_recordings_call_time"`
	Duration         int                `json:"duration"` // seconds
	RawPayload       RawPayload         `json:"raw_payload" gorm:"type:json"`
	TranscriptStatus *string            `json:"transcript_status" gorm:"index:idx_recordings_transcript_status"`
	Transcript       TranscriptSegments `json:"transcript,omitempty" gorm:"type:json"`
}

// HasTerminalTranscript reports whether the recording already carries a
// terminal transcription outcome and should be excluded from default runs
func (r *CallRecording) HasTerminalTranscript() bool {
	if r.TranscriptStatus == nil {
		return false
	}
	return *r.TranscriptStatus == TranscriptStatusCompleted ||
		*r.TranscriptStatus == TranscriptStatusEmpty
}

// TableName specifies the table name for GORM
func (CallRecording) TableName() string {
	return "call_recordings"
}
