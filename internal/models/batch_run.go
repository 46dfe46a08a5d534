package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// RunError is one sampled per-record failure persisted with a batch run
type RunError struct {
	RecordID  uint   `json:"record_id"`
	ErrorType string `json:"error_type"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
}

// RunErrorSample is the bounded error sample stored as a JSON column
type RunErrorSample []RunError

// Value implements driver.Valuer interface for RunErrorSample
func (s RunErrorSample) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface for RunErrorSample
func (s *RunErrorSample) Scan(value interface{}) error {
	if value == nil {
		*s = nil
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

	return json.Unmarshal(bytes, s)
}

// BatchRun is the persisted outcome of one batch transcription pass, kept for
// audit and for tuning concurrency and window sizes over time.
type BatchRun struct {
	gorm.Model
	ASRConfigID uint           `json:"asr_config_id"`
	Vendor      string         `json:"vendor" gorm:"index:idx_batch_runs_vendor"`
	Status      string         `json:"status"`
	Message     string         `json:"message"`
	Total       int64          `json:"total"`
	Success     int            `json:"success"`
	Failed      int            `json:"failed"`
	Skipped     int            `json:"skipped"`
	Concurrency int            `json:"concurrency"`
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	Errors      RunErrorSample `json:"errors,omitempty" gorm:"type:json"`
}

// TableName specifies the table name for GORM
func (BatchRun) TableName() string {
	return "batch_runs"
}
