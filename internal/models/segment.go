package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
)

// SpeakerRole identifies which side of the call a segment belongs to
type SpeakerRole string

const (
	SpeakerStaff    SpeakerRole = "staff"
	SpeakerCustomer SpeakerRole = "customer"
)

// TranscriptSegment is a single time-stamped, speaker-attributed sentence
// of a call transcript. Times are in seconds from the start of the recording.
type TranscriptSegment struct {
	StartTime float64     `json:"start_time"`
	EndTime   float64     `json:"end_time"`
	Speaker   SpeakerRole `json:"speaker"`
	Text      string      `json:"text"`
	Emotion   string      `json:"emotion,omitempty"`
}

// TranscriptSegments is the ordered transcript stored on a call recording
type TranscriptSegments []TranscriptSegment

// SortByStartTime orders segments ascending by start time (stable, so
// segments sharing a start keep their vendor-native order)
func (s TranscriptSegments) SortByStartTime() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].StartTime < s[j].StartTime
	})
}

// Value implements driver.Valuer interface for TranscriptSegments
func (s TranscriptSegments) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface for TranscriptSegments
func (s *TranscriptSegments) Scan(value interface{}) error {
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
