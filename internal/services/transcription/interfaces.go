package transcription

import (
	"context"
	"time"

	"github.com/wensia/callscribe/internal/asr"
	"github.com/wensia/callscribe/internal/models"
)

// URLAliasKeys are the known raw_payload keys a playable recording URL may
// live under, tried in order. The first key carries over from the Feishu
// ingestion source.
var URLAliasKeys = []string{"录音地址", "voiceUrl", "voice_url", "recordUrl", "record_url"}

// CandidateFilter selects call recordings eligible for batch transcription
type CandidateFilter struct {
	StartTime time.Time
	EndTime   time.Time
	// SkipExisting keeps only records whose transcript status is NULL or
	// pending, so completed/empty records are never reprocessed
	SkipExisting bool
	// MinDuration in seconds; zero disables the filter
	MinDuration int
}

// Service orchestrates one record's transcription: credential lookup, URL
// extraction, the vendor submit/poll/parse cycle and persistence
type Service interface {
	// ClientForConfig builds the vendor client for a credential profile
	ClientForConfig(ctx context.Context, configID uint) (asr.Client, *models.ASRCredential, error)

	// TranscribeRecord runs the full transcribe cycle for one record with an
	// already-constructed client. ErrNoAudioURL and ErrEmptyResult are
	// normal skip signals, not faults.
	TranscribeRecord(ctx context.Context, record *models.CallRecording, client asr.Client, opts asr.Options, overrides asr.SpeakerOverrides, wait asr.WaitConfig) (models.TranscriptSegments, error)

	// UpdateRecordTranscript persists transcript and status in one write
	UpdateRecordTranscript(ctx context.Context, recordID uint, segments models.TranscriptSegments, status string) error
}

// Repository is the persistence interface over call recordings
type Repository interface {
	// GetByID loads one recording
	GetByID(ctx context.Context, id uint) (*models.CallRecording, error)

	// CountCandidates counts eligible recordings without materializing them
	CountCandidates(ctx context.Context, filter CandidateFilter) (int64, error)

	// ListCandidates pages eligible recordings ordered by call_time
	// descending
	ListCandidates(ctx context.Context, filter CandidateFilter, offset, limit int) ([]*models.CallRecording, error)

	// UpdateTranscript writes transcript and status atomically
	UpdateTranscript(ctx context.Context, recordID uint, segments models.TranscriptSegments, status string) error
}
