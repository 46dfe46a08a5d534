package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/wensia/callscribe/internal/models"
)

// Repository errors
var (
	ErrRecordNotFound = errors.New("call recording not found")
)

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new call recording repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uint) (*models.CallRecording, error) {
	var record models.CallRecording
	err := r.db.WithContext(ctx).First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting call recording: %w", err)
	}
	return &record, nil
}

// candidateQuery pushes the whole eligibility predicate down to SQL,
// including the OR-of-existence check over the URL alias keys, so recordings
// without a playable URL are never even fetched.
func (r *repository) candidateQuery(ctx context.Context, filter CandidateFilter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.CallRecording{}).
		Where("call_time >= ? AND call_time <= ?", filter.StartTime, filter.EndTime)

	if filter.SkipExisting {
		query = query.Where("transcript_status IS NULL OR transcript_status = ?",
			models.TranscriptStatusPending)
	}

	if filter.MinDuration > 0 {
		query = query.Where("duration >= ?", filter.MinDuration)
	}

	conds := make([]string, 0, len(URLAliasKeys))
	args := make([]interface{}, 0, len(URLAliasKeys))
	for _, key := range URLAliasKeys {
		conds = append(conds, "(json_extract(raw_payload, ?) IS NOT NULL AND json_extract(raw_payload, ?) != '')")
		args = append(args, "$."+key, "$."+key)
	}
	query = query.Where(strings.Join(conds, " OR "), args...)

	return query
}

func (r *repository) CountCandidates(ctx context.Context, filter CandidateFilter) (int64, error) {
	var count int64
	if err := r.candidateQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting candidate recordings: %w", err)
	}
	return count, nil
}

func (r *repository) ListCandidates(ctx context.Context, filter CandidateFilter, offset, limit int) ([]*models.CallRecording, error) {
	var records []*models.CallRecording
	err := r.candidateQuery(ctx, filter).
		Order("call_time DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing candidate recordings: %w", err)
	}
	return records, nil
}

func (r *repository) UpdateTranscript(ctx context.Context, recordID uint, segments models.TranscriptSegments, status string) error {
	// One UPDATE so transcript and status can never diverge
	result := r.db.WithContext(ctx).
		Model(&models.CallRecording{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"transcript":        segments,
			"transcript_status": status,
		})

	if result.Error != nil {
		return fmt.Errorf("updating transcript for recording %d: %w", recordID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}
