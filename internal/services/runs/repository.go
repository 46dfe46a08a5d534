package runs

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wensia/callscribe/internal/models"
)

// Repository errors
var (
	ErrRunNotFound = errors.New("batch run not found")
)

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new batch run repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, run *models.BatchRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("creating batch run: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*models.BatchRun, error) {
	var run models.BatchRun
	err := r.db.WithContext(ctx).First(&run, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("getting batch run: %w", err)
	}
	return &run, nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]*models.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []*models.BatchRun
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("listing batch runs: %w", err)
	}
	return runs, nil
}
