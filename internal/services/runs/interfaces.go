package runs

import (
	"context"

	"github.com/wensia/callscribe/internal/models"
)

// Service persists batch run outcomes for audit and tuning
type Service interface {
	// SaveReport stores the outcome of one finished batch run
	SaveReport(ctx context.Context, configID uint, report Reportable) (*models.BatchRun, error)

	// ListRecent returns the newest runs, newest first
	ListRecent(ctx context.Context, limit int) ([]*models.BatchRun, error)
}

// Reportable is the slice of a batch report this service persists. The batch
// package's Report satisfies it.
type Reportable interface {
	RunModel() *models.BatchRun
}

// Repository is the persistence interface over batch runs
type Repository interface {
	// Create stores one run
	Create(ctx context.Context, run *models.BatchRun) error

	// GetByID loads one run
	GetByID(ctx context.Context, id uint) (*models.BatchRun, error)

	// ListRecent pages runs by creation time descending
	ListRecent(ctx context.Context, limit int) ([]*models.BatchRun, error)
}
