package runs

import (
	"context"
	"fmt"

	"github.com/wensia/callscribe/internal/models"
)

type service struct {
	repo Repository
}

// NewService creates the batch run history service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) SaveReport(ctx context.Context, configID uint, report Reportable) (*models.BatchRun, error) {
	run := report.RunModel()
	run.ASRConfigID = configID

	if err := s.repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("saving run report: %w", err)
	}
	return run, nil
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]*models.BatchRun, error) {
	return s.repo.ListRecent(ctx, limit)
}
