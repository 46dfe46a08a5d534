package credentials

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wensia/callscribe/internal/models"
)

// Repository errors
var (
	ErrCredentialNotFound = errors.New("ASR credential profile not found")
	ErrCredentialInactive = errors.New("ASR credential profile is not active")
)

// Repository is the read-only view of ASR credential profiles this pipeline
// consumes. Profile CRUD belongs to the config-management service.
type Repository interface {
	// GetByID loads an active credential profile
	GetByID(ctx context.Context, id uint) (*models.ASRCredential, error)

	// GetDefault loads the default active profile, optionally filtered by
	// provider tag
	GetDefault(ctx context.Context, provider string) (*models.ASRCredential, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new credential repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uint) (*models.ASRCredential, error) {
	var cred models.ASRCredential
	err := r.db.WithContext(ctx).First(&cred, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("getting credential profile: %w", err)
	}

	if !cred.IsActive {
		return nil, ErrCredentialInactive
	}

	return &cred, nil
}

func (r *repository) GetDefault(ctx context.Context, provider string) (*models.ASRCredential, error) {
	query := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("is_default = ?", true)
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}

	var cred models.ASRCredential
	if err := query.First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("getting default credential profile: %w", err)
	}

	return &cred, nil
}
