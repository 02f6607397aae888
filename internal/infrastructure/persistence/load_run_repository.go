package persistence

import (
	"context"
	"errors"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/erp/salesetl/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLoadRunRepository implements bulk.LoadRunRepository using GORM
type GormLoadRunRepository struct {
	db *gorm.DB
}

// NewGormLoadRunRepository creates a new GormLoadRunRepository
func NewGormLoadRunRepository(db *gorm.DB) *GormLoadRunRepository {
	return &GormLoadRunRepository{db: db}
}

// FindByID finds a load run by ID
func (r *GormLoadRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.LoadRun, error) {
	var model models.LoadRunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns the most recent runs, newest first
func (r *GormLoadRunRepository) FindRecent(ctx context.Context, limit int) ([]*bulk.LoadRun, error) {
	query := r.db.WithContext(ctx).Model(&models.LoadRunModel{}).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.LoadRunModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	runs := make([]*bulk.LoadRun, len(rows))
	for i := range rows {
		runs[i] = rows[i].ToDomain()
	}
	return runs, nil
}

// Save creates or updates a load run
func (r *GormLoadRunRepository) Save(ctx context.Context, run *bulk.LoadRun) error {
	var model models.LoadRunModel
	if err := model.FromDomain(run); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// Ensure GormLoadRunRepository implements LoadRunRepository
var _ bulk.LoadRunRepository = (*GormLoadRunRepository)(nil)
