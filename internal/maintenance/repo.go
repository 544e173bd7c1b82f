package maintenance

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/condo-backend/internal/repo"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
)

// RecordRepository persists maintenance records.
type RecordRepository interface {
	Create(ctx context.Context, record *models.MaintenanceRecord) error
	ListByUnit(ctx context.Context, unitID uuid.UUID) ([]models.MaintenanceRecord, error)
	UnitIsActive(ctx context.Context, unitID uuid.UUID) (bool, error)
	WithTx(tx *gorm.DB) RecordRepository
}

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) RecordRepository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, record *models.MaintenanceRecord) error {
	return r.DB(ctx).Create(record).Error
}

// ListByUnit returns the unit's records, oldest first.
func (r *Repository) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]models.MaintenanceRecord, error) {
	var rows []models.MaintenanceRecord
	err := r.DB(ctx).
		Where("unit_id = ?", unitID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UnitIsActive reports whether a non-deleted unit with the id exists.
func (r *Repository) UnitIsActive(ctx context.Context, unitID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Unit{}).
		Where("id = ? AND deleted = ?", unitID, false).
		Count(&count).Error
	return count > 0, err
}
