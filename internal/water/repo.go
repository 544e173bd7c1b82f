package water

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/condo-backend/internal/repo"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
)

// ReadingRepository persists water meter readings.
type ReadingRepository interface {
	Create(ctx context.Context, reading *models.WaterReading) error
	ListByUnit(ctx context.Context, unitID uuid.UUID) ([]models.WaterReading, error)
	Latest(ctx context.Context, unitID uuid.UUID) (*models.WaterReading, error)
	UnitIsActive(ctx context.Context, unitID uuid.UUID) (bool, error)
	WithTx(tx *gorm.DB) ReadingRepository
}

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) ReadingRepository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, reading *models.WaterReading) error {
	return r.DB(ctx).Create(reading).Error
}

// ListByUnit returns readings newest first.
func (r *Repository) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]models.WaterReading, error) {
	var rows []models.WaterReading
	err := r.DB(ctx).
		Where("unit_id = ?", unitID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Latest returns the most recent reading; gorm.ErrRecordNotFound when none exist.
func (r *Repository) Latest(ctx context.Context, unitID uuid.UUID) (*models.WaterReading, error) {
	var reading models.WaterReading
	err := r.DB(ctx).
		Where("unit_id = ?", unitID).
		Order("created_at DESC").
		First(&reading).Error
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *Repository) UnitIsActive(ctx context.Context, unitID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Unit{}).
		Where("id = ? AND deleted = ?", unitID, false).
		Count(&count).Error
	return count > 0, err
}
