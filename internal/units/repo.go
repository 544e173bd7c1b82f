package units

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/condo-backend/internal/repo"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
)

// UnitRepository is the unit persistence surface used by the service.
type UnitRepository interface {
	Create(ctx context.Context, unit *models.Unit) error
	Update(ctx context.Context, unit *models.Unit) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	FindActiveWithMembers(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	FindActiveByNumberSection(ctx context.Context, number int, section string, excludeID *uuid.UUID) (*models.Unit, error)
	FindActiveByCode(ctx context.Context, code string) (*models.Unit, error)
	ListActive(ctx context.Context) ([]models.Unit, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Unit, error)
	ClearCodesDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	WithTx(tx *gorm.DB) UnitRepository
}

// Repository implements UnitRepository on gorm.
type Repository struct {
	repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) UnitRepository {
	return &Repository{Base: r.Bind(tx)}
}

// Create inserts the unit row only; relations are written by their own repositories.
func (r *Repository) Create(ctx context.Context, unit *models.Unit) error {
	return r.DB(ctx).Omit(clause.Associations).Create(unit).Error
}

// Update writes every mutable column of the unit.
func (r *Repository) Update(ctx context.Context, unit *models.Unit) error {
	return r.DB(ctx).
		Model(unit).
		Omit(clause.Associations).
		Select("number", "section", "reference", "sign_up_code", "owner_code", "deleted", "deleted_at", "updated_at").
		Updates(unit).Error
}

// Touch refreshes updated_at of an active unit.
func (r *Repository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.Unit{}).
		Where("id = ? AND deleted = ?", id, false).
		Update("updated_at", at).Error
}

// FindActiveByID loads a non-deleted unit without relations.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	err := r.DB(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindActiveWithMembers loads a non-deleted unit with its links and their users.
func (r *Repository) FindActiveWithMembers(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	err := r.DB(ctx).
		Preload("Members", orderedByCreation).
		Preload("Members.User").
		Where("id = ? AND deleted = ?", id, false).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindActiveByNumberSection returns the active holder of (number, section), skipping excludeID.
func (r *Repository) FindActiveByNumberSection(ctx context.Context, number int, section string, excludeID *uuid.UUID) (*models.Unit, error) {
	query := r.DB(ctx).
		Where("number = ? AND section = ? AND deleted = ?", number, section, false)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var unit models.Unit
	if err := query.First(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindActiveByCode matches either the sign-up code or the owner code.
func (r *Repository) FindActiveByCode(ctx context.Context, code string) (*models.Unit, error) {
	var unit models.Unit
	err := r.DB(ctx).
		Where("deleted = ? AND (sign_up_code = ? OR owner_code = ?)", false, code, code).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListActive returns every non-deleted unit in store order.
func (r *Repository) ListActive(ctx context.Context) ([]models.Unit, error) {
	var rows []models.Unit
	if err := r.DB(ctx).Where("deleted = ?", false).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByUser returns every unit linked to an existing user, soft-deleted ones
// included, with members, member users and maintenance records.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Unit, error) {
	linked := r.DB(ctx).
		Model(&models.UnitMembership{}).
		Select("unit_memberships.unit_id").
		Joins("JOIN users ON users.id = unit_memberships.user_id").
		Where("unit_memberships.user_id = ?", userID)

	var rows []models.Unit
	err := r.DB(ctx).
		Preload("Members", orderedByCreation).
		Preload("Members.User").
		Preload("Maintenance", orderedByCreation).
		Where("units.id IN (?)", linked).
		Order("units.created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ClearCodesDeletedBefore nulls the codes of units soft-deleted before cutoff.
func (r *Repository) ClearCodesDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Unit{}).
		Where("deleted = ? AND deleted_at < ?", true, cutoff).
		Where("(sign_up_code IS NOT NULL OR owner_code IS NOT NULL)").
		Updates(map[string]any{
			"sign_up_code": nil,
			"owner_code":   nil,
		})
	return res.RowsAffected, res.Error
}

func orderedByCreation(db *gorm.DB) *gorm.DB {
	return db.Order("created_at")
}
