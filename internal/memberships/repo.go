package memberships

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/condo-backend/internal/repo"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
)

// UniqueLinkIndex guards one link per (unit, user) pair.
const UniqueLinkIndex = "ux_unit_memberships_unit_user"

// LinkRepository is the membership link persistence surface.
type LinkRepository interface {
	GetMembership(ctx context.Context, userID, unitID uuid.UUID) (*models.UnitMembership, error)
	CreateMembership(ctx context.Context, unitID, userID uuid.UUID, isOwner bool) (*models.UnitMembership, error)
	UpdateOwnership(ctx context.Context, membership *models.UnitMembership, isOwner bool) error
	DeleteMembership(ctx context.Context, membership *models.UnitMembership) error
	WithTx(tx *gorm.DB) LinkRepository
}

// Repository exposes membership link persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository that runs on tx.
func (r *Repository) WithTx(tx *gorm.DB) LinkRepository {
	return &Repository{Base: r.Bind(tx)}
}

// GetMembership retrieves the link between a user and a unit.
func (r *Repository) GetMembership(ctx context.Context, userID, unitID uuid.UUID) (*models.UnitMembership, error) {
	var membership models.UnitMembership
	err := r.DB(ctx).
		Where("user_id = ? AND unit_id = ?", userID, unitID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// CreateMembership persists a new link.
func (r *Repository) CreateMembership(ctx context.Context, unitID, userID uuid.UUID, isOwner bool) (*models.UnitMembership, error) {
	membership := &models.UnitMembership{
		UnitID:  unitID,
		UserID:  userID,
		IsOwner: isOwner,
	}
	if err := r.DB(ctx).Omit(clause.Associations).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// UpdateOwnership flips the is_owner flag of an existing link.
func (r *Repository) UpdateOwnership(ctx context.Context, membership *models.UnitMembership, isOwner bool) error {
	membership.IsOwner = isOwner
	return r.DB(ctx).
		Model(membership).
		Updates(map[string]any{"is_owner": isOwner}).Error
}

// DeleteMembership removes the link row.
func (r *Repository) DeleteMembership(ctx context.Context, membership *models.UnitMembership) error {
	return r.DB(ctx).Delete(&models.UnitMembership{}, "id = ?", membership.ID).Error
}
