package units

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/condo-backend/internal/maintenance"
	"github.com/angelmondragon/condo-backend/internal/memberships"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
)

// UnitDTO is the snapshot returned by every unit operation.
type UnitDTO struct {
	ID          uuid.UUID               `json:"id"`
	Number      int                     `json:"number"`
	Section     string                  `json:"section"`
	Reference   int                     `json:"reference"`
	SignUpCode  *string                 `json:"sign_up_code,omitempty"`
	OwnerCode   *string                 `json:"owner_code,omitempty"`
	Deleted     bool                    `json:"deleted"`
	DeletedAt   *time.Time              `json:"deleted_at,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	Members     []memberships.MemberDTO `json:"members"`
	Maintenance []maintenance.RecordDTO `json:"maintenance"`
}

// FromModel maps a unit and whatever relations were preloaded on it.
func FromModel(u models.Unit) UnitDTO {
	return UnitDTO{
		ID:          u.ID,
		Number:      u.Number,
		Section:     u.Section,
		Reference:   u.Reference,
		SignUpCode:  u.SignUpCode,
		OwnerCode:   u.OwnerCode,
		Deleted:     u.Deleted,
		DeletedAt:   u.DeletedAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		Members:     memberships.FromModels(u.Members),
		Maintenance: maintenance.FromModels(u.Maintenance),
	}
}

func FromModels(rows []models.Unit) []UnitDTO {
	out := make([]UnitDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// CreateUnitInput carries a new unit and its optional initial linkage.
type CreateUnitInput struct {
	Number      int                       `json:"number" validate:"required,gt=0"`
	Section     string                    `json:"section" validate:"required,notblank"`
	Reference   int                       `json:"reference" validate:"gte=0"`
	OwnerID     *uuid.UUID                `json:"owner,omitempty"`
	TenantIDs   []uuid.UUID               `json:"tenants,omitempty"`
	Maintenance []maintenance.RecordInput `json:"maintenance,omitempty" validate:"dive"`
}

// validate checks the initial maintenance records. Number and section are
// stored as given; only their uniqueness is enforced.
func (in CreateUnitInput) validate() error {
	for _, record := range in.Maintenance {
		if err := record.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// tenants drops duplicates and the owner from the tenant list.
func (in CreateUnitInput) tenants() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(in.TenantIDs))
	if in.OwnerID != nil {
		seen[*in.OwnerID] = struct{}{}
	}
	out := make([]uuid.UUID, 0, len(in.TenantIDs))
	for _, id := range in.TenantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// PatchUnitInput only touches the fields that are set.
type PatchUnitInput struct {
	Number    *int    `json:"number,omitempty" validate:"omitempty,gt=0"`
	Section   *string `json:"section,omitempty" validate:"omitempty,notblank"`
	Reference *int    `json:"reference,omitempty" validate:"omitempty,gte=0"`
}
