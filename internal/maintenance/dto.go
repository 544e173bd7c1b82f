package maintenance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/condo-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/condo-backend/pkg/errors"
)

// RecordInput describes a maintenance charge to attach to a unit.
type RecordInput struct {
	Concept string          `json:"concept" validate:"required,notblank"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate *time.Time      `json:"due_date,omitempty"`
	PaidAt  *time.Time      `json:"paid_at,omitempty"`
}

// Validate enforces a concept and a non-negative amount.
func (in RecordInput) Validate() error {
	if strings.TrimSpace(in.Concept) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "maintenance concept is required")
	}
	if in.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "maintenance amount must not be negative")
	}
	return nil
}

// ToModel builds the row for unitID.
func (in RecordInput) ToModel(unitID uuid.UUID) *models.MaintenanceRecord {
	return &models.MaintenanceRecord{
		UnitID:  unitID,
		Concept: strings.TrimSpace(in.Concept),
		Amount:  in.Amount.Round(2),
		DueDate: in.DueDate,
		PaidAt:  in.PaidAt,
	}
}

type RecordDTO struct {
	ID        uuid.UUID       `json:"id"`
	UnitID    uuid.UUID       `json:"unit_id"`
	Concept   string          `json:"concept"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   *time.Time      `json:"due_date,omitempty"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Paid      bool            `json:"paid"`
	CreatedAt time.Time       `json:"created_at"`
}

func FromModel(m models.MaintenanceRecord) RecordDTO {
	return RecordDTO{
		ID:        m.ID,
		UnitID:    m.UnitID,
		Concept:   m.Concept,
		Amount:    m.Amount,
		DueDate:   m.DueDate,
		PaidAt:    m.PaidAt,
		Paid:      m.PaidAt != nil,
		CreatedAt: m.CreatedAt,
	}
}

func FromModels(rows []models.MaintenanceRecord) []RecordDTO {
	out := make([]RecordDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
