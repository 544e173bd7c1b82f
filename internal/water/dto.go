package water

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/condo-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/condo-backend/pkg/errors"
)

// ReadingInput is one metering period. PreviouslyMeasured defaults to the
// last stored reading when omitted.
type ReadingInput struct {
	PreviouslyMeasured *decimal.Decimal `json:"previously_measured,omitempty"`
	CurrentlyMeasured  decimal.Decimal  `json:"currently_measured"`
}

// validateReading runs once the previous measure is resolved.
func validateReading(previous, current decimal.Decimal) error {
	if previous.IsNegative() || current.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "meter readings must not be negative")
	}
	if current.LessThan(previous) {
		return pkgerrors.New(pkgerrors.CodeValidation, "current reading is below the previous reading").
			WithDetails(map[string]any{
				"previously_measured": previous.String(),
				"currently_measured":  current.String(),
			})
	}
	return nil
}

type ReadingDTO struct {
	ID                 uuid.UUID       `json:"id"`
	UnitID             uuid.UUID       `json:"unit_id"`
	PreviouslyMeasured decimal.Decimal `json:"previously_measured"`
	CurrentlyMeasured  decimal.Decimal `json:"currently_measured"`
	Consumption        decimal.Decimal `json:"consumption"`
	CreatedAt          time.Time       `json:"created_at"`
}

func FromModel(m models.WaterReading) ReadingDTO {
	return ReadingDTO{
		ID:                 m.ID,
		UnitID:             m.UnitID,
		PreviouslyMeasured: m.PreviouslyMeasured,
		CurrentlyMeasured:  m.CurrentlyMeasured,
		Consumption:        m.Consumption(),
		CreatedAt:          m.CreatedAt,
	}
}

func FromModels(rows []models.WaterReading) []ReadingDTO {
	out := make([]ReadingDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
