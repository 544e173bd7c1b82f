package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WaterReading is one meter reading period for a unit.
type WaterReading struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UnitID             uuid.UUID       `gorm:"column:unit_id;type:uuid;not null"`
	PreviouslyMeasured decimal.Decimal `gorm:"column:previously_measured;type:numeric(12,3);not null"`
	CurrentlyMeasured  decimal.Decimal `gorm:"column:currently_measured;type:numeric(12,3);not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (WaterReading) TableName() string { return "water_readings" }

func (w *WaterReading) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Consumption is the metered volume for the period, never negative.
func (w WaterReading) Consumption() decimal.Decimal {
	diff := w.CurrentlyMeasured.Sub(w.PreviouslyMeasured)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}
