package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaintenanceRecord is a maintenance fee charged to a unit.
type MaintenanceRecord struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UnitID    uuid.UUID       `gorm:"column:unit_id;type:uuid;not null"`
	Concept   string          `gorm:"column:concept;type:text;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	DueDate   *time.Time      `gorm:"column:due_date"`
	PaidAt    *time.Time      `gorm:"column:paid_at"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (MaintenanceRecord) TableName() string { return "maintenance_records" }

func (m *MaintenanceRecord) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
