package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unit is a residential unit (apartment or house) inside the property.
// Timestamps are owned by the unit service clock, not by gorm.
type Unit struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number     int        `gorm:"column:number;not null"`
	Section    string     `gorm:"column:section;type:text;not null"`
	Reference  int        `gorm:"column:reference;not null;default:0"`
	SignUpCode *string    `gorm:"column:sign_up_code;type:text"`
	OwnerCode  *string    `gorm:"column:owner_code;type:text"`
	Deleted    bool       `gorm:"column:deleted;not null;default:false"`
	DeletedAt  *time.Time `gorm:"column:deleted_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`

	Members     []UnitMembership    `gorm:"foreignKey:UnitID"`
	Maintenance []MaintenanceRecord `gorm:"foreignKey:UnitID"`
	Water       []WaterReading      `gorm:"foreignKey:UnitID"`
}

func (Unit) TableName() string { return "units" }

func (u *Unit) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
