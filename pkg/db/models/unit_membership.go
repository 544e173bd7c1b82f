package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnitMembership links a user with a unit, as owner or tenant.
type UnitMembership struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UnitID    uuid.UUID `gorm:"column:unit_id;type:uuid;not null"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	IsOwner   bool      `gorm:"column:is_owner;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID"`
}

func (UnitMembership) TableName() string { return "unit_memberships" }

func (m *UnitMembership) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
