package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/condo-backend/internal/users"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
	"github.com/angelmondragon/condo-backend/pkg/enums"
)

// MemberDTO mixes a membership link with the linked user profile.
type MemberDTO struct {
	MembershipID uuid.UUID        `json:"membership_id"`
	UserID       uuid.UUID        `json:"user_id"`
	IsOwner      bool             `json:"is_owner"`
	Role         enums.MemberRole `json:"role"`
	User         *users.UserDTO   `json:"user,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

func FromModel(m models.UnitMembership) MemberDTO {
	return MemberDTO{
		MembershipID: m.ID,
		UserID:       m.UserID,
		IsOwner:      m.IsOwner,
		Role:         enums.RoleFromOwnerFlag(m.IsOwner),
		User:         users.FromModel(m.User),
		CreatedAt:    m.CreatedAt,
	}
}

func FromModels(rows []models.UnitMembership) []MemberDTO {
	out := make([]MemberDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
