package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/condo-backend/pkg/enums"
)

// UnitSnapshot is the unit state carried by unit lifecycle events.
type UnitSnapshot struct {
	UnitID    uuid.UUID `json:"unit_id"`
	Number    int       `json:"number"`
	Section   string    `json:"section"`
	Reference int       `json:"reference"`
}

// UnitCreatedEvent is emitted once a unit and its initial members are stored.
type UnitCreatedEvent struct {
	UnitSnapshot
	OwnerID   *uuid.UUID  `json:"owner_id,omitempty"`
	TenantIDs []uuid.UUID `json:"tenant_ids,omitempty"`
}

// UnitUpdatedEvent lists the fields a patch or code rotation changed.
type UnitUpdatedEvent struct {
	UnitSnapshot
	ChangedFields []string `json:"changed_fields"`
}

// UnitDeletedEvent marks a soft delete.
type UnitDeletedEvent struct {
	UnitSnapshot
	DeletedAt time.Time `json:"deleted_at"`
}

// UnitMemberEvent covers member added, removed and role changed.
type UnitMemberEvent struct {
	UnitID  uuid.UUID        `json:"unit_id"`
	UserID  uuid.UUID        `json:"user_id"`
	IsOwner bool             `json:"is_owner"`
	Role    enums.MemberRole `json:"role"`
}
