package units

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/condo-backend/pkg/db/models"
	"github.com/angelmondragon/condo-backend/pkg/enums"
	"github.com/angelmondragon/condo-backend/pkg/outbox"
	"github.com/angelmondragon/condo-backend/pkg/outbox/payloads"
)

const (
	memberAdded       = enums.EventUnitMemberAdded
	memberRemoved     = enums.EventUnitMemberRemoved
	memberRoleChanged = enums.EventUnitMemberRoleChanged
)

func snapshot(unit *models.Unit) payloads.UnitSnapshot {
	return payloads.UnitSnapshot{
		UnitID:    unit.ID,
		Number:    unit.Number,
		Section:   unit.Section,
		Reference: unit.Reference,
	}
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, unit *models.Unit, ownerID *uuid.UUID, tenantIDs []uuid.UUID) error {
	return s.emit(ctx, tx, enums.EventUnitCreated, unit.ID, payloads.UnitCreatedEvent{
		UnitSnapshot: snapshot(unit),
		OwnerID:      ownerID,
		TenantIDs:    tenantIDs,
	})
}

func (s *service) emitUpdated(ctx context.Context, tx *gorm.DB, unit *models.Unit, changed []string) error {
	return s.emit(ctx, tx, enums.EventUnitUpdated, unit.ID, payloads.UnitUpdatedEvent{
		UnitSnapshot:  snapshot(unit),
		ChangedFields: changed,
	})
}

func (s *service) emitDeleted(ctx context.Context, tx *gorm.DB, unit *models.Unit) error {
	event := payloads.UnitDeletedEvent{UnitSnapshot: snapshot(unit)}
	if unit.DeletedAt != nil {
		event.DeletedAt = *unit.DeletedAt
	}
	return s.emit(ctx, tx, enums.EventUnitDeleted, unit.ID, event)
}

func (s *service) emitMember(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, membership *models.UnitMembership) error {
	return s.emit(ctx, tx, eventType, membership.UnitID, payloads.UnitMemberEvent{
		UnitID:  membership.UnitID,
		UserID:  membership.UserID,
		IsOwner: membership.IsOwner,
		Role:    enums.RoleFromOwnerFlag(membership.IsOwner),
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, unitID uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateUnit,
		AggregateID:   unitID,
		Data:          data,
		OccurredAt:    s.now(),
	})
	if err != nil {
		return storeFailure(err, "emit "+string(eventType))
	}
	return nil
}
