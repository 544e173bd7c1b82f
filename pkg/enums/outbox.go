package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateUnit OutboxAggregateType = "unit"
)

var validAggregateTypes = []OutboxAggregateType{AggregateUnit}

func (a OutboxAggregateType) IsValid() bool { return isKnown(validAggregateTypes, a) }

// OutboxEventType maps to the event_type column of outbox_events and names
// the event on the wire.
type OutboxEventType string

const (
	EventUnitCreated           OutboxEventType = "unit_created"
	EventUnitUpdated           OutboxEventType = "unit_updated"
	EventUnitDeleted           OutboxEventType = "unit_deleted"
	EventUnitMemberAdded       OutboxEventType = "unit_member_added"
	EventUnitMemberRemoved     OutboxEventType = "unit_member_removed"
	EventUnitMemberRoleChanged OutboxEventType = "unit_member_role_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventUnitCreated,
	EventUnitUpdated,
	EventUnitDeleted,
	EventUnitMemberAdded,
	EventUnitMemberRemoved,
	EventUnitMemberRoleChanged,
}

func (e OutboxEventType) IsValid() bool { return isKnown(validOutboxEventTypes, e) }

// IsMembershipEvent reports whether the event describes a unit membership link.
func (e OutboxEventType) IsMembershipEvent() bool {
	switch e {
	case EventUnitMemberAdded, EventUnitMemberRemoved, EventUnitMemberRoleChanged:
		return true
	}
	return false
}

// OutboxDLQErrorReason records why an event left the outbox for the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
