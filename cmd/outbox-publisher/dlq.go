package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/condo-backend/pkg/db/models"
)

type dlqAdmin interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	Replay(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

// dlqFlags select a one-shot dead letter command instead of the relay loop.
type dlqFlags struct {
	list   bool
	limit  int
	replay string
}

func (f dlqFlags) active() bool { return f.list || f.replay != "" }

type dlqLine struct {
	EventID      uuid.UUID `json:"event_id"`
	EventType    string    `json:"event_type"`
	AggregateID  uuid.UUID `json:"aggregate_id"`
	Reason       string    `json:"reason"`
	Message      string    `json:"message,omitempty"`
	AttemptCount int       `json:"attempt_count"`
	FailedAt     string    `json:"failed_at"`
}

func newDLQLine(e models.OutboxDLQ) dlqLine {
	line := dlqLine{
		EventID:      e.EventID,
		EventType:    string(e.EventType),
		AggregateID:  e.AggregateID,
		Reason:       string(e.ErrorReason),
		AttemptCount: e.AttemptCount,
		FailedAt:     e.FailedAt.UTC().Format(time.RFC3339),
	}
	if e.ErrorMessage != nil {
		line.Message = *e.ErrorMessage
	}
	return line
}

// runDLQCommand writes one JSON object per line to out.
func runDLQCommand(ctx context.Context, out io.Writer, admin dlqAdmin, f dlqFlags) error {
	enc := json.NewEncoder(out)
	if f.replay != "" {
		id, err := uuid.Parse(f.replay)
		if err != nil {
			return fmt.Errorf("invalid -dlq-replay id %q: %w", f.replay, err)
		}
		entry, err := admin.Replay(ctx, id)
		if err != nil {
			return fmt.Errorf("replay %s: %w", id, err)
		}
		return enc.Encode(map[string]any{"replayed": newDLQLine(*entry)})
	}

	entries, err := admin.List(ctx, f.limit)
	if err != nil {
		return fmt.Errorf("list dlq: %w", err)
	}
	for _, e := range entries {
		if err := enc.Encode(newDLQLine(e)); err != nil {
			return err
		}
	}
	return nil
}
