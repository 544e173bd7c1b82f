package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/condo-backend/pkg/db/models"
	"github.com/angelmondragon/condo-backend/pkg/enums"
	"github.com/angelmondragon/condo-backend/pkg/outbox"
)

type fakeDLQAdmin struct {
	entries  []models.OutboxDLQ
	limit    int
	replayed []uuid.UUID
	err      error
}

func (f *fakeDLQAdmin) List(_ context.Context, limit int) ([]models.OutboxDLQ, error) {
	f.limit = limit
	return f.entries, f.err
}

func (f *fakeDLQAdmin) Replay(_ context.Context, id uuid.UUID) (*models.OutboxDLQ, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.replayed = append(f.replayed, id)
	return &models.OutboxDLQ{EventID: id, ErrorReason: enums.OutboxDLQReasonMaxAttempts}, nil
}

func TestRunDLQCommandListsEntries(t *testing.T) {
	msg := "topic missing"
	admin := &fakeDLQAdmin{entries: []models.OutboxDLQ{
		{EventID: uuid.New(), EventType: enums.EventUnitCreated, ErrorReason: enums.OutboxDLQReasonNonRetryable, ErrorMessage: &msg, FailedAt: time.Now()},
		{EventID: uuid.New(), EventType: enums.EventUnitDeleted, ErrorReason: enums.OutboxDLQReasonMaxAttempts, FailedAt: time.Now()},
	}}
	var out bytes.Buffer

	require.NoError(t, runDLQCommand(context.Background(), &out, admin, dlqFlags{list: true, limit: 5}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"message":"topic missing"`)
	assert.NotContains(t, lines[1], `"message"`)
	assert.Equal(t, 5, admin.limit)
}

func TestRunDLQCommandReplays(t *testing.T) {
	admin := &fakeDLQAdmin{}
	id := uuid.New()
	var out bytes.Buffer

	require.NoError(t, runDLQCommand(context.Background(), &out, admin, dlqFlags{replay: id.String()}))
	assert.Equal(t, []uuid.UUID{id}, admin.replayed)
	assert.Contains(t, out.String(), `"replayed"`)
}

func TestRunDLQCommandErrors(t *testing.T) {
	var out bytes.Buffer
	err := runDLQCommand(context.Background(), &out, &fakeDLQAdmin{}, dlqFlags{replay: "not-a-uuid"})
	assert.ErrorContains(t, err, "invalid -dlq-replay id")

	err = runDLQCommand(context.Background(), &out, &fakeDLQAdmin{err: outbox.ErrNotDeadLettered}, dlqFlags{replay: uuid.NewString()})
	assert.True(t, errors.Is(err, outbox.ErrNotDeadLettered))
	assert.False(t, dlqFlags{}.active())
}
