package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/condo-backend/pkg/db/dbtest"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
	"github.com/angelmondragon/condo-backend/pkg/enums"
)

func TestEmitStoresEnvelopeInTransaction(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	ctx := context.Background()
	unitID := uuid.New()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventUnitDeleted,
			AggregateType: enums.AggregateUnit,
			AggregateID:   unitID,
			Data:          map[string]any{"unit_id": unitID},
		})
	}))

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, unitID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.NotEmpty(t, envelope.Producer)
	assert.NotEmpty(t, envelope.EventID)
	assert.JSONEq(t, `{"unit_id":"`+unitID.String()+`"}`, string(envelope.Data))
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	client := dbtest.New(t)
	svc := NewService(NewRepository(client.DB()), nil)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, DomainEvent{EventType: enums.EventUnitCreated, AggregateType: enums.AggregateUnit, AggregateID: uuid.New(), Data: struct{}{}}); err != nil {
			return err
		}
		return errors.New("caller failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidation(t *testing.T) {
	client := dbtest.New(t)
	svc := NewService(NewRepository(client.DB()), nil)

	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventUnitCreated}))
	assert.Error(t, svc.Emit(context.Background(), client.DB(), DomainEvent{EventType: "bogus"}))

	err := svc.Emit(context.Background(), client.DB(), DomainEvent{EventType: enums.EventUnitCreated, AggregateType: "store", AggregateID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate type")

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	older := models.OutboxEvent{EventType: enums.EventUnitCreated, AggregateType: enums.AggregateUnit, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), CreatedAt: time.Now().Add(-time.Minute)}
	newer := models.OutboxEvent{EventType: enums.EventUnitUpdated, AggregateType: enums.AggregateUnit, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), CreatedAt: time.Now()}
	require.NoError(t, repo.Insert(client.DB(), older))
	require.NoError(t, repo.Insert(client.DB(), newer))

	var fetched []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, fetched, 2)
	assert.Equal(t, enums.EventUnitCreated, fetched[0].EventType)

	require.NoError(t, repo.MarkPublishedTx(client.DB(), fetched[0].ID))
	require.NoError(t, repo.MarkFailedTx(client.DB(), fetched[1].ID, errors.New("pubsub down")))

	pending, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	require.NoError(t, repo.MarkTerminalTx(client.DB(), fetched[1].ID, errors.New("gave up"), 3))
	remaining, err := repo.FetchUnpublishedForPublish(client.DB(), 10, 3)
	require.NoError(t, err)
	assert.Empty(t, remaining, "terminal rows must not be fetched again")

	deleted, err := repo.DeletePublishedBefore(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestDLQRepositoryTruncatesMessages(t *testing.T) {
	client := dbtest.New(t)
	dlq := NewDLQRepository(client.DB())
	ctx := context.Background()

	long := make([]byte, maxErrorLen+50)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	require.NoError(t, dlq.InsertTx(client.DB(), models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventUnitCreated,
		AggregateType: enums.AggregateUnit,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}))

	entry, err := dlq.FindByEventID(ctx, eventID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NotNil(t, entry.ErrorMessage)
	assert.Len(t, *entry.ErrorMessage, maxErrorLen)

	missing, err := dlq.FindByEventID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := dlq.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDLQRepositoryDeleteFailedBefore(t *testing.T) {
	client := dbtest.New(t)
	dlq := NewDLQRepository(client.DB())
	ctx := context.Background()
	now := time.Now().UTC()

	for _, failedAt := range []time.Time{now.Add(-48 * time.Hour), now} {
		require.NoError(t, dlq.InsertTx(client.DB(), models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventUnitDeleted,
			AggregateType: enums.AggregateUnit,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			FailedAt:      failedAt,
		}))
	}

	deleted, err := dlq.DeleteFailedBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	list, err := dlq.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"e-1","data":{"unit_id":"u"}}`))
	require.NoError(t, err)
	assert.Equal(t, "e-1", env.EventID)

	env, err = DecodeEnvelope([]byte(`{"version":1,"eventId":"e-2","data":null}`))
	assert.ErrorIs(t, err, ErrEmptyData)
	assert.Equal(t, "e-2", env.EventID)

	_, err = DecodeEnvelope([]byte(`not json`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyData)
}

func TestDLQReplayRequeuesEvent(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	dlq := NewDLQRepository(client.DB())
	ctx := context.Background()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventUnitUpdated,
		AggregateType: enums.AggregateUnit,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"eventId":"e","data":{}}`),
	}
	require.NoError(t, repo.Insert(client.DB(), event))
	require.NoError(t, repo.MarkTerminalTx(client.DB(), event.ID, errors.New("topic missing"), 5))
	require.NoError(t, dlq.InsertTx(client.DB(), models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
	}))

	pending, err := repo.FetchUnpublishedForPublish(client.DB(), 10, 5)
	require.NoError(t, err)
	require.Empty(t, pending)

	entry, err := dlq.Replay(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)

	pending, err = repo.FetchUnpublishedForPublish(client.DB(), 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Zero(t, pending[0].AttemptCount)
	assert.Nil(t, pending[0].LastError)

	_, err = dlq.Replay(ctx, event.ID)
	assert.ErrorIs(t, err, ErrNotDeadLettered)
}
