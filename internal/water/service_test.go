package water

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/condo-backend/pkg/db"
	"github.com/angelmondragon/condo-backend/pkg/db/dbtest"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/condo-backend/pkg/errors"
)

func seedUnit(t *testing.T, client *db.Client) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	unit := &models.Unit{Number: 12, Section: "C", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, client.DB().Create(unit).Error)
	return unit.ID
}

func newTestService(t *testing.T, clock func() time.Time) (Service, *db.Client) {
	t.Helper()
	client := dbtest.New(t, dbtest.WithNow(clock))
	svc, err := NewService(client, NewRepository(client.DB()), nil)
	require.NoError(t, err)
	return svc, client
}

type tickingClock struct {
	at time.Time
}

func (c *tickingClock) Now() time.Time {
	c.at = c.at.Add(time.Minute)
	return c.at
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestRecordReadingChainsPreviousMeasure(t *testing.T) {
	clock := &tickingClock{at: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc, client := newTestService(t, clock.Now)
	unitID := seedUnit(t, client)
	ctx := context.Background()

	first, err := svc.RecordReading(ctx, unitID, ReadingInput{CurrentlyMeasured: dec("10.5")})
	require.NoError(t, err)
	assert.True(t, first.PreviouslyMeasured.IsZero())
	assert.True(t, first.Consumption.Equal(dec("10.5")))

	second, err := svc.RecordReading(ctx, unitID, ReadingInput{CurrentlyMeasured: dec("14")})
	require.NoError(t, err)
	assert.True(t, second.PreviouslyMeasured.Equal(dec("10.5")))
	assert.True(t, second.Consumption.Equal(dec("3.5")))

	rows, err := svc.ListByUnit(ctx, unitID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
}

func TestRecordReadingValidation(t *testing.T) {
	svc, client := newTestService(t, time.Now)
	unitID := seedUnit(t, client)
	prev := dec("20")

	_, err := svc.RecordReading(context.Background(), unitID, ReadingInput{PreviouslyMeasured: &prev, CurrentlyMeasured: dec("19")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.RecordReading(context.Background(), unitID, ReadingInput{CurrentlyMeasured: dec("-1")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	rows, err := svc.ListByUnit(context.Background(), unitID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRecordReadingUnknownUnit(t *testing.T) {
	svc, _ := newTestService(t, time.Now)

	_, err := svc.RecordReading(context.Background(), uuid.New(), ReadingInput{CurrentlyMeasured: dec("1")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
