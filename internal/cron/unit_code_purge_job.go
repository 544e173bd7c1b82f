package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/condo-backend/pkg/logger"
)

const deletedCodeGraceDays = 7

// UnitCodePurgeJobParams configure the job that releases the access codes of
// soft-deleted units once their grace period has passed.
type UnitCodePurgeJobParams struct {
	Logger     *logger.Logger
	Repository unitCodePurgeRepo
	GraceDays  int
}

type unitCodePurgeRepo interface {
	ClearCodesDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewUnitCodePurgeJob(params UnitCodePurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	grace := params.GraceDays
	if grace <= 0 {
		grace = deletedCodeGraceDays
	}
	return &unitCodePurgeJob{
		logg:  params.Logger,
		repo:  params.Repository,
		grace: grace,
		now:   time.Now,
	}, nil
}

type unitCodePurgeJob struct {
	logg  *logger.Logger
	repo  unitCodePurgeRepo
	grace int
	now   func() time.Time
}

func (j *unitCodePurgeJob) Name() string { return "deleted-unit-code-purge" }

func (j *unitCodePurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.grace) * 24 * time.Hour)
	cleared, err := j.repo.ClearCodesDeletedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("clear deleted unit codes: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"grace_days":    j.grace,
		"units_cleared": cleared,
	})
	j.logg.Info(logCtx, "deleted unit codes released")
	return nil
}
