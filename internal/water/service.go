package water

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/condo-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/condo-backend/pkg/errors"
	"github.com/angelmondragon/condo-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records and lists water meter readings of a unit.
type Service interface {
	RecordReading(ctx context.Context, unitID uuid.UUID, input ReadingInput) (*ReadingDTO, error)
	ListByUnit(ctx context.Context, unitID uuid.UUID) ([]ReadingDTO, error)
}

type service struct {
	tx   txRunner
	repo ReadingRepository
	logg *logger.Logger
}

func NewService(tx txRunner, repo ReadingRepository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("water repository required")
	}
	return &service{tx: tx, repo: repo, logg: logg}, nil
}

func (s *service) RecordReading(ctx context.Context, unitID uuid.UUID, input ReadingInput) (*ReadingDTO, error) {
	var out ReadingDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureUnit(ctx, repo, unitID); err != nil {
			return err
		}

		previous := decimal.Zero
		if input.PreviouslyMeasured != nil {
			previous = *input.PreviouslyMeasured
		} else {
			last, err := repo.Latest(ctx, unitID)
			switch {
			case err == nil:
				previous = last.CurrentlyMeasured
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest reading")
			}
		}
		if err := validateReading(previous, input.CurrentlyMeasured); err != nil {
			return err
		}

		reading := &models.WaterReading{
			UnitID:             unitID,
			PreviouslyMeasured: previous.Round(3),
			CurrentlyMeasured:  input.CurrentlyMeasured.Round(3),
		}
		if err := repo.Create(ctx, reading); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create water reading")
		}
		out = FromModel(*reading)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithUnitID(ctx, unitID.String())
		logCtx = s.logg.WithField(logCtx, "consumption", out.Consumption.String())
		s.logg.Info(logCtx, "water.reading_recorded")
	}
	return &out, nil
}

func (s *service) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]ReadingDTO, error) {
	if err := ensureUnit(ctx, s.repo, unitID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUnit(ctx, unitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list water readings")
	}
	return FromModels(rows), nil
}

func ensureUnit(ctx context.Context, repo ReadingRepository, unitID uuid.UUID) error {
	ok, err := repo.UnitIsActive(ctx, unitID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
	}
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "unit %s doesn't exist", unitID).
			WithDetails(map[string]any{"entity": "unit", "id": unitID.String()})
	}
	return nil
}
