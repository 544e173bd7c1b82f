package maintenance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/condo-backend/pkg/errors"
	"github.com/angelmondragon/condo-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records and lists maintenance charges of a unit.
type Service interface {
	Record(ctx context.Context, unitID uuid.UUID, input RecordInput) (*RecordDTO, error)
	ListByUnit(ctx context.Context, unitID uuid.UUID) ([]RecordDTO, error)
}

type service struct {
	tx   txRunner
	repo RecordRepository
	logg *logger.Logger
}

func NewService(tx txRunner, repo RecordRepository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("maintenance repository required")
	}
	return &service{tx: tx, repo: repo, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, unitID uuid.UUID, input RecordInput) (*RecordDTO, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var out RecordDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureUnit(ctx, repo, unitID); err != nil {
			return err
		}
		record := input.ToModel(unitID)
		if err := repo.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create maintenance record")
		}
		out = FromModel(*record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithUnitID(ctx, unitID.String())
		s.logg.Info(s.logg.WithField(logCtx, "record_id", out.ID.String()), "maintenance.recorded")
	}
	return &out, nil
}

func (s *service) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]RecordDTO, error) {
	if err := ensureUnit(ctx, s.repo, unitID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUnit(ctx, unitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list maintenance records")
	}
	return FromModels(rows), nil
}

func ensureUnit(ctx context.Context, repo RecordRepository, unitID uuid.UUID) error {
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
