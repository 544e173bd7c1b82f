package units

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/condo-backend/internal/maintenance"
	"github.com/angelmondragon/condo-backend/internal/memberships"
	"github.com/angelmondragon/condo-backend/internal/users"
	"github.com/angelmondragon/condo-backend/pkg/db"
	"github.com/angelmondragon/condo-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/condo-backend/pkg/errors"
	"github.com/angelmondragon/condo-backend/pkg/logger"
	"github.com/angelmondragon/condo-backend/pkg/outbox"
	"github.com/angelmondragon/condo-backend/pkg/security"
)

// maxCodeAttempts bounds the draws for an owner code distinct from the sign-up code.
const maxCodeAttempts = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type operationObserver interface {
	ObserveOperation(op string, err error)
}

// Service manages units and the users linked to them.
type Service interface {
	CreateUnit(ctx context.Context, input CreateUnitInput) (*UnitDTO, error)
	ListUnits(ctx context.Context) ([]UnitDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*UnitDTO, error)
	GetByCode(ctx context.Context, code string) (*UnitDTO, error)
	GetByUser(ctx context.Context, userID uuid.UUID) ([]UnitDTO, error)
	PatchUnit(ctx context.Context, id uuid.UUID, input PatchUnitInput) (*UnitDTO, error)
	DeleteUnit(ctx context.Context, id uuid.UUID) (*UnitDTO, error)
	AddUser(ctx context.Context, unitID, userID uuid.UUID, isOwner bool) (*UnitDTO, error)
	RemoveUser(ctx context.Context, userID, unitID uuid.UUID) (*UnitDTO, error)
	ChangeUserPermission(ctx context.Context, userID, unitID uuid.UUID, makeOwner bool) (*UnitDTO, error)
	RotateCodes(ctx context.Context, unitID uuid.UUID) (*UnitDTO, error)
	JoinByCode(ctx context.Context, userID uuid.UUID, code string) (*UnitDTO, error)
}

// Option customizes the unit service.
type Option func(*service)

// WithClock overrides the clock used for unit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCodeLength sets the length of issued sign-up and owner codes.
func WithCodeLength(length int) Option {
	return func(s *service) {
		if length > 0 {
			s.codeLength = length
		}
	}
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func(length int) (string, error)) Option {
	return func(s *service) {
		if gen != nil {
			s.generateCode = gen
		}
	}
}

// WithObserver reports the outcome of every mutating operation.
func WithObserver(observer operationObserver) Option {
	return func(s *service) {
		s.observer = observer
	}
}

type service struct {
	tx           txRunner
	units        UnitRepository
	links        memberships.LinkRepository
	users        users.Directory
	records      maintenance.RecordRepository
	outbox       outboxPublisher
	logg         *logger.Logger
	observer     operationObserver
	now          func() time.Time
	codeLength   int
	generateCode func(length int) (string, error)
}

// NewService builds the unit service.
func NewService(
	tx txRunner,
	unitRepo UnitRepository,
	linkRepo memberships.LinkRepository,
	userDir users.Directory,
	recordRepo maintenance.RecordRepository,
	publisher outboxPublisher,
	logg *logger.Logger,
	opts ...Option,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if unitRepo == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	if linkRepo == nil {
		return nil, fmt.Errorf("membership repository required")
	}
	if userDir == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if recordRepo == nil {
		return nil, fmt.Errorf("maintenance repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	svc := &service{
		tx:           tx,
		units:        unitRepo,
		links:        linkRepo,
		users:        userDir,
		records:      recordRepo,
		outbox:       publisher,
		logg:         logg,
		now:          func() time.Time { return time.Now().UTC() },
		codeLength:   security.DefaultCodeLength,
		generateCode: security.GenerateCode,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *service) CreateUnit(ctx context.Context, input CreateUnitInput) (*UnitDTO, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var created *models.Unit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		units := s.units.WithTx(tx)

		existing, err := units.FindActiveByNumberSection(ctx, input.Number, input.Section, nil)
		if err == nil {
			return duplicateUnit(existing.Number, existing.Section, nil)
		}
		if !isNotFound(err) {
			return storeFailure(err, "check unit uniqueness")
		}

		signUpCode, ownerCode, err := s.issueCodes()
		if err != nil {
			return err
		}
		now := s.now()
		unit := &models.Unit{
			Number:     input.Number,
			Section:    input.Section,
			Reference:  input.Reference,
			SignUpCode: &signUpCode,
			OwnerCode:  &ownerCode,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := units.Create(ctx, unit); err != nil {
			if isDuplicateUnit(err) {
				return duplicateUnit(input.Number, input.Section, err)
			}
			return storeFailure(err, "create unit")
		}

		if input.OwnerID != nil {
			if _, _, err := s.linkUser(ctx, tx, unit.ID, *input.OwnerID, true); err != nil {
				return err
			}
		}
		tenants := input.tenants()
		for _, tenantID := range tenants {
			if _, _, err := s.linkUser(ctx, tx, unit.ID, tenantID, false); err != nil {
				return err
			}
		}
		records := s.records.WithTx(tx)
		for _, item := range input.Maintenance {
			if err := records.Create(ctx, item.ToModel(unit.ID)); err != nil {
				return storeFailure(err, "create maintenance record")
			}
		}

		if err := s.emitCreated(ctx, tx, unit, input.OwnerID, tenants); err != nil {
			return err
		}

		created, err = units.FindActiveWithMembers(ctx, unit.ID)
		if err != nil {
			return storeFailure(err, "reload unit")
		}
		return nil
	})
	s.observe("create", err)
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, created.ID, "unit.created")
	return s.toDTO(created), nil
}

func (s *service) ListUnits(ctx context.Context) ([]UnitDTO, error) {
	rows, err := s.units.ListActive(ctx)
	if err != nil {
		return nil, storeFailure(err, "list units")
	}
	return FromModels(rows), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*UnitDTO, error) {
	unit, err := s.units.FindActiveWithMembers(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, unitNotFound(id)
		}
		return nil, storeFailure(err, "load unit")
	}
	return s.toDTO(unit), nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*UnitDTO, error) {
	unit, err := s.findByCode(ctx, s.units, code)
	if err != nil {
		return nil, err
	}
	return s.toDTO(unit), nil
}

func (s *service) GetByUser(ctx context.Context, userID uuid.UUID) ([]UnitDTO, error) {
	rows, err := s.units.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeFailure(err, "list units by user")
	}
	return FromModels(rows), nil
}

func (s *service) PatchUnit(ctx context.Context, id uuid.UUID, input PatchUnitInput) (*UnitDTO, error) {
	var patched *models.Unit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		units := s.units.WithTx(tx)

		unit, err := units.FindActiveByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return unitNotFound(id)
			}
			return storeFailure(err, "load unit")
		}

		changed := make([]string, 0, 3)
		if input.Number != nil && *input.Number != unit.Number {
			unit.Number = *input.Number
			changed = append(changed, "number")
		}
		if input.Section != nil && *input.Section != unit.Section {
			unit.Section = *input.Section
			changed = append(changed, "section")
		}
		if input.Reference != nil && *input.Reference != unit.Reference {
			unit.Reference = *input.Reference
			changed = append(changed, "reference")
		}
		unit.UpdatedAt = s.now()

		if hasAny(changed, "number", "section") {
			existing, err := units.FindActiveByNumberSection(ctx, unit.Number, unit.Section, &unit.ID)
			if err == nil {
				return duplicateUnit(existing.Number, existing.Section, nil)
			}
			if !isNotFound(err) {
				return storeFailure(err, "check unit uniqueness")
			}
		}

		if err := units.Update(ctx, unit); err != nil {
			if isDuplicateUnit(err) {
				return duplicateUnit(unit.Number, unit.Section, err)
			}
			return storeFailure(err, "update unit")
		}

		if len(changed) > 0 {
			if err := s.emitUpdated(ctx, tx, unit, changed); err != nil {
				return err
			}
		}

		patched, err = units.FindActiveWithMembers(ctx, unit.ID)
		if err != nil {
			return storeFailure(err, "reload unit")
		}
		return nil
	})
	s.observe("patch", err)
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, id, "unit.patched")
	return s.toDTO(patched), nil
}

// DeleteUnit soft-deletes an active unit. An absent unit yields (nil, nil).
func (s *service) DeleteUnit(ctx context.Context, id uuid.UUID) (*UnitDTO, error) {
	var deleted *models.Unit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		units := s.units.WithTx(tx)

		unit, err := units.FindActiveByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return storeFailure(err, "load unit")
		}

		now := s.now()
		unit.Deleted = true
		unit.DeletedAt = &now
		unit.UpdatedAt = now
		if err := units.Update(ctx, unit); err != nil {
			return storeFailure(err, "delete unit")
		}
		if err := s.emitDeleted(ctx, tx, unit); err != nil {
			return err
		}
		deleted = unit
		return nil
	})
	s.observe("delete", err)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, nil
	}

	s.logInfo(ctx, id, "unit.deleted")
	return s.toDTO(deleted), nil
}

func (s *service) AddUser(ctx context.Context, unitID, userID uuid.UUID, isOwner bool) (*UnitDTO, error) {
	var (
		unit    *models.Unit
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		unit, changed, err = s.addUser(ctx, tx, unitID, userID, isOwner)
		return err
	})
	s.observe("add_user", err)
	if err != nil {
		return nil, err
	}

	if changed {
		s.logMember(ctx, unitID, userID, "unit.member_added")
	}
	return s.toDTO(unit), nil
}

func (s *service) RemoveUser(ctx context.Context, userID, unitID uuid.UUID) (*UnitDTO, error) {
	var unit *models.Unit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		units := s.units.WithTx(tx)
		links := s.links.WithTx(tx)

		if _, err := s.activeUnit(ctx, units, unitID); err != nil {
			return err
		}
		membership, err := links.GetMembership(ctx, userID, unitID)
		if err != nil {
			if isNotFound(err) {
				return membershipNotFound(userID, unitID)
			}
			return storeFailure(err, "load membership")
		}
		if err := links.DeleteMembership(ctx, membership); err != nil {
			return storeFailure(err, "delete membership")
		}
		if err := units.Touch(ctx, unitID, s.now()); err != nil {
			return storeFailure(err, "touch unit")
		}
		if err := s.emitMember(ctx, tx, memberRemoved, membership); err != nil {
			return err
		}

		unit, err = units.FindActiveWithMembers(ctx, unitID)
		if err != nil {
			return storeFailure(err, "reload unit")
		}
		return nil
	})
	s.observe("remove_user", err)
	if err != nil {
		return nil, err
	}

	s.logMember(ctx, unitID, userID, "unit.member_removed")
	return s.toDTO(unit), nil
}

func (s *service) ChangeUserPermission(ctx context.Context, userID, unitID uuid.UUID, makeOwner bool) (*UnitDTO, error) {
	var unit *models.Unit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		links := s.links.WithTx(tx)

		membership, err := links.GetMembership(ctx, userID, unitID)
		if err != nil {
			if isNotFound(err) {
				return membershipNotFound(userID, unitID)
			}
			return storeFailure(err, "load membership")
		}
		changed := membership.IsOwner != makeOwner
		if err := links.UpdateOwnership(ctx, membership, makeOwner); err != nil {
			return storeFailure(err, "update membership")
		}
		if changed {
			if err := s.emitMember(ctx, tx, memberRoleChanged, membership); err != nil {
				return err
			}
		}

		unit, err = s.activeUnitWithMembers(ctx, s.units.WithTx(tx), unitID)
		return err
	})
	s.observe("change_permission", err)
	if err != nil {
		return nil, err
	}

	s.logMember(ctx, unitID, userID, "unit.member_role_changed")
	return s.toDTO(unit), nil
}

func (s *service) RotateCodes(ctx context.Context, unitID uuid.UUID) (*UnitDTO, error) {
	var unit *models.Unit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		units := s.units.WithTx(tx)

		current, err := s.activeUnit(ctx, units, unitID)
		if err != nil {
			return err
		}
		signUpCode, ownerCode, err := s.issueCodes()
		if err != nil {
			return err
		}
		current.SignUpCode = &signUpCode
		current.OwnerCode = &ownerCode
		current.UpdatedAt = s.now()
		if err := units.Update(ctx, current); err != nil {
			return storeFailure(err, "rotate unit codes")
		}
		if err := s.emitUpdated(ctx, tx, current, []string{"sign_up_code", "owner_code"}); err != nil {
			return err
		}

		unit, err = units.FindActiveWithMembers(ctx, unitID)
		if err != nil {
			return storeFailure(err, "reload unit")
		}
		return nil
	})
	s.observe("rotate_codes", err)
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, unitID, "unit.codes_rotated")
	return s.toDTO(unit), nil
}

// JoinByCode links the user to the unit owning code. The owner code grants
// ownership, the sign-up code a tenancy.
func (s *service) JoinByCode(ctx context.Context, userID uuid.UUID, code string) (*UnitDTO, error) {
	var (
		unit    *models.Unit
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		target, err := s.findByCode(ctx, s.units.WithTx(tx), code)
		if err != nil {
			return err
		}
		isOwner := target.OwnerCode != nil && *target.OwnerCode == code
		unit, changed, err = s.addUser(ctx, tx, target.ID, userID, isOwner)
		return err
	})
	s.observe("join_by_code", err)
	if err != nil {
		return nil, err
	}

	if changed {
		s.logMember(ctx, unit.ID, userID, "unit.member_joined")
	}
	return s.toDTO(unit), nil
}

// addUser links the user and touches the unit. The member event is only
// emitted when the link was created or its owner flag changed.
func (s *service) addUser(ctx context.Context, tx *gorm.DB, unitID, userID uuid.UUID, isOwner bool) (*models.Unit, bool, error) {
	units := s.units.WithTx(tx)

	if _, err := s.activeUnit(ctx, units, unitID); err != nil {
		return nil, false, err
	}
	membership, changed, err := s.linkUser(ctx, tx, unitID, userID, isOwner)
	if err != nil {
		return nil, false, err
	}
	if err := units.Touch(ctx, unitID, s.now()); err != nil {
		return nil, false, storeFailure(err, "touch unit")
	}
	if changed {
		if err := s.emitMember(ctx, tx, memberAdded, membership); err != nil {
			return nil, false, err
		}
	}
	unit, err := s.activeUnitWithMembers(ctx, units, unitID)
	return unit, changed, err
}

// linkUser resolves the user and creates the link, or updates is_owner on an
// existing one. It reports whether anything was written.
func (s *service) linkUser(ctx context.Context, tx *gorm.DB, unitID, userID uuid.UUID, isOwner bool) (*models.UnitMembership, bool, error) {
	if _, err := s.users.WithTx(tx).FindByID(ctx, userID); err != nil {
		if isNotFound(err) {
			return nil, false, userNotFound(userID)
		}
		return nil, false, storeFailure(err, "load user")
	}

	links := s.links.WithTx(tx)
	existing, err := links.GetMembership(ctx, userID, unitID)
	switch {
	case err == nil:
		if existing.IsOwner == isOwner {
			return existing, false, nil
		}
		if err := links.UpdateOwnership(ctx, existing, isOwner); err != nil {
			return nil, false, storeFailure(err, "update membership")
		}
		return existing, true, nil
	case !isNotFound(err):
		return nil, false, storeFailure(err, "load membership")
	}

	membership, err := links.CreateMembership(ctx, unitID, userID, isOwner)
	if err != nil {
		if db.IsUniqueViolation(err, memberships.UniqueLinkIndex) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "membership already exists")
		}
		return nil, false, storeFailure(err, "create membership")
	}
	return membership, true, nil
}

func (s *service) activeUnit(ctx context.Context, units UnitRepository, id uuid.UUID) (*models.Unit, error) {
	unit, err := units.FindActiveByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, unitNotFound(id)
		}
		return nil, storeFailure(err, "load unit")
	}
	return unit, nil
}

func (s *service) activeUnitWithMembers(ctx context.Context, units UnitRepository, id uuid.UUID) (*models.Unit, error) {
	unit, err := units.FindActiveWithMembers(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, unitNotFound(id)
		}
		return nil, storeFailure(err, "load unit")
	}
	return unit, nil
}

func (s *service) findByCode(ctx context.Context, units UnitRepository, code string) (*models.Unit, error) {
	if code == "" {
		return nil, codeNotFound(code)
	}
	unit, err := units.FindActiveByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, codeNotFound(code)
		}
		return nil, storeFailure(err, "load unit by code")
	}
	return unit, nil
}

// issueCodes returns a distinct sign-up and owner code pair.
func (s *service) issueCodes() (string, string, error) {
	signUp, err := s.generateCode(s.codeLength)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate sign-up code")
	}
	for range maxCodeAttempts {
		owner, err := s.generateCode(s.codeLength)
		if err != nil {
			return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate owner code")
		}
		if owner != signUp {
			return signUp, owner, nil
		}
	}
	return "", "", pkgerrors.New(pkgerrors.CodeInternal, "could not issue distinct unit codes")
}

func (s *service) toDTO(unit *models.Unit) *UnitDTO {
	dto := FromModel(*unit)
	return &dto
}

func (s *service) observe(op string, err error) {
	if s.observer != nil {
		s.observer.ObserveOperation(op, err)
	}
}

func (s *service) logInfo(ctx context.Context, unitID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithUnitID(ctx, unitID.String()), msg)
}

func (s *service) logMember(ctx context.Context, unitID, userID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithUnitID(ctx, unitID.String())
	s.logg.Info(s.logg.WithUserID(logCtx, userID.String()), msg)
}

func hasAny(values []string, wanted ...string) bool {
	for _, v := range values {
		for _, w := range wanted {
			if v == w {
				return true
			}
		}
	}
	return false
}
