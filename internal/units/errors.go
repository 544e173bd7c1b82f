package units

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/condo-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/condo-backend/pkg/errors"
)

// UniqueNumberSectionIndex keeps (number, section) unique among active units.
const UniqueNumberSectionIndex = "ux_units_number_section_active"

var (
	ErrDuplicateUnit = errors.New("duplicate unit")
	ErrNotFound      = errors.New("not found")
)

// Entity kinds carried in NotFound details.
const (
	EntityUnit       = "unit"
	EntityUser       = "user"
	EntityMembership = "membership"
	EntityUnitCode   = "unit_code"
)

func duplicateUnit(number int, section string, cause error) error {
	wrapped := ErrDuplicateUnit
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", ErrDuplicateUnit, cause)
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, wrapped, fmt.Sprintf("Unit %d%s already exists", number, section)).
		WithDetails(map[string]any{"number": number, "section": section})
}

func unitNotFound(id uuid.UUID) error {
	return notFound(EntityUnit, id.String(), fmt.Sprintf("Unit %s doesn't exist", id))
}

func userNotFound(id uuid.UUID) error {
	return notFound(EntityUser, id.String(), fmt.Sprintf("User %s doesn't exist", id))
}

func membershipNotFound(userID, unitID uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFound, fmt.Sprintf("User %s is not a member of unit %s", userID, unitID)).
		WithDetails(map[string]any{
			"entity":  EntityMembership,
			"id":      unitID.String(),
			"user_id": userID.String(),
		})
}

func codeNotFound(code string) error {
	return notFound(EntityUnitCode, code, "no unit matches the code")
}

func notFound(entity, id, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFound, message).
		WithDetails(map[string]any{"entity": entity, "id": id})
}

// storeFailure keeps typed errors and classifies the rest as dependency failures.
func storeFailure(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicateUnit(err error) bool {
	return db.IsUniqueViolation(err, UniqueNumberSectionIndex)
}
