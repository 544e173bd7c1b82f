package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/condo-backend/api/responses"
	"github.com/angelmondragon/condo-backend/api/validators"
	"github.com/angelmondragon/condo-backend/internal/units"
	pkgerrors "github.com/angelmondragon/condo-backend/pkg/errors"
	"github.com/angelmondragon/condo-backend/pkg/logger"
)

const maxSectionLength = 64

func unitServiceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "unit service unavailable"))
}

// UnitCreate registers a unit together with its initial members and maintenance records.
func UnitCreate(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}

		var payload units.CreateUnitInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.Section = validators.SanitizeString(payload.Section, maxSectionLength)

		unit, err := svc.CreateUnit(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, unit)
	}
}

func UnitList(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}
		list, err := svc.ListUnits(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UnitGet(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}
		unitID, err := validators.ParseUUIDParam(r, "unitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unit, err := svc.GetByID(r.Context(), unitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

// UnitGetByCode resolves a sign-up or owner code. Routed behind a rate limiter.
func UnitGetByCode(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}
		unit, err := svc.GetByCode(r.Context(), validators.CodeParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

func UnitListByUser(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.GetByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UnitPatch(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}
		unitID, err := validators.ParseUUIDParam(r, "unitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload units.PatchUnitInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Section != nil {
			section := validators.SanitizeString(*payload.Section, maxSectionLength)
			payload.Section = &section
		}

		unit, err := svc.PatchUnit(r.Context(), unitID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

// UnitDelete soft-deletes a unit. Deleting a unit that is already gone is a
// no-op answered with 204.
func UnitDelete(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}
		unitID, err := validators.ParseUUIDParam(r, "unitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unit, err := svc.DeleteUnit(r.Context(), unitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if unit == nil {
			responses.WriteNoContent(w)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

func UnitRotateCodes(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}
		unitID, err := validators.ParseUUIDParam(r, "unitID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unit, err := svc.RotateCodes(r.Context(), unitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

type joinRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required,notblank"`
}

func (r joinRequest) toInput() (uuid.UUID, string, error) {
	userID, err := uuid.Parse(strings.TrimSpace(r.UserID))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id")
	}
	return userID, strings.TrimSpace(r.Code), nil
}

// UnitJoin links a user to the unit owning the supplied code.
func UnitJoin(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}

		var payload joinRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, code, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := svc.JoinByCode(r.Context(), userID, code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}
