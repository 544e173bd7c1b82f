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

type memberAddRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	IsOwner bool   `json:"is_owner"`
}

type memberPermissionRequest struct {
	IsOwner *bool `json:"is_owner" validate:"required"`
}

// MemberAdd links a user to a unit, upserting the owner flag when the link exists.
func MemberAdd(svc units.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload memberAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(strings.TrimSpace(payload.UserID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
			return
		}

		unit, err := svc.AddUser(r.Context(), unitID, userID, payload.IsOwner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

func MemberChangePermission(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}
		unitID, userID, err := memberPathIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload memberPermissionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := svc.ChangeUserPermission(r.Context(), userID, unitID, *payload.IsOwner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

func MemberRemove(svc units.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unitServiceUnavailable(w, r, logg)
			return
		}
		unitID, userID, err := memberPathIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := svc.RemoveUser(r.Context(), userID, unitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

func memberPathIDs(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	unitID, err := validators.ParseUUIDParam(r, "unitID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	userID, err := validators.ParseUUIDParam(r, "userID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return unitID, userID, nil
}
