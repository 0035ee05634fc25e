package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/api/responses"
	"github.com/robertrullyp/drsis-finance/api/validators"
	"github.com/robertrullyp/drsis-finance/internal/periodlock"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
)

type periodLockRequest struct {
	StartsOn string `json:"starts_on" validate:"required"`
	EndsOn   string `json:"ends_on" validate:"required"`
	Reason   string `json:"reason" validate:"required,max=255"`
}

func (r periodLockRequest) toInput() (periodlock.LockInput, error) {
	startsOn, err := parseDateField(r.StartsOn, "starts_on")
	if err != nil {
		return periodlock.LockInput{}, err
	}
	endsOn, err := parseDateField(r.EndsOn, "ends_on")
	if err != nil {
		return periodlock.LockInput{}, err
	}
	return periodlock.LockInput{
		StartsOn: startsOn,
		EndsOn:   endsOn,
		Reason:   validators.SanitizeString(r.Reason, 255),
	}, nil
}

// PeriodLockCreate closes a date window to ledger mutations.
func PeriodLockCreate(svc periodlock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload periodLockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Lock(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, periodLockResponseFromModel(created))
	}
}

// PeriodLockDelete reopens a previously locked window.
func PeriodLockDelete(svc periodlock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lockID, err := pathUUID(r, "lockID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Unlock(r.Context(), actorID, lockID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "unlocked"})
	}
}

// PeriodLockList returns all period locks, newest window first.
func PeriodLockList(svc periodlock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]periodLockResponse, 0, len(list))
		for i := range list {
			items = append(items, periodLockResponseFromModel(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"period_locks": items})
	}
}

type periodLockResponse struct {
	ID        uuid.UUID `json:"id"`
	StartsOn  string    `json:"starts_on"`
	EndsOn    string    `json:"ends_on"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func periodLockResponseFromModel(m *models.FinancePeriodLock) periodLockResponse {
	return periodLockResponse{
		ID:        m.ID,
		StartsOn:  m.StartsOn.Format(dateLayout),
		EndsOn:    m.EndsOn.Format(dateLayout),
		Reason:    m.Reason,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}
