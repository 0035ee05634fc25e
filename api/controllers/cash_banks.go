package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/api/responses"
	"github.com/robertrullyp/drsis-finance/api/validators"
	"github.com/robertrullyp/drsis-finance/internal/accounts"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
)

type cashBankCreateRequest struct {
	Code           string `json:"code" validate:"required,max=32"`
	Name           string `json:"name" validate:"required,max=128"`
	Type           string `json:"type" validate:"required"`
	OpeningBalance int64  `json:"opening_balance" validate:"min=0"`
	Active         *bool  `json:"active"`
}

func (r cashBankCreateRequest) toInput() (accounts.CreateCashBankInput, error) {
	cashBankType, err := enums.ParseCashBankType(strings.TrimSpace(r.Type))
	if err != nil {
		return accounts.CreateCashBankInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid cash/bank type")
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return accounts.CreateCashBankInput{
		Code:           strings.TrimSpace(r.Code),
		Name:           strings.TrimSpace(r.Name),
		Type:           cashBankType,
		OpeningBalance: r.OpeningBalance,
		Active:         active,
	}, nil
}

// CashBankCreate handles registering a cash drawer or bank account.
func CashBankCreate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cashBankCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateCashBank(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, cashBankResponseFromModel(created))
	}
}

type cashBankUpdateRequest struct {
	Code   *string `json:"code" validate:"omitempty,max=32"`
	Name   *string `json:"name" validate:"omitempty,max=128"`
	Type   *string `json:"type"`
	Active *bool   `json:"active"`
}

func (r cashBankUpdateRequest) toInput() (accounts.UpdateCashBankInput, error) {
	input := accounts.UpdateCashBankInput{
		Code:   r.Code,
		Name:   r.Name,
		Active: r.Active,
	}

	if r.Type != nil {
		cashBankType, err := enums.ParseCashBankType(strings.TrimSpace(*r.Type))
		if err != nil {
			return accounts.UpdateCashBankInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid cash/bank type")
		}
		input.Type = &cashBankType
	}

	return input, nil
}

// CashBankUpdate handles mutating a cash/bank account. Balances are never
// edited here; only approved ledger postings move them.
func CashBankUpdate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cashBankID, err := pathUUID(r, "cashBankID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cashBankUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateCashBank(r.Context(), actorID, cashBankID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cashBankResponseFromModel(updated))
	}
}

// CashBankGet returns one cash/bank account with its live balance.
func CashBankGet(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cashBankID, err := pathUUID(r, "cashBankID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cashBank, err := svc.GetCashBank(r.Context(), cashBankID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cashBankResponseFromModel(cashBank))
	}
}

// CashBankList returns the cash/bank registry.
func CashBankList(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListCashBanks(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]cashBankResponse, 0, len(list))
		for i := range list {
			items = append(items, cashBankResponseFromModel(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"cash_banks": items})
	}
}

type cashBankResponse struct {
	ID             uuid.UUID          `json:"id"`
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Type           enums.CashBankType `json:"type"`
	OpeningBalance int64              `json:"opening_balance"`
	Balance        int64              `json:"balance"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func cashBankResponseFromModel(m *models.CashBankAccount) cashBankResponse {
	return cashBankResponse{
		ID:             m.ID,
		Code:           m.Code,
		Name:           m.Name,
		Type:           m.Type,
		OpeningBalance: m.OpeningBalance,
		Balance:        m.Balance,
		Active:         m.Active,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
