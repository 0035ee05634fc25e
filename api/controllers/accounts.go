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

type accountCreateRequest struct {
	Code     string  `json:"code" validate:"required,max=32"`
	Name     string  `json:"name" validate:"required,max=128"`
	Type     string  `json:"type" validate:"required"`
	Category string  `json:"category" validate:"max=64"`
	ParentID *string `json:"parent_id"`
	Active   *bool   `json:"active"`
}

func (r accountCreateRequest) toInput() (accounts.CreateAccountInput, error) {
	accountType, err := enums.ParseFinanceAccountType(strings.TrimSpace(r.Type))
	if err != nil {
		return accounts.CreateAccountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid account type")
	}

	var parentID *uuid.UUID
	if r.ParentID != nil {
		parentID, err = parseOptionalUUIDField(*r.ParentID, "parent_id")
		if err != nil {
			return accounts.CreateAccountInput{}, err
		}
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return accounts.CreateAccountInput{
		Code:     strings.TrimSpace(r.Code),
		Name:     strings.TrimSpace(r.Name),
		Type:     accountType,
		Category: strings.TrimSpace(r.Category),
		ParentID: parentID,
		Active:   active,
	}, nil
}

// AccountCreate handles adding a chart-of-accounts node.
func AccountCreate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload accountCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateAccount(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, accountResponseFromModel(created))
	}
}

type accountUpdateRequest struct {
	Code        *string `json:"code" validate:"omitempty,max=32"`
	Name        *string `json:"name" validate:"omitempty,max=128"`
	Type        *string `json:"type"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
	ParentID    *string `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
	Active      *bool   `json:"active"`
}

func (r accountUpdateRequest) toInput() (accounts.UpdateAccountInput, error) {
	input := accounts.UpdateAccountInput{
		Code:        r.Code,
		Name:        r.Name,
		Category:    r.Category,
		ClearParent: r.ClearParent,
		Active:      r.Active,
	}

	if r.Type != nil {
		accountType, err := enums.ParseFinanceAccountType(strings.TrimSpace(*r.Type))
		if err != nil {
			return accounts.UpdateAccountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid account type")
		}
		input.Type = &accountType
	}

	if r.ParentID != nil {
		parentID, err := parseOptionalUUIDField(*r.ParentID, "parent_id")
		if err != nil {
			return accounts.UpdateAccountInput{}, err
		}
		input.ParentID = parentID
	}

	return input, nil
}

// AccountUpdate handles mutating a chart-of-accounts node.
func AccountUpdate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := pathUUID(r, "accountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload accountUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateAccount(r.Context(), actorID, accountID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, accountResponseFromModel(updated))
	}
}

// AccountDelete handles removing an unused chart-of-accounts node.
func AccountDelete(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := pathUUID(r, "accountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteAccount(r.Context(), actorID, accountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AccountGet returns one chart-of-accounts node.
func AccountGet(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := pathUUID(r, "accountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetAccount(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, accountResponseFromModel(account))
	}
}

// AccountList returns the full chart of accounts.
func AccountList(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListAccounts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]accountResponse, 0, len(list))
		for i := range list {
			items = append(items, accountResponseFromModel(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"accounts": items})
	}
}

type accountResponse struct {
	ID        uuid.UUID                `json:"id"`
	Code      string                   `json:"code"`
	Name      string                   `json:"name"`
	Type      enums.FinanceAccountType `json:"type"`
	Category  string                   `json:"category,omitempty"`
	ParentID  *uuid.UUID               `json:"parent_id,omitempty"`
	Active    bool                     `json:"active"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

func accountResponseFromModel(m *models.FinanceAccount) accountResponse {
	return accountResponse{
		ID:        m.ID,
		Code:      m.Code,
		Name:      m.Name,
		Type:      m.Type,
		Category:  m.Category,
		ParentID:  m.ParentID,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
