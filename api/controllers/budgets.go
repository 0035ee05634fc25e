package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/api/responses"
	"github.com/robertrullyp/drsis-finance/api/validators"
	"github.com/robertrullyp/drsis-finance/internal/budget"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
)

type budgetCreateRequest struct {
	PeriodStart string  `json:"period_start" validate:"required"`
	PeriodEnd   string  `json:"period_end" validate:"required"`
	Kind        string  `json:"kind" validate:"required"`
	Amount      int64   `json:"amount" validate:"required,min=1"`
	AccountID   string  `json:"account_id" validate:"required"`
	CashBankID  *string `json:"cash_bank_id"`
	Notes       string  `json:"notes" validate:"max=500"`
}

func (r budgetCreateRequest) toInput() (budget.CreateInput, error) {
	periodStart, err := parseDateField(r.PeriodStart, "period_start")
	if err != nil {
		return budget.CreateInput{}, err
	}
	periodEnd, err := parseDateField(r.PeriodEnd, "period_end")
	if err != nil {
		return budget.CreateInput{}, err
	}

	kind, err := enums.ParseBudgetKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return budget.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid budget kind")
	}

	accountID, err := uuid.Parse(strings.TrimSpace(r.AccountID))
	if err != nil {
		return budget.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account_id")
	}

	var cashBankID *uuid.UUID
	if r.CashBankID != nil {
		cashBankID, err = parseOptionalUUIDField(*r.CashBankID, "cash_bank_id")
		if err != nil {
			return budget.CreateInput{}, err
		}
	}

	return budget.CreateInput{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Kind:        kind,
		Amount:      r.Amount,
		AccountID:   accountID,
		CashBankID:  cashBankID,
		Notes:       strings.TrimSpace(r.Notes),
	}, nil
}

// BudgetCreate plans a budget line for an account over a period.
func BudgetCreate(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload budgetCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, budgetResponseFromModel(created))
	}
}

type budgetUpdateRequest struct {
	PeriodStart   *string `json:"period_start"`
	PeriodEnd     *string `json:"period_end"`
	Kind          *string `json:"kind"`
	Amount        *int64  `json:"amount" validate:"omitempty,min=1"`
	AccountID     *string `json:"account_id"`
	CashBankID    *string `json:"cash_bank_id"`
	ClearCashBank bool    `json:"clear_cash_bank"`
	Notes         *string `json:"notes" validate:"omitempty,max=500"`
}

func (r budgetUpdateRequest) toInput() (budget.UpdateInput, error) {
	input := budget.UpdateInput{
		Amount:        r.Amount,
		ClearCashBank: r.ClearCashBank,
		Notes:         r.Notes,
	}

	if r.PeriodStart != nil {
		periodStart, err := parseDateField(*r.PeriodStart, "period_start")
		if err != nil {
			return budget.UpdateInput{}, err
		}
		input.PeriodStart = &periodStart
	}

	if r.PeriodEnd != nil {
		periodEnd, err := parseDateField(*r.PeriodEnd, "period_end")
		if err != nil {
			return budget.UpdateInput{}, err
		}
		input.PeriodEnd = &periodEnd
	}

	if r.Kind != nil {
		kind, err := enums.ParseBudgetKind(strings.TrimSpace(*r.Kind))
		if err != nil {
			return budget.UpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid budget kind")
		}
		input.Kind = &kind
	}

	if r.AccountID != nil {
		accountID, err := parseOptionalUUIDField(*r.AccountID, "account_id")
		if err != nil {
			return budget.UpdateInput{}, err
		}
		input.AccountID = accountID
	}

	if r.CashBankID != nil {
		cashBankID, err := parseOptionalUUIDField(*r.CashBankID, "cash_bank_id")
		if err != nil {
			return budget.UpdateInput{}, err
		}
		input.CashBankID = cashBankID
	}

	return input, nil
}

// BudgetUpdate mutates a budget line.
func BudgetUpdate(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		budgetID, err := pathUUID(r, "budgetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload budgetUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), actorID, budgetID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, budgetResponseFromModel(updated))
	}
}

// BudgetDelete removes a budget line.
func BudgetDelete(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		budgetID, err := pathUUID(r, "budgetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actorID, budgetID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// BudgetGet returns one budget line.
func BudgetGet(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		budgetID, err := pathUUID(r, "budgetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := svc.Get(r.Context(), budgetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, budgetResponseFromModel(found))
	}
}

func budgetListFilter(r *http.Request) (budget.ListFilter, error) {
	filter := budget.ListFilter{}

	from, err := validators.ParseQueryDate(r, "from")
	if err != nil {
		return filter, err
	}
	filter.From = from

	to, err := validators.ParseQueryDate(r, "to")
	if err != nil {
		return filter, err
	}
	filter.To = to

	if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
		kind, err := enums.ParseBudgetKind(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid budget kind")
		}
		filter.Kind = &kind
	}

	accountID, err := validators.ParseQueryUUID(r, "account_id")
	if err != nil {
		return filter, err
	}
	filter.AccountID = accountID

	cashBankID, err := validators.ParseQueryUUID(r, "cash_bank_id")
	if err != nil {
		return filter, err
	}
	filter.CashBankID = cashBankID

	return filter, nil
}

// BudgetList returns budget lines overlapping the optional filter window.
func BudgetList(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := budgetListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]budgetResponse, 0, len(list))
		for i := range list {
			items = append(items, budgetResponseFromModel(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"budgets": items})
	}
}

// BudgetReport compares budget lines against approved ledger actuals for a
// required date range.
func BudgetReport(svc budget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if from == nil || to == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "from and to query parameters are required"))
			return
		}

		input := budget.ReportInput{From: *from, To: *to}

		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			kind, err := enums.ParseBudgetKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid budget kind"))
				return
			}
			input.Kind = &kind
		}

		cashBankID, err := validators.ParseQueryUUID(r, "cash_bank_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.CashBankID = cashBankID

		report, err := svc.Report(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

type budgetResponse struct {
	ID          uuid.UUID        `json:"id"`
	PeriodStart string           `json:"period_start"`
	PeriodEnd   string           `json:"period_end"`
	Kind        enums.BudgetKind `json:"kind"`
	Amount      int64            `json:"amount"`
	AccountID   uuid.UUID        `json:"account_id"`
	CashBankID  *uuid.UUID       `json:"cash_bank_id,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func budgetResponseFromModel(m *models.FinanceBudget) budgetResponse {
	return budgetResponse{
		ID:          m.ID,
		PeriodStart: m.PeriodStart.Format(dateLayout),
		PeriodEnd:   m.PeriodEnd.Format(dateLayout),
		Kind:        m.Kind,
		Amount:      m.Amount,
		AccountID:   m.AccountID,
		CashBankID:  m.CashBankID,
		Notes:       m.Notes,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
