package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/api/middleware"
	"github.com/robertrullyp/drsis-finance/api/responses"
	"github.com/robertrullyp/drsis-finance/api/validators"
	"github.com/robertrullyp/drsis-finance/internal/ledger"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
)

func requireActor(r *http.Request) (ledger.Actor, error) {
	actorID, err := requireActorID(r)
	if err != nil {
		return ledger.Actor{}, err
	}
	return ledger.Actor{
		ID:   actorID,
		Role: middleware.RoleFromContext(r.Context()),
	}, nil
}

type txnCreateRequest struct {
	Kind        string `json:"kind" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,min=1"`
	AccountID   string `json:"account_id" validate:"required"`
	CashBankID  string `json:"cash_bank_id" validate:"required"`
	TxnDate     string `json:"txn_date" validate:"required"`
	Description string `json:"description" validate:"max=500"`
	ReferenceNo string `json:"reference_no" validate:"max=64"`
}

func (r txnCreateRequest) toInput() (ledger.CreateTxnInput, error) {
	kind, err := enums.ParseTxnKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return ledger.CreateTxnInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction kind")
	}

	accountID, err := uuid.Parse(strings.TrimSpace(r.AccountID))
	if err != nil {
		return ledger.CreateTxnInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account_id")
	}

	cashBankID, err := uuid.Parse(strings.TrimSpace(r.CashBankID))
	if err != nil {
		return ledger.CreateTxnInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cash_bank_id")
	}

	txnDate, err := parseDateField(r.TxnDate, "txn_date")
	if err != nil {
		return ledger.CreateTxnInput{}, err
	}

	return ledger.CreateTxnInput{
		Kind:        kind,
		Amount:      r.Amount,
		AccountID:   accountID,
		CashBankID:  cashBankID,
		TxnDate:     txnDate,
		Description: validators.SanitizeString(r.Description, 500),
		ReferenceNo: strings.TrimSpace(r.ReferenceNo),
	}, nil
}

// TxnCreate records a pending income or expense entry.
func TxnCreate(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload txnCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateTransaction(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, txnResponseFromModel(created))
	}
}

type txnTransferRequest struct {
	FromAccountID  string `json:"from_account_id" validate:"required"`
	FromCashBankID string `json:"from_cash_bank_id" validate:"required"`
	ToAccountID    string `json:"to_account_id" validate:"required"`
	ToCashBankID   string `json:"to_cash_bank_id" validate:"required"`
	Amount         int64  `json:"amount" validate:"required,min=1"`
	TxnDate        string `json:"txn_date" validate:"required"`
	Description    string `json:"description" validate:"max=500"`
}

func (r txnTransferRequest) toInput() (ledger.CreateTransferInput, error) {
	parse := func(value, field string) (uuid.UUID, error) {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
		}
		return id, nil
	}

	fromAccountID, err := parse(r.FromAccountID, "from_account_id")
	if err != nil {
		return ledger.CreateTransferInput{}, err
	}
	fromCashBankID, err := parse(r.FromCashBankID, "from_cash_bank_id")
	if err != nil {
		return ledger.CreateTransferInput{}, err
	}
	toAccountID, err := parse(r.ToAccountID, "to_account_id")
	if err != nil {
		return ledger.CreateTransferInput{}, err
	}
	toCashBankID, err := parse(r.ToCashBankID, "to_cash_bank_id")
	if err != nil {
		return ledger.CreateTransferInput{}, err
	}

	txnDate, err := parseDateField(r.TxnDate, "txn_date")
	if err != nil {
		return ledger.CreateTransferInput{}, err
	}

	return ledger.CreateTransferInput{
		FromAccountID:  fromAccountID,
		FromCashBankID: fromCashBankID,
		ToAccountID:    toAccountID,
		ToCashBankID:   toCashBankID,
		Amount:         r.Amount,
		TxnDate:        txnDate,
		Description:    validators.SanitizeString(r.Description, 500),
	}, nil
}

// TxnTransfer records both pending legs of a cash/bank transfer.
func TxnTransfer(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload txnTransferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pair, err := svc.CreateTransfer(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"out": txnResponseFromModel(pair.Out),
			"in":  txnResponseFromModel(pair.In),
		})
	}
}

type txnUpdateRequest struct {
	Amount      *int64  `json:"amount" validate:"omitempty,min=1"`
	AccountID   *string `json:"account_id"`
	CashBankID  *string `json:"cash_bank_id"`
	TxnDate     *string `json:"txn_date"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (r txnUpdateRequest) toInput() (ledger.UpdateTxnInput, error) {
	input := ledger.UpdateTxnInput{
		Amount:      r.Amount,
		Description: r.Description,
	}

	if r.AccountID != nil {
		accountID, err := parseOptionalUUIDField(*r.AccountID, "account_id")
		if err != nil {
			return ledger.UpdateTxnInput{}, err
		}
		input.AccountID = accountID
	}

	if r.CashBankID != nil {
		cashBankID, err := parseOptionalUUIDField(*r.CashBankID, "cash_bank_id")
		if err != nil {
			return ledger.UpdateTxnInput{}, err
		}
		input.CashBankID = cashBankID
	}

	if r.TxnDate != nil {
		txnDate, err := parseDateField(*r.TxnDate, "txn_date")
		if err != nil {
			return ledger.UpdateTxnInput{}, err
		}
		input.TxnDate = &txnDate
	}

	return input, nil
}

// TxnUpdate mutates a still-pending entry.
func TxnUpdate(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathUUID(r, "txnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload txnUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdatePending(r.Context(), actor, txnID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, txnResponseFromModel(updated))
	}
}

// TxnApprove settles a pending entry into the cash/bank balance.
func TxnApprove(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathUUID(r, "txnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approved, err := svc.Approve(r.Context(), actor, txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, txnResponseFromModel(approved))
	}
}

// TxnReject declines a pending entry; transfer legs are rejected together.
func TxnReject(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txnID, err := pathUUID(r, "txnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rejected, err := svc.Reject(r.Context(), actor, txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, txnResponseFromModel(rejected))
	}
}

// TxnGet returns one ledger entry.
func TxnGet(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txnID, err := pathUUID(r, "txnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Get(r.Context(), txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, txnResponseFromModel(txn))
	}
}

func txnListFilter(r *http.Request) (ledger.ListFilter, error) {
	filter := ledger.ListFilter{}

	from, err := validators.ParseQueryDate(r, "from")
	if err != nil {
		return filter, err
	}
	filter.DateFrom = from

	to, err := validators.ParseQueryDate(r, "to")
	if err != nil {
		return filter, err
	}
	filter.DateTo = to

	if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
		kind, err := enums.ParseTxnKind(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction kind")
		}
		filter.Kind = &kind
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseApprovalStatus(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval status")
		}
		filter.Status = &status
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

// TxnList returns a filtered, cursor-paginated slice of the ledger.
func TxnList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := txnListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, nextCursor, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]txnResponse, 0, len(list))
		for i := range list {
			items = append(items, txnResponseFromModel(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"transactions": items,
			"next_cursor":  nextCursor,
		})
	}
}

type txnResponse struct {
	ID             uuid.UUID            `json:"id"`
	TxnDate        string               `json:"txn_date"`
	Kind           enums.TxnKind        `json:"kind"`
	Amount         int64                `json:"amount"`
	AccountID      uuid.UUID            `json:"account_id"`
	CashBankID     uuid.UUID            `json:"cash_bank_id"`
	ReferenceNo    string               `json:"reference_no"`
	Description    string               `json:"description,omitempty"`
	ApprovalStatus enums.ApprovalStatus `json:"approval_status"`
	TransferPairID *uuid.UUID           `json:"transfer_pair_id,omitempty"`
	CreatedBy      string               `json:"created_by"`
	CheckedBy      *string              `json:"checked_by,omitempty"`
	CheckedAt      *time.Time           `json:"checked_at,omitempty"`
	ApprovedBy     *string              `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time           `json:"approved_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func txnResponseFromModel(m *models.OperationalTxn) txnResponse {
	return txnResponse{
		ID:             m.ID,
		TxnDate:        m.TxnDate.Format(dateLayout),
		Kind:           m.Kind,
		Amount:         m.Amount,
		AccountID:      m.AccountID,
		CashBankID:     m.CashBankID,
		ReferenceNo:    m.ReferenceNo,
		Description:    m.Description,
		ApprovalStatus: m.ApprovalStatus,
		TransferPairID: m.TransferPairID,
		CreatedBy:      m.CreatedBy,
		CheckedBy:      m.CheckedBy,
		CheckedAt:      m.CheckedAt,
		ApprovedBy:     m.ApprovedBy,
		ApprovedAt:     m.ApprovedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
