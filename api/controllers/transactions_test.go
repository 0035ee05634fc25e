package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/robertrullyp/drsis-finance/internal/ledger"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/pagination"
)

type stubLedgerService struct {
	createActor  ledger.Actor
	createInput  ledger.CreateTxnInput
	createResult *models.OperationalTxn
	createErr    error
	listFilter   ledger.ListFilter
	listParams   pagination.Params
}

func (s *stubLedgerService) CreateTransaction(_ context.Context, actor ledger.Actor, input ledger.CreateTxnInput) (*models.OperationalTxn, error) {
	s.createActor = actor
	s.createInput = input
	return s.createResult, s.createErr
}

func (s *stubLedgerService) CreateTransfer(context.Context, ledger.Actor, ledger.CreateTransferInput) (*ledger.TransferPair, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubLedgerService) UpdatePending(context.Context, ledger.Actor, uuid.UUID, ledger.UpdateTxnInput) (*models.OperationalTxn, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubLedgerService) Approve(context.Context, ledger.Actor, uuid.UUID) (*models.OperationalTxn, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubLedgerService) Reject(context.Context, ledger.Actor, uuid.UUID) (*models.OperationalTxn, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubLedgerService) Get(context.Context, uuid.UUID) (*models.OperationalTxn, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
}

func (s *stubLedgerService) List(_ context.Context, filter ledger.ListFilter, params pagination.Params) ([]models.OperationalTxn, string, error) {
	s.listFilter = filter
	s.listParams = params
	return nil, "", nil
}

func TestTxnCreateParsesPayload(t *testing.T) {
	accountID := uuid.New()
	cashBankID := uuid.New()
	svc := &stubLedgerService{createResult: &models.OperationalTxn{
		ID:             uuid.New(),
		TxnDate:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Kind:           enums.TxnKindExpense,
		Amount:         150_000,
		AccountID:      accountID,
		CashBankID:     cashBankID,
		ReferenceNo:    "TXN-20260302-0001",
		ApprovalStatus: enums.ApprovalStatusPending,
		CreatedBy:      "kasir-01",
	}}

	body := `{"kind":"expense","amount":150000,"account_id":"` + accountID.String() + `","cash_bank_id":"` + cashBankID.String() + `","txn_date":"2026-03-02","description":"Token listrik"}`
	req := actorRequest(http.MethodPost, "/api/v1/transactions", body)
	rec := httptest.NewRecorder()
	TxnCreate(svc, nil)(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "kasir-01", svc.createActor.ID)
	require.Equal(t, enums.ActorRoleCashier, svc.createActor.Role)
	require.Equal(t, enums.TxnKindExpense, svc.createInput.Kind)
	require.Equal(t, int64(150_000), svc.createInput.Amount)
	require.Equal(t, "Token listrik", svc.createInput.Description)

	var envelope struct {
		Data txnResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, "TXN-20260302-0001", envelope.Data.ReferenceNo)
	require.Equal(t, "2026-03-02", envelope.Data.TxnDate)
}

func TestTxnCreateRejectsInvalidKindAndAmount(t *testing.T) {
	svc := &stubLedgerService{}

	body := `{"kind":"deposit","amount":1,"account_id":"` + uuid.NewString() + `","cash_bank_id":"` + uuid.NewString() + `","txn_date":"2026-03-02"}`
	req := actorRequest(http.MethodPost, "/api/v1/transactions", body)
	rec := httptest.NewRecorder()
	TxnCreate(svc, nil)(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body = `{"kind":"income","amount":0,"account_id":"` + uuid.NewString() + `","cash_bank_id":"` + uuid.NewString() + `","txn_date":"2026-03-02"}`
	req = actorRequest(http.MethodPost, "/api/v1/transactions", body)
	rec = httptest.NewRecorder()
	TxnCreate(svc, nil)(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTxnCreateSurfacesPeriodLock(t *testing.T) {
	svc := &stubLedgerService{createErr: pkgerrors.New(pkgerrors.CodePeriodLocked, "period 2026-01 is locked")}

	body := `{"kind":"income","amount":100,"account_id":"` + uuid.NewString() + `","cash_bank_id":"` + uuid.NewString() + `","txn_date":"2026-01-15"}`
	req := actorRequest(http.MethodPost, "/api/v1/transactions", body)
	rec := httptest.NewRecorder()
	TxnCreate(svc, nil)(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "PERIOD_LOCKED")
}

func TestTxnListParsesFiltersAndPagination(t *testing.T) {
	svc := &stubLedgerService{}
	cashBankID := uuid.New()

	req := actorRequest(http.MethodGet, "/api/v1/transactions?from=2026-01-01&to=2026-01-31&kind=income&status=approved&cash_bank_id="+cashBankID.String()+"&limit=50", "")
	rec := httptest.NewRecorder()
	TxnList(svc, nil)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listFilter.DateFrom)
	require.Equal(t, "2026-01-01", svc.listFilter.DateFrom.Format("2006-01-02"))
	require.NotNil(t, svc.listFilter.Kind)
	require.Equal(t, enums.TxnKindIncome, *svc.listFilter.Kind)
	require.NotNil(t, svc.listFilter.Status)
	require.Equal(t, enums.ApprovalStatusApproved, *svc.listFilter.Status)
	require.Equal(t, cashBankID, *svc.listFilter.CashBankID)
	require.Equal(t, 50, svc.listParams.Limit)

	req = actorRequest(http.MethodGet, "/api/v1/transactions?limit=5000", "")
	rec = httptest.NewRecorder()
	TxnList(svc, nil)(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
