package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/robertrullyp/drsis-finance/api/middleware"
	"github.com/robertrullyp/drsis-finance/internal/invoice"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/pagination"
)

type stubInvoiceService struct {
	createInput  invoice.CreateInput
	createActor  string
	createResult *invoice.Result
	createErr    error
	listFilter   invoice.ListFilter
	listResult   []models.Invoice
}

func (s *stubInvoiceService) Create(_ context.Context, actorID string, input invoice.CreateInput) (*invoice.Result, error) {
	s.createActor = actorID
	s.createInput = input
	return s.createResult, s.createErr
}

func (s *stubInvoiceService) AddDiscount(context.Context, string, uuid.UUID, invoice.DiscountInput) (*invoice.Result, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubInvoiceService) AddPayment(context.Context, string, uuid.UUID, invoice.PaymentInput) (*invoice.Result, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubInvoiceService) AddRefund(context.Context, string, uuid.UUID, uuid.UUID, invoice.RefundInput) (*invoice.Result, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubInvoiceService) Void(context.Context, string, uuid.UUID, string) (*invoice.Result, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubInvoiceService) Get(context.Context, uuid.UUID) (*invoice.Result, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
}

func (s *stubInvoiceService) List(_ context.Context, filter invoice.ListFilter, _ pagination.Params) ([]models.Invoice, string, error) {
	s.listFilter = filter
	return s.listResult, "", nil
}

func actorRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithActor(req.Context(), "kasir-01", enums.ActorRoleCashier))
}

func TestInvoiceCreateReturnsCreated(t *testing.T) {
	inv := &models.Invoice{
		ID:         uuid.New(),
		Code:       "INV/2026/001",
		StudentID:  uuid.New(),
		PeriodID:   uuid.New(),
		DueDate:    time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		GrossTotal: 1_000_000,
		Status:     enums.InvoiceStatusOpen,
		CreatedBy:  "kasir-01",
	}
	svc := &stubInvoiceService{createResult: &invoice.Result{
		Invoice: inv,
		Balance: invoice.Balance{GrossTotal: 1_000_000, NetTotal: 1_000_000, Due: 1_000_000},
	}}

	body := `{"code":"INV/2026/001","student_id":"` + inv.StudentID.String() + `","period_id":"` + inv.PeriodID.String() + `","due_date":"2026-02-10","items":[{"name":"SPP Februari","amount":1000000}]}`
	req := actorRequest(http.MethodPost, "/api/v1/invoices", body)
	rec := httptest.NewRecorder()
	InvoiceCreate(svc, nil)(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "kasir-01", svc.createActor)
	require.Equal(t, "INV/2026/001", svc.createInput.Code)
	require.Len(t, svc.createInput.Items, 1)
	require.Equal(t, int64(1_000_000), svc.createInput.Items[0].Amount)

	var envelope struct {
		Data struct {
			Invoice invoiceResponse `json:"invoice"`
			Balance invoice.Balance `json:"balance"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, "INV/2026/001", envelope.Data.Invoice.Code)
	require.Equal(t, "2026-02-10", envelope.Data.Invoice.DueDate)
	require.Equal(t, int64(1_000_000), envelope.Data.Balance.Due)
}

func TestInvoiceCreateRejectsBadPayloads(t *testing.T) {
	svc := &stubInvoiceService{}

	// missing items
	req := actorRequest(http.MethodPost, "/api/v1/invoices", `{"code":"INV/1","student_id":"`+uuid.NewString()+`","period_id":"`+uuid.NewString()+`","due_date":"2026-02-10"}`)
	rec := httptest.NewRecorder()
	InvoiceCreate(svc, nil)(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// malformed student id
	req = actorRequest(http.MethodPost, "/api/v1/invoices", `{"code":"INV/1","student_id":"nope","period_id":"`+uuid.NewString()+`","due_date":"2026-02-10","items":[{"name":"SPP","amount":1}]}`)
	rec = httptest.NewRecorder()
	InvoiceCreate(svc, nil)(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// malformed date
	req = actorRequest(http.MethodPost, "/api/v1/invoices", `{"code":"INV/1","student_id":"`+uuid.NewString()+`","period_id":"`+uuid.NewString()+`","due_date":"10-02-2026","items":[{"name":"SPP","amount":1}]}`)
	rec = httptest.NewRecorder()
	InvoiceCreate(svc, nil)(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceCreateRequiresActor(t *testing.T) {
	svc := &stubInvoiceService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	InvoiceCreate(svc, nil)(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvoiceCreateMapsServiceConflicts(t *testing.T) {
	svc := &stubInvoiceService{createErr: pkgerrors.New(pkgerrors.CodeConflict, "invoice code already exists")}

	body := `{"code":"INV/1","student_id":"` + uuid.NewString() + `","period_id":"` + uuid.NewString() + `","due_date":"2026-02-10","items":[{"name":"SPP","amount":1}]}`
	req := actorRequest(http.MethodPost, "/api/v1/invoices", body)
	rec := httptest.NewRecorder()
	InvoiceCreate(svc, nil)(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "invoice code already exists")
}

func TestInvoiceListParsesFilters(t *testing.T) {
	svc := &stubInvoiceService{}
	studentID := uuid.New()

	req := actorRequest(http.MethodGet, "/api/v1/invoices?student_id="+studentID.String()+"&status=partial&limit=10", "")
	rec := httptest.NewRecorder()
	InvoiceList(svc, nil)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listFilter.StudentID)
	require.Equal(t, studentID, *svc.listFilter.StudentID)
	require.NotNil(t, svc.listFilter.Status)
	require.Equal(t, enums.InvoiceStatusPartial, *svc.listFilter.Status)

	req = actorRequest(http.MethodGet, "/api/v1/invoices?status=bogus", "")
	rec = httptest.NewRecorder()
	InvoiceList(svc, nil)(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
