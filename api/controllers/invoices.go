package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/api/responses"
	"github.com/robertrullyp/drsis-finance/api/validators"
	"github.com/robertrullyp/drsis-finance/internal/invoice"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
)

type invoiceItemRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	Amount int64  `json:"amount" validate:"min=0"`
}

type invoiceCreateRequest struct {
	Code      string               `json:"code" validate:"required,max=64"`
	StudentID string               `json:"student_id" validate:"required"`
	PeriodID  string               `json:"period_id" validate:"required"`
	DueDate   string               `json:"due_date" validate:"required"`
	Items     []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r invoiceCreateRequest) toInput() (invoice.CreateInput, error) {
	studentID, err := uuid.Parse(strings.TrimSpace(r.StudentID))
	if err != nil {
		return invoice.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid student_id")
	}

	periodID, err := uuid.Parse(strings.TrimSpace(r.PeriodID))
	if err != nil {
		return invoice.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid period_id")
	}

	dueDate, err := parseDateField(r.DueDate, "due_date")
	if err != nil {
		return invoice.CreateInput{}, err
	}

	items := make([]invoice.ItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, invoice.ItemInput{
			Name:   strings.TrimSpace(item.Name),
			Amount: item.Amount,
		})
	}

	return invoice.CreateInput{
		Code:      strings.TrimSpace(r.Code),
		StudentID: studentID,
		PeriodID:  periodID,
		DueDate:   dueDate,
		Items:     items,
	}, nil
}

// InvoiceCreate opens an invoice; the gross total is fixed from the items.
func InvoiceCreate(svc invoice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invoiceCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, invoiceResultResponse(result))
	}
}

type invoiceDiscountRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	Amount int64  `json:"amount" validate:"required,min=1"`
	Reason string `json:"reason" validate:"max=500"`
}

// InvoiceAddDiscount applies a discount and re-derives the status.
func InvoiceAddDiscount(svc invoice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := pathUUID(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invoiceDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddDiscount(r.Context(), actorID, invoiceID, invoice.DiscountInput{
			Name:   strings.TrimSpace(payload.Name),
			Amount: payload.Amount,
			Reason: validators.SanitizeString(payload.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoiceResultResponse(result))
	}
}

type invoicePaymentRequest struct {
	Amount int64  `json:"amount" validate:"required,min=1"`
	Method string `json:"method" validate:"required"`
	PaidAt string `json:"paid_at"`
}

// InvoiceAddPayment records money received; ledger-eligible methods are
// mirrored into the operational ledger in the same transaction.
func InvoiceAddPayment(svc invoice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := pathUUID(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invoicePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.Method))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method"))
			return
		}

		input := invoice.PaymentInput{Amount: payload.Amount, Method: method}
		if paidAt, err := parseOptionalDateField(payload.PaidAt, "paid_at"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if paidAt != nil {
			input.PaidAt = *paidAt
		}

		result, err := svc.AddPayment(r.Context(), actorID, invoiceID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoiceResultResponse(result))
	}
}

type invoiceRefundRequest struct {
	Amount int64  `json:"amount" validate:"required,min=1"`
	Reason string `json:"reason" validate:"max=500"`
}

// InvoiceAddRefund returns part of a payment, capped at what remains of it.
func InvoiceAddRefund(svc invoice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := pathUUID(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := pathUUID(r, "paymentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invoiceRefundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddRefund(r.Context(), actorID, invoiceID, paymentID, invoice.RefundInput{
			Amount: payload.Amount,
			Reason: validators.SanitizeString(payload.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoiceResultResponse(result))
	}
}

type invoiceVoidRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// InvoiceVoid cancels an invoice terminally. Voiding twice is a no-op.
func InvoiceVoid(svc invoice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := requireActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := pathUUID(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload invoiceVoidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Void(r.Context(), actorID, invoiceID, validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoiceResultResponse(result))
	}
}

// InvoiceGet returns one invoice with its derived balance snapshot.
func InvoiceGet(svc invoice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := pathUUID(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Get(r.Context(), invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoiceResultResponse(result))
	}
}

func invoiceListFilter(r *http.Request) (invoice.ListFilter, error) {
	filter := invoice.ListFilter{}

	studentID, err := validators.ParseQueryUUID(r, "student_id")
	if err != nil {
		return filter, err
	}
	filter.StudentID = studentID

	periodID, err := validators.ParseQueryUUID(r, "period_id")
	if err != nil {
		return filter, err
	}
	filter.PeriodID = periodID

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseInvoiceStatus(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid invoice status")
		}
		filter.Status = &status
	}

	return filter, nil
}

// InvoiceList returns a filtered, cursor-paginated invoice slice.
func InvoiceList(svc invoice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := invoiceListFilter(r)
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

		items := make([]invoiceResponse, 0, len(list))
		for i := range list {
			items = append(items, invoiceResponseFromModel(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"invoices":    items,
			"next_cursor": nextCursor,
		})
	}
}

type invoiceItemResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Amount int64     `json:"amount"`
}

type invoiceDiscountResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type invoiceRefundResponse struct {
	ID          uuid.UUID `json:"id"`
	Amount      int64     `json:"amount"`
	Reason      string    `json:"reason,omitempty"`
	ProcessedBy string    `json:"processed_by"`
	ProcessedAt time.Time `json:"processed_at"`
}

type invoicePaymentResponse struct {
	ID        uuid.UUID               `json:"id"`
	Amount    int64                   `json:"amount"`
	Method    enums.PaymentMethod     `json:"method"`
	PaidAt    time.Time               `json:"paid_at"`
	CreatedBy string                  `json:"created_by"`
	Refunds   []invoiceRefundResponse `json:"refunds,omitempty"`
}

type invoiceResponse struct {
	ID         uuid.UUID                 `json:"id"`
	Code       string                    `json:"code"`
	StudentID  uuid.UUID                 `json:"student_id"`
	PeriodID   uuid.UUID                 `json:"period_id"`
	DueDate    string                    `json:"due_date"`
	GrossTotal int64                     `json:"gross_total"`
	Status     enums.InvoiceStatus       `json:"status"`
	Items      []invoiceItemResponse     `json:"items,omitempty"`
	Discounts  []invoiceDiscountResponse `json:"discounts,omitempty"`
	Payments   []invoicePaymentResponse  `json:"payments,omitempty"`
	CreatedBy  string                    `json:"created_by"`
	CreatedAt  time.Time                 `json:"created_at"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

func invoiceResponseFromModel(m *models.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:         m.ID,
		Code:       m.Code,
		StudentID:  m.StudentID,
		PeriodID:   m.PeriodID,
		DueDate:    m.DueDate.Format(dateLayout),
		GrossTotal: m.GrossTotal,
		Status:     m.Status,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}

	for _, item := range m.Items {
		resp.Items = append(resp.Items, invoiceItemResponse{ID: item.ID, Name: item.Name, Amount: item.Amount})
	}
	for _, discount := range m.Discounts {
		resp.Discounts = append(resp.Discounts, invoiceDiscountResponse{
			ID:        discount.ID,
			Name:      discount.Name,
			Amount:    discount.Amount,
			Reason:    discount.Reason,
			CreatedBy: discount.CreatedBy,
			CreatedAt: discount.CreatedAt,
		})
	}
	for _, payment := range m.Payments {
		paymentResp := invoicePaymentResponse{
			ID:        payment.ID,
			Amount:    payment.Amount,
			Method:    payment.Method,
			PaidAt:    payment.PaidAt,
			CreatedBy: payment.CreatedBy,
		}
		for _, refund := range payment.Refunds {
			paymentResp.Refunds = append(paymentResp.Refunds, invoiceRefundResponse{
				ID:          refund.ID,
				Amount:      refund.Amount,
				Reason:      refund.Reason,
				ProcessedBy: refund.ProcessedBy,
				ProcessedAt: refund.ProcessedAt,
			})
		}
		resp.Payments = append(resp.Payments, paymentResp)
	}

	return resp
}

func invoiceResultResponse(result *invoice.Result) map[string]any {
	return map[string]any{
		"invoice": invoiceResponseFromModel(result.Invoice),
		"balance": result.Balance,
	}
}
