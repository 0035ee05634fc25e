package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/internal/audit"
	"github.com/robertrullyp/drsis-finance/pkg/db"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/outbox"
	"github.com/robertrullyp/drsis-finance/pkg/outbox/payloads"
	"github.com/robertrullyp/drsis-finance/pkg/pagination"
)

// Service exposes the invoice lifecycle: creation with a fixed gross,
// appended discounts/payments/refunds with status recomputation, and the
// terminal void operation.
type Service interface {
	Create(ctx context.Context, actorID string, input CreateInput) (*Result, error)
	AddDiscount(ctx context.Context, actorID string, invoiceID uuid.UUID, input DiscountInput) (*Result, error)
	AddPayment(ctx context.Context, actorID string, invoiceID uuid.UUID, input PaymentInput) (*Result, error)
	AddRefund(ctx context.Context, actorID string, invoiceID, paymentID uuid.UUID, input RefundInput) (*Result, error)
	Void(ctx context.Context, actorID string, invoiceID uuid.UUID, reason string) (*Result, error)
	Get(ctx context.Context, invoiceID uuid.UUID) (*Result, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Invoice, string, error)
}

// ItemInput is one billed line on a new invoice.
type ItemInput struct {
	Name   string
	Amount int64
}

// CreateInput holds the validated payload to open an invoice. The gross
// total is the item sum and never changes afterwards.
type CreateInput struct {
	Code      string
	StudentID uuid.UUID
	PeriodID  uuid.UUID
	DueDate   time.Time
	Items     []ItemInput
}

// DiscountInput reduces the net owed.
type DiscountInput struct {
	Name   string
	Amount int64
	Reason string
}

// PaymentInput records money received. A zero PaidAt defaults to now.
type PaymentInput struct {
	Amount int64
	Method enums.PaymentMethod
	PaidAt time.Time
}

// RefundInput returns part of a payment.
type RefundInput struct {
	Amount int64
	Reason string
}

// Result is the invoice together with its freshly derived balance snapshot.
type Result struct {
	Invoice *models.Invoice `json:"invoice"`
	Balance Balance         `json:"balance"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ledgerBridge mirrors settled payments and refunds into the operational
// ledger on the same transaction handle.
type ledgerBridge interface {
	PostPayment(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, payment *models.InvoicePayment, actorID string) (*models.OperationalTxn, error)
	PostRefund(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, payment *models.InvoicePayment, refund *models.PaymentRefund, actorID string) (*models.OperationalTxn, error)
}

type service struct {
	repo    Repository
	bridge  ledgerBridge
	tx      txRunner
	outbox  outboxEmitter
	auditor *audit.Recorder
}

// NewService constructs an invoice service instance.
func NewService(repo Repository, bridge ledgerBridge, tx txRunner, emitter outboxEmitter, auditor *audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if bridge == nil {
		return nil, fmt.Errorf("posting bridge required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, bridge: bridge, tx: tx, outbox: emitter, auditor: auditor}, nil
}

func (s *service) Create(ctx context.Context, actorID string, input CreateInput) (*Result, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice code is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice needs at least one item")
	}

	var gross int64
	items := make([]models.InvoiceItem, 0, len(input.Items))
	for _, item := range input.Items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
		}
		if item.Amount < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item amount must not be negative")
		}
		gross += item.Amount
		items = append(items, models.InvoiceItem{
			ID:     uuid.New(),
			Name:   item.Name,
			Amount: item.Amount,
		})
	}

	invoice := &models.Invoice{
		ID:         uuid.New(),
		Code:       code,
		StudentID:  input.StudentID,
		PeriodID:   input.PeriodID,
		DueDate:    input.DueDate,
		GrossTotal: gross,
		Status:     enums.InvoiceStatusOpen,
		CreatedBy:  actorID,
	}
	balance := ComputeBalance(gross, 0, 0, 0)
	invoice.Status = DeriveStatus(invoice.Status, balance)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, invoice); err != nil {
			if db.IsUniqueViolation(err, "idx_invoices_code") {
				return pkgerrors.New(pkgerrors.CodeConflict, "invoice code already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert invoice")
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if err := txRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert invoice items")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invoice.Items = items

	s.auditor.Record(ctx, actorID, audit.InvoiceChanged{
		ID:      invoice.ID,
		Verb:    enums.AuditActionCreate,
		Code:    invoice.Code,
		Status:  invoice.Status,
		Due:     balance.Due,
		PaidNet: balance.PaidNet,
	})
	return &Result{Invoice: invoice, Balance: balance}, nil
}

func (s *service) AddDiscount(ctx context.Context, actorID string, invoiceID uuid.UUID, input DiscountInput) (*Result, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount name is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount amount must be positive")
	}

	var (
		invoice    *models.Invoice
		balance    Balance
		wasSettled bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		var err error
		invoice, err = s.loadMutable(ctx, txRepo, invoiceID)
		if err != nil {
			return err
		}
		prevStatus := invoice.Status

		discount := &models.InvoiceDiscount{
			ID:        uuid.New(),
			InvoiceID: invoice.ID,
			Name:      input.Name,
			Amount:    input.Amount,
			Reason:    input.Reason,
			CreatedBy: actorID,
		}
		if err := txRepo.CreateDiscount(ctx, discount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert discount")
		}
		invoice.Discounts = append(invoice.Discounts, *discount)

		balance, err = s.recompute(ctx, txRepo, invoice)
		if err != nil {
			return err
		}
		wasSettled = prevStatus != enums.InvoiceStatusPaid && invoice.Status == enums.InvoiceStatusPaid
		if wasSettled {
			if err := s.emitSettled(ctx, tx, invoice, balance); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, audit.InvoiceChanged{
		ID:      invoice.ID,
		Verb:    enums.AuditActionUpdate,
		Code:    invoice.Code,
		Status:  invoice.Status,
		Due:     balance.Due,
		PaidNet: balance.PaidNet,
	})
	return &Result{Invoice: invoice, Balance: balance}, nil
}

func (s *service) AddPayment(ctx context.Context, actorID string, invoiceID uuid.UUID, input PaymentInput) (*Result, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	var (
		invoice *models.Invoice
		balance Balance
		posted  *models.OperationalTxn
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		var err error
		invoice, err = s.loadMutable(ctx, txRepo, invoiceID)
		if err != nil {
			return err
		}
		prevStatus := invoice.Status

		payment := &models.InvoicePayment{
			ID:        uuid.New(),
			InvoiceID: invoice.ID,
			Amount:    input.Amount,
			Method:    input.Method,
			PaidAt:    paidAt,
			CreatedBy: actorID,
		}
		if err := txRepo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert payment")
		}
		invoice.Payments = append(invoice.Payments, *payment)

		posted, err = s.bridge.PostPayment(ctx, tx, invoice, payment, actorID)
		if err != nil {
			return err
		}

		balance, err = s.recompute(ctx, txRepo, invoice)
		if err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentReceived,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{ActorID: actorID},
			Version:       1,
			Data: payloads.PaymentReceivedEvent{
				InvoiceID: invoice.ID,
				PaymentID: payment.ID,
				Method:    payment.Method,
				Amount:    payment.Amount,
				PaidAt:    payment.PaidAt,
				Status:    invoice.Status,
				Due:       balance.Due,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit payment event")
		}

		if prevStatus != enums.InvoiceStatusPaid && invoice.Status == enums.InvoiceStatusPaid {
			if err := s.emitSettled(ctx, tx, invoice, balance); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, audit.InvoiceChanged{
		ID:      invoice.ID,
		Verb:    enums.AuditActionUpdate,
		Code:    invoice.Code,
		Status:  invoice.Status,
		Due:     balance.Due,
		PaidNet: balance.PaidNet,
	})
	if posted != nil {
		s.auditor.Record(ctx, actorID, audit.PostingRecorded{
			TxnID:       posted.ID,
			ReferenceNo: posted.ReferenceNo,
			Amount:      posted.Amount,
			SettledAt:   paidAt,
		})
	}
	return &Result{Invoice: invoice, Balance: balance}, nil
}

func (s *service) AddRefund(ctx context.Context, actorID string, invoiceID, paymentID uuid.UUID, input RefundInput) (*Result, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var (
		invoice *models.Invoice
		balance Balance
		posted  *models.OperationalTxn
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		var err error
		invoice, err = s.loadMutable(ctx, txRepo, invoiceID)
		if err != nil {
			return err
		}
		prevStatus := invoice.Status

		payment, err := txRepo.FindPayment(ctx, invoiceID, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load payment")
		}
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found on this invoice")
		}

		refunded, err := txRepo.SumRefundsForPayment(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sum refunds")
		}
		if refunded+input.Amount > payment.Amount {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund exceeds the remaining payment amount")
		}

		now := time.Now()
		refund := &models.PaymentRefund{
			ID:          uuid.New(),
			PaymentID:   payment.ID,
			Amount:      input.Amount,
			Reason:      input.Reason,
			ProcessedBy: actorID,
			ProcessedAt: now,
			CreatedAt:   now,
		}
		if err := txRepo.CreateRefund(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert refund")
		}

		posted, err = s.bridge.PostRefund(ctx, tx, invoice, payment, refund, actorID)
		if err != nil {
			return err
		}

		balance, err = s.recompute(ctx, txRepo, invoice)
		if err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundRecorded,
			AggregateType: enums.AggregateRefund,
			AggregateID:   refund.ID,
			Actor:         &outbox.ActorRef{ActorID: actorID},
			Version:       1,
			Data: payloads.RefundRecordedEvent{
				InvoiceID: invoice.ID,
				PaymentID: payment.ID,
				RefundID:  refund.ID,
				Amount:    refund.Amount,
				Status:    invoice.Status,
				Due:       balance.Due,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit refund event")
		}

		if prevStatus != enums.InvoiceStatusPaid && invoice.Status == enums.InvoiceStatusPaid {
			if err := s.emitSettled(ctx, tx, invoice, balance); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, audit.InvoiceChanged{
		ID:      invoice.ID,
		Verb:    enums.AuditActionUpdate,
		Code:    invoice.Code,
		Status:  invoice.Status,
		Due:     balance.Due,
		PaidNet: balance.PaidNet,
	})
	if posted != nil {
		s.auditor.Record(ctx, actorID, audit.PostingRecorded{
			TxnID:       posted.ID,
			ReferenceNo: posted.ReferenceNo,
			Amount:      posted.Amount,
			SettledAt:   time.Now(),
		})
	}
	return &Result{Invoice: invoice, Balance: balance}, nil
}

// Void cancels the invoice administratively. Void is terminal; voiding an
// already void invoice is a no-op.
func (s *service) Void(ctx context.Context, actorID string, invoiceID uuid.UUID, reason string) (*Result, error) {
	var (
		invoice *models.Invoice
		balance Balance
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		var err error
		invoice, err = txRepo.FindByID(ctx, invoiceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load invoice")
		}
		if invoice == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}

		totals, err := txRepo.Aggregate(ctx, invoice.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: aggregate invoice")
		}
		balance = ComputeBalance(invoice.GrossTotal, totals.Discounts, totals.Payments, totals.Refunds)

		if invoice.Status == enums.InvoiceStatusVoid {
			return nil
		}
		changed = true

		invoice.Status = enums.InvoiceStatusVoid
		if err := txRepo.Update(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: void invoice")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceVoided,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			Actor:         &outbox.ActorRef{ActorID: actorID},
			Version:       1,
			Data: payloads.InvoiceVoidedEvent{
				InvoiceID: invoice.ID,
				Code:      invoice.Code,
				Reason:    reason,
				VoidedAt:  time.Now(),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit void event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.auditor.Record(ctx, actorID, audit.InvoiceChanged{
			ID:      invoice.ID,
			Verb:    enums.AuditActionVoid,
			Code:    invoice.Code,
			Status:  invoice.Status,
			Due:     balance.Due,
			PaidNet: balance.PaidNet,
		})
	}
	return &Result{Invoice: invoice, Balance: balance}, nil
}

func (s *service) Get(ctx context.Context, invoiceID uuid.UUID) (*Result, error) {
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load invoice")
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	totals, err := s.repo.Aggregate(ctx, invoice.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: aggregate invoice")
	}
	balance := ComputeBalance(invoice.GrossTotal, totals.Discounts, totals.Payments, totals.Refunds)
	return &Result{Invoice: invoice, Balance: balance}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Invoice, string, error) {
	invoices, cursor, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list invoices")
	}
	return invoices, cursor, nil
}

// loadMutable loads the invoice and rejects mutations on a void one.
func (s *service) loadMutable(ctx context.Context, repo Repository, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load invoice")
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	if invoice.Status == enums.InvoiceStatusVoid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice is void")
	}
	return invoice, nil
}

// recompute re-aggregates child rows, derives the balance and persists the
// status the snapshot implies.
func (s *service) recompute(ctx context.Context, repo Repository, invoice *models.Invoice) (Balance, error) {
	totals, err := repo.Aggregate(ctx, invoice.ID)
	if err != nil {
		return Balance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: aggregate invoice")
	}
	balance := ComputeBalance(invoice.GrossTotal, totals.Discounts, totals.Payments, totals.Refunds)

	next := DeriveStatus(invoice.Status, balance)
	if next != invoice.Status {
		invoice.Status = next
		if err := repo.Update(ctx, invoice); err != nil {
			return Balance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update invoice status")
		}
	}
	return balance, nil
}

// emitSettled dedupes on (event_type, aggregate) so an invoice that
// drops out of SETTLED and re-settles does not notify twice.
func (s *service) emitSettled(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, balance Balance) error {
	err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventInvoiceSettled,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   invoice.ID,
		Version:       1,
		Data: payloads.InvoiceSettledEvent{
			InvoiceID: invoice.ID,
			Code:      invoice.Code,
			NetTotal:  balance.NetTotal,
			PaidNet:   balance.PaidNet,
			SettledAt: time.Now(),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit settled event")
	}
	return nil
}
