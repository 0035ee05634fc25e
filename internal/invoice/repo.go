package invoice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	"github.com/robertrullyp/drsis-finance/pkg/pagination"
)

// ListFilter narrows invoice listings. Nil fields are skipped.
type ListFilter struct {
	StudentID *uuid.UUID
	PeriodID  *uuid.UUID
	Status    *enums.InvoiceStatus
}

// Totals are the re-aggregated child-row sums for one invoice. They are
// always read fresh from the database, never cached on the invoice row.
type Totals struct {
	Discounts int64
	Payments  int64
	Refunds   int64
}

// Repository persists invoices and their child rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, invoice *models.Invoice) error
	CreateItems(ctx context.Context, items []models.InvoiceItem) error
	CreateDiscount(ctx context.Context, discount *models.InvoiceDiscount) error
	CreatePayment(ctx context.Context, payment *models.InvoicePayment) error
	CreateRefund(ctx context.Context, refund *models.PaymentRefund) error
	Update(ctx context.Context, invoice *models.Invoice) error

	FindByID(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	FindByCode(ctx context.Context, code string) (*models.Invoice, error)
	FindPayment(ctx context.Context, invoiceID, paymentID uuid.UUID) (*models.InvoicePayment, error)
	SumRefundsForPayment(ctx context.Context, paymentID uuid.UUID) (int64, error)
	Aggregate(ctx context.Context, invoiceID uuid.UUID) (Totals, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Invoice, string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Omit("Items", "Discounts", "Payments").Create(invoice).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateDiscount(ctx context.Context, discount *models.InvoiceDiscount) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.InvoicePayment) error {
	return r.db.WithContext(ctx).Omit("Refunds").Create(payment).Error
}

func (r *repository) CreateRefund(ctx context.Context, refund *models.PaymentRefund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) Update(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Omit("Items", "Discounts", "Payments").Save(invoice).Error
}

func (r *repository) FindByID(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Discounts").
		Preload("Payments").
		Preload("Payments.Refunds").
		First(&invoice, "id = ?", invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).First(&invoice, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindPayment(ctx context.Context, invoiceID, paymentID uuid.UUID) (*models.InvoicePayment, error) {
	var payment models.InvoicePayment
	err := r.db.WithContext(ctx).
		First(&payment, "id = ? AND invoice_id = ?", paymentID, invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) SumRefundsForPayment(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentRefund{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("payment_id = ?", paymentID).
		Scan(&total).Error
	return total, err
}

// Aggregate re-sums discount, payment and refund rows for the invoice.
func (r *repository) Aggregate(ctx context.Context, invoiceID uuid.UUID) (Totals, error) {
	var totals Totals

	err := r.db.WithContext(ctx).
		Model(&models.InvoiceDiscount{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("invoice_id = ?", invoiceID).
		Scan(&totals.Discounts).Error
	if err != nil {
		return totals, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.InvoicePayment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("invoice_id = ?", invoiceID).
		Scan(&totals.Payments).Error
	if err != nil {
		return totals, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.PaymentRefund{}).
		Select("COALESCE(SUM(payment_refunds.amount), 0)").
		Joins("JOIN invoice_payments ON invoice_payments.id = payment_refunds.payment_id").
		Where("invoice_payments.invoice_id = ?", invoiceID).
		Scan(&totals.Refunds).Error
	return totals, err
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Invoice, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Invoice{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.PeriodID != nil {
		query = query.Where("period_id = ?", *filter.PeriodID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var invoices []models.Invoice
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&invoices).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(invoices) > limit {
		invoices = invoices[:limit]
		last := invoices[len(invoices)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return invoices, nextCursor, nil
}
