package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// Invoice is a billing record owed by a student for a period. Its gross total
// is fixed at creation from the item rows; discounts, payments and refunds are
// appended over time and the status is re-derived after every mutation.
type Invoice struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code       string              `gorm:"column:code;uniqueIndex;not null"`
	StudentID  uuid.UUID           `gorm:"column:student_id;type:uuid;not null"`
	PeriodID   uuid.UUID           `gorm:"column:period_id;type:uuid;not null"`
	DueDate    time.Time           `gorm:"column:due_date;type:date;not null"`
	GrossTotal int64               `gorm:"column:gross_total;not null"`
	Status     enums.InvoiceStatus `gorm:"column:status;type:invoice_status_enum;not null;default:open"`
	CreatedBy  string              `gorm:"column:created_by;not null"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items     []InvoiceItem     `gorm:"foreignKey:InvoiceID"`
	Discounts []InvoiceDiscount `gorm:"foreignKey:InvoiceID"`
	Payments  []InvoicePayment  `gorm:"foreignKey:InvoiceID"`
}

// InvoiceItem is a single billed line; amounts are minor currency units.
type InvoiceItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID uuid.UUID `gorm:"column:invoice_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	Amount    int64     `gorm:"column:amount;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// InvoiceDiscount reduces the net amount owed on an invoice.
type InvoiceDiscount struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID uuid.UUID `gorm:"column:invoice_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	Amount    int64     `gorm:"column:amount;not null"`
	Reason    string    `gorm:"column:reason"`
	CreatedBy string    `gorm:"column:created_by;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// InvoicePayment records money received against an invoice.
type InvoicePayment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID uuid.UUID           `gorm:"column:invoice_id;type:uuid;not null;index"`
	Amount    int64               `gorm:"column:amount;not null"`
	Method    enums.PaymentMethod `gorm:"column:method;type:payment_method_enum;not null"`
	PaidAt    time.Time           `gorm:"column:paid_at;not null"`
	CreatedBy string              `gorm:"column:created_by;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`

	Refunds []PaymentRefund `gorm:"foreignKey:PaymentID"`
}

// PaymentRefund returns part of a payment to the payer.
type PaymentRefund struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID   uuid.UUID `gorm:"column:payment_id;type:uuid;not null;index"`
	Amount      int64     `gorm:"column:amount;not null"`
	Reason      string    `gorm:"column:reason"`
	ProcessedBy string    `gorm:"column:processed_by;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
