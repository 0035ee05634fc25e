package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// PaymentReceivedEvent is emitted when a payment is recorded on an invoice.
type PaymentReceivedEvent struct {
	InvoiceID uuid.UUID           `json:"invoice_id"`
	PaymentID uuid.UUID           `json:"payment_id"`
	Method    enums.PaymentMethod `json:"method"`
	Amount    int64               `json:"amount"`
	PaidAt    time.Time           `json:"paid_at"`
	Status    enums.InvoiceStatus `json:"status"`
	Due       int64               `json:"due"`
}

// RefundRecordedEvent is emitted when part of a payment is handed back.
type RefundRecordedEvent struct {
	InvoiceID uuid.UUID           `json:"invoice_id"`
	PaymentID uuid.UUID           `json:"payment_id"`
	RefundID  uuid.UUID           `json:"refund_id"`
	Amount    int64               `json:"amount"`
	Status    enums.InvoiceStatus `json:"status"`
	Due       int64               `json:"due"`
}

// InvoiceSettledEvent signals an invoice reached PAID.
type InvoiceSettledEvent struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	Code      string    `json:"code"`
	NetTotal  int64     `json:"net_total"`
	PaidNet   int64     `json:"paid_net"`
	SettledAt time.Time `json:"settled_at"`
}

// InvoiceVoidedEvent signals an invoice was cancelled administratively.
type InvoiceVoidedEvent struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	Code      string    `json:"code"`
	Reason    string    `json:"reason,omitempty"`
	VoidedAt  time.Time `json:"voided_at"`
}

// TxnApprovedEvent reports an operational entry clearing review. The balance
// delta is the signed amount already applied to the cash/bank account.
type TxnApprovedEvent struct {
	TxnID        uuid.UUID     `json:"txn_id"`
	ReferenceNo  string        `json:"reference_no"`
	Kind         enums.TxnKind `json:"kind"`
	Amount       int64         `json:"amount"`
	BalanceDelta int64         `json:"balance_delta"`
	CashBankID   uuid.UUID     `json:"cash_bank_id"`
	ApprovedBy   string        `json:"approved_by"`
	ApprovedAt   time.Time     `json:"approved_at"`
}

// TxnRejectedEvent reports an operational entry failing review.
type TxnRejectedEvent struct {
	TxnID       uuid.UUID     `json:"txn_id"`
	ReferenceNo string        `json:"reference_no"`
	Kind        enums.TxnKind `json:"kind"`
	Amount      int64         `json:"amount"`
	RejectedBy  string        `json:"rejected_by"`
	RejectedAt  time.Time     `json:"rejected_at"`
}
