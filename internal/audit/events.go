package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// Event is one auditable fact. Each kind carries its own typed payload and is
// serialized to JSON only at the persistence boundary.
type Event interface {
	Action() enums.AuditAction
	Entity() string
	EntityID() uuid.UUID
}

// AccountChanged covers chart-of-accounts and cash/bank mutations.
type AccountChanged struct {
	ID     uuid.UUID         `json:"id"`
	Code   string            `json:"code"`
	Verb   enums.AuditAction `json:"-"`
	Table  string            `json:"-"`
	Active bool              `json:"active"`
}

func (e AccountChanged) Action() enums.AuditAction { return e.Verb }
func (e AccountChanged) Entity() string            { return e.Table }
func (e AccountChanged) EntityID() uuid.UUID       { return e.ID }

// TxnChanged covers operational ledger entry lifecycle events.
type TxnChanged struct {
	ID          uuid.UUID            `json:"id"`
	Verb        enums.AuditAction    `json:"-"`
	ReferenceNo string               `json:"reference_no"`
	Kind        enums.TxnKind        `json:"kind"`
	Amount      int64                `json:"amount"`
	Status      enums.ApprovalStatus `json:"status"`
}

func (e TxnChanged) Action() enums.AuditAction { return e.Verb }
func (e TxnChanged) Entity() string            { return "operational_txn" }
func (e TxnChanged) EntityID() uuid.UUID       { return e.ID }

// InvoiceChanged covers invoice creation, discounting, voiding and the
// payment/refund mutations recorded against it.
type InvoiceChanged struct {
	ID      uuid.UUID           `json:"id"`
	Verb    enums.AuditAction   `json:"-"`
	Code    string              `json:"code"`
	Status  enums.InvoiceStatus `json:"status"`
	Due     int64               `json:"due"`
	PaidNet int64               `json:"paid_net"`
}

func (e InvoiceChanged) Action() enums.AuditAction { return e.Verb }
func (e InvoiceChanged) Entity() string            { return "invoice" }
func (e InvoiceChanged) EntityID() uuid.UUID       { return e.ID }

// PostingRecorded marks a settled payment or refund mirrored to the ledger.
type PostingRecorded struct {
	TxnID       uuid.UUID `json:"txn_id"`
	ReferenceNo string    `json:"reference_no"`
	Amount      int64     `json:"amount"`
	SettledAt   time.Time `json:"settled_at"`
}

func (e PostingRecorded) Action() enums.AuditAction { return enums.AuditActionPost }
func (e PostingRecorded) Entity() string            { return "operational_txn" }
func (e PostingRecorded) EntityID() uuid.UUID       { return e.TxnID }

// BudgetChanged covers finance budget CRUD.
type BudgetChanged struct {
	ID     uuid.UUID         `json:"id"`
	Verb   enums.AuditAction `json:"-"`
	Kind   enums.BudgetKind  `json:"kind"`
	Amount int64             `json:"amount"`
}

func (e BudgetChanged) Action() enums.AuditAction { return e.Verb }
func (e BudgetChanged) Entity() string            { return "finance_budget" }
func (e BudgetChanged) EntityID() uuid.UUID       { return e.ID }

// PeriodLockChanged covers lock creation and removal.
type PeriodLockChanged struct {
	ID       uuid.UUID         `json:"id"`
	Verb     enums.AuditAction `json:"-"`
	StartsOn time.Time         `json:"starts_on"`
	EndsOn   time.Time         `json:"ends_on"`
	Reason   string            `json:"reason"`
}

func (e PeriodLockChanged) Action() enums.AuditAction { return e.Verb }
func (e PeriodLockChanged) Entity() string            { return "finance_period_lock" }
func (e PeriodLockChanged) EntityID() uuid.UUID       { return e.ID }
