package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// OperationalTxn is one operational ledger entry. ReferenceNo is globally
// unique and doubles as the idempotency key for postings; transfer legs
// reference each other through TransferPairID.
type OperationalTxn struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TxnDate        time.Time            `gorm:"column:txn_date;type:date;not null;index"`
	Kind           enums.TxnKind        `gorm:"column:kind;type:txn_kind_enum;not null"`
	Amount         int64                `gorm:"column:amount;not null"`
	AccountID      uuid.UUID            `gorm:"column:account_id;type:uuid;not null;index"`
	CashBankID     uuid.UUID            `gorm:"column:cash_bank_id;type:uuid;not null;index"`
	ReferenceNo    string               `gorm:"column:reference_no;uniqueIndex;not null"`
	Description    string               `gorm:"column:description"`
	ApprovalStatus enums.ApprovalStatus `gorm:"column:approval_status;type:approval_status_enum;not null;default:pending"`
	TransferPairID *uuid.UUID           `gorm:"column:transfer_pair_id;type:uuid"`
	CreatedBy      string               `gorm:"column:created_by;not null"`
	CheckedBy      *string              `gorm:"column:checked_by"`
	CheckedAt      *time.Time           `gorm:"column:checked_at"`
	ApprovedBy     *string              `gorm:"column:approved_by"`
	ApprovedAt     *time.Time           `gorm:"column:approved_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
