package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// FinanceBudget plans an income or expense amount for an account over a
// period. A nil CashBankID means the budget covers the account across all
// cash/bank accounts.
type FinanceBudget struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PeriodStart time.Time        `gorm:"column:period_start;type:date;not null"`
	PeriodEnd   time.Time        `gorm:"column:period_end;type:date;not null"`
	Kind        enums.BudgetKind `gorm:"column:kind;type:budget_kind_enum;not null"`
	Amount      int64            `gorm:"column:amount;not null"`
	AccountID   uuid.UUID        `gorm:"column:account_id;type:uuid;not null;index"`
	CashBankID  *uuid.UUID       `gorm:"column:cash_bank_id;type:uuid"`
	Notes       string           `gorm:"column:notes"`
	CreatedBy   string           `gorm:"column:created_by;not null"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
