package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// CashBankAccount tracks a physical cash drawer or bank account. Balance is
// mutated only by approved ledger postings, inside the same transaction that
// writes the ledger row, so it always equals the opening balance plus the
// signed sum of approved entries.
type CashBankAccount struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string             `gorm:"column:code;uniqueIndex;not null"`
	Name           string             `gorm:"column:name;not null"`
	Type           enums.CashBankType `gorm:"column:type;type:cash_bank_type_enum;not null"`
	OpeningBalance int64              `gorm:"column:opening_balance;not null;default:0"`
	Balance        int64              `gorm:"column:balance;not null;default:0"`
	Active         bool               `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
