package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// FinanceAccount is a chart-of-accounts node. Accounts form a tree via
// ParentID; a node may never be its own ancestor.
type FinanceAccount struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string                   `gorm:"column:code;uniqueIndex;not null"`
	Name      string                   `gorm:"column:name;not null"`
	Type      enums.FinanceAccountType `gorm:"column:type;type:finance_account_type_enum;not null"`
	Category  string                   `gorm:"column:category"`
	ParentID  *uuid.UUID               `gorm:"column:parent_id;type:uuid;index"`
	Active    bool                     `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
