package models

import (
	"time"

	"github.com/google/uuid"
)

// FinancePeriodLock closes the inclusive [StartsOn, EndsOn] window to new or
// edited ledger entries.
type FinancePeriodLock struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StartsOn  time.Time `gorm:"column:starts_on;type:date;not null"`
	EndsOn    time.Time `gorm:"column:ends_on;type:date;not null"`
	Reason    string    `gorm:"column:reason;not null"`
	CreatedBy string    `gorm:"column:created_by;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
