package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// AuditLog is an append-only record of who changed what. Writes are
// best-effort; a failed audit insert is logged and never fails the business
// transaction.
type AuditLog struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID   string            `gorm:"column:actor_id;not null;index"`
	Action    enums.AuditAction `gorm:"column:action;type:audit_action_enum;not null"`
	Entity    string            `gorm:"column:entity;not null;index"`
	EntityID  uuid.UUID         `gorm:"column:entity_id;type:uuid;not null"`
	Metadata  json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
