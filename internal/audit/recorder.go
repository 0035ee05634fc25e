package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/logger"
)

// Recorder appends audit rows outside the business transaction. Failures are
// logged and swallowed: an audit outage must never roll back a settled
// payment.
type Recorder struct {
	db   *gorm.DB
	logg *logger.Logger
}

func NewRecorder(db *gorm.DB, logg *logger.Logger) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("audit db handle required")
	}
	return &Recorder{db: db, logg: logg}, nil
}

// Record serializes the typed event payload and appends one audit row.
func (r *Recorder) Record(ctx context.Context, actorID string, event Event) {
	if event == nil {
		return
	}
	if actorID == "" {
		actorID = "system"
	}

	meta, err := json.Marshal(event)
	if err != nil {
		r.warn(ctx, "audit.marshal_failed", err)
		return
	}

	row := models.AuditLog{
		ID:       uuid.New(),
		ActorID:  actorID,
		Action:   event.Action(),
		Entity:   event.Entity(),
		EntityID: event.EntityID(),
		Metadata: meta,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.warn(ctx, "audit.write_failed", err)
	}
}

func (r *Recorder) warn(ctx context.Context, msg string, err error) {
	if r.logg == nil {
		return
	}
	r.logg.Error(ctx, msg, err)
}
