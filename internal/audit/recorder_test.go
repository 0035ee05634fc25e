package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:audit_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS audit_logs (
  id TEXT PRIMARY KEY,
  actor_id TEXT NOT NULL,
  action TEXT NOT NULL,
  entity TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestRecorderWritesTypedPayload(t *testing.T) {
	db := setupAuditTestDB(t)
	rec, err := NewRecorder(db, nil)
	require.NoError(t, err)

	invoiceID := uuid.New()
	rec.Record(context.Background(), "kasir-01", InvoiceChanged{
		ID:     invoiceID,
		Verb:   enums.AuditActionCreate,
		Code:   "INV-2026-0001",
		Status: enums.InvoiceStatusOpen,
		Due:    1_000_000,
	})

	var rows []models.AuditLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "kasir-01", rows[0].ActorID)
	require.Equal(t, enums.AuditActionCreate, rows[0].Action)
	require.Equal(t, "invoice", rows[0].Entity)
	require.Equal(t, invoiceID, rows[0].EntityID)
	require.Contains(t, string(rows[0].Metadata), "INV-2026-0001")
}

func TestRecorderDefaultsActor(t *testing.T) {
	db := setupAuditTestDB(t)
	rec, err := NewRecorder(db, nil)
	require.NoError(t, err)

	rec.Record(context.Background(), "", PostingRecorded{
		TxnID:       uuid.New(),
		ReferenceNo: "INVPAY:abc",
		Amount:      400_000,
	})

	var row models.AuditLog
	require.NoError(t, db.First(&row).Error)
	require.Equal(t, "system", row.ActorID)
	require.Equal(t, enums.AuditActionPost, row.Action)
}

func TestRecorderSwallowsWriteFailures(t *testing.T) {
	db := setupAuditTestDB(t)
	require.NoError(t, db.Exec("DROP TABLE audit_logs").Error)

	rec, err := NewRecorder(db, nil)
	require.NoError(t, err)

	// Must not panic or propagate the failure.
	rec.Record(context.Background(), "kasir-01", TxnChanged{ID: uuid.New(), Verb: enums.AuditActionCreate})
}
