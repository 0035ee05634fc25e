package periodlock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/internal/audit"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
)

func setupLockTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:periodlock_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS finance_period_locks (
  id TEXT PRIMARY KEY,
  starts_on DATE NOT NULL,
  ends_on DATE NOT NULL,
  reason TEXT NOT NULL,
  created_by TEXT NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS audit_logs (
  id TEXT PRIMARY KEY,
  actor_id TEXT NOT NULL,
  action TEXT NOT NULL,
  entity TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

func newLockService(t *testing.T) (Service, Repository) {
	t.Helper()

	conn := setupLockTestDB(t)
	repo := NewRepository(conn)
	auditor, err := audit.NewRecorder(conn, nil)
	require.NoError(t, err)
	svc, err := NewService(repo, auditor)
	require.NoError(t, err)
	return svc, repo
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLockValidatesWindow(t *testing.T) {
	svc, _ := newLockService(t)
	ctx := context.Background()

	_, err := svc.Lock(ctx, "admin-01", LockInput{
		StartsOn: date(2026, 2, 1),
		EndsOn:   date(2026, 1, 1),
		Reason:   "backwards",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Lock(ctx, "admin-01", LockInput{
		StartsOn: date(2026, 1, 1),
		EndsOn:   date(2026, 1, 31),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestLockRejectsOverlap(t *testing.T) {
	svc, _ := newLockService(t)
	ctx := context.Background()

	_, err := svc.Lock(ctx, "admin-01", LockInput{
		StartsOn: date(2026, 1, 1),
		EndsOn:   date(2026, 1, 31),
		Reason:   "January close",
	})
	require.NoError(t, err)

	_, err = svc.Lock(ctx, "admin-01", LockInput{
		StartsOn: date(2026, 1, 31),
		EndsOn:   date(2026, 2, 28),
		Reason:   "overlapping",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	_, err = svc.Lock(ctx, "admin-01", LockInput{
		StartsOn: date(2026, 2, 1),
		EndsOn:   date(2026, 2, 28),
		Reason:   "February close",
	})
	require.NoError(t, err)
}

func TestAssertUnlocked(t *testing.T) {
	svc, repo := newLockService(t)
	ctx := context.Background()

	lock, err := svc.Lock(ctx, "admin-01", LockInput{
		StartsOn: date(2026, 1, 1),
		EndsOn:   date(2026, 1, 31),
		Reason:   "January close",
	})
	require.NoError(t, err)

	// Boundary dates are inside the window.
	err = AssertUnlocked(ctx, repo, date(2026, 1, 1))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePeriodLocked))
	err = AssertUnlocked(ctx, repo, date(2026, 1, 31))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePeriodLocked))
	err = AssertUnlocked(ctx, repo, time.Date(2026, 1, 15, 13, 45, 0, 0, time.UTC))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodePeriodLocked))

	require.NoError(t, AssertUnlocked(ctx, repo, date(2025, 12, 31)))
	require.NoError(t, AssertUnlocked(ctx, repo, date(2026, 2, 1)))

	require.NoError(t, svc.Unlock(ctx, "admin-01", lock.ID))
	require.NoError(t, AssertUnlocked(ctx, repo, date(2026, 1, 15)))
}

func TestUnlockMissingLock(t *testing.T) {
	svc, _ := newLockService(t)
	err := svc.Unlock(context.Background(), "admin-01", uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
