package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/internal/accounts"
	"github.com/robertrullyp/drsis-finance/internal/audit"
	"github.com/robertrullyp/drsis-finance/internal/ledger"
	"github.com/robertrullyp/drsis-finance/internal/periodlock"
	"github.com/robertrullyp/drsis-finance/internal/posting"
	"github.com/robertrullyp/drsis-finance/pkg/config"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/outbox"
	"github.com/robertrullyp/drsis-finance/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:invoice_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  student_id TEXT NOT NULL,
  period_id TEXT NOT NULL,
  due_date DATE NOT NULL,
  gross_total INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_code ON invoices(code);
CREATE TABLE IF NOT EXISTS invoice_items (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  name TEXT NOT NULL,
  amount INTEGER NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS invoice_discounts (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  name TEXT NOT NULL,
  amount INTEGER NOT NULL,
  reason TEXT,
  created_by TEXT NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS invoice_payments (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  amount INTEGER NOT NULL,
  method TEXT NOT NULL,
  paid_at DATETIME NOT NULL,
  created_by TEXT NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS payment_refunds (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL,
  amount INTEGER NOT NULL,
  reason TEXT,
  processed_by TEXT NOT NULL,
  processed_at DATETIME NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS finance_accounts (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  category TEXT,
  parent_id TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS cash_bank_accounts (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  opening_balance INTEGER NOT NULL DEFAULT 0,
  balance INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS operational_txns (
  id TEXT PRIMARY KEY,
  txn_date DATE NOT NULL,
  kind TEXT NOT NULL,
  amount INTEGER NOT NULL,
  account_id TEXT NOT NULL,
  cash_bank_id TEXT NOT NULL,
  reference_no TEXT NOT NULL UNIQUE,
  description TEXT,
  approval_status TEXT NOT NULL DEFAULT 'pending',
  transfer_pair_id TEXT,
  created_by TEXT NOT NULL,
  checked_by TEXT,
  checked_at DATETIME,
  approved_by TEXT,
  approved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
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
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

type invoiceFixture struct {
	svc  Service
	conn *gorm.DB
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()

	conn := setupInvoiceTestDB(t)
	accountsRepo := accounts.NewRepository(conn)
	lockRepo := periodlock.NewRepository(conn)
	bridge, err := posting.NewBridge(ledger.NewRepository(conn), accountsRepo, lockRepo, config.PostingConfig{
		RefundAccountCode:    "5-9001",
		CashAccountCode:      "4-1001",
		CashCashBankCode:     "KAS-01",
		TransferAccountCode:  "4-1002",
		TransferCashBankCode: "BANK-01",
		GatewayAccountCode:   "4-1003",
		GatewayCashBankCode:  "BANK-02",
	})
	require.NoError(t, err)

	auditor, err := audit.NewRecorder(conn, nil)
	require.NoError(t, err)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(NewRepository(conn), bridge, gormTxRunner{db: conn}, emitter, auditor)
	require.NoError(t, err)

	return &invoiceFixture{svc: svc, conn: conn}
}

func (f *invoiceFixture) createInvoice(t *testing.T, code string, amounts ...int64) *Result {
	t.Helper()

	items := make([]ItemInput, 0, len(amounts))
	for i, amount := range amounts {
		items = append(items, ItemInput{Name: "Item " + string(rune('A'+i)), Amount: amount})
	}
	result, err := f.svc.Create(context.Background(), "staff-1", CreateInput{
		Code:      code,
		StudentID: uuid.New(),
		PeriodID:  uuid.New(),
		DueDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Items:     items,
	})
	require.NoError(t, err)
	return result
}

func (f *invoiceFixture) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestCreateInvoiceFixesGross(t *testing.T) {
	f := newInvoiceFixture(t)

	result := f.createInvoice(t, "INV-2026-0001", 600_000, 400_000)
	assert.Equal(t, int64(1_000_000), result.Invoice.GrossTotal)
	assert.Equal(t, enums.InvoiceStatusOpen, result.Invoice.Status)
	assert.Equal(t, int64(1_000_000), result.Balance.Due)
	assert.Len(t, result.Invoice.Items, 2)

	_, err := f.svc.Create(context.Background(), "staff-1", CreateInput{
		Code:      "INV-2026-0001",
		StudentID: uuid.New(),
		PeriodID:  uuid.New(),
		DueDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Items:     []ItemInput{{Name: "Dup", Amount: 1}},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.Create(context.Background(), "staff-1", CreateInput{
		Code:      "INV-2026-0002",
		StudentID: uuid.New(),
		PeriodID:  uuid.New(),
		DueDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestPartialPaymentFlow(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t)

	created := f.createInvoice(t, "INV-2026-0010", 1_000_000)

	result, err := f.svc.AddPayment(ctx, "staff-1", created.Invoice.ID, PaymentInput{
		Amount: 400_000,
		Method: enums.PaymentMethodCash,
		PaidAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPartial, result.Invoice.Status)
	assert.Equal(t, int64(600_000), result.Balance.Due)
	assert.Equal(t, int64(400_000), result.Balance.PaidNet)

	result, err = f.svc.AddPayment(ctx, "staff-1", created.Invoice.ID, PaymentInput{
		Amount: 600_000,
		Method: enums.PaymentMethodTransfer,
		PaidAt: time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPaid, result.Invoice.Status)
	assert.Zero(t, result.Balance.Due)

	assert.Equal(t, int64(2), f.outboxCount(t, enums.EventPaymentReceived))
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventInvoiceSettled))

	var txnCount int64
	require.NoError(t, f.conn.Model(&models.OperationalTxn{}).Count(&txnCount).Error)
	assert.Equal(t, int64(2), txnCount)

	accountsRepo := accounts.NewRepository(f.conn)
	cash, err := accountsRepo.FindCashBankByCode(ctx, "KAS-01")
	require.NoError(t, err)
	assert.Equal(t, int64(400_000), cash.Balance)
	bank, err := accountsRepo.FindCashBankByCode(ctx, "BANK-01")
	require.NoError(t, err)
	assert.Equal(t, int64(600_000), bank.Balance)
}

func TestScholarshipPaymentStaysInvoiceOnly(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t)

	created := f.createInvoice(t, "INV-2026-0020", 500_000)
	result, err := f.svc.AddPayment(ctx, "staff-1", created.Invoice.ID, PaymentInput{
		Amount: 500_000,
		Method: enums.PaymentMethodScholarship,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPaid, result.Invoice.Status)

	var txnCount int64
	require.NoError(t, f.conn.Model(&models.OperationalTxn{}).Count(&txnCount).Error)
	assert.Zero(t, txnCount)
}

func TestFullDiscountSettlesInvoice(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t)

	created := f.createInvoice(t, "INV-2026-0030", 300_000)
	result, err := f.svc.AddDiscount(ctx, "admin-1", created.Invoice.ID, DiscountInput{
		Name:   "Full scholarship",
		Amount: 300_000,
		Reason: "foundation grant",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPaid, result.Invoice.Status)
	assert.Zero(t, result.Balance.NetTotal)
	assert.Zero(t, result.Balance.Due)
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventInvoiceSettled))
}

func TestRefundReopensInvoice(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t)

	created := f.createInvoice(t, "INV-2026-0040", 1_000_000)
	paid, err := f.svc.AddPayment(ctx, "staff-1", created.Invoice.ID, PaymentInput{
		Amount: 1_000_000,
		Method: enums.PaymentMethodCash,
		PaidAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, enums.InvoiceStatusPaid, paid.Invoice.Status)
	paymentID := paid.Invoice.Payments[0].ID

	result, err := f.svc.AddRefund(ctx, "admin-1", created.Invoice.ID, paymentID, RefundInput{
		Amount: 250_000,
		Reason: "billing correction",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPartial, result.Invoice.Status)
	assert.Equal(t, int64(250_000), result.Balance.Due)
	assert.Equal(t, int64(750_000), result.Balance.PaidNet)

	accountsRepo := accounts.NewRepository(f.conn)
	cash, err := accountsRepo.FindCashBankByCode(ctx, "KAS-01")
	require.NoError(t, err)
	assert.Equal(t, int64(750_000), cash.Balance)
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventRefundRecorded))

	_, err = f.svc.AddRefund(ctx, "admin-1", created.Invoice.ID, paymentID, RefundInput{
		Amount: 800_000,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRefundRequiresPaymentOnInvoice(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t)

	created := f.createInvoice(t, "INV-2026-0050", 100_000)
	_, err := f.svc.AddRefund(ctx, "admin-1", created.Invoice.ID, uuid.New(), RefundInput{Amount: 50_000})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestVoidIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t)

	created := f.createInvoice(t, "INV-2026-0060", 200_000)
	result, err := f.svc.Void(ctx, "admin-1", created.Invoice.ID, "duplicate billing")
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusVoid, result.Invoice.Status)
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventInvoiceVoided))

	// A second void is a no-op and emits nothing new.
	result, err = f.svc.Void(ctx, "admin-1", created.Invoice.ID, "again")
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusVoid, result.Invoice.Status)
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventInvoiceVoided))

	_, err = f.svc.AddPayment(ctx, "staff-1", created.Invoice.ID, PaymentInput{
		Amount: 100_000,
		Method: enums.PaymentMethodCash,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.AddDiscount(ctx, "staff-1", created.Invoice.ID, DiscountInput{Name: "late", Amount: 1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestPaymentBlockedByPeriodLock(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t)

	lockRepo := periodlock.NewRepository(f.conn)
	require.NoError(t, lockRepo.Create(ctx, &models.FinancePeriodLock{
		ID:        uuid.New(),
		StartsOn:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Reason:    "january close",
		CreatedBy: "admin-1",
	}))

	created := f.createInvoice(t, "INV-2026-0070", 100_000)
	_, err := f.svc.AddPayment(ctx, "staff-1", created.Invoice.ID, PaymentInput{
		Amount: 100_000,
		Method: enums.PaymentMethodCash,
		PaidAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePeriodLocked))

	// The rolled-back payment leaves no partial state behind.
	var paymentCount int64
	require.NoError(t, f.conn.Model(&models.InvoicePayment{}).Count(&paymentCount).Error)
	assert.Zero(t, paymentCount)

	fresh, err := f.svc.Get(ctx, created.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusOpen, fresh.Invoice.Status)
	assert.Equal(t, int64(100_000), fresh.Balance.Due)
}

func TestListInvoicesFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t)

	student := uuid.New()
	for i := 0; i < 3; i++ {
		result, err := f.svc.Create(ctx, "staff-1", CreateInput{
			Code:      "INV-LIST-" + string(rune('0'+i)),
			StudentID: student,
			PeriodID:  uuid.New(),
			DueDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			Items:     []ItemInput{{Name: "Tuition", Amount: 100_000}},
		})
		require.NoError(t, err)
		require.NotNil(t, result)
	}
	f.createInvoice(t, "INV-OTHER-1", 50_000)

	invoices, _, err := f.svc.List(ctx, ListFilter{StudentID: &student}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, invoices, 3)

	open := enums.InvoiceStatusOpen
	invoices, _, err = f.svc.List(ctx, ListFilter{Status: &open}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
}

func TestListInvoicesTreatsBlankCursorAsFirstPage(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t)

	f.createInvoice(t, "INV-CUR-1", 100_000)
	f.createInvoice(t, "INV-CUR-2", 100_000)

	invoices, _, err := f.svc.List(ctx, ListFilter{}, pagination.Params{Cursor: "  ", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, invoices, 2)

	_, _, err = f.svc.List(ctx, ListFilter{}, pagination.Params{Cursor: "not-a-cursor", Limit: 10})
	require.Error(t, err)
}
