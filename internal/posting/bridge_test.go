package posting

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
	"github.com/robertrullyp/drsis-finance/internal/ledger"
	"github.com/robertrullyp/drsis-finance/internal/periodlock"
	"github.com/robertrullyp/drsis-finance/pkg/config"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
)

func setupPostingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:posting_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
  reference_no TEXT NOT NULL,
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
CREATE UNIQUE INDEX IF NOT EXISTS idx_operational_txns_reference_no ON operational_txns(reference_no);
CREATE TABLE IF NOT EXISTS finance_period_locks (
  id TEXT PRIMARY KEY,
  starts_on DATE NOT NULL,
  ends_on DATE NOT NULL,
  reason TEXT NOT NULL,
  created_by TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

func testPostingConfig() config.PostingConfig {
	return config.PostingConfig{
		RefundAccountCode:    "5-9001",
		CashAccountCode:      "4-1001",
		CashCashBankCode:     "KAS-01",
		TransferAccountCode:  "4-1002",
		TransferCashBankCode: "BANK-01",
		GatewayAccountCode:   "4-1003",
		GatewayCashBankCode:  "BANK-02",
	}
}

func newTestBridge(t *testing.T) (*Bridge, *gorm.DB, accounts.Repository) {
	t.Helper()

	conn := setupPostingTestDB(t)
	accountsRepo := accounts.NewRepository(conn)
	bridge, err := NewBridge(ledger.NewRepository(conn), accountsRepo, periodlock.NewRepository(conn), testPostingConfig())
	require.NoError(t, err)
	return bridge, conn, accountsRepo
}

func testInvoice() *models.Invoice {
	return &models.Invoice{
		ID:        uuid.New(),
		Code:      "INV-2026-0001",
		StudentID: uuid.New(),
		PeriodID:  uuid.New(),
		DueDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy: "staff-1",
	}
}

func cashPayment(invoiceID uuid.UUID, amount int64) *models.InvoicePayment {
	return &models.InvoicePayment{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Amount:    amount,
		Method:    enums.PaymentMethodCash,
		PaidAt:    time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		CreatedBy: "staff-1",
	}
}

func TestPostPaymentCreatesApprovedEntry(t *testing.T) {
	ctx := context.Background()
	bridge, conn, accountsRepo := newTestBridge(t)

	invoice := testInvoice()
	payment := cashPayment(invoice.ID, 400_000)

	var txn *models.OperationalTxn
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = bridge.PostPayment(ctx, tx, invoice, payment, "staff-1")
		return err
	}))

	require.NotNil(t, txn)
	assert.Equal(t, "INVPAY:"+payment.ID.String(), txn.ReferenceNo)
	assert.Equal(t, enums.TxnKindIncome, txn.Kind)
	assert.Equal(t, enums.ApprovalStatusApproved, txn.ApprovalStatus)
	assert.Equal(t, int64(400_000), txn.Amount)
	require.NotNil(t, txn.ApprovedBy)
	assert.Equal(t, "staff-1", *txn.ApprovedBy)
	require.NotNil(t, txn.CheckedAt)

	account, err := accountsRepo.FindAccountByCode(ctx, "4-1001")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, enums.FinanceAccountTypeIncome, account.Type)
	assert.True(t, account.Active)
	assert.Equal(t, account.ID, txn.AccountID)

	cashBank, err := accountsRepo.FindCashBankByCode(ctx, "KAS-01")
	require.NoError(t, err)
	require.NotNil(t, cashBank)
	assert.Equal(t, enums.CashBankTypeCash, cashBank.Type)
	assert.Equal(t, int64(400_000), cashBank.Balance)
}

func TestPostPaymentIdempotentPerPayment(t *testing.T) {
	ctx := context.Background()
	bridge, conn, accountsRepo := newTestBridge(t)

	invoice := testInvoice()
	payment := cashPayment(invoice.ID, 250_000)

	var first, second *models.OperationalTxn
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = bridge.PostPayment(ctx, tx, invoice, payment, "staff-1")
		return err
	}))
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = bridge.PostPayment(ctx, tx, invoice, payment, "staff-2")
		return err
	}))

	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, conn.Model(&models.OperationalTxn{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	cashBank, err := accountsRepo.FindCashBankByCode(ctx, "KAS-01")
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), cashBank.Balance)
}

func TestPostPaymentSkipsNonLedgerMethods(t *testing.T) {
	ctx := context.Background()
	bridge, conn, _ := newTestBridge(t)

	invoice := testInvoice()
	for _, method := range []enums.PaymentMethod{enums.PaymentMethodScholarship, enums.PaymentMethodAdjustment} {
		payment := cashPayment(invoice.ID, 100_000)
		payment.Method = method

		var txn *models.OperationalTxn
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			var err error
			txn, err = bridge.PostPayment(ctx, tx, invoice, payment, "staff-1")
			return err
		}))
		assert.Nil(t, txn)
	}

	var count int64
	require.NoError(t, conn.Model(&models.OperationalTxn{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPostRefundWritesExpenseEntry(t *testing.T) {
	ctx := context.Background()
	bridge, conn, accountsRepo := newTestBridge(t)

	invoice := testInvoice()
	payment := cashPayment(invoice.ID, 500_000)
	payment.Method = enums.PaymentMethodTransfer
	refund := &models.PaymentRefund{
		ID:          uuid.New(),
		PaymentID:   payment.ID,
		Amount:      150_000,
		Reason:      "overpayment",
		ProcessedBy: "admin-1",
		ProcessedAt: time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		_, err := bridge.PostPayment(ctx, tx, invoice, payment, "staff-1")
		return err
	}))

	var txn *models.OperationalTxn
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = bridge.PostRefund(ctx, tx, invoice, payment, refund, "admin-1")
		return err
	}))

	require.NotNil(t, txn)
	assert.Equal(t, "INVREF:"+refund.ID.String(), txn.ReferenceNo)
	assert.Equal(t, enums.TxnKindExpense, txn.Kind)
	assert.Equal(t, enums.ApprovalStatusApproved, txn.ApprovalStatus)

	account, err := accountsRepo.FindAccountByCode(ctx, "5-9001")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, enums.FinanceAccountTypeExpense, account.Type)

	bank, err := accountsRepo.FindCashBankByCode(ctx, "BANK-01")
	require.NoError(t, err)
	assert.Equal(t, int64(350_000), bank.Balance)
}

func TestPostPaymentRejectsInactiveTargets(t *testing.T) {
	ctx := context.Background()
	bridge, conn, accountsRepo := newTestBridge(t)

	invoice := testInvoice()

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		_, err := bridge.PostPayment(ctx, tx, invoice, cashPayment(invoice.ID, 100_000), "staff-1")
		return err
	}))

	account, err := accountsRepo.FindAccountByCode(ctx, "4-1001")
	require.NoError(t, err)
	account.Active = false
	require.NoError(t, accountsRepo.UpdateAccount(ctx, account))

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, err := bridge.PostPayment(ctx, tx, invoice, cashPayment(invoice.ID, 100_000), "staff-1")
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAccountInactive))

	account.Active = true
	require.NoError(t, accountsRepo.UpdateAccount(ctx, account))
	cashBank, err := accountsRepo.FindCashBankByCode(ctx, "KAS-01")
	require.NoError(t, err)
	cashBank.Active = false
	require.NoError(t, accountsRepo.UpdateCashBank(ctx, cashBank))

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, err := bridge.PostPayment(ctx, tx, invoice, cashPayment(invoice.ID, 100_000), "staff-1")
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAccountInactive))
}

func TestPostPaymentRespectsPeriodLock(t *testing.T) {
	ctx := context.Background()
	bridge, conn, _ := newTestBridge(t)

	lockRepo := periodlock.NewRepository(conn)
	require.NoError(t, lockRepo.Create(ctx, &models.FinancePeriodLock{
		ID:        uuid.New(),
		StartsOn:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Reason:    "january close",
		CreatedBy: "admin-1",
	}))

	invoice := testInvoice()
	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := bridge.PostPayment(ctx, tx, invoice, cashPayment(invoice.ID, 100_000), "staff-1")
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePeriodLocked))

	later := cashPayment(invoice.ID, 100_000)
	later.PaidAt = time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		_, err := bridge.PostPayment(ctx, tx, invoice, later, "staff-1")
		return err
	}))
}
