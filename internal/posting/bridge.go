package posting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/internal/accounts"
	"github.com/robertrullyp/drsis-finance/internal/ledger"
	"github.com/robertrullyp/drsis-finance/internal/periodlock"
	"github.com/robertrullyp/drsis-finance/pkg/config"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
)

// PaymentMarker is the idempotency reference number tying a ledger entry to
// an invoice payment.
func PaymentMarker(paymentID uuid.UUID) string {
	return "INVPAY:" + paymentID.String()
}

// RefundMarker is the idempotency reference number tying a ledger entry to a
// payment refund.
func RefundMarker(refundID uuid.UUID) string {
	return "INVREF:" + refundID.String()
}

// Bridge mirrors settled invoice money movements into the operational
// ledger. Both Post methods run on the caller's transaction handle so the
// ledger entry, the balance adjustment, and the invoice mutation commit or
// roll back together.
type Bridge struct {
	ledgerRepo   ledger.Repository
	accountsRepo accounts.Repository
	lockRepo     periodlock.Repository
	cfg          config.PostingConfig
}

// NewBridge constructs the posting bridge.
func NewBridge(ledgerRepo ledger.Repository, accountsRepo accounts.Repository, lockRepo periodlock.Repository, cfg config.PostingConfig) (*Bridge, error) {
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if accountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if lockRepo == nil {
		return nil, fmt.Errorf("period lock repository required")
	}
	return &Bridge{
		ledgerRepo:   ledgerRepo,
		accountsRepo: accountsRepo,
		lockRepo:     lockRepo,
		cfg:          cfg,
	}, nil
}

// PostPayment records an INCOME entry for a ledger-eligible payment. The
// entry lands pre-approved and the cash/bank balance moves in the same
// transaction. Calling it again for the same payment is a no-op returning
// the existing row.
func (b *Bridge) PostPayment(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, payment *models.InvoicePayment, actorID string) (*models.OperationalTxn, error) {
	if !payment.Method.LedgerEligible() {
		return nil, nil
	}
	description := fmt.Sprintf("Invoice %s payment (%s)", invoice.Code, payment.Method)
	return b.post(ctx, tx, postRequest{
		marker:      PaymentMarker(payment.ID),
		kind:        enums.TxnKindIncome,
		amount:      payment.Amount,
		date:        payment.PaidAt,
		method:      payment.Method,
		description: description,
		actorID:     actorID,
	})
}

// PostRefund records an EXPENSE entry for a refund of a ledger-eligible
// payment, idempotent per refund id.
func (b *Bridge) PostRefund(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, payment *models.InvoicePayment, refund *models.PaymentRefund, actorID string) (*models.OperationalTxn, error) {
	if !payment.Method.LedgerEligible() {
		return nil, nil
	}
	description := fmt.Sprintf("Invoice %s refund (%s)", invoice.Code, payment.Method)
	return b.post(ctx, tx, postRequest{
		marker:      RefundMarker(refund.ID),
		kind:        enums.TxnKindExpense,
		amount:      refund.Amount,
		date:        refund.CreatedAt,
		method:      payment.Method,
		refund:      true,
		description: description,
		actorID:     actorID,
	})
}

type postRequest struct {
	marker      string
	kind        enums.TxnKind
	amount      int64
	date        time.Time
	method      enums.PaymentMethod
	refund      bool
	description string
	actorID     string
}

func (b *Bridge) post(ctx context.Context, tx *gorm.DB, req postRequest) (*models.OperationalTxn, error) {
	if req.amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	txLedger := b.ledgerRepo.WithTx(tx)
	txAccounts := b.accountsRepo.WithTx(tx)

	existing, err := txLedger.FindByReferenceNo(ctx, req.marker)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: look up posting marker")
	}
	if existing != nil {
		return existing, nil
	}

	date := periodlock.DateOf(req.date)
	if err := periodlock.AssertUnlocked(ctx, b.lockRepo.WithTx(tx), date); err != nil {
		return nil, err
	}

	account, err := b.resolveAccount(ctx, txAccounts, req.method, req.refund)
	if err != nil {
		return nil, err
	}
	cashBank, err := b.resolveCashBank(ctx, txAccounts, req.method)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	txn := &models.OperationalTxn{
		ID:             uuid.New(),
		TxnDate:        date,
		Kind:           req.kind,
		Amount:         req.amount,
		AccountID:      account.ID,
		CashBankID:     cashBank.ID,
		ReferenceNo:    req.marker,
		Description:    req.description,
		ApprovalStatus: enums.ApprovalStatusApproved,
		CreatedBy:      req.actorID,
		CheckedBy:      &req.actorID,
		CheckedAt:      &now,
		ApprovedBy:     &req.actorID,
		ApprovedAt:     &now,
	}
	if err := txLedger.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert posting entry")
	}

	delta := req.kind.BalanceSign() * req.amount
	if err := txAccounts.AdjustCashBankBalance(ctx, cashBank.ID, delta); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust cash/bank balance")
	}
	return txn, nil
}

// resolveAccount upserts the configured target account by code. A code that
// exists but was deactivated fails the posting rather than silently
// reactivating the account.
func (b *Bridge) resolveAccount(ctx context.Context, repo accounts.Repository, method enums.PaymentMethod, refund bool) (*models.FinanceAccount, error) {
	code, name, accType := b.accountFor(method, refund)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no posting account configured for method "+string(method))
	}

	account, err := repo.FindAccountByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load posting account")
	}
	if account == nil {
		account = &models.FinanceAccount{
			ID:     uuid.New(),
			Code:   code,
			Name:   name,
			Type:   accType,
			Active: true,
		}
		if err := repo.CreateAccount(ctx, account); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create posting account")
		}
		return account, nil
	}
	if !account.Active {
		return nil, pkgerrors.New(pkgerrors.CodeAccountInactive, "posting account "+code+" is inactive")
	}
	return account, nil
}

func (b *Bridge) resolveCashBank(ctx context.Context, repo accounts.Repository, method enums.PaymentMethod) (*models.CashBankAccount, error) {
	code, name, cbType := b.cashBankFor(method)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no cash/bank account configured for method "+string(method))
	}

	cashBank, err := repo.FindCashBankByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load posting cash/bank account")
	}
	if cashBank == nil {
		cashBank = &models.CashBankAccount{
			ID:     uuid.New(),
			Code:   code,
			Name:   name,
			Type:   cbType,
			Active: true,
		}
		if err := repo.CreateCashBank(ctx, cashBank); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create posting cash/bank account")
		}
		return cashBank, nil
	}
	if !cashBank.Active {
		return nil, pkgerrors.New(pkgerrors.CodeAccountInactive, "cash/bank account "+code+" is inactive")
	}
	return cashBank, nil
}

func (b *Bridge) accountFor(method enums.PaymentMethod, refund bool) (string, string, enums.FinanceAccountType) {
	if refund {
		return b.cfg.RefundAccountCode, "Invoice refunds", enums.FinanceAccountTypeExpense
	}
	switch method {
	case enums.PaymentMethodCash:
		return b.cfg.CashAccountCode, "Invoice receipts (cash)", enums.FinanceAccountTypeIncome
	case enums.PaymentMethodTransfer:
		return b.cfg.TransferAccountCode, "Invoice receipts (transfer)", enums.FinanceAccountTypeIncome
	case enums.PaymentMethodGateway:
		return b.cfg.GatewayAccountCode, "Invoice receipts (gateway)", enums.FinanceAccountTypeIncome
	default:
		return "", "", ""
	}
}

func (b *Bridge) cashBankFor(method enums.PaymentMethod) (string, string, enums.CashBankType) {
	switch method {
	case enums.PaymentMethodCash:
		return b.cfg.CashCashBankCode, "Front office cash", enums.CashBankTypeCash
	case enums.PaymentMethodTransfer:
		return b.cfg.TransferCashBankCode, "Operational bank", enums.CashBankTypeBank
	case enums.PaymentMethodGateway:
		return b.cfg.GatewayCashBankCode, "Payment gateway settlement", enums.CashBankTypeBank
	default:
		return "", "", ""
	}
}
