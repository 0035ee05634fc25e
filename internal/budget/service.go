package budget

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/internal/accounts"
	"github.com/robertrullyp/drsis-finance/internal/audit"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
)

// Service manages finance budgets and produces budget-vs-actual reports.
type Service interface {
	Create(ctx context.Context, actorID string, input CreateInput) (*models.FinanceBudget, error)
	Update(ctx context.Context, actorID string, budgetID uuid.UUID, input UpdateInput) (*models.FinanceBudget, error)
	Delete(ctx context.Context, actorID string, budgetID uuid.UUID) error
	Get(ctx context.Context, budgetID uuid.UUID) (*models.FinanceBudget, error)
	List(ctx context.Context, filter ListFilter) ([]models.FinanceBudget, error)
	Report(ctx context.Context, input ReportInput) (*Report, error)
}

// CreateInput holds the validated payload to plan a budget line.
type CreateInput struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Kind        enums.BudgetKind
	Amount      int64
	AccountID   uuid.UUID
	CashBankID  *uuid.UUID
	Notes       string
}

// UpdateInput holds optional mutation values for a budget line.
type UpdateInput struct {
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
	Kind          *enums.BudgetKind
	Amount        *int64
	AccountID     *uuid.UUID
	CashBankID    *uuid.UUID
	ClearCashBank bool
	Notes         *string
}

// ReportInput selects the reporting window. Kind and CashBankID narrow the
// report; a cash/bank filter still includes account-level budget lines since
// those cover every cash/bank account.
type ReportInput struct {
	From       time.Time
	To         time.Time
	Kind       *enums.BudgetKind
	CashBankID *uuid.UUID
}

// ReportRow compares one budget line, or one unbudgeted actual aggregate,
// against realized approved ledger entries.
type ReportRow struct {
	BudgetID     *uuid.UUID       `json:"budgetId,omitempty"`
	Kind         enums.BudgetKind `json:"kind"`
	AccountID    uuid.UUID        `json:"accountId"`
	AccountCode  string           `json:"accountCode"`
	AccountName  string           `json:"accountName"`
	CashBankID   *uuid.UUID       `json:"cashBankId,omitempty"`
	CashBankCode string           `json:"cashBankCode,omitempty"`
	Budget       int64            `json:"budget"`
	Actual       int64            `json:"actual"`
	Variance     int64            `json:"variance"`
	VariancePct  *float64         `json:"variancePct"`
	Notes        string           `json:"notes,omitempty"`
}

// ReportTotals sums the report columns across all rows.
type ReportTotals struct {
	Budget   int64 `json:"budget"`
	Actual   int64 `json:"actual"`
	Variance int64 `json:"variance"`
}

// Report is the budget-vs-actual comparison for a date range.
type Report struct {
	From   time.Time    `json:"from"`
	To     time.Time    `json:"to"`
	Rows   []ReportRow  `json:"rows"`
	Totals ReportTotals `json:"totals"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo         Repository
	accountsRepo accounts.Repository
	tx           txRunner
	auditor      *audit.Recorder
}

// NewService constructs the budget service.
func NewService(repo Repository, accountsRepo accounts.Repository, tx txRunner, auditor *audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("budget repository required")
	}
	if accountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, accountsRepo: accountsRepo, tx: tx, auditor: auditor}, nil
}

func (s *service) Create(ctx context.Context, actorID string, input CreateInput) (*models.FinanceBudget, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid budget kind")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget amount must be positive")
	}
	if input.PeriodEnd.Before(input.PeriodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must not precede period start")
	}

	budget := &models.FinanceBudget{
		ID:          uuid.New(),
		PeriodStart: input.PeriodStart,
		PeriodEnd:   input.PeriodEnd,
		Kind:        input.Kind,
		Amount:      input.Amount,
		AccountID:   input.AccountID,
		CashBankID:  input.CashBankID,
		Notes:       input.Notes,
		CreatedBy:   actorID,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txAccounts := s.accountsRepo.WithTx(tx)
		if _, err := accounts.ValidateFinanceAccount(ctx, txAccounts, input.AccountID); err != nil {
			return err
		}
		if input.CashBankID != nil {
			if _, err := accounts.ValidateCashBank(ctx, txAccounts, *input.CashBankID); err != nil {
				return err
			}
		}
		if err := s.repo.WithTx(tx).Create(ctx, budget); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert budget")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, audit.BudgetChanged{
		ID:     budget.ID,
		Verb:   enums.AuditActionCreate,
		Kind:   budget.Kind,
		Amount: budget.Amount,
	})
	return budget, nil
}

func (s *service) Update(ctx context.Context, actorID string, budgetID uuid.UUID, input UpdateInput) (*models.FinanceBudget, error) {
	var budget *models.FinanceBudget
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txAccounts := s.accountsRepo.WithTx(tx)

		var err error
		budget, err = txRepo.FindByID(ctx, budgetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load budget")
		}
		if budget == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
		}

		if input.PeriodStart != nil {
			budget.PeriodStart = *input.PeriodStart
		}
		if input.PeriodEnd != nil {
			budget.PeriodEnd = *input.PeriodEnd
		}
		if budget.PeriodEnd.Before(budget.PeriodStart) {
			return pkgerrors.New(pkgerrors.CodeValidation, "period end must not precede period start")
		}
		if input.Kind != nil {
			if !input.Kind.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid budget kind")
			}
			budget.Kind = *input.Kind
		}
		if input.Amount != nil {
			if *input.Amount <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "budget amount must be positive")
			}
			budget.Amount = *input.Amount
		}
		if input.AccountID != nil {
			if _, err := accounts.ValidateFinanceAccount(ctx, txAccounts, *input.AccountID); err != nil {
				return err
			}
			budget.AccountID = *input.AccountID
		}
		if input.ClearCashBank {
			budget.CashBankID = nil
		} else if input.CashBankID != nil {
			if _, err := accounts.ValidateCashBank(ctx, txAccounts, *input.CashBankID); err != nil {
				return err
			}
			budget.CashBankID = input.CashBankID
		}
		if input.Notes != nil {
			budget.Notes = *input.Notes
		}

		if err := txRepo.Update(ctx, budget); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update budget")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, audit.BudgetChanged{
		ID:     budget.ID,
		Verb:   enums.AuditActionUpdate,
		Kind:   budget.Kind,
		Amount: budget.Amount,
	})
	return budget, nil
}

func (s *service) Delete(ctx context.Context, actorID string, budgetID uuid.UUID) error {
	var budget *models.FinanceBudget
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		var err error
		budget, err = txRepo.FindByID(ctx, budgetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load budget")
		}
		if budget == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
		}
		if err := txRepo.Delete(ctx, budgetID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete budget")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.auditor.Record(ctx, actorID, audit.BudgetChanged{
		ID:     budget.ID,
		Verb:   enums.AuditActionDelete,
		Kind:   budget.Kind,
		Amount: budget.Amount,
	})
	return nil
}

func (s *service) Get(ctx context.Context, budgetID uuid.UUID) (*models.FinanceBudget, error) {
	budget, err := s.repo.FindByID(ctx, budgetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load budget")
	}
	if budget == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
	}
	return budget, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.FinanceBudget, error) {
	budgets, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list budgets")
	}
	return budgets, nil
}

type actualKey struct {
	kind       enums.TxnKind
	accountID  uuid.UUID
	cashBankID uuid.UUID
}

// Report compares planned budget lines against realized approved ledger
// entries. Budget lines without a cash/bank account match the account-level
// aggregate across every cash/bank account; lines pinned to a cash/bank
// account match exactly. Actual aggregates no budget line claims are
// reported with a zero budget so overspend outside the plan stays visible.
func (s *service) Report(ctx context.Context, input ReportInput) (*Report, error) {
	if input.To.Before(input.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report range end must not precede start")
	}

	budgets, err := s.repo.ListOverlapping(ctx, input.From, input.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load budgets for report")
	}
	actuals, err := s.repo.SumApprovedActuals(ctx, input.From, input.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: aggregate actuals for report")
	}

	exact := make(map[actualKey]int64, len(actuals))
	perAccount := make(map[actualKey]int64, len(actuals))
	for _, row := range actuals {
		if input.CashBankID != nil && row.CashBankID != *input.CashBankID {
			continue
		}
		if input.Kind != nil && row.Kind != input.Kind.TxnKind() {
			continue
		}
		exact[actualKey{kind: row.Kind, accountID: row.AccountID, cashBankID: row.CashBankID}] += row.Total
		perAccount[actualKey{kind: row.Kind, accountID: row.AccountID}] += row.Total
	}

	report := &Report{From: input.From, To: input.To, Rows: make([]ReportRow, 0, len(budgets))}
	claimed := make(map[actualKey]bool, len(exact))
	labels := newLabelCache(s.accountsRepo)

	for i := range budgets {
		budget := &budgets[i]
		if input.Kind != nil && budget.Kind != *input.Kind {
			continue
		}
		if input.CashBankID != nil && budget.CashBankID != nil && *budget.CashBankID != *input.CashBankID {
			continue
		}

		kind := budget.Kind.TxnKind()
		var actual int64
		if budget.CashBankID != nil {
			key := actualKey{kind: kind, accountID: budget.AccountID, cashBankID: *budget.CashBankID}
			actual = exact[key]
			claimed[key] = true
		} else {
			actual = perAccount[actualKey{kind: kind, accountID: budget.AccountID}]
			for key := range exact {
				if key.kind == kind && key.accountID == budget.AccountID {
					claimed[key] = true
				}
			}
		}

		row := ReportRow{
			BudgetID:   &budget.ID,
			Kind:       budget.Kind,
			AccountID:  budget.AccountID,
			CashBankID: budget.CashBankID,
			Budget:     budget.Amount,
			Actual:     actual,
			Variance:   actual - budget.Amount,
			Notes:      budget.Notes,
		}
		row.VariancePct = variancePct(budget.Amount, actual)
		labels.fill(ctx, &row)
		report.Rows = append(report.Rows, row)
	}

	unclaimed := make([]ReportRow, 0)
	for key, total := range exact {
		if claimed[key] || total == 0 {
			continue
		}
		kind := enums.BudgetKindIncome
		if key.kind == enums.TxnKindExpense {
			kind = enums.BudgetKindExpense
		}
		cashBankID := key.cashBankID
		row := ReportRow{
			Kind:       kind,
			AccountID:  key.accountID,
			CashBankID: &cashBankID,
			Budget:     0,
			Actual:     total,
			Variance:   total,
		}
		labels.fill(ctx, &row)
		unclaimed = append(unclaimed, row)
	}
	sort.Slice(unclaimed, func(i, j int) bool {
		if unclaimed[i].Kind != unclaimed[j].Kind {
			return unclaimed[i].Kind < unclaimed[j].Kind
		}
		if unclaimed[i].AccountCode != unclaimed[j].AccountCode {
			return unclaimed[i].AccountCode < unclaimed[j].AccountCode
		}
		return unclaimed[i].CashBankCode < unclaimed[j].CashBankCode
	})
	report.Rows = append(report.Rows, unclaimed...)

	for _, row := range report.Rows {
		report.Totals.Budget += row.Budget
		report.Totals.Actual += row.Actual
		report.Totals.Variance += row.Variance
	}
	return report, nil
}

func variancePct(budget, actual int64) *float64 {
	if budget == 0 {
		return nil
	}
	pct := float64(actual-budget) / float64(budget) * 100
	return &pct
}

// labelCache memoizes account and cash/bank lookups while a report renders.
type labelCache struct {
	repo      accounts.Repository
	accounts  map[uuid.UUID]*models.FinanceAccount
	cashBanks map[uuid.UUID]*models.CashBankAccount
}

func newLabelCache(repo accounts.Repository) *labelCache {
	return &labelCache{
		repo:      repo,
		accounts:  make(map[uuid.UUID]*models.FinanceAccount),
		cashBanks: make(map[uuid.UUID]*models.CashBankAccount),
	}
}

func (c *labelCache) fill(ctx context.Context, row *ReportRow) {
	if account := c.account(ctx, row.AccountID); account != nil {
		row.AccountCode = account.Code
		row.AccountName = account.Name
	}
	if row.CashBankID != nil {
		if cashBank := c.cashBank(ctx, *row.CashBankID); cashBank != nil {
			row.CashBankCode = cashBank.Code
		}
	}
}

func (c *labelCache) account(ctx context.Context, id uuid.UUID) *models.FinanceAccount {
	if account, ok := c.accounts[id]; ok {
		return account
	}
	account, err := c.repo.FindAccountByID(ctx, id)
	if err != nil {
		account = nil
	}
	c.accounts[id] = account
	return account
}

func (c *labelCache) cashBank(ctx context.Context, id uuid.UUID) *models.CashBankAccount {
	if cashBank, ok := c.cashBanks[id]; ok {
		return cashBank
	}
	cashBank, err := c.repo.FindCashBankByID(ctx, id)
	if err != nil {
		cashBank = nil
	}
	c.cashBanks[id] = cashBank
	return cashBank
}
