package budget

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// ListFilter narrows budget listings. Nil fields are skipped.
type ListFilter struct {
	From       *time.Time
	To         *time.Time
	Kind       *enums.BudgetKind
	AccountID  *uuid.UUID
	CashBankID *uuid.UUID
}

// ActualRow is one approved-transaction aggregate grouped by kind, account
// and cash/bank account.
type ActualRow struct {
	Kind       enums.TxnKind
	AccountID  uuid.UUID
	CashBankID uuid.UUID
	Total      int64
}

// Repository persists finance budgets and aggregates realized amounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, budget *models.FinanceBudget) error
	Update(ctx context.Context, budget *models.FinanceBudget) error
	Delete(ctx context.Context, budgetID uuid.UUID) error
	FindByID(ctx context.Context, budgetID uuid.UUID) (*models.FinanceBudget, error)
	List(ctx context.Context, filter ListFilter) ([]models.FinanceBudget, error)
	ListOverlapping(ctx context.Context, from, to time.Time) ([]models.FinanceBudget, error)
	SumApprovedActuals(ctx context.Context, from, to time.Time) ([]ActualRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, budget *models.FinanceBudget) error {
	return r.db.WithContext(ctx).Create(budget).Error
}

func (r *repository) Update(ctx context.Context, budget *models.FinanceBudget) error {
	return r.db.WithContext(ctx).Save(budget).Error
}

func (r *repository) Delete(ctx context.Context, budgetID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.FinanceBudget{}, "id = ?", budgetID).Error
}

func (r *repository) FindByID(ctx context.Context, budgetID uuid.UUID) (*models.FinanceBudget, error) {
	var budget models.FinanceBudget
	err := r.db.WithContext(ctx).First(&budget, "id = ?", budgetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.FinanceBudget, error) {
	query := r.db.WithContext(ctx).Model(&models.FinanceBudget{})
	if filter.From != nil {
		query = query.Where("period_end >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("period_start <= ?", *filter.To)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.CashBankID != nil {
		query = query.Where("cash_bank_id = ?", *filter.CashBankID)
	}

	var budgets []models.FinanceBudget
	if err := query.Order("period_start ASC, created_at ASC").Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *repository) ListOverlapping(ctx context.Context, from, to time.Time) ([]models.FinanceBudget, error) {
	var budgets []models.FinanceBudget
	err := r.db.WithContext(ctx).
		Where("period_start <= ? AND period_end >= ?", to, from).
		Order("period_start ASC, created_at ASC").
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// SumApprovedActuals aggregates approved income and expense entries in the
// range. Transfer legs move money between cash/bank accounts and are not
// realized income or spend, so they are excluded.
func (r *repository) SumApprovedActuals(ctx context.Context, from, to time.Time) ([]ActualRow, error) {
	var rows []ActualRow
	err := r.db.WithContext(ctx).
		Model(&models.OperationalTxn{}).
		Select("kind, account_id, cash_bank_id, SUM(amount) AS total").
		Where("approval_status = ?", enums.ApprovalStatusApproved).
		Where("kind IN ?", []enums.TxnKind{enums.TxnKindIncome, enums.TxnKindExpense}).
		Where("txn_date >= ? AND txn_date <= ?", from, to).
		Group("kind, account_id, cash_bank_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
