package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/pkg/db/models"
)

// Repository manages persistence for the chart of accounts and the cash/bank
// registry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateAccount(ctx context.Context, account *models.FinanceAccount) error
	UpdateAccount(ctx context.Context, account *models.FinanceAccount) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	FindAccountByID(ctx context.Context, id uuid.UUID) (*models.FinanceAccount, error)
	FindAccountByCode(ctx context.Context, code string) (*models.FinanceAccount, error)
	ListAccounts(ctx context.Context) ([]models.FinanceAccount, error)
	CountAccounts(ctx context.Context) (int64, error)
	CountChildren(ctx context.Context, id uuid.UUID) (int64, error)
	CountPostings(ctx context.Context, accountID uuid.UUID) (int64, error)

	CreateCashBank(ctx context.Context, account *models.CashBankAccount) error
	UpdateCashBank(ctx context.Context, account *models.CashBankAccount) error
	FindCashBankByID(ctx context.Context, id uuid.UUID) (*models.CashBankAccount, error)
	FindCashBankByCode(ctx context.Context, code string) (*models.CashBankAccount, error)
	ListCashBanks(ctx context.Context) ([]models.CashBankAccount, error)
	AdjustCashBankBalance(ctx context.Context, id uuid.UUID, delta int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAccount(ctx context.Context, account *models.FinanceAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) UpdateAccount(ctx context.Context, account *models.FinanceAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *repository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.FinanceAccount{}, "id = ?", id).Error
}

func (r *repository) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.FinanceAccount, error) {
	var account models.FinanceAccount
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByCode(ctx context.Context, code string) (*models.FinanceAccount, error) {
	var account models.FinanceAccount
	err := r.db.WithContext(ctx).First(&account, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) ListAccounts(ctx context.Context) ([]models.FinanceAccount, error) {
	var accounts []models.FinanceAccount
	err := r.db.WithContext(ctx).
		Order("code ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *repository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FinanceAccount{}).Count(&count).Error
	return count, err
}

func (r *repository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FinanceAccount{}).
		Where("parent_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *repository) CountPostings(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OperationalTxn{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateCashBank(ctx context.Context, account *models.CashBankAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) UpdateCashBank(ctx context.Context, account *models.CashBankAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *repository) FindCashBankByID(ctx context.Context, id uuid.UUID) (*models.CashBankAccount, error) {
	var account models.CashBankAccount
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindCashBankByCode(ctx context.Context, code string) (*models.CashBankAccount, error) {
	var account models.CashBankAccount
	err := r.db.WithContext(ctx).First(&account, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) ListCashBanks(ctx context.Context) ([]models.CashBankAccount, error) {
	var accounts []models.CashBankAccount
	err := r.db.WithContext(ctx).
		Order("code ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *repository) AdjustCashBankBalance(ctx context.Context, id uuid.UUID, delta int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.CashBankAccount{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
