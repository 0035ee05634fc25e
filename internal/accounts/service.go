package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/internal/audit"
	"github.com/robertrullyp/drsis-finance/pkg/db"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
)

// Service exposes chart-of-accounts and cash/bank registry management.
type Service interface {
	CreateAccount(ctx context.Context, actorID string, input CreateAccountInput) (*models.FinanceAccount, error)
	UpdateAccount(ctx context.Context, actorID string, accountID uuid.UUID, input UpdateAccountInput) (*models.FinanceAccount, error)
	DeleteAccount(ctx context.Context, actorID string, accountID uuid.UUID) error
	GetAccount(ctx context.Context, accountID uuid.UUID) (*models.FinanceAccount, error)
	ListAccounts(ctx context.Context) ([]models.FinanceAccount, error)

	CreateCashBank(ctx context.Context, actorID string, input CreateCashBankInput) (*models.CashBankAccount, error)
	UpdateCashBank(ctx context.Context, actorID string, cashBankID uuid.UUID, input UpdateCashBankInput) (*models.CashBankAccount, error)
	GetCashBank(ctx context.Context, cashBankID uuid.UUID) (*models.CashBankAccount, error)
	ListCashBanks(ctx context.Context) ([]models.CashBankAccount, error)
}

// CreateAccountInput holds the validated payload to create a finance account.
type CreateAccountInput struct {
	Code     string
	Name     string
	Type     enums.FinanceAccountType
	Category string
	ParentID *uuid.UUID
	Active   bool
}

// UpdateAccountInput holds optional mutation values for a finance account.
type UpdateAccountInput struct {
	Code        *string
	Name        *string
	Type        *enums.FinanceAccountType
	Category    *string
	ParentID    *uuid.UUID
	ClearParent bool
	Active      *bool
}

// CreateCashBankInput holds the validated payload to register a cash drawer or
// bank account.
type CreateCashBankInput struct {
	Code           string
	Name           string
	Type           enums.CashBankType
	OpeningBalance int64
	Active         bool
}

// UpdateCashBankInput holds optional mutation values for a cash/bank account.
// Balance is not part of it; only approved postings move balances.
type UpdateCashBankInput struct {
	Code   *string
	Name   *string
	Type   *enums.CashBankType
	Active *bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    Repository
	tx      txRunner
	auditor *audit.Recorder
}

// NewService constructs an accounts service instance.
func NewService(repo Repository, tx txRunner, auditor *audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, auditor: auditor}, nil
}

// CreateAccount inserts a chart-of-accounts node after checking the code is
// free and the parent, when given, exists.
func (s *service) CreateAccount(ctx context.Context, actorID string, input CreateAccountInput) (*models.FinanceAccount, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code and name are required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid account type")
	}

	account := &models.FinanceAccount{
		ID:       uuid.New(),
		Code:     input.Code,
		Name:     input.Name,
		Type:     input.Type,
		Category: input.Category,
		ParentID: input.ParentID,
		Active:   input.Active,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if input.ParentID != nil {
			parent, err := txRepo.FindAccountByID(ctx, *input.ParentID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load parent account")
			}
			if parent == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "parent account not found")
			}
		}
		if err := txRepo.CreateAccount(ctx, account); err != nil {
			if db.IsUniqueViolation(err, "idx_finance_accounts_code") {
				return pkgerrors.New(pkgerrors.CodeConflict, "account code "+input.Code+" already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert finance account")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, audit.AccountChanged{
		ID:     account.ID,
		Code:   account.Code,
		Verb:   enums.AuditActionCreate,
		Table:  "finance_account",
		Active: account.Active,
	})
	return account, nil
}

// UpdateAccount mutates a node. Re-parenting is rejected when it would make
// the node its own ancestor.
func (s *service) UpdateAccount(ctx context.Context, actorID string, accountID uuid.UUID, input UpdateAccountInput) (*models.FinanceAccount, error) {
	var updated *models.FinanceAccount
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		account, err := txRepo.FindAccountByID(ctx, accountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load finance account")
		}
		if account == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "finance account not found")
		}

		if input.Code != nil {
			code := strings.TrimSpace(*input.Code)
			if code == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "code cannot be empty")
			}
			account.Code = code
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			account.Name = name
		}
		if input.Type != nil {
			if !input.Type.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid account type")
			}
			account.Type = *input.Type
		}
		if input.Category != nil {
			account.Category = *input.Category
		}
		if input.Active != nil {
			account.Active = *input.Active
		}
		if input.ClearParent {
			account.ParentID = nil
		} else if input.ParentID != nil {
			if err := s.ensureNoCycle(ctx, txRepo, accountID, *input.ParentID); err != nil {
				return err
			}
			account.ParentID = input.ParentID
		}

		if err := txRepo.UpdateAccount(ctx, account); err != nil {
			if db.IsUniqueViolation(err, "idx_finance_accounts_code") {
				return pkgerrors.New(pkgerrors.CodeConflict, "account code "+account.Code+" already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update finance account")
		}
		updated = account
		return nil
	}); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, audit.AccountChanged{
		ID:     updated.ID,
		Code:   updated.Code,
		Verb:   enums.AuditActionUpdate,
		Table:  "finance_account",
		Active: updated.Active,
	})
	return updated, nil
}

// DeleteAccount removes a node that has no children and was never posted to.
func (s *service) DeleteAccount(ctx context.Context, actorID string, accountID uuid.UUID) error {
	var deleted *models.FinanceAccount
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		account, err := txRepo.FindAccountByID(ctx, accountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load finance account")
		}
		if account == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "finance account not found")
		}

		children, err := txRepo.CountChildren(ctx, accountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count child accounts")
		}
		if children > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "account has child accounts")
		}
		postings, err := txRepo.CountPostings(ctx, accountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count account postings")
		}
		if postings > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "account has ledger entries")
		}

		if err := txRepo.DeleteAccount(ctx, accountID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete finance account")
		}
		deleted = account
		return nil
	}); err != nil {
		return err
	}

	s.auditor.Record(ctx, actorID, audit.AccountChanged{
		ID:     deleted.ID,
		Code:   deleted.Code,
		Verb:   enums.AuditActionDelete,
		Table:  "finance_account",
		Active: deleted.Active,
	})
	return nil
}

func (s *service) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.FinanceAccount, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load finance account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "finance account not found")
	}
	return account, nil
}

func (s *service) ListAccounts(ctx context.Context) ([]models.FinanceAccount, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list finance accounts")
	}
	return accounts, nil
}

// CreateCashBank registers a drawer or bank account. The running balance
// starts at the opening balance.
func (s *service) CreateCashBank(ctx context.Context, actorID string, input CreateCashBankInput) (*models.CashBankAccount, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code and name are required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cash/bank type")
	}

	account := &models.CashBankAccount{
		ID:             uuid.New(),
		Code:           input.Code,
		Name:           input.Name,
		Type:           input.Type,
		OpeningBalance: input.OpeningBalance,
		Balance:        input.OpeningBalance,
		Active:         input.Active,
	}
	if err := s.repo.CreateCashBank(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "idx_cash_bank_accounts_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cash/bank code "+input.Code+" already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cash/bank account")
	}

	s.auditor.Record(ctx, actorID, audit.AccountChanged{
		ID:     account.ID,
		Code:   account.Code,
		Verb:   enums.AuditActionCreate,
		Table:  "cash_bank_account",
		Active: account.Active,
	})
	return account, nil
}

// UpdateCashBank mutates registry fields. Balances stay untouched here.
func (s *service) UpdateCashBank(ctx context.Context, actorID string, cashBankID uuid.UUID, input UpdateCashBankInput) (*models.CashBankAccount, error) {
	account, err := s.repo.FindCashBankByID(ctx, cashBankID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cash/bank account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cash/bank account not found")
	}

	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "code cannot be empty")
		}
		account.Code = code
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		account.Name = name
	}
	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cash/bank type")
		}
		account.Type = *input.Type
	}
	if input.Active != nil {
		account.Active = *input.Active
	}

	if err := s.repo.UpdateCashBank(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "idx_cash_bank_accounts_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cash/bank code "+account.Code+" already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cash/bank account")
	}

	s.auditor.Record(ctx, actorID, audit.AccountChanged{
		ID:     account.ID,
		Code:   account.Code,
		Verb:   enums.AuditActionUpdate,
		Table:  "cash_bank_account",
		Active: account.Active,
	})
	return account, nil
}

func (s *service) GetCashBank(ctx context.Context, cashBankID uuid.UUID) (*models.CashBankAccount, error) {
	account, err := s.repo.FindCashBankByID(ctx, cashBankID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cash/bank account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cash/bank account not found")
	}
	return account, nil
}

func (s *service) ListCashBanks(ctx context.Context) ([]models.CashBankAccount, error) {
	accounts, err := s.repo.ListCashBanks(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cash/bank accounts")
	}
	return accounts, nil
}

// ensureNoCycle walks the proposed parent chain upward. The walk is bounded
// by the total node count so a corrupted chain cannot loop forever.
func (s *service) ensureNoCycle(ctx context.Context, repo Repository, accountID, parentID uuid.UUID) error {
	if parentID == accountID {
		return pkgerrors.New(pkgerrors.CodeValidation, "account cannot be its own parent")
	}
	limit, err := repo.CountAccounts(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count accounts")
	}

	cursor := parentID
	for i := int64(0); i <= limit; i++ {
		node, err := repo.FindAccountByID(ctx, cursor)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: walk account ancestry")
		}
		if node == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "parent account not found")
		}
		if node.ID == accountID {
			return pkgerrors.New(pkgerrors.CodeValidation, "re-parenting would create a cycle")
		}
		if node.ParentID == nil {
			return nil
		}
		cursor = *node.ParentID
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "account ancestry exceeds account count")
}
