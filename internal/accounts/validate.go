package accounts

import (
	"context"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/errors"
)

// ValidateFinanceAccount loads the finance account and checks that it exists
// and is active. Callers that run inside a transaction pass a repository
// already bound with WithTx so the check shares the posting's snapshot.
func ValidateFinanceAccount(ctx context.Context, repo Repository, id uuid.UUID) (*models.FinanceAccount, error) {
	account, err := repo.FindAccountByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "db: load finance account")
	}
	if account == nil {
		return nil, errors.New(errors.CodeNotFound, "finance account not found")
	}
	if !account.Active {
		return nil, errors.New(errors.CodeAccountInactive, "finance account "+account.Code+" is inactive")
	}
	return account, nil
}

// ValidateCashBank loads the cash/bank account and checks that it exists and
// is active.
func ValidateCashBank(ctx context.Context, repo Repository, id uuid.UUID) (*models.CashBankAccount, error) {
	account, err := repo.FindCashBankByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "db: load cash/bank account")
	}
	if account == nil {
		return nil, errors.New(errors.CodeNotFound, "cash/bank account not found")
	}
	if !account.Active {
		return nil, errors.New(errors.CodeAccountInactive, "cash/bank account "+account.Code+" is inactive")
	}
	return account, nil
}
