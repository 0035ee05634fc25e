package enums

import "fmt"

// BudgetKind maps to the budget_kind_enum enum in Postgres.
type BudgetKind string

const (
	BudgetKindIncome  BudgetKind = "income"
	BudgetKindExpense BudgetKind = "expense"
)

var validBudgetKinds = []BudgetKind{
	BudgetKindIncome,
	BudgetKindExpense,
}

// IsValid reports whether the value matches the canonical budget kind enum.
func (k BudgetKind) IsValid() bool {
	for _, candidate := range validBudgetKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// TxnKind returns the ledger transaction kind whose approved rows count as
// actuals against budgets of this kind.
func (k BudgetKind) TxnKind() TxnKind {
	if k == BudgetKindExpense {
		return TxnKindExpense
	}
	return TxnKindIncome
}

// ParseBudgetKind converts raw input into BudgetKind.
func ParseBudgetKind(value string) (BudgetKind, error) {
	for _, candidate := range validBudgetKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid budget kind %q", value)
}
