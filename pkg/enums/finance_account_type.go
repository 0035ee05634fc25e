package enums

import "fmt"

// FinanceAccountType maps to the finance_account_type_enum enum in Postgres.
type FinanceAccountType string

const (
	FinanceAccountTypeAsset     FinanceAccountType = "asset"
	FinanceAccountTypeLiability FinanceAccountType = "liability"
	FinanceAccountTypeEquity    FinanceAccountType = "equity"
	FinanceAccountTypeIncome    FinanceAccountType = "income"
	FinanceAccountTypeExpense   FinanceAccountType = "expense"
)

var validFinanceAccountTypes = []FinanceAccountType{
	FinanceAccountTypeAsset,
	FinanceAccountTypeLiability,
	FinanceAccountTypeEquity,
	FinanceAccountTypeIncome,
	FinanceAccountTypeExpense,
}

// IsValid reports whether the value matches the canonical account type enum.
func (t FinanceAccountType) IsValid() bool {
	for _, candidate := range validFinanceAccountTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseFinanceAccountType converts raw input into FinanceAccountType.
func ParseFinanceAccountType(value string) (FinanceAccountType, error) {
	for _, candidate := range validFinanceAccountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid finance account type %q", value)
}
