package enums

import "fmt"

// CashBankType maps to the cash_bank_type_enum enum in Postgres.
type CashBankType string

const (
	CashBankTypeCash CashBankType = "cash"
	CashBankTypeBank CashBankType = "bank"
)

var validCashBankTypes = []CashBankType{
	CashBankTypeCash,
	CashBankTypeBank,
}

// IsValid reports whether the value matches the canonical cash/bank type enum.
func (t CashBankType) IsValid() bool {
	for _, candidate := range validCashBankTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCashBankType converts raw input into CashBankType.
func ParseCashBankType(value string) (CashBankType, error) {
	for _, candidate := range validCashBankTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cash/bank type %q", value)
}
