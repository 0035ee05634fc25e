package enums

import "fmt"

// TxnKind maps to the txn_kind_enum enum in Postgres.
type TxnKind string

const (
	TxnKindIncome      TxnKind = "income"
	TxnKindExpense     TxnKind = "expense"
	TxnKindTransferIn  TxnKind = "transfer_in"
	TxnKindTransferOut TxnKind = "transfer_out"
)

var validTxnKinds = []TxnKind{
	TxnKindIncome,
	TxnKindExpense,
	TxnKindTransferIn,
	TxnKindTransferOut,
}

// IsValid reports whether the value matches the canonical transaction kind enum.
func (k TxnKind) IsValid() bool {
	for _, candidate := range validTxnKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// BalanceSign returns the signed multiplier this kind applies to a cash/bank
// balance once the transaction is approved.
func (k TxnKind) BalanceSign() int64 {
	switch k {
	case TxnKindIncome, TxnKindTransferIn:
		return 1
	case TxnKindExpense, TxnKindTransferOut:
		return -1
	}
	return 0
}

// ParseTxnKind converts raw input into TxnKind.
func ParseTxnKind(value string) (TxnKind, error) {
	for _, candidate := range validTxnKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
