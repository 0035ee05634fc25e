package enums

import "fmt"

// PaymentMethod maps to the payment_method_enum enum in Postgres.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodTransfer    PaymentMethod = "transfer"
	PaymentMethodGateway     PaymentMethod = "gateway"
	PaymentMethodScholarship PaymentMethod = "scholarship"
	PaymentMethodAdjustment  PaymentMethod = "adjustment"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodTransfer,
	PaymentMethodGateway,
	PaymentMethodScholarship,
	PaymentMethodAdjustment,
}

// IsValid reports whether the value matches the canonical payment method enum.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// LedgerEligible reports whether payments made through this method settle via
// the operational ledger. Scholarship and adjustment entries stay invoice-only.
func (m PaymentMethod) LedgerEligible() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodGateway:
		return true
	}
	return false
}

// ParsePaymentMethod converts raw input into PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
