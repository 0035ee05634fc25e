package invoice

import "github.com/robertrullyp/drsis-finance/pkg/enums"

// DeriveStatus returns the invoice lifecycle status implied by a fresh
// balance snapshot. Void is terminal and absorbs every recomputation; a fully
// discounted invoice counts as paid even with zero payments.
func DeriveStatus(current enums.InvoiceStatus, bal Balance) enums.InvoiceStatus {
	switch {
	case current == enums.InvoiceStatusVoid:
		return enums.InvoiceStatusVoid
	case bal.NetTotal <= 0:
		return enums.InvoiceStatusPaid
	case bal.PaidNet <= 0:
		return enums.InvoiceStatusOpen
	case bal.PaidNet >= bal.NetTotal:
		return enums.InvoiceStatusPaid
	default:
		return enums.InvoiceStatusPartial
	}
}
