package invoice

// Balance is the derived monetary snapshot of an invoice. All figures are
// minor currency units. It is always recomputed from the persisted child rows,
// never cached, so re-running the computation after a retried write is a
// no-op.
type Balance struct {
	GrossTotal    int64 `json:"gross_total"`
	DiscountTotal int64 `json:"discount_total"`
	NetTotal      int64 `json:"net_total"`
	PaymentTotal  int64 `json:"payment_total"`
	RefundTotal   int64 `json:"refund_total"`
	PaidNet       int64 `json:"paid_net"`
	Due           int64 `json:"due"`
	Overpaid      int64 `json:"overpaid"`
}

// ComputeBalance derives the snapshot from raw sums. Negative inputs are
// clamped to zero before use.
func ComputeBalance(gross, discounts, payments, refunds int64) Balance {
	gross = clampToZero(gross)
	discounts = clampToZero(discounts)
	payments = clampToZero(payments)
	refunds = clampToZero(refunds)

	net := clampToZero(gross - discounts)
	paidNet := payments - refunds

	return Balance{
		GrossTotal:    gross,
		DiscountTotal: discounts,
		NetTotal:      net,
		PaymentTotal:  payments,
		RefundTotal:   refunds,
		PaidNet:       paidNet,
		Due:           clampToZero(net - paidNet),
		Overpaid:      clampToZero(paidNet - net),
	}
}

func clampToZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
