package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBalance(t *testing.T) {
	tests := []struct {
		name                              string
		gross, discounts, payments, refds int64
		want                              Balance
	}{
		{
			name:  "partial payment",
			gross: 1_000_000, payments: 400_000,
			want: Balance{
				GrossTotal: 1_000_000, NetTotal: 1_000_000,
				PaymentTotal: 400_000, PaidNet: 400_000, Due: 600_000,
			},
		},
		{
			name:  "payment then refund",
			gross: 1_000_000, payments: 400_000, refds: 100_000,
			want: Balance{
				GrossTotal: 1_000_000, NetTotal: 1_000_000,
				PaymentTotal: 400_000, RefundTotal: 100_000,
				PaidNet: 300_000, Due: 700_000,
			},
		},
		{
			name:  "fully discounted",
			gross: 500_000, discounts: 500_000,
			want: Balance{GrossTotal: 500_000, DiscountTotal: 500_000},
		},
		{
			name:  "discount exceeding gross clamps net to zero",
			gross: 300_000, discounts: 450_000,
			want: Balance{GrossTotal: 300_000, DiscountTotal: 450_000},
		},
		{
			name:  "overpaid",
			gross: 200_000, payments: 250_000,
			want: Balance{
				GrossTotal: 200_000, NetTotal: 200_000,
				PaymentTotal: 250_000, PaidNet: 250_000, Overpaid: 50_000,
			},
		},
		{
			name:  "negative inputs clamped",
			gross: -5, discounts: -1, payments: -100, refds: -3,
			want: Balance{},
		},
		{
			name:  "refunds exceeding payments keep full due",
			gross: 100_000, payments: 50_000, refds: 80_000,
			want: Balance{
				GrossTotal: 100_000, NetTotal: 100_000,
				PaymentTotal: 50_000, RefundTotal: 80_000,
				PaidNet: -30_000, Due: 130_000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBalance(tt.gross, tt.discounts, tt.payments, tt.refds)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeBalanceNeverBothDueAndOverpaid(t *testing.T) {
	cases := [][4]int64{
		{0, 0, 0, 0},
		{1_000_000, 0, 400_000, 0},
		{1_000_000, 250_000, 750_000, 0},
		{1_000_000, 0, 1_500_000, 200_000},
		{500_000, 500_000, 100_000, 0},
		{750_000, 0, 750_000, 750_000},
	}
	for _, c := range cases {
		bal := ComputeBalance(c[0], c[1], c[2], c[3])
		if bal.Due > 0 && bal.Overpaid > 0 {
			t.Fatalf("due and overpaid simultaneously positive for %v: %+v", c, bal)
		}
		if bal.NetTotal != clampToZero(bal.GrossTotal-bal.DiscountTotal) {
			t.Fatalf("net invariant violated for %v: %+v", c, bal)
		}
		if bal.Due != clampToZero(bal.NetTotal-bal.PaidNet) {
			t.Fatalf("due invariant violated for %v: %+v", c, bal)
		}
	}
}
