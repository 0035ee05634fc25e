package invoice

import (
	"testing"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		current enums.InvoiceStatus
		bal     Balance
		want    enums.InvoiceStatus
	}{
		{
			name:    "void is absorbing",
			current: enums.InvoiceStatusVoid,
			bal:     Balance{NetTotal: 100, PaidNet: 100},
			want:    enums.InvoiceStatusVoid,
		},
		{
			name:    "fully discounted invoice is paid without payments",
			current: enums.InvoiceStatusOpen,
			bal:     Balance{NetTotal: 0},
			want:    enums.InvoiceStatusPaid,
		},
		{
			name:    "no net payments keeps invoice open",
			current: enums.InvoiceStatusPartial,
			bal:     Balance{NetTotal: 1_000_000, PaidNet: 0},
			want:    enums.InvoiceStatusOpen,
		},
		{
			name:    "refund below zero keeps invoice open",
			current: enums.InvoiceStatusPartial,
			bal:     Balance{NetTotal: 1_000_000, PaidNet: -50_000},
			want:    enums.InvoiceStatusOpen,
		},
		{
			name:    "paid in full",
			current: enums.InvoiceStatusPartial,
			bal:     Balance{NetTotal: 1_000_000, PaidNet: 1_000_000},
			want:    enums.InvoiceStatusPaid,
		},
		{
			name:    "overpaid is still paid",
			current: enums.InvoiceStatusOpen,
			bal:     Balance{NetTotal: 1_000_000, PaidNet: 1_200_000},
			want:    enums.InvoiceStatusPaid,
		},
		{
			name:    "partial payment",
			current: enums.InvoiceStatusOpen,
			bal:     Balance{NetTotal: 1_000_000, PaidNet: 400_000},
			want:    enums.InvoiceStatusPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.current, tt.bal)
			if got != tt.want {
				t.Fatalf("DeriveStatus(%s, %+v) = %s, want %s", tt.current, tt.bal, got, tt.want)
			}
			// Deriving again from the result must not change the answer.
			if again := DeriveStatus(got, tt.bal); again != got {
				t.Fatalf("DeriveStatus is not idempotent: %s then %s", got, again)
			}
		})
	}
}
