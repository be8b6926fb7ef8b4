package customer

import (
	"testing"

	"kada-backend/internal/models"

	"github.com/shopspring/decimal"
)

func TestToResponse(t *testing.T) {
	cases := []struct {
		name        string
		balance     string
		limit       string
		outstanding string
		overLimit   bool
	}{
		{"owes within limit", "-400", "500", "400", false},
		{"owes over limit", "-600", "500", "600", true},
		{"no limit set", "-10000", "0", "10000", false},
		{"advance paid", "250", "500", "0", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := toResponse(models.Customer{
				Balance:     decimal.RequireFromString(tc.balance),
				CreditLimit: decimal.RequireFromString(tc.limit),
			})
			if !got.Outstanding.Equal(decimal.RequireFromString(tc.outstanding)) {
				t.Fatalf("Outstanding = %s, want %s", got.Outstanding, tc.outstanding)
			}
			if got.OverLimit != tc.overLimit {
				t.Fatalf("OverLimit = %v", got.OverLimit)
			}
		})
	}
}

func TestCreditLimit(t *testing.T) {
	if d, err := creditLimit(nil); err != nil || !d.IsZero() {
		t.Fatalf("nil limit = %s, %v", d, err)
	}
	neg := decimal.NewFromInt(-1)
	if _, err := creditLimit(&neg); err == nil {
		t.Fatal("negative limit accepted")
	}
}
