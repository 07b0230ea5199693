package models

import (
	"testing"

	"github.com/saif43/inventory-app-api/utils"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the pure pieces
// of the stock and billing rules; full DB coverage lives in the docker-gated
// regression tests.

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestNextAvgBuyingPrice_FirstBuySeedsAverage(t *testing.T) {
	got := nextAvgBuyingPrice(decimal.Zero, d("10"))
	if !got.Equal(d("10")) {
		t.Fatalf("expected 10, got %s", got)
	}
}

func TestNextAvgBuyingPrice_TwoPointMean(t *testing.T) {
	// buy at 10, then at 15: running average is mean(10, 15) = 12.5
	avg := nextAvgBuyingPrice(decimal.Zero, d("10"))
	avg = nextAvgBuyingPrice(avg, d("15"))
	if !avg.Equal(d("12.5")) {
		t.Fatalf("expected 12.5, got %s", avg)
	}

	// not a weighted history: a third buy averages against 12.5, not the
	// full purchase record
	avg = nextAvgBuyingPrice(avg, d("12.5"))
	if !avg.Equal(d("12.5")) {
		t.Fatalf("expected 12.5, got %s", avg)
	}
}

func TestLineBill(t *testing.T) {
	if got := lineBill(d("7.25"), 4); !got.Equal(d("29")) {
		t.Fatalf("expected 29, got %s", got)
	}
	if got := lineBill(d("7.25"), 0); !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}
}

func TestValidateSettlement(t *testing.T) {
	cases := []struct {
		name    string
		total   string
		paid    string
		delta   string
		wantErr error
	}{
		{"exact payoff", "100", "40", "60", nil},
		{"partial", "100", "0", "30", nil},
		{"over paid", "100", "40", "61", utils.ErrorOverPaid},
		{"already settled", "100", "100", "1", utils.ErrorOverPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSettlement(d(tc.total), d(tc.paid), d(tc.delta))
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && err != tc.wantErr {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateSettlement_RejectsNonPositive(t *testing.T) {
	if err := validateSettlement(d("100"), d("0"), d("0")); err == nil {
		t.Fatal("expected error for zero payment")
	}
	if err := validateSettlement(d("100"), d("0"), d("-5")); err == nil {
		t.Fatal("expected error for negative payment")
	}
}
