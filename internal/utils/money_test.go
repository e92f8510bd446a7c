package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTotalCentsRoundsOnce(t *testing.T) {
	price := decimal.RequireFromString("33.335")
	if got := TotalCents(price, 3); got != 10001 {
		t.Fatalf("TotalCents = %d, want 10001", got)
	}
	// per-unit rounding would have produced 3334*3 = 10002
	if per := ToCents(price) * 3; per == TotalCents(price, 3) {
		t.Fatalf("expected per-unit rounding to differ")
	}
}

func TestSplitConservesTotalWithinRounding(t *testing.T) {
	cases := []struct {
		total int64
		n     int
	}{
		{15000, 3},
		{10001, 3},
		{9999, 7},
		{1, 2},
	}
	for _, c := range cases {
		per := SplitCents(c.total, c.n)
		diff := per*int64(c.n) - c.total
		if diff < 0 {
			diff = -diff
		}
		if diff > int64(c.n) {
			t.Fatalf("split %d/%d = %d drifts by %d", c.total, c.n, per, diff)
		}
	}
	if SplitCents(100, 0) != 0 {
		t.Fatalf("zero passengers must split to 0")
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[int64]string{
		0:       "R$ 0,00",
		5000:    "R$ 50,00",
		123456:  "R$ 1.234,56",
		-250:    "-R$ 2,50",
		1000000: "R$ 10.000,00",
	}
	for in, want := range cases {
		if got := FormatMoney(in); got != want {
			t.Fatalf("FormatMoney(%d) = %q, want %q", in, got, want)
		}
	}
}
