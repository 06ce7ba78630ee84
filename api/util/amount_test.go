package util

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatAmount(t *testing.T) {
	testCases := []struct {
		subunits int64
		decimals int32
		symbol   string
		want     string
	}{
		{subunits: 0, decimals: 9, symbol: "SOL", want: "0 SOL"},
		{subunits: 20000, decimals: 9, symbol: "SOL", want: "0.00002 SOL"},
		{subunits: 1_000_000_000, decimals: 9, symbol: "SOL", want: "1 SOL"},
		{subunits: 1_500_000_001, decimals: 9, symbol: "SOL", want: "1.500000001 SOL"},
		{subunits: 3_000_000_000_000_000, decimals: 18, want: "0.003"},
	}
	for _, c := range testCases {
		if result := FormatAmount(decimal.NewFromInt(c.subunits), c.decimals, c.symbol); result != c.want {
			t.Errorf("actual result is %s but want result is %s", result, c.want)
		}
	}
}

func TestFormatBigAmount(t *testing.T) {
	n, _ := new(big.Int).SetString("12500000000000000000", 10)
	if result := FormatBigAmount(n, 18, "USDFC"); result != "12.5 USDFC" {
		t.Errorf("actual result is %s", result)
	}
	if result := FormatBigAmount(nil, 18, "USDFC"); result != "0 USDFC" {
		t.Errorf("actual result is %s", result)
	}
}
