package util

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount renders an integer subunit amount in whole tokens, e.g.
// 20000 lamports with 9 decimals is "0.00002 SOL".
func FormatAmount(subunits decimal.Decimal, decimals int32, symbol string) string {
	amount := subunits.Shift(-decimals).String()
	if symbol == "" {
		return amount
	}

	return amount + " " + symbol
}

// FormatBigAmount is FormatAmount for big integers.
func FormatBigAmount(subunits *big.Int, decimals int32, symbol string) string {
	if subunits == nil {
		return FormatAmount(decimal.Zero, decimals, symbol)
	}

	return FormatAmount(decimal.NewFromBigInt(subunits, 0), decimals, symbol)
}
