package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RawToDecimal converts a provider's raw integer amount string (wei,
// satoshis, lamports, token base units) to the canonical decimal amount by
// shifting the decimal point left by decimals places. The division is exact:
// 1 raw wei at 18 decimals yields 0.000000000000000001, not 0.
func RawToDecimal(raw string, decimals int) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse raw amount %q: %w", raw, err)
	}
	return d.Shift(int32(-decimals)), nil
}
