package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals cUSD 精度
const TokenDecimals = 18

// ParseUnits 将十进制字符串转换为定点整数
//
//	ParseUnits("0.1", 18) == 100000000000000000
//
// Amounts with more fractional digits than decimals are rejected rather
// than rounded.
func ParseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: must not be negative", amount)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimals", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits 将定点整数格式化为十进制字符串
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}
