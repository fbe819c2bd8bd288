package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"hdwallet-core/pkg/errno"
)

const (
	gweiDecimals  = 9
	etherDecimals = 18
)

var (
	// Gwei = 10^9 wei
	Gwei = big.NewInt(1_000_000_000)
	// Ether = 10^18 wei
	Ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)
)

// ParseWei 解析十进制整数 wei 字符串 (如 "21000000000")。
func ParseWei(s string) (*big.Int, error) {
	return parseUnits(s, 0)
}

// ParseGwei 解析 gwei 金额，允许最多 9 位小数 (如 "1.5")。
func ParseGwei(s string) (*big.Int, error) {
	return parseUnits(s, gweiDecimals)
}

// ParseEther 解析 ether 金额，允许最多 18 位小数 (如 "0.01")。
func ParseEther(s string) (*big.Int, error) {
	return parseUnits(s, etherDecimals)
}

// FormatGwei renders wei as a decimal gwei string without trailing zeros.
func FormatGwei(wei *big.Int) string {
	return formatUnits(wei, gweiDecimals)
}

// FormatEther renders wei as a decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	return formatUnits(wei, etherDecimals)
}

func parseUnits(s string, decimals int32) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", errno.ErrInvalidValue)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a decimal number", errno.ErrInvalidValue, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %s", errno.ErrInvalidValue, s)
	}
	wei := d.Shift(decimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s has more than %d decimal places", errno.ErrInvalidValue, s, decimals)
	}
	v := wei.BigInt()
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("%w: amount exceeds 256 bits", errno.ErrInvalidValue)
	}
	return v, nil
}

func formatUnits(wei *big.Int, decimals int32) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -decimals).String()
}
