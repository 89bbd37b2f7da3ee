package token

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the scale assumed for every token amount shown or parsed.
const DefaultDecimals = 18

// FormatUnits renders a smallest-unit integer as a human-scaled decimal
// string. Whole numbers keep one fractional digit: 10^21 → "1000.0".
func FormatUnits(raw *big.Int, decimals int32) string {
	if raw == nil {
		return "0.0"
	}
	s := decimal.NewFromBigInt(raw, -decimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseUnits converts a human-scaled decimal string to its smallest-unit
// integer: "5" → 5·10^18. More fractional digits than decimals, exponent
// notation and values that do not fit in a uint256 are errors.
func ParseUnits(s string, decimals int32) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	if strings.ContainsAny(s, "eE+") {
		return nil, fmt.Errorf("%w: %q is not a plain decimal", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, decimals)
	}
	raw := scaled.BigInt()
	if raw.CmpAbs(math.MaxBig256) > 0 {
		return nil, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}
	return raw, nil
}

// TruncateAddr shortens an address for tables: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
