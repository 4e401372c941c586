// Package units converts between human-entered decimal token amounts and the
// integer base-unit representation used on-chain.
//
// All arithmetic is exact. Amounts are scaled by 10^decimals (18 for most
// tokens), which overflows float64 precision long before it overflows uint256.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// MaxDecimals bounds the decimals value accepted by the converter. ERC-20
// stores decimals as uint8.
const MaxDecimals = 255

// ErrInvalidAmount is returned for amounts that cannot be represented in base units.
var ErrInvalidAmount = errors.New("invalid amount")

// plainDecimal accepts "12", "12.5", ".5" and "12." but no sign or exponent.
var plainDecimal = regexp.MustCompile(`^([0-9]+\.?[0-9]*|\.[0-9]+)$`)

// Parse checks that amount is a non-negative base-10 number and returns its
// exact value. It does not consider any token's decimals.
func Parse(amount string) (decimal.Decimal, error) {
	s := strings.TrimSpace(amount)
	if !plainDecimal.MatchString(s) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a non-negative decimal number", ErrInvalidAmount, amount)
	}
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d, nil
}

// ToBaseUnits parses a non-negative base-10 amount and scales it by 10^decimals.
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d out of range", ErrInvalidAmount, decimals)
	}
	d, err := Parse(amount)
	if err != nil {
		return nil, err
	}
	if frac := fractionDigits(strings.TrimSpace(amount)); frac > decimals {
		return nil, fmt.Errorf("%w: %q has %d fractional digits, token allows %d",
			ErrInvalidAmount, amount, frac, decimals)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q is finer than 10^-%d", ErrInvalidAmount, amount, decimals)
	}
	raw := scaled.BigInt()
	if _, overflow := uint256.FromBig(raw); overflow {
		return nil, fmt.Errorf("%w: %q exceeds uint256", ErrInvalidAmount, amount)
	}
	return raw, nil
}

// ToDecimalString renders base units as a decimal string with trailing
// fractional zeros removed. A nil amount renders as "0".
func ToDecimalString(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	if decimals <= 0 {
		return raw.String()
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// Normalize returns the canonical form of a valid decimal amount: no leading
// integer zeros, no trailing fractional zeros, no dangling point.
func Normalize(amount string) string {
	s := strings.TrimSpace(amount)
	intPart, fracPart, _ := strings.Cut(s, ".")
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	fracPart = strings.TrimRight(fracPart, "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

func fractionDigits(s string) int {
	_, frac, ok := strings.Cut(s, ".")
	if !ok {
		return 0
	}
	return len(frac)
}
