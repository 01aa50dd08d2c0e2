package common

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals is the fixed-point precision of every token amount.
const Decimals = 18

var (
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrBadDecimal         = errors.New("bad decimal")
)

// Unit is one whole token expressed in base units (10^18).
var Unit = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))

// Tokens returns n whole tokens in base units. It cannot overflow.
func Tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), Unit)
}

// CheckedAdd returns x+y or ErrArithmeticOverflow when the sum exceeds 2^256-1.
func CheckedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// CheckedSub returns x-y or ErrArithmeticOverflow when y > x.
func CheckedSub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// SaturatingSub returns x-y floored at zero.
func SaturatingSub(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}

// CheckedAddUint64 adds two timestamps or durations.
func CheckedAddUint64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// ParseUnits converts an exact decimal string (e.g. "1.25") into base units
// with the given number of decimals, without binary float errors.
func ParseUnits(s string, decimals uint8) (*uint256.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadDecimal, s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %q", ErrBadDecimal, s)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrBadDecimal, s, decimals)
	}
	v, overflow := uint256.FromBig(r.Num())
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return v, nil
}

// FormatUnits renders base units as a decimal string of whole tokens.
func FormatUnits(x *uint256.Int, decimals uint8) string {
	s := x.Dec()
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ToFloat approximates x in whole tokens. Only for metrics and display.
func ToFloat(x *uint256.Int) float64 {
	f := new(big.Float).SetPrec(128).SetInt(x.ToBig())
	f.Quo(f, new(big.Float).SetInt(Unit.ToBig()))
	v, _ := f.Float64()
	return v
}
