package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/drip/core/address"
	"github.com/holiman/uint256"
)

// Clock supplies "now" in unix seconds to time-dependent calls.
type Clock func() uint64

func WallClock() uint64 {
	return uint64(time.Now().Unix())
}

// FixedClock always returns t.
func FixedClock(t uint64) Clock {
	return func() uint64 { return t }
}

func wantParams(params []any, n int) error {
	if len(params) < n {
		return fmt.Errorf("%w: want %d params, got %d", ErrInvalidParams, n, len(params))
	}
	return nil
}

func paramAddress(params []any, i int) (address.Address, error) {
	if err := wantParams(params, i+1); err != nil {
		return address.Zero, err
	}
	s, ok := params[i].(string)
	if !ok {
		return address.Zero, fmt.Errorf("%w: param %d is not an address string", ErrInvalidParams, i)
	}
	a, err := address.ParseHex(s)
	if err != nil {
		return address.Zero, fmt.Errorf("%w: param %d: %v", ErrInvalidParams, i, err)
	}
	return a, nil
}

// paramAmount reads a base-unit amount given as a decimal string or a
// JSON number.
func paramAmount(params []any, i int) (*uint256.Int, error) {
	if err := wantParams(params, i+1); err != nil {
		return nil, err
	}
	switch v := params[i].(type) {
	case string:
		x, err := uint256.FromDecimal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: param %d: %v", ErrInvalidParams, i, err)
		}
		return x, nil
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return nil, fmt.Errorf("%w: param %d is not a whole amount", ErrInvalidParams, i)
		}
		return uint256.NewInt(uint64(v)), nil
	default:
		return nil, fmt.Errorf("%w: param %d is not an amount", ErrInvalidParams, i)
	}
}

func paramBool(params []any, i int) (bool, error) {
	if err := wantParams(params, i+1); err != nil {
		return false, err
	}
	switch v := params[i].(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%w: param %d: %v", ErrInvalidParams, i, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: param %d is not a bool", ErrInvalidParams, i)
	}
}

// result turns a (value, error) pair into Exec's any.
func result[T any](v T, err error) any {
	if err != nil {
		return err
	}
	return v
}
