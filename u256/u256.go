package u256

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrNegative = errors.New("value cannot be negative")
	ErrOverflow = errors.New("value overflows Uint256")
)

// Uint256 is an on-chain uint256 quantity that scans from a decimal or 0x-prefixed string.
type Uint256 uint256.Int

func (u *Uint256) Scan(s fmt.ScanState, ch rune) error {
	i := new(big.Int)
	if err := i.Scan(s, ch); err != nil {
		return err
	} else if i.Sign() < 0 {
		return ErrNegative
	} else if i.BitLen() > 256 {
		return ErrOverflow
	}
	(*uint256.Int)(u).SetFromBig(i)
	return nil
}

// Big returns u as a fresh *big.Int.
func (u *Uint256) Big() *big.Int {
	return (*uint256.Int)(u).ToBig()
}

// Parse reads num as a uint256. Decimal and 0x-prefixed hex are accepted.
func Parse(num string) (*uint256.Int, error) {
	num = strings.TrimSpace(num)
	if num == "" {
		return nil, errors.New("empty value")
	}
	u := new(Uint256)
	if _, err := fmt.Sscan(num, u); err != nil {
		return nil, fmt.Errorf("parse %q: %w", num, err)
	}
	return (*uint256.Int)(u), nil
}

// ParseBig is Parse returning a *big.Int, the type the calculators work with.
func ParseBig(num string) (*big.Int, error) {
	u, err := Parse(num)
	if err != nil {
		return nil, err
	}
	return u.ToBig(), nil
}
