// Package math provides checked big.Int arithmetic for custodial amounts.
// Balances are bounded to the signed 128-bit range; a checked operation that
// would leave that range fails instead of wrapping.
package math

import (
	"math/big"

	"github.com/michaelpento.lv/dustvault/types"
)

var (
	// MaxBalance is the largest representable amount (2^127 - 1).
	MaxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))

	basisPoints = big.NewInt(10000)
)

// IsValidAmount reports whether amount is a strictly positive in-range value.
func IsValidAmount(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0 && amount.Cmp(MaxBalance) <= 0
}

// CheckedAdd returns a+b, failing with ErrInvalidAmount when the sum exceeds
// MaxBalance.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(MaxBalance) > 0 {
		return nil, types.ErrInvalidAmount
	}
	return sum, nil
}

// CheckedSub returns a-b, failing with ErrInsufficientBalance when b exceeds a.
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, types.ErrInsufficientBalance
	}
	return new(big.Int).Sub(a, b), nil
}

// SaturatingSub returns max(a-b, 0).
func SaturatingSub(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(a, b)
}

// MulDiv returns a*num/den with truncation toward zero, matching the
// fixed-point evaluation order used throughout the ledger.
func MulDiv(a *big.Int, num, den int64) *big.Int {
	out := new(big.Int).Mul(a, big.NewInt(num))
	return out.Quo(out, big.NewInt(den))
}

// ApplyBps returns amount*bps/10000, truncated.
func ApplyBps(amount *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(bps))
	return out.Quo(out, basisPoints)
}
