// Package arbitrage orchestrates flash-loan arbitrage: borrow, swap across
// external venues, repay, all within one pool call.
package arbitrage

import (
	"context"
	"math/big"

	"github.com/michaelpento.lv/dustvault/types"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
)

// SwapExecutor runs the arbitrage swaps across the venue hops in
// params.SwapPath and returns the realized gross profit in loan-token units.
// Production implementations call real venues; SimulatedExecutor below is the
// reference used in tests and demo wiring.
type SwapExecutor interface {
	ExecuteSwaps(ctx context.Context, params types.ArbitrageParams) (*big.Int, error)
}

// SimulatedExecutor models the venue hops with a fixed return rate in basis
// points on the loan amount.
type SimulatedExecutor struct {
	ReturnRateBps int64
}

// NewSimulatedExecutor returns an executor yielding 1.5% of the loan amount.
func NewSimulatedExecutor() *SimulatedExecutor {
	return &SimulatedExecutor{ReturnRateBps: 150}
}

func (e *SimulatedExecutor) ExecuteSwaps(_ context.Context, params types.ArbitrageParams) (*big.Int, error) {
	if len(params.SwapPath) == 0 {
		return nil, types.ErrInvalidSwapPath
	}
	return vaultmath.ApplyBps(params.LoanAmount, e.ReturnRateBps), nil
}
