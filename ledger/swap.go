package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/dustvault/events"
	"github.com/michaelpento.lv/dustvault/types"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
)

// Swap converts several input balances into a single output balance using the
// static rate table, charging the protocol fee on the accumulated value.
// Every intermediate division truncates; the output reproduces the exact
// integer sequence sum(amount_i * rate_i / 10000) minus fee.
func (l *Ledger) Swap(ctx context.Context, auth *types.AuthContext, user common.Address, params types.SwapParams) error {
	start := time.Now()
	defer func() { l.metrics.OpLatency.Observe(time.Since(start).Seconds()) }()

	l.state.Lock()
	defer l.state.Unlock()
	return l.countError(l.swapLocked(ctx, auth, user, params))
}

func (l *Ledger) swapLocked(_ context.Context, auth *types.AuthContext, user common.Address, params types.SwapParams) error {
	cfg, err := l.state.ActiveConfig()
	if err != nil {
		return err
	}
	if err := auth.Require(user); err != nil {
		return err
	}
	if len(params.TokensIn) == 0 || len(params.AmountsIn) == 0 {
		return types.ErrEmptyBatch
	}
	if len(params.TokensIn) != len(params.AmountsIn) {
		return types.ErrLengthMismatch
	}
	if params.SlippageToleranceBps < 0 || params.SlippageToleranceBps > 10000 {
		return types.ErrInvalidSlippage
	}

	stage := l.newBatchStage(user)
	totalValue := new(big.Int)
	for i, tok := range params.TokensIn {
		amount := params.AmountsIn[i]
		if !vaultmath.IsValidAmount(amount) {
			return types.ErrInvalidAmount
		}
		record, err := stage.record(tok)
		if err != nil {
			return err
		}
		updated, err := vaultmath.CheckedSub(record.Balance, amount)
		if err != nil {
			return err
		}
		record.Balance = updated

		rate := l.rates.PairRate(tok, params.TokenOut)
		totalValue.Add(totalValue, vaultmath.MulDiv(amount, rate, 10000))
	}

	fee := vaultmath.ApplyBps(totalValue, cfg.FeeRateBps)
	final := new(big.Int).Sub(totalValue, fee)

	minOut := params.MinAmountOut
	if minOut == nil {
		minOut = new(big.Int)
	}
	if final.Cmp(minOut) < 0 {
		return types.ErrInsufficientBalance
	}

	outRecord, err := stage.record(params.TokenOut)
	if err != nil {
		return err
	}
	credited, err := vaultmath.CheckedAdd(outRecord.Balance, final)
	if err != nil {
		return err
	}
	outRecord.Balance = credited

	if err := stage.commit(); err != nil {
		return err
	}
	l.registerToken(user, params.TokenOut)

	l.metrics.Swaps.Inc()
	l.emitter.Emit(events.Swap{
		User:      user,
		TokensIn:  params.TokensIn,
		TokenOut:  params.TokenOut,
		AmountOut: final,
		Fee:       fee,
	})
	l.logger.Debug("swap",
		zap.String("user", user.Hex()),
		zap.String("token_out", params.TokenOut.Hex()),
		zap.String("amount_out", final.String()),
		zap.String("fee", fee.String()))
	return nil
}
