package arbitrage

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/dustvault/events"
	"github.com/michaelpento.lv/dustvault/lending"
	"github.com/michaelpento.lv/dustvault/state"
	"github.com/michaelpento.lv/dustvault/types"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
	"github.com/michaelpento.lv/dustvault/utils/metrics"
)

// Orchestrator executes the borrow -> swap -> repay sequence against the
// pool's flash-loan entry point. The pool enforces same-call repayment; this
// module persists nothing and emits nothing when the attempt fails, leaving
// rollback of external side effects to the surrounding transactional
// environment.
type Orchestrator struct {
	state     *state.Manager
	pool      lending.Pool
	executor  SwapExecutor
	emitter   events.Emitter
	custodian common.Address
	logger    *zap.Logger
	metrics   *metrics.ArbitrageMetrics
}

func NewOrchestrator(
	st *state.Manager,
	pool lending.Pool,
	executor SwapExecutor,
	emitter events.Emitter,
	custodian common.Address,
	logger *zap.Logger,
	m *metrics.ArbitrageMetrics,
) *Orchestrator {
	return &Orchestrator{
		state:     st,
		pool:      pool,
		executor:  executor,
		emitter:   emitter,
		custodian: custodian,
		logger:    logger,
		metrics:   m,
	}
}

// FlashLoanArbitrage borrows params.LoanAmount of the loan token, runs the
// swap strategy across the venue path, repays within the same pool call, and
// returns the net profit after the protocol fee. Aborts entirely when the
// realized profit falls below params.MinProfit.
func (o *Orchestrator) FlashLoanArbitrage(ctx context.Context, auth *types.AuthContext, user common.Address, params types.ArbitrageParams) (*big.Int, error) {
	start := time.Now()
	defer func() { o.metrics.Latency.Observe(time.Since(start).Seconds()) }()

	o.state.Lock()
	defer o.state.Unlock()

	o.metrics.Attempts.Inc()
	net, err := o.executeLocked(ctx, auth, user, params)
	if err != nil {
		o.metrics.Failures.Inc()
		return nil, err
	}
	o.metrics.Successes.Inc()
	return net, nil
}

func (o *Orchestrator) executeLocked(ctx context.Context, auth *types.AuthContext, user common.Address, params types.ArbitrageParams) (*big.Int, error) {
	cfg, err := o.state.ActiveConfig()
	if err != nil {
		return nil, err
	}
	if err := auth.Require(user); err != nil {
		return nil, err
	}
	if !vaultmath.IsValidAmount(params.LoanAmount) {
		return nil, types.ErrInvalidAmount
	}
	if len(params.SwapPath) == 0 {
		return nil, types.ErrInvalidSwapPath
	}

	borrow := types.LendingRequest{
		Type:   types.RequestBorrow,
		Asset:  params.LoanToken,
		Amount: params.LoanAmount,
	}

	// The swaps run out-of-band between the borrow and repay steps of the
	// flash-loan batch.
	profit, err := o.executor.ExecuteSwaps(ctx, params)
	if err != nil {
		return nil, err
	}

	repay := types.LendingRequest{
		Type:   types.RequestRepay,
		Asset:  params.LoanToken,
		Amount: params.LoanAmount,
	}

	if err := o.pool.FlashLoan(ctx, o.custodian, o.custodian, o.custodian,
		[]types.LendingRequest{borrow, repay}); err != nil {
		return nil, err
	}

	minProfit := params.MinProfit
	if minProfit == nil {
		minProfit = new(big.Int)
	}
	if profit.Cmp(minProfit) < 0 {
		return nil, types.ErrProfitBelowThreshold
	}

	// Fee is taken from gross profit, never added on top of the threshold.
	fee := vaultmath.ApplyBps(profit, cfg.FeeRateBps)
	netProfit := new(big.Int).Sub(profit, fee)

	stats, err := o.state.Stats()
	if err == nil {
		stats.TotalYield = new(big.Int).Add(stats.TotalYield, netProfit)
		if err := o.state.SaveStats(stats); err != nil {
			o.logger.Warn("failed to save stats", zap.Error(err))
		}
	} else {
		o.logger.Warn("failed to load stats", zap.Error(err))
	}

	feeFloat, _ := new(big.Float).SetInt(fee).Float64()
	netFloat, _ := new(big.Float).SetInt(netProfit).Float64()
	o.metrics.FeesTotal.Add(feeFloat)
	o.metrics.ProfitTotal.Add(netFloat)

	o.emitter.Emit(events.FlashLoanExecuted{
		User:       user,
		LoanToken:  params.LoanToken,
		LoanAmount: params.LoanAmount,
		NetProfit:  netProfit,
	})
	o.logger.Info("flash loan arbitrage executed",
		zap.String("user", user.Hex()),
		zap.String("loan_token", params.LoanToken.Hex()),
		zap.String("loan_amount", params.LoanAmount.String()),
		zap.String("net_profit", netProfit.String()),
		zap.Float64("success_rate", o.metrics.SuccessRate()))
	return netProfit, nil
}
