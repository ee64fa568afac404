// Package ledger implements the per-user, per-token custodial balance ledger:
// deposits, withdrawals, swaps and the admin emergency drain.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/dustvault/events"
	"github.com/michaelpento.lv/dustvault/rates"
	"github.com/michaelpento.lv/dustvault/state"
	"github.com/michaelpento.lv/dustvault/token"
	"github.com/michaelpento.lv/dustvault/types"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
	"github.com/michaelpento.lv/dustvault/utils/metrics"
)

// Ledger coordinates custodial balance mutations. All amounts held in custody
// are booked against the custodian account of the token service.
type Ledger struct {
	state     *state.Manager
	tokens    token.Service
	rates     *rates.Table
	emitter   events.Emitter
	clock     types.Clock
	custodian common.Address
	logger    *zap.Logger
	metrics   *metrics.LedgerMetrics
}

func New(
	st *state.Manager,
	tokens token.Service,
	table *rates.Table,
	emitter events.Emitter,
	clock types.Clock,
	custodian common.Address,
	logger *zap.Logger,
	m *metrics.LedgerMetrics,
) *Ledger {
	return &Ledger{
		state:     st,
		tokens:    tokens,
		rates:     table,
		emitter:   emitter,
		clock:     clock,
		custodian: custodian,
		logger:    logger,
		metrics:   m,
	}
}

func (l *Ledger) countError(err error) error {
	if err != nil {
		l.metrics.Errors.WithLabelValues(errorLabel(err)).Inc()
	}
	return err
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, types.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, types.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, types.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, types.ErrPaused):
		return "paused"
	case errors.Is(err, types.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, types.ErrLengthMismatch), errors.Is(err, types.ErrEmptyBatch):
		return "bad_batch"
	case errors.Is(err, types.ErrInvalidSlippage):
		return "invalid_slippage"
	default:
		return "other"
	}
}

// loadOrCreate returns the (user, token) record, creating a zeroed one on
// first touch.
func (l *Ledger) loadOrCreate(user, tok common.Address) (*types.UserTokenBalance, error) {
	record, found, err := l.state.Balance(user, tok)
	if err != nil {
		return nil, err
	}
	if !found {
		record = types.NewUserTokenBalance(tok, l.clock.Timestamp())
	}
	return record, nil
}

// registerToken adds the token to the user's index and bumps the active-user
// counter on the user's first ever entry. Stats failures are logged, not
// surfaced: the counters are best-effort.
func (l *Ledger) registerToken(user, tok common.Address) {
	first, err := l.state.AppendTokenIndex(user, tok)
	if err != nil {
		l.logger.Warn("failed to update token index",
			zap.String("user", user.Hex()), zap.Error(err))
		return
	}
	if first {
		l.adjustStats(func(stats *types.GlobalStats) {
			stats.ActiveUsers++
		})
	}
}

func (l *Ledger) adjustStats(apply func(*types.GlobalStats)) {
	stats, err := l.state.Stats()
	if err != nil {
		l.logger.Warn("failed to load stats", zap.Error(err))
		return
	}
	apply(stats)
	if err := l.state.SaveStats(stats); err != nil {
		l.logger.Warn("failed to save stats", zap.Error(err))
	}
}

func (l *Ledger) usdValue(tok common.Address, amount *big.Int) *big.Int {
	return vaultmath.MulDiv(amount, l.rates.USDRate(tok), 10000)
}

// Deposit moves amount of tok from the user's external account into custody
// and credits the internal balance with a checked addition.
func (l *Ledger) Deposit(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	start := time.Now()
	defer func() { l.metrics.OpLatency.Observe(time.Since(start).Seconds()) }()

	l.state.Lock()
	defer l.state.Unlock()
	return l.countError(l.depositLocked(ctx, auth, user, tok, amount))
}

func (l *Ledger) depositLocked(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	if _, err := l.state.ActiveConfig(); err != nil {
		return err
	}
	if err := auth.Require(user); err != nil {
		return err
	}
	if !vaultmath.IsValidAmount(amount) {
		return types.ErrInvalidAmount
	}

	external, err := l.tokens.Balance(ctx, tok, user)
	if err != nil {
		return err
	}
	if external.Cmp(amount) < 0 {
		return types.ErrInsufficientBalance
	}

	record, err := l.loadOrCreate(user, tok)
	if err != nil {
		return err
	}
	updated, err := vaultmath.CheckedAdd(record.Balance, amount)
	if err != nil {
		return err
	}

	if err := l.tokens.Transfer(ctx, tok, user, l.custodian, amount); err != nil {
		return err
	}

	record.Balance = updated
	record.LastUpdated = l.clock.Timestamp()
	if err := l.state.SaveBalance(user, record); err != nil {
		return err
	}
	l.registerToken(user, tok)
	l.adjustStats(func(stats *types.GlobalStats) {
		stats.TotalTVL = new(big.Int).Add(stats.TotalTVL, l.usdValue(tok, amount))
	})

	l.metrics.Deposits.Inc()
	l.emitter.Emit(events.Deposit{User: user, Token: tok, Amount: amount})
	l.logger.Debug("deposit",
		zap.String("user", user.Hex()),
		zap.String("token", tok.Hex()),
		zap.String("amount", amount.String()))
	return nil
}

// Withdraw debits the internal balance and transfers amount of tok back to
// the user. A withdrawal exceeding the balance fails without mutating state.
func (l *Ledger) Withdraw(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	start := time.Now()
	defer func() { l.metrics.OpLatency.Observe(time.Since(start).Seconds()) }()

	l.state.Lock()
	defer l.state.Unlock()
	return l.countError(l.withdrawLocked(ctx, auth, user, tok, amount))
}

func (l *Ledger) withdrawLocked(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	if _, err := l.state.ActiveConfig(); err != nil {
		return err
	}
	if err := auth.Require(user); err != nil {
		return err
	}
	if !vaultmath.IsValidAmount(amount) {
		return types.ErrInvalidAmount
	}

	record, err := l.loadOrCreate(user, tok)
	if err != nil {
		return err
	}
	updated, err := vaultmath.CheckedSub(record.Balance, amount)
	if err != nil {
		return err
	}

	if err := l.tokens.Transfer(ctx, tok, l.custodian, user, amount); err != nil {
		return err
	}

	record.Balance = updated
	record.LastUpdated = l.clock.Timestamp()
	if err := l.state.SaveBalance(user, record); err != nil {
		return err
	}
	l.adjustStats(func(stats *types.GlobalStats) {
		stats.TotalTVL = vaultmath.SaturatingSub(stats.TotalTVL, l.usdValue(tok, amount))
	})

	l.metrics.Withdrawals.Inc()
	l.emitter.Emit(events.Withdraw{User: user, Token: tok, Amount: amount})
	return nil
}
