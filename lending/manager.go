package lending

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/dustvault/events"
	"github.com/michaelpento.lv/dustvault/state"
	"github.com/michaelpento.lv/dustvault/token"
	"github.com/michaelpento.lv/dustvault/types"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
	"github.com/michaelpento.lv/dustvault/utils/metrics"
)

// approvalWindow is the number of sequence steps a pool spend approval stays
// valid, counted from the current point.
const approvalWindow = 1000

// Manager routes supply, borrow, repay and collateral withdrawals through the
// external lending pool and keeps the per-user exposure trackers in sync.
//
// Tracker decrements are strict: a withdrawal or repayment exceeding the
// tracked amount fails instead of flooring at zero, so accounting drift
// against the pool surfaces as an error rather than being silently absorbed.
type Manager struct {
	state     *state.Manager
	pool      Pool
	tokens    token.Service
	emitter   events.Emitter
	clock     types.Clock
	custodian common.Address
	logger    *zap.Logger
	metrics   *metrics.LendingMetrics
}

func NewManager(
	st *state.Manager,
	pool Pool,
	tokens token.Service,
	emitter events.Emitter,
	clock types.Clock,
	custodian common.Address,
	logger *zap.Logger,
	m *metrics.LendingMetrics,
) *Manager {
	return &Manager{
		state:     st,
		pool:      pool,
		tokens:    tokens,
		emitter:   emitter,
		clock:     clock,
		custodian: custodian,
		logger:    logger,
		metrics:   m,
	}
}

func (m *Manager) loadOrCreate(user, tok common.Address) (*types.UserTokenBalance, error) {
	record, found, err := m.state.Balance(user, tok)
	if err != nil {
		return nil, err
	}
	if !found {
		record = types.NewUserTokenBalance(tok, m.clock.Timestamp())
	}
	return record, nil
}

func (m *Manager) registerToken(user, tok common.Address) {
	first, err := m.state.AppendTokenIndex(user, tok)
	if err != nil {
		m.logger.Warn("failed to update token index",
			zap.String("user", user.Hex()), zap.Error(err))
		return
	}
	if !first {
		return
	}
	stats, err := m.state.Stats()
	if err != nil {
		m.logger.Warn("failed to load stats", zap.Error(err))
		return
	}
	stats.ActiveUsers++
	if err := m.state.SaveStats(stats); err != nil {
		m.logger.Warn("failed to save stats", zap.Error(err))
	}
}

func (m *Manager) submit(ctx context.Context, requests []types.LendingRequest) error {
	start := time.Now()
	err := m.pool.Submit(ctx, m.custodian, m.custodian, m.custodian, requests)
	m.metrics.PoolLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		m.metrics.Errors.Inc()
	}
	return err
}

// Supply deposits tokens into the pool as collateral. Rejected while the pool
// reports frozen (status above 3).
func (m *Manager) Supply(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	m.state.Lock()
	defer m.state.Unlock()
	return m.supplyLocked(ctx, auth, user, tok, amount)
}

func (m *Manager) supplyLocked(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	if _, err := m.state.ActiveConfig(); err != nil {
		return err
	}
	if err := auth.Require(user); err != nil {
		return err
	}
	if !vaultmath.IsValidAmount(amount) {
		return types.ErrInvalidAmount
	}

	status, err := m.pool.GetPoolStatus(ctx)
	if err != nil {
		return err
	}
	if status > types.PoolFrozen {
		m.metrics.PoolBlocked.WithLabelValues(status.String()).Inc()
		return types.ErrPoolFrozen
	}

	lendingCfg, err := m.state.LendingConfig()
	if err != nil {
		return err
	}

	record, err := m.loadOrCreate(user, tok)
	if err != nil {
		return err
	}
	supplied, err := vaultmath.CheckedAdd(record.SuppliedToLending, amount)
	if err != nil {
		return err
	}

	expiry := m.clock.Sequence() + approvalWindow
	if err := m.tokens.Approve(ctx, tok, m.custodian, lendingCfg.Pool, amount, expiry); err != nil {
		return err
	}
	if err := m.submit(ctx, []types.LendingRequest{{
		Type:   types.RequestDepositCollateral,
		Asset:  tok,
		Amount: amount,
	}}); err != nil {
		return err
	}

	record.SuppliedToLending = supplied
	record.LastUpdated = m.clock.Timestamp()
	if err := m.state.SaveBalance(user, record); err != nil {
		return err
	}
	m.registerToken(user, tok)

	m.metrics.Supplies.Inc()
	m.emitter.Emit(events.Supply{User: user, Token: tok, Amount: amount})
	m.logger.Debug("supplied collateral",
		zap.String("user", user.Hex()),
		zap.String("token", tok.Hex()),
		zap.String("amount", amount.String()))
	return nil
}

// Borrow takes tokens from the pool against the supplied collateral and
// credits the user's spendable balance. Uses a stricter gate than Supply:
// rejected once the pool is on ice (status above 1).
func (m *Manager) Borrow(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	m.state.Lock()
	defer m.state.Unlock()
	return m.borrowLocked(ctx, auth, user, tok, amount)
}

func (m *Manager) borrowLocked(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	if _, err := m.state.ActiveConfig(); err != nil {
		return err
	}
	if err := auth.Require(user); err != nil {
		return err
	}
	if !vaultmath.IsValidAmount(amount) {
		return types.ErrInvalidAmount
	}

	status, err := m.pool.GetPoolStatus(ctx)
	if err != nil {
		return err
	}
	if status > types.PoolAdmitting {
		m.metrics.PoolBlocked.WithLabelValues(status.String()).Inc()
		return types.ErrPoolFrozenOrOnIce
	}

	record, err := m.loadOrCreate(user, tok)
	if err != nil {
		return err
	}
	borrowed, err := vaultmath.CheckedAdd(record.BorrowedFromLending, amount)
	if err != nil {
		return err
	}
	balance, err := vaultmath.CheckedAdd(record.Balance, amount)
	if err != nil {
		return err
	}

	if err := m.submit(ctx, []types.LendingRequest{{
		Type:   types.RequestBorrow,
		Asset:  tok,
		Amount: amount,
	}}); err != nil {
		return err
	}

	record.BorrowedFromLending = borrowed
	record.Balance = balance
	record.LastUpdated = m.clock.Timestamp()
	if err := m.state.SaveBalance(user, record); err != nil {
		return err
	}
	m.registerToken(user, tok)

	m.metrics.Borrows.Inc()
	m.emitter.Emit(events.Borrow{User: user, Token: tok, Amount: amount})
	return nil
}

// Withdraw pulls collateral back out of the pool. Fails with
// ErrInsufficientCollateral when amount exceeds the tracked supply.
func (m *Manager) Withdraw(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	m.state.Lock()
	defer m.state.Unlock()
	return m.withdrawLocked(ctx, auth, user, tok, amount)
}

func (m *Manager) withdrawLocked(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	if _, err := m.state.ActiveConfig(); err != nil {
		return err
	}
	if err := auth.Require(user); err != nil {
		return err
	}
	if !vaultmath.IsValidAmount(amount) {
		return types.ErrInvalidAmount
	}

	record, err := m.loadOrCreate(user, tok)
	if err != nil {
		return err
	}
	if record.SuppliedToLending.Cmp(amount) < 0 {
		return types.ErrInsufficientCollateral
	}

	if err := m.submit(ctx, []types.LendingRequest{{
		Type:   types.RequestWithdrawCollateral,
		Asset:  tok,
		Amount: amount,
	}}); err != nil {
		return err
	}

	record.SuppliedToLending = new(big.Int).Sub(record.SuppliedToLending, amount)
	record.LastUpdated = m.clock.Timestamp()
	if err := m.state.SaveBalance(user, record); err != nil {
		return err
	}

	m.metrics.Withdrawals.Inc()
	m.emitter.Emit(events.LendingWithdraw{User: user, Token: tok, Amount: amount})
	return nil
}

// Repay pays borrowed tokens back to the pool, reducing both the debt tracker
// and the user's spendable balance. Fails with ErrExceedsDebt when amount
// exceeds the tracked debt.
func (m *Manager) Repay(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	m.state.Lock()
	defer m.state.Unlock()
	return m.repayLocked(ctx, auth, user, tok, amount)
}

func (m *Manager) repayLocked(ctx context.Context, auth *types.AuthContext, user, tok common.Address, amount *big.Int) error {
	if _, err := m.state.ActiveConfig(); err != nil {
		return err
	}
	if err := auth.Require(user); err != nil {
		return err
	}
	if !vaultmath.IsValidAmount(amount) {
		return types.ErrInvalidAmount
	}

	lendingCfg, err := m.state.LendingConfig()
	if err != nil {
		return err
	}

	record, err := m.loadOrCreate(user, tok)
	if err != nil {
		return err
	}
	if record.BorrowedFromLending.Cmp(amount) < 0 {
		return types.ErrExceedsDebt
	}
	balance, err := vaultmath.CheckedSub(record.Balance, amount)
	if err != nil {
		return err
	}

	expiry := m.clock.Sequence() + approvalWindow
	if err := m.tokens.Approve(ctx, tok, m.custodian, lendingCfg.Pool, amount, expiry); err != nil {
		return err
	}
	if err := m.submit(ctx, []types.LendingRequest{{
		Type:   types.RequestRepay,
		Asset:  tok,
		Amount: amount,
	}}); err != nil {
		return err
	}

	record.BorrowedFromLending = new(big.Int).Sub(record.BorrowedFromLending, amount)
	record.Balance = balance
	record.LastUpdated = m.clock.Timestamp()
	if err := m.state.SaveBalance(user, record); err != nil {
		return err
	}

	m.metrics.Repayments.Inc()
	m.emitter.Emit(events.Repay{User: user, Token: tok, Amount: amount})
	return nil
}
