// Package vault wires the ledger, lending integration and arbitrage
// orchestrator together and owns the admin-gated configuration surface.
package vault

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/dustvault/arbitrage"
	"github.com/michaelpento.lv/dustvault/events"
	"github.com/michaelpento.lv/dustvault/ledger"
	"github.com/michaelpento.lv/dustvault/lending"
	"github.com/michaelpento.lv/dustvault/rates"
	"github.com/michaelpento.lv/dustvault/state"
	"github.com/michaelpento.lv/dustvault/store"
	"github.com/michaelpento.lv/dustvault/token"
	"github.com/michaelpento.lv/dustvault/types"
	"github.com/michaelpento.lv/dustvault/utils/metrics"
)

// Options carries the external collaborators the vault is built from.
type Options struct {
	Store     store.Store
	Tokens    token.Service
	Pool      lending.Pool
	Registry  lending.Registry
	Oracle    rates.PriceSource
	OracleID  common.Address
	Rates     *rates.Table
	Executor  arbitrage.SwapExecutor
	Emitter   events.Emitter
	Clock     types.Clock
	Custodian common.Address
	Logger    *zap.Logger
	Metrics   prometheus.Registerer
}

// Vault is the top-level facade. All public operations run as single critical
// sections over the shared state lock.
type Vault struct {
	state    *state.Manager
	registry lending.Registry
	emitter  events.Emitter
	oracleID common.Address
	logger   *zap.Logger

	ledger    *ledger.Ledger
	lending   *lending.Manager
	health    *lending.HealthCalculator
	arbitrage *arbitrage.Orchestrator
}

// New builds the component graph. Optional collaborators default: emitter to
// a log emitter, clock to the system clock, executor to the simulated swap
// strategy, metrics to the default prometheus registerer.
func New(opts Options) *Vault {
	if opts.Emitter == nil {
		opts.Emitter = events.NewLogEmitter(opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = types.NewSystemClock()
	}
	if opts.Executor == nil {
		opts.Executor = arbitrage.NewSimulatedExecutor()
	}
	if opts.Metrics == nil {
		opts.Metrics = prometheus.DefaultRegisterer
	}
	if opts.Rates == nil {
		opts.Rates = rates.NewTable()
	}

	st := state.NewManager(opts.Store)
	v := &Vault{
		state:    st,
		registry: opts.Registry,
		emitter:  opts.Emitter,
		oracleID: opts.OracleID,
		logger:   opts.Logger,
	}
	v.ledger = ledger.New(st, opts.Tokens, opts.Rates, opts.Emitter, opts.Clock,
		opts.Custodian, opts.Logger, metrics.NewLedgerMetrics("dustvault_ledger", opts.Metrics))
	v.lending = lending.NewManager(st, opts.Pool, opts.Tokens, opts.Emitter, opts.Clock,
		opts.Custodian, opts.Logger, metrics.NewLendingMetrics("dustvault_lending", opts.Metrics))
	v.health = lending.NewHealthCalculator(st, opts.Pool, opts.Oracle, opts.Custodian)
	v.arbitrage = arbitrage.NewOrchestrator(st, opts.Pool, opts.Executor, opts.Emitter,
		opts.Custodian, opts.Logger, metrics.NewArbitrageMetrics("dustvault_arbitrage", opts.Metrics))
	return v
}

// Ledger exposes the account balance ledger.
func (v *Vault) Ledger() *ledger.Ledger { return v.ledger }

// Lending exposes the lending pool integration.
func (v *Vault) Lending() *lending.Manager { return v.lending }

// Health exposes the solvency calculator.
func (v *Vault) Health() *lending.HealthCalculator { return v.health }

// Arbitrage exposes the flash-loan orchestrator.
func (v *Vault) Arbitrage() *arbitrage.Orchestrator { return v.arbitrage }

// Initialized reports whether the singleton configuration exists.
func (v *Vault) Initialized() (bool, error) {
	v.state.RLock()
	defer v.state.RUnlock()
	return v.state.Initialized()
}

// Initialize creates the singleton configuration. Fails when already
// initialized, when the fee rate leaves the 0..10000 range, or when the pool
// registry does not recognize the designated pool.
func (v *Vault) Initialize(ctx context.Context, auth *types.AuthContext, admin common.Address, feeRateBps int64, pool common.Address, minHealthFactor *big.Int) error {
	v.state.Lock()
	defer v.state.Unlock()

	initialized, err := v.state.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return types.ErrAlreadyInitialized
	}
	if admin == (common.Address{}) {
		return types.ErrZeroAddress
	}
	if err := auth.Require(admin); err != nil {
		return err
	}
	if feeRateBps < 0 || feeRateBps > 10000 {
		return types.ErrInvalidFeeRate
	}

	ok, err := v.registry.IsPool(ctx, pool)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrInvalidPool
	}

	if err := v.state.SaveConfig(&types.Config{
		Admin:      admin,
		FeeRateBps: feeRateBps,
	}); err != nil {
		return err
	}
	if minHealthFactor == nil {
		minHealthFactor = new(big.Int)
	}
	if err := v.state.SaveLendingConfig(&types.LendingConfig{
		Pool:            pool,
		Oracle:          v.oracleID,
		MinHealthFactor: minHealthFactor,
		AutoYield:       true,
	}); err != nil {
		return err
	}
	if err := v.state.SaveStats(types.NewGlobalStats()); err != nil {
		return err
	}

	v.logger.Info("vault initialized",
		zap.String("admin", admin.Hex()),
		zap.String("pool", pool.Hex()),
		zap.Int64("fee_rate_bps", feeRateBps))
	return nil
}

func (v *Vault) requireAdmin(auth *types.AuthContext) (*types.Config, error) {
	cfg, err := v.state.Config()
	if err != nil {
		return nil, err
	}
	if err := auth.Require(cfg.Admin); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetPaused toggles the global pause flag.
func (v *Vault) SetPaused(_ context.Context, auth *types.AuthContext, paused bool) error {
	v.state.Lock()
	defer v.state.Unlock()

	cfg, err := v.requireAdmin(auth)
	if err != nil {
		return err
	}
	cfg.Paused = paused
	if err := v.state.SaveConfig(cfg); err != nil {
		return err
	}
	v.emitter.Emit(events.Paused{Paused: paused})
	return nil
}

// ChangeAdmin rotates the admin identity. Both the outgoing and the incoming
// admin must be proven in the same auth context.
func (v *Vault) ChangeAdmin(_ context.Context, auth *types.AuthContext, newAdmin common.Address) error {
	v.state.Lock()
	defer v.state.Unlock()

	cfg, err := v.requireAdmin(auth)
	if err != nil {
		return err
	}
	if newAdmin == (common.Address{}) {
		return types.ErrZeroAddress
	}
	if err := auth.Require(newAdmin); err != nil {
		return err
	}

	oldAdmin := cfg.Admin
	cfg.Admin = newAdmin
	if err := v.state.SaveConfig(cfg); err != nil {
		return err
	}
	v.emitter.Emit(events.AdminChanged{OldAdmin: oldAdmin, NewAdmin: newAdmin})
	v.logger.Info("admin rotated",
		zap.String("old", oldAdmin.Hex()),
		zap.String("new", newAdmin.Hex()))
	return nil
}

// SetFeeRate updates the protocol fee, bounded to 0..10000 bps.
func (v *Vault) SetFeeRate(_ context.Context, auth *types.AuthContext, feeRateBps int64) error {
	v.state.Lock()
	defer v.state.Unlock()

	cfg, err := v.requireAdmin(auth)
	if err != nil {
		return err
	}
	if feeRateBps < 0 || feeRateBps > 10000 {
		return types.ErrInvalidFeeRate
	}
	cfg.FeeRateBps = feeRateBps
	if err := v.state.SaveConfig(cfg); err != nil {
		return err
	}
	v.emitter.Emit(events.FeeRateSet{FeeRateBps: feeRateBps})
	return nil
}

// GetAdmin returns the stored admin identity.
func (v *Vault) GetAdmin() (common.Address, error) {
	v.state.RLock()
	defer v.state.RUnlock()
	cfg, err := v.state.Config()
	if err != nil {
		return common.Address{}, err
	}
	return cfg.Admin, nil
}

// GetFeeRate returns the protocol fee in basis points.
func (v *Vault) GetFeeRate() (int64, error) {
	v.state.RLock()
	defer v.state.RUnlock()
	cfg, err := v.state.Config()
	if err != nil {
		return 0, err
	}
	return cfg.FeeRateBps, nil
}

// IsPaused reports the global pause flag.
func (v *Vault) IsPaused() (bool, error) {
	v.state.RLock()
	defer v.state.RUnlock()
	cfg, err := v.state.Config()
	if err != nil {
		return false, err
	}
	return cfg.Paused, nil
}

// Stats returns the best-effort aggregate counters.
func (v *Vault) Stats() (*types.GlobalStats, error) {
	v.state.RLock()
	defer v.state.RUnlock()
	return v.state.Stats()
}
