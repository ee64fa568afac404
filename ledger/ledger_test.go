package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/dustvault/events"
	"github.com/michaelpento.lv/dustvault/rates"
	"github.com/michaelpento.lv/dustvault/simulator"
	"github.com/michaelpento.lv/dustvault/state"
	"github.com/michaelpento.lv/dustvault/store"
	"github.com/michaelpento.lv/dustvault/types"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
	"github.com/michaelpento.lv/dustvault/utils/metrics"
)

var (
	admin     = common.HexToAddress("0x0000000000000000000000000000000000000042")
	custodian = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	alice     = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tokenA    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB    = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type fakeClock struct {
	ts  uint64
	seq uint64
}

func (c *fakeClock) Timestamp() uint64 { return c.ts }
func (c *fakeClock) Sequence() uint64  { return c.seq }

type fixture struct {
	ledger   *Ledger
	state    *state.Manager
	tokens   *simulator.TokenService
	recorder *events.Recorder
	table    *rates.Table
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := state.NewManager(store.NewMemoryStore())
	tokens := simulator.NewTokenService()
	recorder := events.NewRecorder()
	table := rates.NewTable()
	clock := &fakeClock{ts: 1700000000, seq: 100}

	l := New(st, tokens, table, recorder, clock, custodian, zaptest.NewLogger(t),
		metrics.NewLedgerMetrics("test_ledger", prometheus.NewRegistry()))

	require.NoError(t, st.SaveConfig(&types.Config{Admin: admin, FeeRateBps: 30}))
	return &fixture{ledger: l, state: st, tokens: tokens, recorder: recorder, table: table, clock: clock}
}

func (f *fixture) pause(t *testing.T) {
	t.Helper()
	cfg, err := f.state.Config()
	require.NoError(t, err)
	cfg.Paused = true
	require.NoError(t, f.state.SaveConfig(cfg))
}

func (f *fixture) mustDeposit(t *testing.T, user, tok common.Address, amount int64) {
	t.Helper()
	f.tokens.Mint(tok, user, big.NewInt(amount))
	require.NoError(t, f.ledger.Deposit(context.Background(),
		types.NewAuthContext(user), user, tok, big.NewInt(amount)))
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("credits the custodial balance", func(t *testing.T) {
		f := newFixture(t)
		f.tokens.Mint(tokenA, alice, big.NewInt(1000))

		err := f.ledger.Deposit(ctx, types.NewAuthContext(alice), alice, tokenA, big.NewInt(600))
		require.NoError(t, err)

		record, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Equal(t, int64(600), record.Balance.Int64())

		external, err := f.tokens.Balance(ctx, tokenA, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(400), external.Int64())

		held, err := f.tokens.Balance(ctx, tokenA, custodian)
		require.NoError(t, err)
		assert.Equal(t, int64(600), held.Int64())

		assert.Len(t, f.recorder.Named("deposit"), 1)

		stats, err := f.state.Stats()
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.ActiveUsers)
		assert.Equal(t, int64(600), stats.TotalTVL.Int64())
	})

	t.Run("rejects unauthorized caller", func(t *testing.T) {
		f := newFixture(t)
		err := f.ledger.Deposit(ctx, types.NewAuthContext(bob), alice, tokenA, big.NewInt(1))
		assert.ErrorIs(t, err, types.ErrUnauthorized)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		f := newFixture(t)
		auth := types.NewAuthContext(alice)
		assert.ErrorIs(t, f.ledger.Deposit(ctx, auth, alice, tokenA, big.NewInt(0)), types.ErrInvalidAmount)
		assert.ErrorIs(t, f.ledger.Deposit(ctx, auth, alice, tokenA, big.NewInt(-5)), types.ErrInvalidAmount)
	})

	t.Run("rejects underfunded external account", func(t *testing.T) {
		f := newFixture(t)
		f.tokens.Mint(tokenA, alice, big.NewInt(10))
		err := f.ledger.Deposit(ctx, types.NewAuthContext(alice), alice, tokenA, big.NewInt(11))
		assert.ErrorIs(t, err, types.ErrInsufficientBalance)
	})

	t.Run("rejects balance overflow", func(t *testing.T) {
		f := newFixture(t)
		auth := types.NewAuthContext(alice)
		max := new(big.Int).Set(vaultmath.MaxBalance)
		f.tokens.Mint(tokenA, alice, new(big.Int).Mul(max, big.NewInt(2)))

		require.NoError(t, f.ledger.Deposit(ctx, auth, alice, tokenA, max))
		err := f.ledger.Deposit(ctx, auth, alice, tokenA, max)
		assert.ErrorIs(t, err, types.ErrInvalidAmount)
	})

	t.Run("blocked while paused", func(t *testing.T) {
		f := newFixture(t)
		f.pause(t)
		f.tokens.Mint(tokenA, alice, big.NewInt(100))
		err := f.ledger.Deposit(ctx, types.NewAuthContext(alice), alice, tokenA, big.NewInt(100))
		assert.ErrorIs(t, err, types.ErrPaused)
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("returns funds to the external account", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 1000)

		err := f.ledger.Withdraw(ctx, types.NewAuthContext(alice), alice, tokenA, big.NewInt(400))
		require.NoError(t, err)

		record, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Equal(t, int64(600), record.Balance.Int64())

		external, err := f.tokens.Balance(ctx, tokenA, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(400), external.Int64())

		stats, err := f.state.Stats()
		require.NoError(t, err)
		assert.Equal(t, int64(600), stats.TotalTVL.Int64())
	})

	t.Run("rejects overdraw without mutating state", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)

		err := f.ledger.Withdraw(ctx, types.NewAuthContext(alice), alice, tokenA, big.NewInt(101))
		assert.ErrorIs(t, err, types.ErrInsufficientBalance)

		record, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Equal(t, int64(100), record.Balance.Int64())
	})

	t.Run("blocked while paused", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)
		f.pause(t)
		err := f.ledger.Withdraw(ctx, types.NewAuthContext(alice), alice, tokenA, big.NewInt(50))
		assert.ErrorIs(t, err, types.ErrPaused)
	})
}

func TestDepositBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("credits every element", func(t *testing.T) {
		f := newFixture(t)
		f.tokens.Mint(tokenA, alice, big.NewInt(100))
		f.tokens.Mint(tokenB, alice, big.NewInt(200))

		err := f.ledger.DepositBatch(ctx, types.NewAuthContext(alice), alice,
			[]common.Address{tokenA, tokenB},
			[]*big.Int{big.NewInt(100), big.NewInt(200)})
		require.NoError(t, err)

		recordA, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Equal(t, int64(100), recordA.Balance.Int64())
		recordB, err := f.ledger.GetBalance(alice, tokenB)
		require.NoError(t, err)
		assert.Equal(t, int64(200), recordB.Balance.Int64())

		assert.Len(t, f.recorder.Named("deposit"), 2)
	})

	t.Run("duplicate tokens accumulate", func(t *testing.T) {
		f := newFixture(t)
		f.tokens.Mint(tokenA, alice, big.NewInt(300))

		err := f.ledger.DepositBatch(ctx, types.NewAuthContext(alice), alice,
			[]common.Address{tokenA, tokenA},
			[]*big.Int{big.NewInt(100), big.NewInt(200)})
		require.NoError(t, err)

		record, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Equal(t, int64(300), record.Balance.Int64())
	})

	t.Run("shape errors", func(t *testing.T) {
		f := newFixture(t)
		auth := types.NewAuthContext(alice)

		err := f.ledger.DepositBatch(ctx, auth, alice, nil, nil)
		assert.ErrorIs(t, err, types.ErrEmptyBatch)

		err = f.ledger.DepositBatch(ctx, auth, alice,
			[]common.Address{tokenA}, []*big.Int{big.NewInt(1), big.NewInt(2)})
		assert.ErrorIs(t, err, types.ErrLengthMismatch)

		err = f.ledger.DepositBatch(ctx, auth, alice,
			[]common.Address{tokenA, tokenB}, []*big.Int{big.NewInt(1), big.NewInt(0)})
		assert.ErrorIs(t, err, types.ErrInvalidAmount)
	})

	t.Run("underfunded element aborts the whole batch", func(t *testing.T) {
		f := newFixture(t)
		f.tokens.Mint(tokenA, alice, big.NewInt(100))
		// No tokenB funding at all.

		err := f.ledger.DepositBatch(ctx, types.NewAuthContext(alice), alice,
			[]common.Address{tokenA, tokenB},
			[]*big.Int{big.NewInt(100), big.NewInt(1)})
		assert.ErrorIs(t, err, types.ErrInsufficientBalance)

		record, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Zero(t, record.Balance.Sign())

		external, err := f.tokens.Balance(ctx, tokenA, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(100), external.Int64())
		assert.Empty(t, f.recorder.Events())
	})
}

func TestWithdrawBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("debits every element", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)
		f.mustDeposit(t, alice, tokenB, 200)

		err := f.ledger.WithdrawBatch(ctx, types.NewAuthContext(alice), alice,
			[]common.Address{tokenA, tokenB},
			[]*big.Int{big.NewInt(100), big.NewInt(50)})
		require.NoError(t, err)

		recordB, err := f.ledger.GetBalance(alice, tokenB)
		require.NoError(t, err)
		assert.Equal(t, int64(150), recordB.Balance.Int64())
	})

	t.Run("overdrawn element aborts the whole batch", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)
		f.mustDeposit(t, alice, tokenB, 200)

		err := f.ledger.WithdrawBatch(ctx, types.NewAuthContext(alice), alice,
			[]common.Address{tokenA, tokenB},
			[]*big.Int{big.NewInt(100), big.NewInt(201)})
		assert.ErrorIs(t, err, types.ErrInsufficientBalance)

		recordA, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Equal(t, int64(100), recordA.Balance.Int64())
		recordB, err := f.ledger.GetBalance(alice, tokenB)
		require.NoError(t, err)
		assert.Equal(t, int64(200), recordB.Balance.Int64())
	})
}

func TestSwap(t *testing.T) {
	ctx := context.Background()

	t.Run("applies rates and fee with truncation", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 10000)
		f.table.SetPairRate(tokenA, tokenB, 15000)

		err := f.ledger.Swap(ctx, types.NewAuthContext(alice), alice, types.SwapParams{
			TokensIn:  []common.Address{tokenA},
			AmountsIn: []*big.Int{big.NewInt(10000)},
			TokenOut:  tokenB,
		})
		require.NoError(t, err)

		// 10000 * 15000 / 10000 = 15000 gross, fee 15000 * 30 / 10000 = 45.
		recordB, err := f.ledger.GetBalance(alice, tokenB)
		require.NoError(t, err)
		assert.Equal(t, int64(14955), recordB.Balance.Int64())

		recordA, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Zero(t, recordA.Balance.Sign())

		swaps := f.recorder.Named("swap")
		require.Len(t, swaps, 1)
		swap := swaps[0].(events.Swap)
		assert.Equal(t, int64(14955), swap.AmountOut.Int64())
		assert.Equal(t, int64(45), swap.Fee.Int64())
	})

	t.Run("tiny rate truncates to the exact integer", func(t *testing.T) {
		f := newFixture(t)
		cfg, err := f.state.Config()
		require.NoError(t, err)
		cfg.FeeRateBps = 0
		require.NoError(t, f.state.SaveConfig(cfg))

		f.mustDeposit(t, alice, tokenA, 10000)
		f.table.SetPairRate(tokenA, tokenB, 15)

		err = f.ledger.Swap(ctx, types.NewAuthContext(alice), alice, types.SwapParams{
			TokensIn:  []common.Address{tokenA},
			AmountsIn: []*big.Int{big.NewInt(10000)},
			TokenOut:  tokenB,
		})
		require.NoError(t, err)

		// 10000 * 15 / 10000 = 15, no fee.
		record, err := f.ledger.GetBalance(alice, tokenB)
		require.NoError(t, err)
		assert.Equal(t, int64(15), record.Balance.Int64())
	})

	t.Run("multi-input sums per-input truncated values", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 999)
		f.mustDeposit(t, alice, tokenB, 999)
		tokenC := common.HexToAddress("0x00000000000000000000000000000000000000c1")
		f.table.SetPairRate(tokenA, tokenC, 15000)
		f.table.SetPairRate(tokenB, tokenC, 5000)

		err := f.ledger.Swap(ctx, types.NewAuthContext(alice), alice, types.SwapParams{
			TokensIn:  []common.Address{tokenA, tokenB},
			AmountsIn: []*big.Int{big.NewInt(999), big.NewInt(999)},
			TokenOut:  tokenC,
		})
		require.NoError(t, err)

		// 999*15000/10000 = 1498 plus 999*5000/10000 = 499; fee on 1997
		// at 30 bps truncates to 5.
		record, err := f.ledger.GetBalance(alice, tokenC)
		require.NoError(t, err)
		assert.Equal(t, int64(1992), record.Balance.Int64())
	})

	t.Run("enforces minimum output", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 10000)

		err := f.ledger.Swap(ctx, types.NewAuthContext(alice), alice, types.SwapParams{
			TokensIn:     []common.Address{tokenA},
			AmountsIn:    []*big.Int{big.NewInt(10000)},
			TokenOut:     tokenB,
			MinAmountOut: big.NewInt(10000),
		})
		assert.ErrorIs(t, err, types.ErrInsufficientBalance)

		// Nothing persisted.
		record, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), record.Balance.Int64())
	})

	t.Run("rejects out-of-range slippage", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)

		err := f.ledger.Swap(ctx, types.NewAuthContext(alice), alice, types.SwapParams{
			TokensIn:             []common.Address{tokenA},
			AmountsIn:            []*big.Int{big.NewInt(100)},
			TokenOut:             tokenB,
			SlippageToleranceBps: 10001,
		})
		assert.ErrorIs(t, err, types.ErrInvalidSlippage)
	})

	t.Run("rejects insufficient input balance", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)

		err := f.ledger.Swap(ctx, types.NewAuthContext(alice), alice, types.SwapParams{
			TokensIn:  []common.Address{tokenA},
			AmountsIn: []*big.Int{big.NewInt(101)},
			TokenOut:  tokenB,
		})
		assert.ErrorIs(t, err, types.ErrInsufficientBalance)
	})
}

func TestEmergencyWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("drains every balance back to the user", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)
		f.mustDeposit(t, alice, tokenB, 200)

		err := f.ledger.EmergencyWithdraw(ctx, types.NewAuthContext(admin), alice)
		require.NoError(t, err)

		balances, err := f.ledger.GetAllBalances(alice)
		require.NoError(t, err)
		assert.Empty(t, balances)

		externalA, err := f.tokens.Balance(ctx, tokenA, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(100), externalA.Int64())

		assert.Len(t, f.recorder.Named("emergency_withdraw"), 2)
	})

	t.Run("works while paused", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)
		f.pause(t)

		err := f.ledger.EmergencyWithdraw(ctx, types.NewAuthContext(admin), alice)
		require.NoError(t, err)
	})

	t.Run("requires the admin, not the user", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)

		err := f.ledger.EmergencyWithdraw(ctx, types.NewAuthContext(alice), alice)
		assert.ErrorIs(t, err, types.ErrUnauthorized)
	})
}

func TestReads(t *testing.T) {
	t.Run("balance of untouched pair is zeroed", func(t *testing.T) {
		f := newFixture(t)
		record, err := f.ledger.GetBalance(alice, tokenA)
		require.NoError(t, err)
		assert.Zero(t, record.Balance.Sign())
		assert.Equal(t, tokenA, record.Token)
	})

	t.Run("all balances filter zero entries", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)
		f.mustDeposit(t, alice, tokenB, 200)
		require.NoError(t, f.ledger.Withdraw(context.Background(),
			types.NewAuthContext(alice), alice, tokenA, big.NewInt(100)))

		balances, err := f.ledger.GetAllBalances(alice)
		require.NoError(t, err)
		require.Len(t, balances, 1)
		assert.Equal(t, tokenB, balances[0].Token)
	})

	t.Run("portfolio value applies usd rates", func(t *testing.T) {
		f := newFixture(t)
		f.mustDeposit(t, alice, tokenA, 100)
		f.mustDeposit(t, alice, tokenB, 200)
		f.table.SetUSDRate(tokenB, 25000)

		value, err := f.ledger.GetPortfolioValue(alice)
		require.NoError(t, err)
		// 100 * 10000/10000 + 200 * 25000/10000 = 100 + 500.
		assert.Equal(t, int64(600), value.Int64())
	})
}
