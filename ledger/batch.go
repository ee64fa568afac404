package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/dustvault/events"
	"github.com/michaelpento.lv/dustvault/types"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
)

// batchStage accumulates record mutations in memory so that a batch persists
// nothing until every element has validated and transferred. Duplicate tokens
// in one batch accumulate on the same staged record.
type batchStage struct {
	ledger  *Ledger
	user    common.Address
	records map[common.Address]*types.UserTokenBalance
	order   []common.Address
}

func (l *Ledger) newBatchStage(user common.Address) *batchStage {
	return &batchStage{
		ledger:  l,
		user:    user,
		records: make(map[common.Address]*types.UserTokenBalance),
	}
}

func (s *batchStage) record(tok common.Address) (*types.UserTokenBalance, error) {
	if record, ok := s.records[tok]; ok {
		return record, nil
	}
	record, err := s.ledger.loadOrCreate(s.user, tok)
	if err != nil {
		return nil, err
	}
	s.records[tok] = record
	s.order = append(s.order, tok)
	return record, nil
}

func (s *batchStage) commit() error {
	now := s.ledger.clock.Timestamp()
	for _, tok := range s.order {
		record := s.records[tok]
		record.LastUpdated = now
		if err := s.ledger.state.SaveBalance(s.user, record); err != nil {
			return err
		}
	}
	return nil
}

func validateBatchShape(toks []common.Address, amounts []*big.Int) error {
	if len(toks) == 0 || len(amounts) == 0 {
		return types.ErrEmptyBatch
	}
	if len(toks) != len(amounts) {
		return types.ErrLengthMismatch
	}
	for _, amount := range amounts {
		if !vaultmath.IsValidAmount(amount) {
			return types.ErrInvalidAmount
		}
	}
	return nil
}

// DepositBatch deposits several tokens in one unit of work. Any invalid
// element aborts the whole batch before internal state is touched.
func (l *Ledger) DepositBatch(ctx context.Context, auth *types.AuthContext, user common.Address, toks []common.Address, amounts []*big.Int) error {
	start := time.Now()
	defer func() { l.metrics.OpLatency.Observe(time.Since(start).Seconds()) }()

	l.state.Lock()
	defer l.state.Unlock()
	return l.countError(l.depositBatchLocked(ctx, auth, user, toks, amounts))
}

func (l *Ledger) depositBatchLocked(ctx context.Context, auth *types.AuthContext, user common.Address, toks []common.Address, amounts []*big.Int) error {
	if _, err := l.state.ActiveConfig(); err != nil {
		return err
	}
	if err := auth.Require(user); err != nil {
		return err
	}
	if err := validateBatchShape(toks, amounts); err != nil {
		return err
	}

	// Validation pass: stage every credit and check external funding per
	// token before any transfer happens.
	stage := l.newBatchStage(user)
	needed := make(map[common.Address]*big.Int)
	for i, tok := range toks {
		record, err := stage.record(tok)
		if err != nil {
			return err
		}
		updated, err := vaultmath.CheckedAdd(record.Balance, amounts[i])
		if err != nil {
			return err
		}
		record.Balance = updated

		total, ok := needed[tok]
		if !ok {
			total = new(big.Int)
		}
		needed[tok] = new(big.Int).Add(total, amounts[i])
	}
	for tok, total := range needed {
		external, err := l.tokens.Balance(ctx, tok, user)
		if err != nil {
			return err
		}
		if external.Cmp(total) < 0 {
			return types.ErrInsufficientBalance
		}
	}

	for i, tok := range toks {
		if err := l.tokens.Transfer(ctx, tok, user, l.custodian, amounts[i]); err != nil {
			return err
		}
	}

	if err := stage.commit(); err != nil {
		return err
	}
	tvlDelta := new(big.Int)
	for i, tok := range toks {
		l.registerToken(user, tok)
		tvlDelta.Add(tvlDelta, l.usdValue(tok, amounts[i]))
	}
	l.adjustStats(func(stats *types.GlobalStats) {
		stats.TotalTVL = new(big.Int).Add(stats.TotalTVL, tvlDelta)
	})

	l.metrics.BatchOps.Inc()
	for i, tok := range toks {
		l.metrics.Deposits.Inc()
		l.emitter.Emit(events.Deposit{User: user, Token: tok, Amount: amounts[i]})
	}
	return nil
}

// WithdrawBatch withdraws several tokens in one unit of work, with the same
// all-or-nothing semantics as DepositBatch.
func (l *Ledger) WithdrawBatch(ctx context.Context, auth *types.AuthContext, user common.Address, toks []common.Address, amounts []*big.Int) error {
	start := time.Now()
	defer func() { l.metrics.OpLatency.Observe(time.Since(start).Seconds()) }()

	l.state.Lock()
	defer l.state.Unlock()
	return l.countError(l.withdrawBatchLocked(ctx, auth, user, toks, amounts))
}

func (l *Ledger) withdrawBatchLocked(ctx context.Context, auth *types.AuthContext, user common.Address, toks []common.Address, amounts []*big.Int) error {
	if _, err := l.state.ActiveConfig(); err != nil {
		return err
	}
	if err := auth.Require(user); err != nil {
		return err
	}
	if err := validateBatchShape(toks, amounts); err != nil {
		return err
	}

	stage := l.newBatchStage(user)
	for i, tok := range toks {
		record, err := stage.record(tok)
		if err != nil {
			return err
		}
		updated, err := vaultmath.CheckedSub(record.Balance, amounts[i])
		if err != nil {
			return err
		}
		record.Balance = updated
	}

	for i, tok := range toks {
		if err := l.tokens.Transfer(ctx, tok, l.custodian, user, amounts[i]); err != nil {
			return err
		}
	}

	if err := stage.commit(); err != nil {
		return err
	}
	tvlDelta := new(big.Int)
	for i, tok := range toks {
		tvlDelta.Add(tvlDelta, l.usdValue(tok, amounts[i]))
	}
	l.adjustStats(func(stats *types.GlobalStats) {
		stats.TotalTVL = vaultmath.SaturatingSub(stats.TotalTVL, tvlDelta)
	})

	l.metrics.BatchOps.Inc()
	for i, tok := range toks {
		l.metrics.Withdrawals.Inc()
		l.emitter.Emit(events.Withdraw{User: user, Token: tok, Amount: amounts[i]})
	}
	return nil
}
