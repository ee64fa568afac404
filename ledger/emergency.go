package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/dustvault/events"
	"github.com/michaelpento.lv/dustvault/types"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
)

// EmergencyWithdraw drains every nonzero custodial balance of the user back
// to their external account. Admin-authorized, and deliberately exempt from
// the pause gate: pausing is the usual prelude to draining.
// Stale zero-balance index entries are cheap no-ops.
func (l *Ledger) EmergencyWithdraw(ctx context.Context, auth *types.AuthContext, user common.Address) error {
	l.state.Lock()
	defer l.state.Unlock()
	return l.countError(l.emergencyWithdrawLocked(ctx, auth, user))
}

func (l *Ledger) emergencyWithdrawLocked(ctx context.Context, auth *types.AuthContext, user common.Address) error {
	cfg, err := l.state.Config()
	if err != nil {
		return err
	}
	if err := auth.Require(cfg.Admin); err != nil {
		return err
	}

	index, err := l.state.TokenIndex(user)
	if err != nil {
		return err
	}

	drained := new(big.Int)
	now := l.clock.Timestamp()
	for _, tok := range index {
		record, found, err := l.state.Balance(user, tok)
		if err != nil {
			return err
		}
		if !found || record.Balance.Sign() == 0 {
			continue
		}

		amount := new(big.Int).Set(record.Balance)
		if err := l.tokens.Transfer(ctx, tok, l.custodian, user, amount); err != nil {
			return err
		}
		record.Balance = new(big.Int)
		record.LastUpdated = now
		if err := l.state.SaveBalance(user, record); err != nil {
			return err
		}
		drained.Add(drained, l.usdValue(tok, amount))

		l.emitter.Emit(events.EmergencyWithdraw{User: user, Token: tok, Amount: amount})
	}

	if drained.Sign() > 0 {
		l.adjustStats(func(stats *types.GlobalStats) {
			stats.TotalTVL = vaultmath.SaturatingSub(stats.TotalTVL, drained)
		})
	}
	l.metrics.EmergencyDrains.Inc()
	l.logger.Info("emergency withdraw",
		zap.String("user", user.Hex()),
		zap.Int("tokens", len(index)))
	return nil
}
