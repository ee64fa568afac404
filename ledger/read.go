package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/dustvault/types"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
)

// GetBalance returns the (user, token) record, zeroed when never touched.
func (l *Ledger) GetBalance(user, tok common.Address) (*types.UserTokenBalance, error) {
	l.state.RLock()
	defer l.state.RUnlock()

	record, found, err := l.state.Balance(user, tok)
	if err != nil {
		return nil, err
	}
	if !found {
		return types.NewUserTokenBalance(tok, l.clock.Timestamp()), nil
	}
	return record, nil
}

// GetAllBalances returns the user's records with a nonzero custodial balance,
// in index order. Stale zero-balance index entries are filtered at read time.
func (l *Ledger) GetAllBalances(user common.Address) ([]*types.UserTokenBalance, error) {
	l.state.RLock()
	defer l.state.RUnlock()

	index, err := l.state.TokenIndex(user)
	if err != nil {
		return nil, err
	}
	var out []*types.UserTokenBalance
	for _, tok := range index {
		record, found, err := l.state.Balance(user, tok)
		if err != nil {
			return nil, err
		}
		if !found || record.Balance.Sign() == 0 {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// GetPortfolioValue sums balance * USD rate / 10000 across the user's tokens.
func (l *Ledger) GetPortfolioValue(user common.Address) (*big.Int, error) {
	l.state.RLock()
	defer l.state.RUnlock()

	index, err := l.state.TokenIndex(user)
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for _, tok := range index {
		record, found, err := l.state.Balance(user, tok)
		if err != nil {
			return nil, err
		}
		if !found || record.Balance.Sign() == 0 {
			continue
		}
		total.Add(total, vaultmath.MulDiv(record.Balance, l.rates.USDRate(tok), 10000))
	}
	return total, nil
}
