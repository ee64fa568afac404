// Package simulator provides in-memory stand-ins for the external token
// service, lending pool and pool registry. They honor the collaborator
// contracts closely enough for integration tests and the demo wiring; they
// are not part of the production surface.
package simulator

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/dustvault/types"
)

// TokenService keeps per-token, per-holder balances in memory.
type TokenService struct {
	mu       sync.Mutex
	balances map[common.Address]map[common.Address]*big.Int
}

func NewTokenService() *TokenService {
	return &TokenService{balances: make(map[common.Address]map[common.Address]*big.Int)}
}

func (s *TokenService) holders(token common.Address) map[common.Address]*big.Int {
	holders, ok := s.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		s.balances[token] = holders
	}
	return holders
}

func (s *TokenService) balanceOf(token, holder common.Address) *big.Int {
	balance, ok := s.holders(token)[holder]
	if !ok {
		balance = new(big.Int)
		s.holders(token)[holder] = balance
	}
	return balance
}

// Mint credits holder with amount of token.
func (s *TokenService) Mint(token, holder common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balanceOf(token, holder).Add(s.balanceOf(token, holder), amount)
}

func (s *TokenService) Balance(_ context.Context, token, holder common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.balanceOf(token, holder)), nil
}

func (s *TokenService) Transfer(_ context.Context, token, from, to common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := s.balanceOf(token, from)
	if source.Cmp(amount) < 0 {
		return types.ErrInsufficientBalance
	}
	source.Sub(source, amount)
	dest := s.balanceOf(token, to)
	dest.Add(dest, amount)
	return nil
}

func (s *TokenService) Approve(_ context.Context, token, owner, spender common.Address, amount *big.Int, expiry uint64) error {
	// Approvals are accepted unconditionally; the simulated pool moves
	// funds directly.
	return nil
}
