package simulator

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/dustvault/types"
)

var (
	errUnsupportedRequest = errors.New("simulator: unsupported request type")
	errUnbalancedLoan     = errors.New("simulator: flash loan not repaid in call")
)

// Pool is an in-memory lending pool. Submit applies request batches against
// per-account positions; FlashLoan additionally refuses batches whose borrows
// are not fully repaid within the same call.
type Pool struct {
	mu        sync.Mutex
	status    types.PoolStatus
	positions map[common.Address]*types.UserPosition
}

func NewPool() *Pool {
	return &Pool{positions: make(map[common.Address]*types.UserPosition)}
}

// SetStatus overrides the reported pool status.
func (p *Pool) SetStatus(status types.PoolStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *Pool) position(account common.Address) *types.UserPosition {
	position, ok := p.positions[account]
	if !ok {
		position = &types.UserPosition{
			Collateral:  make(map[common.Address]*big.Int),
			Liabilities: make(map[common.Address]*big.Int),
			Supply:      make(map[common.Address]*big.Int),
		}
		p.positions[account] = position
	}
	return position
}

func adjust(exposure map[common.Address]*big.Int, asset common.Address, delta *big.Int) {
	current, ok := exposure[asset]
	if !ok {
		current = new(big.Int)
	}
	next := new(big.Int).Add(current, delta)
	if next.Sign() < 0 {
		next = new(big.Int)
	}
	exposure[asset] = next
}

func (p *Pool) apply(account common.Address, requests []types.LendingRequest) error {
	position := p.position(account)
	for _, request := range requests {
		switch request.Type {
		case types.RequestDeposit:
			adjust(position.Supply, request.Asset, request.Amount)
		case types.RequestWithdraw:
			adjust(position.Supply, request.Asset, new(big.Int).Neg(request.Amount))
		case types.RequestDepositCollateral:
			adjust(position.Collateral, request.Asset, request.Amount)
		case types.RequestWithdrawCollateral:
			adjust(position.Collateral, request.Asset, new(big.Int).Neg(request.Amount))
		case types.RequestBorrow:
			adjust(position.Liabilities, request.Asset, request.Amount)
		case types.RequestRepay:
			adjust(position.Liabilities, request.Asset, new(big.Int).Neg(request.Amount))
		default:
			return errUnsupportedRequest
		}
	}
	return nil
}

func (p *Pool) Submit(_ context.Context, _, _, to common.Address, requests []types.LendingRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.apply(to, requests)
}

func (p *Pool) FlashLoan(_ context.Context, _, _, to common.Address, requests []types.LendingRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Net borrow per asset must be zero by the end of the batch.
	outstanding := make(map[common.Address]*big.Int)
	net := func(asset common.Address) *big.Int {
		total, ok := outstanding[asset]
		if !ok {
			total = new(big.Int)
			outstanding[asset] = total
		}
		return total
	}
	for _, request := range requests {
		switch request.Type {
		case types.RequestBorrow:
			net(request.Asset).Add(net(request.Asset), request.Amount)
		case types.RequestRepay:
			net(request.Asset).Sub(net(request.Asset), request.Amount)
		}
	}
	for _, remaining := range outstanding {
		if remaining.Sign() != 0 {
			return errUnbalancedLoan
		}
	}
	return p.apply(to, requests)
}

func (p *Pool) GetUserPosition(_ context.Context, account common.Address) (*types.UserPosition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	position := p.position(account)
	out := &types.UserPosition{
		Collateral:  make(map[common.Address]*big.Int, len(position.Collateral)),
		Liabilities: make(map[common.Address]*big.Int, len(position.Liabilities)),
		Supply:      make(map[common.Address]*big.Int, len(position.Supply)),
	}
	for asset, amount := range position.Collateral {
		out.Collateral[asset] = new(big.Int).Set(amount)
	}
	for asset, amount := range position.Liabilities {
		out.Liabilities[asset] = new(big.Int).Set(amount)
	}
	for asset, amount := range position.Supply {
		out.Supply[asset] = new(big.Int).Set(amount)
	}
	return out, nil
}

func (p *Pool) GetPoolStatus(_ context.Context) (types.PoolStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, nil
}

// Registry recognizes a fixed set of pool identities.
type Registry struct {
	pools map[common.Address]struct{}
}

func NewRegistry(pools ...common.Address) *Registry {
	registry := &Registry{pools: make(map[common.Address]struct{}, len(pools))}
	for _, pool := range pools {
		registry.pools[pool] = struct{}{}
	}
	return registry
}

func (r *Registry) IsPool(_ context.Context, pool common.Address) (bool, error) {
	_, ok := r.pools[pool]
	return ok, nil
}
