// Package lending wraps the external lending pool: collateral supply, borrow,
// repay, collateral withdrawal and the solvency calculator.
package lending

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/dustvault/types"
)

// Pool is the external lending pool contract. Submit applies a request batch
// against the caller's position; FlashLoan additionally enforces that any
// borrow in the batch is repaid within the same call or aborts the whole
// sequence.
type Pool interface {
	Submit(ctx context.Context, from, spender, to common.Address, requests []types.LendingRequest) error
	FlashLoan(ctx context.Context, from, spender, to common.Address, requests []types.LendingRequest) error
	GetUserPosition(ctx context.Context, account common.Address) (*types.UserPosition, error)
	GetPoolStatus(ctx context.Context) (types.PoolStatus, error)
}

// Registry validates pool identities at initialization.
type Registry interface {
	IsPool(ctx context.Context, pool common.Address) (bool, error)
}
