// Package token defines the external token transfer primitive. The vault only
// consumes this contract; implementations live with the execution environment.
package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Service moves tokens between accounts on behalf of the vault.
type Service interface {
	// Balance returns the holder's external balance of token.
	Balance(ctx context.Context, token, holder common.Address) (*big.Int, error)
	// Transfer moves amount of token from one account to another.
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error
	// Approve grants spender the right to move amount of the owner's tokens
	// until the given expiry sequence.
	Approve(ctx context.Context, token, owner, spender common.Address, amount *big.Int, expiry uint64) error
}
