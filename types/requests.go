package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RequestType identifies one lending pool operation inside a submit or
// flash-loan batch.
type RequestType uint32

const (
	RequestDeposit RequestType = iota
	RequestWithdraw
	RequestDepositCollateral
	RequestWithdrawCollateral
	RequestBorrow
	RequestRepay
	RequestFillLiquidation
	RequestFillBadDebtAuction
	RequestFillInterestAuction
	RequestDeleteLiquidationAuction
)

func (t RequestType) String() string {
	switch t {
	case RequestDeposit:
		return "deposit"
	case RequestWithdraw:
		return "withdraw"
	case RequestDepositCollateral:
		return "deposit_collateral"
	case RequestWithdrawCollateral:
		return "withdraw_collateral"
	case RequestBorrow:
		return "borrow"
	case RequestRepay:
		return "repay"
	case RequestFillLiquidation:
		return "fill_liquidation"
	case RequestFillBadDebtAuction:
		return "fill_bad_debt_auction"
	case RequestFillInterestAuction:
		return "fill_interest_auction"
	case RequestDeleteLiquidationAuction:
		return "delete_liquidation_auction"
	default:
		return "unknown"
	}
}

// LendingRequest is one pool operation. Built per call, never persisted.
type LendingRequest struct {
	Type   RequestType
	Asset  common.Address
	Amount *big.Int
}

// PoolStatus gates supply and borrow. Supply is blocked only at Frozen;
// borrow is blocked at OnIce and above.
type PoolStatus uint32

const (
	PoolActive    PoolStatus = 0
	PoolAdmitting PoolStatus = 1
	PoolOnIce     PoolStatus = 2
	PoolFrozen    PoolStatus = 3
)

func (s PoolStatus) String() string {
	switch s {
	case PoolActive:
		return "active"
	case PoolAdmitting:
		return "admitting"
	case PoolOnIce:
		return "on_ice"
	default:
		return "frozen"
	}
}
