package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a state-transition notification published to external observers.
type Event interface {
	Name() string
}

type Deposit struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
}

func (Deposit) Name() string { return "deposit" }

type Withdraw struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
}

func (Withdraw) Name() string { return "withdraw" }

type Swap struct {
	User      common.Address
	TokensIn  []common.Address
	TokenOut  common.Address
	AmountOut *big.Int
	Fee       *big.Int
}

func (Swap) Name() string { return "swap" }

type EmergencyWithdraw struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
}

func (EmergencyWithdraw) Name() string { return "emergency_withdraw" }

type Supply struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
}

func (Supply) Name() string { return "lending_supply" }

type Borrow struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
}

func (Borrow) Name() string { return "lending_borrow" }

type LendingWithdraw struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
}

func (LendingWithdraw) Name() string { return "lending_withdraw" }

type Repay struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
}

func (Repay) Name() string { return "lending_repay" }

// FlashLoanExecuted carries the net profit after the protocol fee.
type FlashLoanExecuted struct {
	User       common.Address
	LoanToken  common.Address
	LoanAmount *big.Int
	NetProfit  *big.Int
}

func (FlashLoanExecuted) Name() string { return "flash_loan_executed" }

type Paused struct {
	Paused bool
}

func (Paused) Name() string { return "paused" }

type AdminChanged struct {
	OldAdmin common.Address
	NewAdmin common.Address
}

func (AdminChanged) Name() string { return "admin_changed" }

type FeeRateSet struct {
	FeeRateBps int64
}

func (FeeRateSet) Name() string { return "fee_rate_set" }
