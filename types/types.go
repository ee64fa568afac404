package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the singleton contract configuration, created once by Initialize
// and mutated only through admin-authorized calls.
type Config struct {
	Admin         common.Address `json:"admin"`
	FeeRateBps    int64          `json:"fee_rate_bps"`
	Paused        bool           `json:"paused"`
	EmergencyMode bool           `json:"emergency_mode"`
}

// LendingConfig binds the vault to one lending pool and one price oracle.
// Written at initialization and treated as immutable afterwards.
type LendingConfig struct {
	Pool            common.Address `json:"pool"`
	Oracle          common.Address `json:"oracle"`
	MinHealthFactor *big.Int       `json:"min_health_factor"`
	AutoYield       bool           `json:"auto_yield"`
}

// UserTokenBalance tracks one (user, token) custodial position. All numeric
// fields stay non-negative. Records are created lazily on first touch and
// never deleted; a zero balance persists as a record.
type UserTokenBalance struct {
	Token               common.Address `json:"token"`
	Balance             *big.Int       `json:"balance"`
	SuppliedToLending   *big.Int       `json:"supplied_to_lending"`
	BorrowedFromLending *big.Int       `json:"borrowed_from_lending"`
	LastUpdated         uint64         `json:"last_updated"`
}

// NewUserTokenBalance returns a zeroed balance record for token.
func NewUserTokenBalance(token common.Address, now uint64) *UserTokenBalance {
	return &UserTokenBalance{
		Token:               token,
		Balance:             new(big.Int),
		SuppliedToLending:   new(big.Int),
		BorrowedFromLending: new(big.Int),
		LastUpdated:         now,
	}
}

// GlobalStats are best-effort aggregate counters. They are not transactionally
// tied to every ledger mutation.
type GlobalStats struct {
	TotalTVL    *big.Int `json:"total_tvl"`
	TotalYield  *big.Int `json:"total_yield"`
	ActiveUsers int64    `json:"active_users"`
}

// NewGlobalStats returns zeroed counters.
func NewGlobalStats() *GlobalStats {
	return &GlobalStats{TotalTVL: new(big.Int), TotalYield: new(big.Int)}
}

// SwapParams describes a multi-input swap into a single output token.
type SwapParams struct {
	TokensIn             []common.Address
	AmountsIn            []*big.Int
	TokenOut             common.Address
	MinAmountOut         *big.Int
	SlippageToleranceBps int64
}

// ArbitrageParams describes one flash-loan arbitrage attempt. SwapPath is the
// ordered sequence of venue hops handed to the swap executor.
type ArbitrageParams struct {
	LoanToken  common.Address
	LoanAmount *big.Int
	SwapPath   []common.Address
	MinProfit  *big.Int
}

// UserPosition is the aggregate account position reported by the lending
// pool: per-token collateral, liabilities and supply.
type UserPosition struct {
	Collateral  map[common.Address]*big.Int
	Liabilities map[common.Address]*big.Int
	Supply      map[common.Address]*big.Int
}
