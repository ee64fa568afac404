package lending

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/dustvault/rates"
	"github.com/michaelpento.lv/dustvault/state"
	vaultmath "github.com/michaelpento.lv/dustvault/utils/math"
)

// liquidationThresholdBps is the fixed risk weight applied to collateral.
const liquidationThresholdBps = 8000

// priceScale matches the oracle's 1e6 price scaling.
var priceScale = big.NewInt(1_000_000)

// HealthCalculator derives the solvency ratio of the vault's aggregate pool
// position. Read-only; no state is mutated.
type HealthCalculator struct {
	state     *state.Manager
	pool      Pool
	oracle    rates.PriceSource
	custodian common.Address
}

func NewHealthCalculator(st *state.Manager, pool Pool, oracle rates.PriceSource, custodian common.Address) *HealthCalculator {
	return &HealthCalculator{state: st, pool: pool, oracle: oracle, custodian: custodian}
}

// HealthFactor prices every nonzero collateral and liability entry of the
// pool position and returns collateral*8000/debt/10000, truncating at each
// step in that order. With no debt the position cannot be liquidated and the
// factor is the maximum representable value.
func (h *HealthCalculator) HealthFactor(ctx context.Context) (*big.Int, error) {
	h.state.RLock()
	defer h.state.RUnlock()

	if _, err := h.state.Config(); err != nil {
		return nil, err
	}

	position, err := h.pool.GetUserPosition(ctx, h.custodian)
	if err != nil {
		return nil, err
	}

	collateralValue, err := h.valueOf(position.Collateral)
	if err != nil {
		return nil, err
	}
	debtValue, err := h.valueOf(position.Liabilities)
	if err != nil {
		return nil, err
	}

	if debtValue.Sign() == 0 {
		return new(big.Int).Set(vaultmath.MaxBalance), nil
	}

	factor := new(big.Int).Mul(collateralValue, big.NewInt(liquidationThresholdBps))
	factor.Quo(factor, debtValue)
	factor.Quo(factor, big.NewInt(10000))
	return factor, nil
}

func (h *HealthCalculator) valueOf(exposure map[common.Address]*big.Int) (*big.Int, error) {
	total := new(big.Int)
	for asset, amount := range exposure {
		if amount == nil || amount.Sign() <= 0 {
			continue
		}
		price, err := h.oracle.GetPrice(asset)
		if err != nil {
			return nil, err
		}
		value := new(big.Int).Mul(amount, price)
		value.Quo(value, priceScale)
		total.Add(total, value)
	}
	return total, nil
}
