package rates

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"

	"github.com/michaelpento.lv/dustvault/types"
)

// PriceSource is the price oracle contract. Prices are scaled by 1e6.
type PriceSource interface {
	GetPrice(asset common.Address) (*big.Int, error)
	LastUpdated(asset common.Address) (uint64, error)
}

// StaticOracle serves prices from a rate table. LastUpdated always reports
// the current timestamp, so static prices never go stale.
type StaticOracle struct {
	table *Table
	clock types.Clock
}

func NewStaticOracle(table *Table, clock types.Clock) *StaticOracle {
	return &StaticOracle{table: table, clock: clock}
}

func (o *StaticOracle) GetPrice(asset common.Address) (*big.Int, error) {
	return big.NewInt(o.table.OraclePrice(asset)), nil
}

func (o *StaticOracle) LastUpdated(asset common.Address) (uint64, error) {
	return o.clock.Timestamp(), nil
}

// CachedOracle wraps a PriceSource with an LRU price cache and a staleness
// gate: prices older than maxAge fail with ErrStaleOracle instead of being
// served.
type CachedOracle struct {
	source PriceSource
	clock  types.Clock
	maxAge uint64
	cache  *lru.Cache
}

type cachedPrice struct {
	price   *big.Int
	updated uint64
}

func NewCachedOracle(source PriceSource, clock types.Clock, maxAge uint64, size int) (*CachedOracle, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create price cache: %w", err)
	}
	return &CachedOracle{source: source, clock: clock, maxAge: maxAge, cache: cache}, nil
}

func (o *CachedOracle) GetPrice(asset common.Address) (*big.Int, error) {
	now := o.clock.Timestamp()
	if entry, ok := o.cache.Get(asset); ok {
		cached := entry.(cachedPrice)
		if now-cached.updated <= o.maxAge {
			return new(big.Int).Set(cached.price), nil
		}
		o.cache.Remove(asset)
	}

	updated, err := o.source.LastUpdated(asset)
	if err != nil {
		return nil, fmt.Errorf("oracle last_updated: %w", err)
	}
	if now > updated && now-updated > o.maxAge {
		return nil, types.ErrStaleOracle
	}

	price, err := o.source.GetPrice(asset)
	if err != nil {
		return nil, fmt.Errorf("oracle get_price: %w", err)
	}
	o.cache.Add(asset, cachedPrice{price: new(big.Int).Set(price), updated: updated})
	return new(big.Int).Set(price), nil
}

func (o *CachedOracle) LastUpdated(asset common.Address) (uint64, error) {
	return o.source.LastUpdated(asset)
}
