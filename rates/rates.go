// Package rates holds the static exchange-rate and price tables. Tables are
// data-driven and loaded from configuration so they can be updated and tested
// without code changes; they are placeholders for a production price-discovery
// mechanism.
package rates

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultPairRate is the 1:1 exchange rate, scaled by 10000.
	DefaultPairRate int64 = 10000
	// DefaultUSDRate is $1.00 scaled by 1e4, used for portfolio valuation.
	DefaultUSDRate int64 = 10000
	// DefaultOraclePrice is $1.00 scaled by 1e6, used for health factors.
	DefaultOraclePrice int64 = 1000000
)

type pairKey struct {
	in  common.Address
	out common.Address
}

// Table maps token pairs to exchange rates (scaled 1e4) and tokens to USD
// rates (scaled 1e4) and oracle prices (scaled 1e6). Symmetric pairs are not
// guaranteed; unknown entries fall back to the defaults above.
type Table struct {
	mu     sync.RWMutex
	pairs  map[pairKey]int64
	usd    map[common.Address]int64
	prices map[common.Address]int64
}

func NewTable() *Table {
	return &Table{
		pairs:  make(map[pairKey]int64),
		usd:    make(map[common.Address]int64),
		prices: make(map[common.Address]int64),
	}
}

// SetPairRate sets the tokenIn -> tokenOut exchange rate, scaled 1e4.
func (t *Table) SetPairRate(in, out common.Address, rate int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairs[pairKey{in: in, out: out}] = rate
}

// PairRate returns the tokenIn -> tokenOut rate, defaulting to 1:1.
func (t *Table) PairRate(in, out common.Address) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rate, ok := t.pairs[pairKey{in: in, out: out}]; ok {
		return rate
	}
	return DefaultPairRate
}

// SetUSDRate sets the token's USD rate, scaled 1e4.
func (t *Table) SetUSDRate(token common.Address, rate int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usd[token] = rate
}

// USDRate returns the token's USD rate, scaled 1e4, defaulting to $1.00.
func (t *Table) USDRate(token common.Address) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rate, ok := t.usd[token]; ok {
		return rate
	}
	return DefaultUSDRate
}

// SetOraclePrice sets the token's oracle price, scaled 1e6.
func (t *Table) SetOraclePrice(token common.Address, price int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prices[token] = price
}

// OraclePrice returns the token's oracle price, scaled 1e6, defaulting to
// $1.00.
func (t *Table) OraclePrice(token common.Address) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if price, ok := t.prices[token]; ok {
		return price
	}
	return DefaultOraclePrice
}

type tableFile struct {
	Pairs []struct {
		In   string `yaml:"in"`
		Out  string `yaml:"out"`
		Rate int64  `yaml:"rate"`
	} `yaml:"pairs"`
	USD    map[string]int64 `yaml:"usd"`
	Prices map[string]int64 `yaml:"prices"`
}

// LoadTable reads a rate table from a YAML file.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate table: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable decodes a YAML rate table.
func ParseTable(raw []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode rate table: %w", err)
	}

	table := NewTable()
	for _, pair := range file.Pairs {
		if !common.IsHexAddress(pair.In) || !common.IsHexAddress(pair.Out) {
			return nil, fmt.Errorf("rate table: invalid pair %q -> %q", pair.In, pair.Out)
		}
		table.SetPairRate(common.HexToAddress(pair.In), common.HexToAddress(pair.Out), pair.Rate)
	}
	for token, rate := range file.USD {
		if !common.IsHexAddress(token) {
			return nil, fmt.Errorf("rate table: invalid token %q", token)
		}
		table.SetUSDRate(common.HexToAddress(token), rate)
	}
	for token, price := range file.Prices {
		if !common.IsHexAddress(token) {
			return nil, fmt.Errorf("rate table: invalid token %q", token)
		}
		table.SetOraclePrice(common.HexToAddress(token), price)
	}
	return table, nil
}
