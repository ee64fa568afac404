// Package state maps the typed persisted records onto the key-addressed
// store. Every public vault operation loads the records it needs at entry and
// saves them before returning; nothing is kept as ambient global state.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/dustvault/store"
	"github.com/michaelpento.lv/dustvault/types"
)

const (
	keyConfig        = "config"
	keyLendingConfig = "lending_config"
	keyStats         = "stats"
	balancePrefix    = "balance/"
	indexPrefix      = "index/"
)

// Manager owns the persisted records and the ledger-wide lock. The reference
// design runs in a serialized execution environment; outside of one, every
// mutating operation must hold the write lock for its full duration so that
// each call remains a single critical section.
type Manager struct {
	mu    sync.RWMutex
	store store.Store
}

func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

// Lock acquires the ledger-wide write lock.
func (m *Manager) Lock() { m.mu.Lock() }

// Unlock releases the ledger-wide write lock.
func (m *Manager) Unlock() { m.mu.Unlock() }

// RLock acquires the ledger-wide read lock for read-only accessors.
func (m *Manager) RLock() { m.mu.RLock() }

// RUnlock releases the ledger-wide read lock.
func (m *Manager) RUnlock() { m.mu.RUnlock() }

func (m *Manager) get(key string, out interface{}) (bool, error) {
	raw, err := m.store.Get(key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("state: load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) put(key string, record interface{}) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	if err := m.store.Set(key, raw); err != nil {
		return fmt.Errorf("state: save %s: %w", key, err)
	}
	return nil
}

// Initialized reports whether the singleton config record exists.
func (m *Manager) Initialized() (bool, error) {
	ok, err := m.store.Has(keyConfig)
	if err != nil {
		return false, fmt.Errorf("state: check config: %w", err)
	}
	return ok, nil
}

// Config loads the singleton configuration. A missing record is
// ErrNotInitialized, never an implicit default.
func (m *Manager) Config() (*types.Config, error) {
	var cfg types.Config
	found, err := m.get(keyConfig, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrNotInitialized
	}
	return &cfg, nil
}

func (m *Manager) SaveConfig(cfg *types.Config) error {
	return m.put(keyConfig, cfg)
}

// ActiveConfig loads the configuration and enforces the standard operation
// gate: the vault must be initialized and not paused.
func (m *Manager) ActiveConfig() (*types.Config, error) {
	cfg, err := m.Config()
	if err != nil {
		return nil, err
	}
	if cfg.Paused {
		return nil, types.ErrPaused
	}
	return cfg, nil
}

// LendingConfig loads the lending pool binding.
func (m *Manager) LendingConfig() (*types.LendingConfig, error) {
	var cfg types.LendingConfig
	found, err := m.get(keyLendingConfig, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ErrNotInitialized
	}
	return &cfg, nil
}

func (m *Manager) SaveLendingConfig(cfg *types.LendingConfig) error {
	return m.put(keyLendingConfig, cfg)
}

// Stats loads the aggregate counters, defaulting to zeroes when absent.
func (m *Manager) Stats() (*types.GlobalStats, error) {
	var stats types.GlobalStats
	found, err := m.get(keyStats, &stats)
	if err != nil {
		return nil, err
	}
	if !found {
		return types.NewGlobalStats(), nil
	}
	return &stats, nil
}

func (m *Manager) SaveStats(stats *types.GlobalStats) error {
	return m.put(keyStats, stats)
}

func balanceKey(user, token common.Address) string {
	return balancePrefix + user.Hex() + "/" + token.Hex()
}

func indexKey(user common.Address) string {
	return indexPrefix + user.Hex()
}

// Balance loads the (user, token) record. The second return reports whether
// the record existed; callers create records lazily on first touch.
func (m *Manager) Balance(user, token common.Address) (*types.UserTokenBalance, bool, error) {
	var balance types.UserTokenBalance
	found, err := m.get(balanceKey(user, token), &balance)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return &balance, true, nil
}

func (m *Manager) SaveBalance(user common.Address, balance *types.UserTokenBalance) error {
	return m.put(balanceKey(user, balance.Token), balance)
}

// TokenIndex returns the append-only ordered list of tokens the user has ever
// touched. It may contain stale zero-balance entries; readers filter.
func (m *Manager) TokenIndex(user common.Address) ([]common.Address, error) {
	var index []common.Address
	if _, err := m.get(indexKey(user), &index); err != nil {
		return nil, err
	}
	return index, nil
}

// AppendTokenIndex registers token in the user's index unless already
// present. Returns true when this was the user's first ever entry.
func (m *Manager) AppendTokenIndex(user, token common.Address) (bool, error) {
	index, err := m.TokenIndex(user)
	if err != nil {
		return false, err
	}
	for _, existing := range index {
		if existing == token {
			return false, nil
		}
	}
	first := len(index) == 0
	index = append(index, token)
	if err := m.put(indexKey(user), index); err != nil {
		return false, err
	}
	return first, nil
}
