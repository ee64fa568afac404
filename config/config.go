package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type Config struct {
	// Identities
	Custodian common.Address `json:"custodian"`
	Admin     common.Address `json:"admin"`
	Pool      common.Address `json:"pool"`
	Oracle    common.Address `json:"oracle"`

	// Protocol parameters
	FeeRateBps      int64    `json:"fee_rate_bps"`
	MinHealthFactor *big.Int `json:"min_health_factor"`
	MinProfit       *big.Int `json:"min_profit"`

	// Storage
	StorePath string `json:"store_path"` // empty selects the in-memory store
	RatesFile string `json:"rates_file"`

	// Pool call throttling
	PoolRateLimit RateLimitConfig `json:"pool_rate_limit"`

	// Oracle cache
	OracleCacheSize   int           `json:"oracle_cache_size"`
	OracleMaxStaleAge time.Duration `json:"oracle_max_stale_age"`

	// Feature flags
	PrometheusEnabled  bool   `json:"prometheus_enabled"`
	PrometheusEndpoint string `json:"prometheus_endpoint"`

	// Internal components
	Logger *zap.Logger `json:"-"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	BurstSize         int           `json:"burst_size"`
	WaitTimeout       time.Duration `json:"wait_timeout"`
}

func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	if r.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}
	return nil
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if c.Custodian == (common.Address{}) {
		errors = append(errors, "custodian must be specified")
	}
	if c.Admin == (common.Address{}) {
		errors = append(errors, "admin must be specified")
	}
	if c.Pool == (common.Address{}) {
		errors = append(errors, "pool must be specified")
	}
	if c.FeeRateBps < 0 || c.FeeRateBps > 10000 {
		errors = append(errors, "fee_rate_bps must be within 0..10000")
	}
	if c.MinHealthFactor != nil && c.MinHealthFactor.Sign() < 0 {
		errors = append(errors, "min_health_factor must not be negative")
	}
	if c.MinProfit != nil && c.MinProfit.Sign() < 0 {
		errors = append(errors, "min_profit must not be negative")
	}
	if c.OracleCacheSize < 0 {
		errors = append(errors, "oracle_cache_size must not be negative")
	}
	if err := c.PoolRateLimit.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("pool rate limit error: %v", err))
	}
	if c.PrometheusEnabled && c.PrometheusEndpoint == "" {
		errors = append(errors, "prometheus_endpoint must be specified when prometheus is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".dustvault.json")
	}

	file, err := os.Open(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := DefaultConfig()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	config.Logger = logger

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}
	return config, nil
}

func SaveConfig(cfg *Config, cfgFile string) error {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfgFile = filepath.Join(home, ".dustvault.json")
	}

	file, err := os.Create(cfgFile)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}

func DefaultConfig() *Config {
	return &Config{
		Logger:          zap.NewNop(),
		FeeRateBps:      30,
		MinHealthFactor: big.NewInt(10000),
		MinProfit:       new(big.Int),
		PoolRateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         100,
			WaitTimeout:       time.Second,
		},
		OracleCacheSize:    128,
		OracleMaxStaleAge:  5 * time.Minute,
		PrometheusEnabled:  false,
		PrometheusEndpoint: "",
	}
}
