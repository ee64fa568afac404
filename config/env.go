package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvCustodian = "DUSTVAULT_CUSTODIAN"
	EnvAdmin     = "DUSTVAULT_ADMIN"
	EnvPool      = "DUSTVAULT_POOL"
	EnvStorePath = "DUSTVAULT_STORE_PATH"
	EnvRatesFile = "DUSTVAULT_RATES_FILE"
)

// LoadEnv loads environment variables from .env file
func LoadEnv() error {
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv fails when the variable is unset or empty.
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}

// ApplyEnvOverrides layers environment values over a loaded config. Address
// variables must be valid hex when present.
func ApplyEnvOverrides(cfg *Config) error {
	for _, override := range []struct {
		key    string
		target *common.Address
	}{
		{EnvCustodian, &cfg.Custodian},
		{EnvAdmin, &cfg.Admin},
		{EnvPool, &cfg.Pool},
	} {
		value := os.Getenv(override.key)
		if value == "" {
			continue
		}
		if !common.IsHexAddress(value) {
			return fmt.Errorf("invalid address in %s: %s", override.key, value)
		}
		*override.target = common.HexToAddress(value)
	}
	cfg.StorePath = GetEnvWithDefault(EnvStorePath, cfg.StorePath)
	cfg.RatesFile = GetEnvWithDefault(EnvRatesFile, cfg.RatesFile)
	return nil
}
