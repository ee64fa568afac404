package cmd

import (
	"net/http"

	"github.com/michaelpento.lv/dustvault/config"
	"github.com/michaelpento.lv/dustvault/lending"
	"github.com/michaelpento.lv/dustvault/rates"
	"github.com/michaelpento.lv/dustvault/simulator"
	"github.com/michaelpento.lv/dustvault/store"
	"github.com/michaelpento.lv/dustvault/token"
	"github.com/michaelpento.lv/dustvault/types"
	"github.com/michaelpento.lv/dustvault/utils"
	"github.com/michaelpento.lv/dustvault/vault"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the vault service",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		if err := config.LoadEnv(); err != nil {
			log.Debug("no .env file loaded", zap.Error(err))
		}
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load config", zap.Error(err))
		}
		if err := config.ApplyEnvOverrides(cfg); err != nil {
			log.Fatal("Failed to apply environment overrides", zap.Error(err))
		}

		var backing store.Store
		if cfg.StorePath != "" {
			leveldbStore, err := store.OpenLevelDB(cfg.StorePath)
			if err != nil {
				log.Fatal("Failed to open store", zap.Error(err))
			}
			backing = leveldbStore
		} else {
			log.Warn("no store path configured, state will not survive restarts")
			backing = store.NewMemoryStore()
		}
		defer backing.Close()

		table := rates.NewTable()
		if cfg.RatesFile != "" {
			table, err = rates.LoadTable(cfg.RatesFile)
			if err != nil {
				log.Fatal("Failed to load rates file", zap.Error(err))
			}
		}

		clock := types.NewSystemClock()

		// Pool and token collaborators run against the in-memory simulator
		// until a remote client is wired in. See simulator package docs.
		var pool lending.Pool = simulator.NewPool()
		pool = lending.NewRateLimitedPool(pool,
			cfg.PoolRateLimit.RequestsPerSecond, cfg.PoolRateLimit.BurstSize)
		var tokens token.Service = simulator.NewTokenService()
		registry := simulator.NewRegistry(cfg.Pool)

		oracle, err := rates.NewCachedOracle(
			rates.NewStaticOracle(table, clock), clock,
			uint64(cfg.OracleMaxStaleAge.Seconds()), cfg.OracleCacheSize)
		if err != nil {
			log.Fatal("Failed to build oracle", zap.Error(err))
		}

		v := vault.New(vault.Options{
			Store:     backing,
			Tokens:    tokens,
			Pool:      pool,
			Registry:  registry,
			Oracle:    oracle,
			OracleID:  cfg.Oracle,
			Rates:     table,
			Clock:     clock,
			Custodian: cfg.Custodian,
			Logger:    log,
		})

		ctx := cmd.Context()

		initialized, err := v.Initialized()
		if err != nil {
			log.Fatal("Failed to read vault state", zap.Error(err))
		}
		if !initialized {
			auth := types.NewAuthContext(cfg.Admin)
			if err := v.Initialize(ctx, auth, cfg.Admin, cfg.FeeRateBps, cfg.Pool, cfg.MinHealthFactor); err != nil {
				log.Fatal("Failed to initialize vault", zap.Error(err))
			}
			log.Info("vault initialized",
				zap.String("admin", cfg.Admin.Hex()),
				zap.String("pool", cfg.Pool.Hex()))
		}

		if cfg.PrometheusEnabled {
			go func() {
				http.Handle("/metrics", promhttp.Handler())
				if err := http.ListenAndServe(cfg.PrometheusEndpoint, nil); err != nil {
					log.Error("metrics endpoint failed", zap.Error(err))
				}
			}()
			log.Info("metrics endpoint listening", zap.String("endpoint", cfg.PrometheusEndpoint))
		}

		log.Info("vault service running", zap.String("custodian", cfg.Custodian.Hex()))
		<-ctx.Done()
		log.Info("Shutting down gracefully...")
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
