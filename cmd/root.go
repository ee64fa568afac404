package cmd

import (
	"context"

	"github.com/michaelpento.lv/dustvault/utils"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "dustvault",
	Short: "A custodial multi-token vault with lending and flash-loan arbitrage",
	Long: `A custodial vault that aggregates small token balances, routes idle
funds into a lending pool, and runs flash-loan arbitrage on the pooled
liquidity.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dustvault.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	utils.InitLogger(debug)
}
