package cmd

import (
	"os"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chainwatch",
	Short: "Watch EVM chains for confirmed events and transactions, and submit fee-priced transactions",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	config.InitViper()

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().StringP(config.ChainName, "c", "mainnet", "The chain to use (mainnet, holesky, sepolia, hoodi, local)")

	rootCmd.PersistentFlags().String(config.EthereumRpcUrls, "", `Comma separated chainId=url pairs, e.g. "1=wss://<hostname>,17000=https://<hostname>"`)

	rootCmd.PersistentFlags().String(config.SignerPrivateKey, "", `Hex encoded private key used to sign submissions`)

	rootCmd.PersistentFlags().Bool(config.DatabaseEnabled, false, `Persist notifications and submissions to PostgreSQL`)
	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "chainwatch", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "chainwatch", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL ssl mode (disable, require, verify-ca, verify-full)`)

	rootCmd.PersistentFlags().Int(config.RpcHttpPort, 7101, `http rpc port`)

	rootCmd.PersistentFlags().String(config.TriggersFile, "", `Path to the YAML trigger definitions`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64(config.DataDogStatsdSampleRate, 1.0, `Sample rate for statsd metrics`)
	rootCmd.PersistentFlags().Bool(config.DataDogEnableTracing, false, `Send traces to the DataDog agent`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	rootCmd.AddCommand(watchEventsCmd)
	rootCmd.AddCommand(watchTransactionsCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(serveCmd)

	config.BindFlags(rootCmd.PersistentFlags())
}
