// Package cmd implements the matchctl command-line interface.
package cmd

import (
	"fmt"
	"os"

	"billing-match-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "matchctl",
	Short: "Billing-to-shipment matching tool",
	Long: `Matchctl links carrier invoice lines to operational shipment records.
It parses a billing CSV export, runs each line through the matching engine
against a shipment snapshot, and reports ranked, explainable match decisions
with a review-or-accept verdict per line.

Examples:
  matchctl match --billing-file invoice.csv --snapshot shipments.db --org ORG-1
  matchctl match --billing-file invoice.csv --snapshot shipments.db --unrestricted --format json
  matchctl version`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}

	viper.SetEnvPrefix("MATCHCTL")
	viper.AutomaticEnv()

	logConfig := logger.DefaultConfig()
	if viper.GetBool("verbose") {
		logConfig = logger.DebugConfig()
	}

	if log, err := logger.NewLogger(logConfig); err == nil {
		logger.SetGlobalLogger(log)
	}
}
