package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pricecompare/internal/common/config"
	"pricecompare/internal/common/logging"
)

var cfg *config.Config

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operator tooling for the pricing ledger",
	Long: `ledgerctl manages role secrets and audits the item/supplier pricing mirrors.

Configuration is read from the environment (and .env when present), the same
way the pricecompare service reads it.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr so command output stays pipeable.
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: "text",
		Output: os.Stderr,
	})
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
