package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pricecompare/internal/common/config"
	"pricecompare/internal/common/logging"
	"pricecompare/internal/pricing/infrastructure/postgres"
	"pricecompare/internal/pricing/infrastructure/secrets"
)

var seedSecretsCmd = &cobra.Command{
	Use:   "seed-secrets <file>",
	Short: "Load a YAML secrets file into catalog.role_secrets",
	Long: `Upsert every hashed role secret from a secrets file into PostgreSQL in one
transaction. Requires STORAGE_DRIVER=postgres.`,
	Example: `  STORAGE_DRIVER=postgres ledgerctl seed-secrets secrets.yaml`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSeedSecrets,
}

func init() {
	rootCmd.AddCommand(seedSecretsCmd)
}

func runSeedSecrets(cmd *cobra.Command, args []string) error {
	if cfg.StorageDriver != config.StoragePostgres {
		return errors.New("seed-secrets requires STORAGE_DRIVER=postgres")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening secrets file: %w", err)
	}
	defer f.Close()

	entries, err := secrets.ReadEntries(f)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := cfg.NewPostgresPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.NewDataStore(pool).SeedSecrets(ctx, entries); err != nil {
		return err
	}

	logging.InfoContext(ctx, "Role secrets seeded", "count", len(entries), "file", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d secrets\n", len(entries))
	return nil
}
