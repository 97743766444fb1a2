package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"pricecompare/internal/pricing/infrastructure/secrets"
)

var hashCost int

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret [plaintext]",
	Short: "Print the bcrypt hash of a role secret",
	Long: `Hash a role secret for the secrets file or the role_secrets table.
When no argument is given the plaintext is read from the first line of stdin.`,
	Example: `  ledgerctl hash-secret s3cret
  echo -n s3cret | ledgerctl hash-secret --cost 12`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashSecret,
}

func init() {
	rootCmd.AddCommand(hashSecretCmd)
	hashSecretCmd.Flags().IntVar(&hashCost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
}

func runHashSecret(cmd *cobra.Command, args []string) error {
	var plain string
	if len(args) == 1 {
		plain = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading secret from stdin: %w", err)
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if plain == "" {
		return errors.New("secret must not be empty")
	}

	hash, err := secrets.Hash(plain, hashCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}
