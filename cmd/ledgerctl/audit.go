package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pricecompare/internal/common/config"
	"pricecompare/internal/common/logging"
	"pricecompare/internal/pricing/domain"
	"pricecompare/internal/server"
)

var (
	auditJSON bool
	auditFail bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report item/supplier mirror divergences",
	Long: `Scan every item and supplier document and report each pair whose mirror
entries disagree: an entry on one side only, differing base pricing, differing
rebates, or a reference to a document that no longer exists.`,
	Example: `  ledgerctl audit
  ledgerctl audit --json --fail-on-divergence`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print divergences as JSON")
	auditCmd.Flags().BoolVar(&auditFail, "fail-on-divergence", false, "exit non-zero when any divergence is found")
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if cfg.StorageDriver == config.StorageMemory {
		logging.WarnContext(ctx, "Auditing an empty in-memory store; set STORAGE_DRIVER=postgres")
	}

	storage, err := server.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	divergences, err := server.NewLedgerService(storage).AuditMirrors(ctx)
	if err != nil {
		return err
	}

	if auditJSON {
		err = printDivergencesJSON(cmd.OutOrStdout(), divergences)
	} else {
		err = printDivergences(cmd.OutOrStdout(), divergences)
	}
	if err != nil {
		return err
	}

	if auditFail && len(divergences) > 0 {
		return fmt.Errorf("%d mirror divergences found", len(divergences))
	}
	return nil
}

func printDivergences(out io.Writer, divergences []domain.Divergence) error {
	if len(divergences) == 0 {
		_, err := fmt.Fprintln(out, "mirrors are consistent")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tSUPPLIER\tKIND\tDETAIL")
	for _, d := range divergences {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ItemCode, d.Supplier, d.Kind, d.Detail)
	}
	return w.Flush()
}

type divergenceJSON struct {
	ItemCode string `json:"item_code"`
	Supplier string `json:"supplier"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail"`
}

func printDivergencesJSON(out io.Writer, divergences []domain.Divergence) error {
	rows := make([]divergenceJSON, 0, len(divergences))
	for _, d := range divergences {
		rows = append(rows, divergenceJSON{
			ItemCode: d.ItemCode,
			Supplier: d.Supplier,
			Kind:     string(d.Kind),
			Detail:   d.Detail,
		})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
