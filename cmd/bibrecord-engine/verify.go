// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/bibrecord-engine/internal/batch"
	"github.com/pdiddy/bibrecord-engine/internal/input"
	"github.com/pdiddy/bibrecord-engine/internal/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [OCNs...]",
	Short: "Check a batch of OCLC numbers for missing artifacts",
	Long: `Verify reports which identifiers of a batch still lack a record file,
and with --holdings which also lack a holdings snapshot. It never touches the
network; it only inspects the data directory.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("input", "", "file of identifiers (.csv with header, or one per line)")
	verifyCmd.Flags().String("column", "", "CSV column holding the identifiers (default: ocn)")
	verifyCmd.Flags().String("delimiter", "", "CSV field delimiter (default: comma)")
	verifyCmd.Flags().Bool("holdings", false, "require a holdings snapshot per identifier too")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	resolveDataDir(cmd, &cfg)

	ids := append([]string(nil), args...)
	if path, _ := cmd.Flags().GetString("input"); path != "" {
		column, _ := cmd.Flags().GetString("column")
		delimiter, _ := cmd.Flags().GetString("delimiter")
		fromFile, err := input.ReadIdentifiers(path, column, delimiter)
		if err != nil {
			return err
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		return fmt.Errorf("provide OCLC numbers as arguments or via --input")
	}

	requireHoldings, _ := cmd.Flags().GetBool("holdings")
	st := store.New(cfg.Fetch.DataDir)
	all, missingRecords, missingHoldings := st.Missing(batch.Normalize(ids), requireHoldings)

	if all {
		color.Green("Complete: every identifier has its artifacts")
		return nil
	}

	red := color.New(color.FgRed)
	if len(missingRecords) > 0 {
		red.Printf("Missing records (%d):\n", len(missingRecords))
		for _, ocn := range missingRecords {
			fmt.Println("  " + ocn)
		}
	}
	if requireHoldings && len(missingHoldings) > 0 {
		red.Printf("Missing holdings (%d):\n", len(missingHoldings))
		for _, ocn := range missingHoldings {
			fmt.Println("  " + ocn)
		}
	}
	return fmt.Errorf("batch incomplete")
}
