// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibrecord-engine/internal/export"
	"github.com/pdiddy/bibrecord-engine/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export fetched records and holdings to xlsx workbooks",
	Long: `Export flattens the fetched MARCXML records and holdings snapshots into
three xlsx workbooks: one per record, one per holdings snapshot, and one with
holdings columns merged onto the records by OCLC number.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("out-dir", "", "output directory (default: <data-dir>/exports)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	resolveDataDir(cmd, &cfg)

	outDir, _ := cmd.Flags().GetString("out-dir")
	if outDir == "" {
		outDir = filepath.Join(cfg.Export.DataDir, "exports")
	}

	st := store.New(cfg.Export.DataDir)
	targets := []struct {
		name  string
		write func(*store.Store, string) (int, error)
	}{
		{cfg.Export.RecordsFile, export.Records},
		{cfg.Export.HoldingsFile, export.Holdings},
		{cfg.Export.MergedFile, export.Merged},
	}
	for _, tgt := range targets {
		path := filepath.Join(outDir, tgt.name)
		n, err := tgt.write(st, path)
		if err != nil {
			return fmt.Errorf("exporting %s: %w", tgt.name, err)
		}
		fmt.Printf("Wrote %s (%d rows)\n", path, n)
	}
	return nil
}
