// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bibrecord-engine/internal/export"
	"github.com/pdiddy/bibrecord-engine/internal/store"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Bundle all fetched record files into a zip",
	RunE:  runArchive,
}

func init() {
	archiveCmd.Flags().String("out", "", "archive path (default: <data-dir>/records.zip)")

	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	resolveDataDir(cmd, &cfg)

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(cfg.Export.DataDir, "records.zip")
	}

	st := store.New(cfg.Export.DataDir)
	n, err := export.Archive(st, out)
	if err != nil {
		return err
	}
	fmt.Printf("Archived %d record(s) to %s\n", n, out)
	return nil
}
