// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/bibrecord-engine/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize past runs from the run ledger",
	Long: `Report reads the SQLite run ledger and prints either the latest run
(default) or the last --limit runs, with failures grouped by reason.
Use --run to inspect one specific run's failures in full.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("run", "", "run ID to report on (default: latest)")
	reportCmd.Flags().Int("limit", 0, "list the last N runs instead of one run's detail")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	resolveDataDir(cmd, &cfg)

	ledger, err := store.OpenLedger(cfg.Fetch.DataDir)
	if err != nil {
		return err
	}
	defer ledger.Close()

	ctx := cmd.Context()

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		runs, err := ledger.Runs(ctx, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}
		for _, run := range runs {
			printRunLine(run)
		}
		return nil
	}

	runID, _ := cmd.Flags().GetString("run")
	var run store.RunRecord
	if runID == "" {
		run, err = ledger.LatestRun(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			fmt.Println("No runs recorded")
			return nil
		}
	} else {
		run, err = ledger.Run(ctx, runID)
	}
	if err != nil {
		return err
	}

	printRunLine(run)

	groups, err := ledger.FailureGroups(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		color.Green("No failures")
		return nil
	}

	red := color.New(color.FgRed)
	fmt.Println("Failures by reason:")
	for _, g := range groups {
		red.Printf("  %4d  %s\n", g.Count, g.Reason)
	}

	failures, err := ledger.Failures(ctx, run.ID)
	if err != nil {
		return err
	}
	fmt.Println("Failed identifiers:")
	for _, f := range failures {
		fmt.Printf("  OCN %s: %s\n", f.OCN, f.Reason)
	}
	return nil
}

func printRunLine(run store.RunRecord) {
	status := "complete"
	if run.Cancelled {
		status = "cancelled"
	}
	fmt.Printf("%s  %s  %d total, %d records", run.ID,
		run.StartedAt.Format("2006-01-02 15:04:05"), run.Total, run.CompletedRecords)
	if run.FetchHoldings {
		fmt.Printf(", %d holdings", run.CompletedHoldings)
	}
	fmt.Printf("  [%s]\n", status)
}
