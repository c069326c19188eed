// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pdiddy/bibrecord-engine/internal/batch"
	"github.com/pdiddy/bibrecord-engine/internal/input"
	"github.com/pdiddy/bibrecord-engine/internal/ratelimit"
	"github.com/pdiddy/bibrecord-engine/internal/store"
	"github.com/pdiddy/bibrecord-engine/internal/wcapi"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [OCNs...]",
	Short: "Fetch MARCXML records and optional holdings for a batch of OCLC numbers",
	Long: `Fetch downloads one MARCXML record per OCLC number, and with --holdings
one holdings snapshot per number covering the configured institution symbols.
Identifiers come from the command line, from --input (CSV with an ocn column,
or one identifier per line), or both. Already-fetched identifiers are skipped,
so an interrupted batch can simply be re-run.

Ctrl-C cancels cooperatively: in-flight downloads finish and are kept, queued
ones are discarded.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("input", "", "file of identifiers (.csv with header, or one per line)")
	fetchCmd.Flags().String("column", "", "CSV column holding the identifiers (default: ocn)")
	fetchCmd.Flags().String("delimiter", "", "CSV field delimiter (default: comma)")
	fetchCmd.Flags().Bool("holdings", false, "also fetch per-institution holdings counts")
	fetchCmd.Flags().Int("workers", 0, "worker pool size (default from config)")
	fetchCmd.Flags().Float64("rate", 0, "outbound requests per second (default from config)")
	fetchCmd.Flags().StringSlice("symbols", nil, "institution symbols for holdings (default from config)")
	fetchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while fetching")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	fetchHoldings, _ := cmd.Flags().GetBool("holdings")
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Fetch.Workers = workers
	}
	if rate, _ := cmd.Flags().GetFloat64("rate"); rate > 0 {
		cfg.Fetch.RequestsPerSecond = rate
	}
	if symbols, _ := cmd.Flags().GetStringSlice("symbols"); len(symbols) > 0 {
		cfg.Fetch.Symbols = symbols
	}

	pacer, err := ratelimit.NewPacer(cfg.Fetch.RequestsPerSecond)
	if err != nil {
		return err
	}
	client, err := wcapi.NewClient(cfg.API, cfg.Retry, pacer)
	if err != nil {
		return err
	}
	st := store.New(cfg.Fetch.DataDir)
	runner, err := batch.NewRunner(client, st, cfg.Fetch.Symbols, newConsoleReporter(os.Stderr))
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go serveMetrics(addr)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := runner.Run(ctx, ids, fetchHoldings, cfg.Fetch.Workers)

	if err := persistRun(cfg.Fetch.DataDir, res); err != nil {
		log.Error().Err(err).Msg("recording run")
	}

	printResult(res)
	if res.Cancelled {
		return fmt.Errorf("batch cancelled")
	}
	if !res.AllRecords || (res.FetchHoldings && !res.AllHoldings) {
		return fmt.Errorf("%d identifier(s) failed", len(res.Errors))
	}
	return nil
}

// persistRun writes the run to the SQLite ledger and the YAML summary.
// A cancelled context must not block bookkeeping, so this uses a fresh
// one.
func persistRun(dataDir string, res batch.Result) error {
	ledger, err := store.OpenLedger(dataDir)
	if err != nil {
		return err
	}
	defer ledger.Close()

	run := store.RunRecord{
		ID:                res.RunID,
		StartedAt:         res.StartedAt,
		FinishedAt:        res.FinishedAt,
		Total:             res.Total,
		CompletedRecords:  res.CompletedRecords,
		CompletedHoldings: res.CompletedHoldings,
		FetchHoldings:     res.FetchHoldings,
		Cancelled:         res.Cancelled,
	}
	outcomes := make([]store.OutcomeRecord, 0, len(res.Outcomes))
	for _, out := range res.Outcomes {
		outcomes = append(outcomes, store.OutcomeRecord{OCN: out.OCN, OK: out.OK, Reason: out.Reason})
	}
	if err := ledger.SaveRun(context.Background(), run, outcomes); err != nil {
		return err
	}

	path, err := batch.WriteSummary(dataDir, res)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Run summary:", path)
	return nil
}

func printResult(res batch.Result) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	fmt.Printf("Run %s: %d/%d records", res.RunID, res.CompletedRecords, res.Total)
	if res.FetchHoldings {
		fmt.Printf(", %d/%d holdings", res.CompletedHoldings, res.Total)
	}
	fmt.Println()

	switch {
	case res.Cancelled:
		yellow.Println("Cancelled before completion")
	case res.AllRecords && (!res.FetchHoldings || res.AllHoldings):
		green.Println("Complete")
	default:
		red.Printf("%d failure(s)\n", len(res.Errors))
	}
	for _, line := range res.Errors {
		red.Println("  " + line)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
	}
}
