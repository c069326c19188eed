// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibrecord-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibrecord-engine/internal/logging"
	"github.com/pdiddy/bibrecord-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if non-empty, else the loaded secret
// for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the bibrecord-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "bibrecord-engine",
	Short: "Batch fetcher for bibliographic records and institution holdings",
	Long: `bibrecord-engine fetches MARCXML bibliographic records, and optionally
per-institution holdings counts, from the WorldCat Metadata API for large
batches of OCLC numbers. Fetched artifacts land one file per identifier, so
interrupted batches resume where they left off.

Each stage is a subcommand: fetch downloads records and holdings, verify
checks a batch for completeness, export flattens the artifacts to xlsx
workbooks, archive bundles the records into a zip, and report summarizes
past runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		pretty, _ := cmd.Flags().GetBool("log-pretty")
		logging.Setup(logging.Config{Level: level, Pretty: pretty})

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bibrecord-engine.yaml or ~/.config/bibrecord-engine/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "human-readable console logs instead of JSON")
	rootCmd.PersistentFlags().String("data-dir", "", "base directory for fetched artifacts (default: data)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bibrecord-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bibrecord-engine"))
		}
	}

	viper.SetEnvPrefix("BIBRECORD_ENGINE")
	viper.AutomaticEnv()

	viper.SetDefault("api.timeout", "60s")
	viper.SetDefault("api.user_agent", "bibrecord-engine/0.1")
	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.backoff_base", "100ms")
	viper.SetDefault("retry.retryable_statuses", []int{500, 502, 503, 504})
	viper.SetDefault("fetch.workers", 10)
	viper.SetDefault("fetch.requests_per_second", 2.0)
	viper.SetDefault("fetch.data_dir", "data")
	viper.SetDefault("export.records_file", "records.xlsx")
	viper.SetDefault("export.holdings_file", "holdings.xlsx")
	viper.SetDefault("export.merged_file", "merged.xlsx")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
