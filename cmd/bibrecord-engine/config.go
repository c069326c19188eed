// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibrecord-engine/internal/secrets"
	"github.com/pdiddy/bibrecord-engine/pkg/types"
)

// engineConfig assembles the full stage configuration from viper and
// the loaded secrets. Credentials configured in the file or environment
// win over .secrets/ files.
func engineConfig() types.EngineConfig {
	dataDir := viper.GetString("fetch.data_dir")
	return types.EngineConfig{
		API: types.APIConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("api.timeout"),
				UserAgent: viper.GetString("api.user_agent"),
			},
			Key:             secretDefault(secrets.KeyAPIKey, viper.GetString("api.key")),
			Secret:          secretDefault(secrets.KeyAPISecret, viper.GetString("api.secret")),
			Scope:           viper.GetString("api.scope"),
			TokenURL:        viper.GetString("api.token_url"),
			MetadataBaseURL: viper.GetString("api.metadata_base_url"),
			SearchBaseURL:   viper.GetString("api.search_base_url"),
		},
		Retry: types.RetryConfig{
			MaxAttempts:       viper.GetInt("retry.max_attempts"),
			BackoffBase:       viper.GetDuration("retry.backoff_base"),
			RetryableStatuses: viper.GetIntSlice("retry.retryable_statuses"),
		},
		Fetch: types.FetchConfig{
			Workers:           viper.GetInt("fetch.workers"),
			RequestsPerSecond: viper.GetFloat64("fetch.requests_per_second"),
			Symbols:           viper.GetStringSlice("fetch.symbols"),
			DataDir:           dataDir,
		},
		Export: types.ExportConfig{
			DataDir:      dataDir,
			RecordsFile:  viper.GetString("export.records_file"),
			HoldingsFile: viper.GetString("export.holdings_file"),
			MergedFile:   viper.GetString("export.merged_file"),
		},
	}
}

// resolveDataDir applies the --data-dir flag over the configured value.
func resolveDataDir(cmd *cobra.Command, cfg *types.EngineConfig) {
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Fetch.DataDir = dir
		cfg.Export.DataDir = dir
	}
}
