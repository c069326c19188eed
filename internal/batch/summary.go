// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

const reportsDir = "reports"

// Summary is the YAML run report written alongside the fetched
// artifacts, one file per run.
type Summary struct {
	RunID             string    `yaml:"run_id"`
	StartedAt         time.Time `yaml:"started_at"`
	FinishedAt        time.Time `yaml:"finished_at"`
	Total             int       `yaml:"total"`
	CompletedRecords  int       `yaml:"completed_records"`
	CompletedHoldings int       `yaml:"completed_holdings"`
	FetchHoldings     bool      `yaml:"fetch_holdings"`
	Cancelled         bool      `yaml:"cancelled"`
	AllRecords        bool      `yaml:"all_records"`
	AllHoldings       bool      `yaml:"all_holdings"`
	Errors            []string  `yaml:"errors,omitempty"`
}

// WriteSummary writes res as dataDir/reports/run-<id>.yaml and returns
// the path.
func WriteSummary(dataDir string, res Result) (string, error) {
	dir := filepath.Join(dataDir, reportsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}

	s := Summary{
		RunID:             res.RunID,
		StartedAt:         res.StartedAt,
		FinishedAt:        res.FinishedAt,
		Total:             res.Total,
		CompletedRecords:  res.CompletedRecords,
		CompletedHoldings: res.CompletedHoldings,
		FetchHoldings:     res.FetchHoldings,
		Cancelled:         res.Cancelled,
		AllRecords:        res.AllRecords,
		AllHoldings:       res.AllHoldings,
		Errors:            res.Errors,
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshaling run summary: %w", err)
	}

	path := filepath.Join(dir, "run-"+res.RunID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing run summary: %w", err)
	}
	return path, nil
}
