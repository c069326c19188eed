// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists fetched artifacts in a one-file-per-identifier
// layout and answers the existence checks that make re-runs idempotent.
// Artifacts are either wholly absent or wholly present: writes go to a
// temp file and are renamed into place, and nothing ever rewrites an
// artifact in place.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/bibrecord-engine/pkg/types"
)

const (
	recordsDir  = "records"
	holdingsDir = "holdings"

	recordExt       = ".xml"
	holdingsSuffix  = "_holdings.json"
	holdingsIndent  = "    "
	artifactPerm    = 0o644
	dirPerm         = 0o755
)

// Store is the file-backed persistence layer. Safe for concurrent use:
// existence checks are advisory and first-writer-wins on a double
// fetch, which is harmless because both writers produce the same bytes.
type Store struct {
	dataDir string
}

// New returns a Store rooted at dataDir. Directories are created
// lazily on first save, not here.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// RecordPath returns the record artifact path for one OCN.
func (s *Store) RecordPath(ocn string) string {
	return filepath.Join(s.dataDir, recordsDir, ocn+recordExt)
}

// HoldingsPath returns the holdings artifact path for one OCN.
func (s *Store) HoldingsPath(ocn string) string {
	return filepath.Join(s.dataDir, holdingsDir, ocn+holdingsSuffix)
}

// RecordsDir returns the directory containing record artifacts.
func (s *Store) RecordsDir() string {
	return filepath.Join(s.dataDir, recordsDir)
}

// HoldingsDir returns the directory containing holdings artifacts.
func (s *Store) HoldingsDir() string {
	return filepath.Join(s.dataDir, holdingsDir)
}

// RecordExists reports whether the record artifact for ocn is present.
// Presence is the idempotency signal for skipping a re-fetch.
func (s *Store) RecordExists(ocn string) bool {
	_, err := os.Stat(s.RecordPath(ocn))
	return err == nil
}

// HoldingsExist reports whether the holdings artifact for ocn is present.
func (s *Store) HoldingsExist(ocn string) bool {
	_, err := os.Stat(s.HoldingsPath(ocn))
	return err == nil
}

// SaveRecord writes the raw record bytes for ocn.
func (s *Store) SaveRecord(ocn string, data []byte) error {
	return s.writeAtomic(s.RecordPath(ocn), data)
}

// SaveHoldings serializes the snapshot for snap.OCN.
func (s *Store) SaveHoldings(snap *types.HoldingsSnapshot) error {
	data, err := json.MarshalIndent(snap, "", holdingsIndent)
	if err != nil {
		return fmt.Errorf("marshaling holdings for OCN %s: %w", snap.OCN, err)
	}
	return s.writeAtomic(s.HoldingsPath(snap.OCN), data)
}

// ReadHoldings loads a persisted snapshot.
func (s *Store) ReadHoldings(ocn string) (*types.HoldingsSnapshot, error) {
	data, err := os.ReadFile(s.HoldingsPath(ocn))
	if err != nil {
		return nil, err
	}
	var snap types.HoldingsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing holdings for OCN %s: %w", ocn, err)
	}
	return &snap, nil
}

// Missing checks batch completeness before export: it returns whether
// every identifier has its record artifact (and, when requireHoldings
// is set, its holdings artifact), plus the identifiers missing each.
func (s *Store) Missing(ocns []string, requireHoldings bool) (allPresent bool, missingRecords, missingHoldings []string) {
	allPresent = true
	for _, ocn := range ocns {
		if !s.RecordExists(ocn) {
			missingRecords = append(missingRecords, ocn)
			allPresent = false
		}
		if requireHoldings && !s.HoldingsExist(ocn) {
			missingHoldings = append(missingHoldings, ocn)
			allPresent = false
		}
	}
	return allPresent, missingRecords, missingHoldings
}

// writeAtomic writes data to path via a temp file in the same
// directory, creating the directory on first need.
func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing artifact: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, artifactPerm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
