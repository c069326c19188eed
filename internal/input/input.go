// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package input loads batches of record identifiers from files.
package input

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultColumn is the CSV header column read when none is configured.
const DefaultColumn = "ocn"

// ReadIdentifiers loads identifiers from path. CSV files must carry a
// header row and yield the named column (case-insensitive); delimiter
// selects the field separator, empty meaning comma. Any other extension
// is read as one identifier per line, blank lines and #-comments
// skipped. Values come back raw; the batch runner trims and
// deduplicates.
func ReadIdentifiers(path, column, delimiter string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCSV(path, column, delimiter)
	}
	return readLines(path)
}

func readCSV(path, column, delimiter string) ([]string, error) {
	if column == "" {
		column = DefaultColumn
	}
	comma := ','
	if delimiter != "" {
		runes := []rune(delimiter)
		if len(runes) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
		}
		comma = runes[0]
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("input %s has no %q column", path, column)
	}

	// Rows may be ragged past the identifier column.
	r.FieldsPerRecord = -1

	var ids []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if idx < len(rec) {
			ids = append(ids, rec[idx])
		}
	}
	return ids, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return ids, nil
}
