// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/bibrecord-engine/internal/store"
)

// Sheet names for the three workbooks.
const (
	recordsSheet  = "Records"
	holdingsSheet = "Holdings"
	mergedSheet   = "Merged"
)

// WriteWorkbook writes tbl as a single-sheet xlsx file. Missing cells
// stay empty.
func WriteWorkbook(path, sheet string, tbl *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]interface{}, len(tbl.Columns))
	for i, c := range tbl.Columns {
		header[i] = c
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, row := range tbl.Rows {
		cells := make([]interface{}, len(tbl.Columns))
		for j, c := range tbl.Columns {
			cells[j] = row[c]
		}
		if err := setRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("addressing row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", rowNum, err)
	}
	return nil
}

// Records exports every fetched record to an xlsx workbook.
func Records(st *store.Store, path string) (int, error) {
	tbl, err := BuildRecordTable(st)
	if err != nil {
		return 0, err
	}
	return len(tbl.Rows), WriteWorkbook(path, recordsSheet, tbl)
}

// Holdings exports every holdings snapshot to an xlsx workbook.
func Holdings(st *store.Store, path string) (int, error) {
	tbl, err := BuildHoldingsTable(st)
	if err != nil {
		return 0, err
	}
	return len(tbl.Rows), WriteWorkbook(path, holdingsSheet, tbl)
}

// Merged exports the record table left-joined with holdings by ocn.
func Merged(st *store.Store, path string) (int, error) {
	records, err := BuildRecordTable(st)
	if err != nil {
		return 0, err
	}
	holdings, err := BuildHoldingsTable(st)
	if err != nil {
		return 0, err
	}
	tbl := MergeTables(records, holdings)
	return len(tbl.Rows), WriteWorkbook(path, mergedSheet, tbl)
}
