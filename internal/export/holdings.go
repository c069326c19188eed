// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/bibrecord-engine/internal/store"
	"github.com/pdiddy/bibrecord-engine/pkg/types"
)

// BuildHoldingsTable flattens every holdings snapshot in the store into
// one row per identifier. Each institution symbol contributes three
// count columns (totalHoldingCount_<symbol> etc.) plus error_<symbol>
// when the symbol's lookup failed.
func BuildHoldingsTable(st *store.Store) (*Table, error) {
	entries, err := os.ReadDir(st.HoldingsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return &Table{Columns: []string{ocnColumn}}, nil
		}
		return nil, fmt.Errorf("listing holdings: %w", err)
	}

	var rows []map[string]string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_holdings.json") {
			continue
		}
		path := filepath.Join(st.HoldingsDir(), e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading holdings %s: %w", e.Name(), err)
		}
		var snap types.HoldingsSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("holdings %s: %w", e.Name(), err)
		}
		rows = append(rows, flattenSnapshot(&snap))
	}

	sortRowsByOCN(rows)
	return &Table{Columns: holdingsColumns(rows), Rows: rows}, nil
}

func flattenSnapshot(snap *types.HoldingsSnapshot) map[string]string {
	row := map[string]string{ocnColumn: snap.OCN}
	for _, h := range snap.Holdings {
		sym := h.InstitutionSymbol
		if h.Error != "" {
			row["error_"+sym] = h.Error
			continue
		}
		row["totalHoldingCount_"+sym] = strconv.Itoa(h.TotalHoldingCount)
		row["totalSharedPrintCount_"+sym] = strconv.Itoa(h.TotalSharedPrintCount)
		row["totalEditions_"+sym] = strconv.Itoa(h.TotalEditions)
	}
	return row
}

// holdingsColumns groups the union of columns by institution symbol so
// each symbol's counts sit together in the sheet.
func holdingsColumns(rows []map[string]string) []string {
	seen := map[string]bool{ocnColumn: true}
	var rest []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		si, sj := columnSymbol(rest[i]), columnSymbol(rest[j])
		if si != sj {
			return si < sj
		}
		return rest[i] < rest[j]
	})
	return append([]string{ocnColumn}, rest...)
}

func columnSymbol(col string) string {
	if i := strings.LastIndex(col, "_"); i >= 0 {
		return col[i+1:]
	}
	return col
}

// MergeTables left-joins holdings columns onto the record table by ocn.
// Record rows without a snapshot keep empty holdings cells; snapshots
// without a record are dropped.
func MergeTables(records, holdings *Table) *Table {
	bySnap := make(map[string]map[string]string, len(holdings.Rows))
	for _, row := range holdings.Rows {
		bySnap[row[ocnColumn]] = row
	}

	cols := append([]string(nil), records.Columns...)
	for _, c := range holdings.Columns {
		if c != ocnColumn {
			cols = append(cols, c)
		}
	}

	merged := &Table{Columns: cols}
	for _, rec := range records.Rows {
		row := make(map[string]string, len(rec))
		for k, v := range rec {
			row[k] = v
		}
		if snap, ok := bySnap[rec[ocnColumn]]; ok {
			for k, v := range snap {
				if k != ocnColumn {
					row[k] = v
				}
			}
		}
		merged.Rows = append(merged.Rows, row)
	}
	return merged
}
