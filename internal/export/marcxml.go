// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export turns the per-identifier artifacts on disk into
// tabular form: flattened MARCXML and holdings tables, xlsx workbooks,
// and a zip archive of the raw records.
package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/bibrecord-engine/internal/store"
)

// ocnColumn is the merge key column present in every table.
const ocnColumn = "ocn"

// marcRecord covers the slice of MARCXML this export needs. Namespaces
// are ignored; only local element names matter.
type marcRecord struct {
	Leader        string `xml:"leader"`
	ControlFields []struct {
		Tag   string `xml:"tag,attr"`
		Value string `xml:",chardata"`
	} `xml:"controlfield"`
	DataFields []struct {
		Tag       string `xml:"tag,attr"`
		Subfields []struct {
			Code  string `xml:"code,attr"`
			Value string `xml:",chardata"`
		} `xml:"subfield"`
	} `xml:"datafield"`
}

// Table is a column-ordered set of rows keyed by column name.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// FlattenRecord flattens one MARCXML document into a single row:
// controlfields keyed by tag, datafield subfields keyed by tag_code,
// repeated keys joined with "; ". The ocn column holds the digits of
// controlfield 001.
func FlattenRecord(data []byte) (map[string]string, error) {
	var rec marcRecord
	if err := xml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing MARCXML: %w", err)
	}

	row := make(map[string]string)
	appendCell := func(key, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if prev, ok := row[key]; ok {
			row[key] = prev + "; " + value
			return
		}
		row[key] = value
	}

	if lead := strings.TrimSpace(rec.Leader); lead != "" {
		row["leader"] = lead
	}
	for _, cf := range rec.ControlFields {
		appendCell(cf.Tag, cf.Value)
	}
	for _, df := range rec.DataFields {
		for _, sf := range df.Subfields {
			appendCell(df.Tag+"_"+sf.Code, sf.Value)
		}
	}
	row[ocnColumn] = digits(row["001"])
	return row, nil
}

// digits strips everything but 0-9, turning prefixed control numbers
// like "ocm01234567" into the bare identifier.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildRecordTable flattens every record file in the store into one
// table. Columns are the sorted union of keys across rows, ocn first.
func BuildRecordTable(st *store.Store) (*Table, error) {
	entries, err := os.ReadDir(st.RecordsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return &Table{Columns: []string{ocnColumn}}, nil
		}
		return nil, fmt.Errorf("listing records: %w", err)
	}

	var rows []map[string]string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		path := filepath.Join(st.RecordsDir(), e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading record %s: %w", e.Name(), err)
		}
		row, err := FlattenRecord(data)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", e.Name(), err)
		}
		if row[ocnColumn] == "" {
			// No usable 001; fall back to the file's identifier.
			row[ocnColumn] = strings.TrimSuffix(e.Name(), ".xml")
		}
		rows = append(rows, row)
	}

	sortRowsByOCN(rows)
	return &Table{Columns: columnUnion(rows), Rows: rows}, nil
}

// columnUnion returns the sorted union of row keys with ocn first.
func columnUnion(rows []map[string]string) []string {
	seen := map[string]bool{ocnColumn: true}
	cols := []string{ocnColumn}
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols[1:])
	return cols
}

func sortRowsByOCN(rows []map[string]string) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i][ocnColumn], rows[j][ocnColumn]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
