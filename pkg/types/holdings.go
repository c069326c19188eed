// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// InstitutionHoldings holds the summary counts reported for one
// institution symbol, or an error marker when the per-symbol lookup
// failed. A snapshot entry is one or the other, never both.
type InstitutionHoldings struct {
	// InstitutionSymbol is the OCLC institution symbol (e.g. "NLTUD").
	InstitutionSymbol string `json:"institutionSymbol"`

	// TotalHoldingCount is the number of holdings the institution reports.
	TotalHoldingCount int `json:"totalHoldingCount"`

	// TotalSharedPrintCount is the number of shared print holdings.
	TotalSharedPrintCount int `json:"totalSharedPrintCount"`

	// TotalEditions is the number of editions held.
	TotalEditions int `json:"totalEditions"`

	// Error records why the lookup for this symbol failed. Empty on success.
	Error string `json:"error,omitempty"`
}

// HoldingsSnapshot is the per-identifier holdings result, one entry per
// configured institution symbol in query order. Immutable once persisted.
type HoldingsSnapshot struct {
	// OCN is the catalog number the snapshot belongs to.
	OCN string `json:"ocn"`

	// Holdings lists per-institution counts or error markers.
	Holdings []InstitutionHoldings `json:"holdings"`
}

// Failed reports whether any per-symbol lookup in the snapshot failed.
func (s *HoldingsSnapshot) Failed() bool {
	for _, h := range s.Holdings {
		if h.Error != "" {
			return true
		}
	}
	return false
}
