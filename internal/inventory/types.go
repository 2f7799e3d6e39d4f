// =============================================================================
// Stock Scan - Inventory Types
// =============================================================================
//
// This package holds the inventory data model shared by the parser, the
// reconciliation engine, the session and the exporters:
//   - Record  : one data row of an inventory export
//   - Columns : the header labels of the three reserved fields
//   - Table   : the parsed export (headers in file order plus records)
//
// =============================================================================

package inventory

import "strings"

// =============================================================================
// RECORD
// =============================================================================

// Record maps a column label to its trimmed value for one data row.
// Records are never mutated after parsing; a new table replaces them wholesale.
type Record map[string]string

// Get returns the value stored under label, or "" when the column is absent.
func (r Record) Get(label string) string {
	return r[label]
}

// =============================================================================
// COLUMNS
// =============================================================================

// Columns holds the header labels of the reserved fields exactly as they
// appear in the loaded table (original casing).
type Columns struct {
	Identifier string `json:"identifier"`
	Category   string `json:"category"`
	Status     string `json:"status"`
}

// IdentifierOf returns the record's identifier value.
func (c Columns) IdentifierOf(r Record) string { return r.Get(c.Identifier) }

// CategoryOf returns the record's category value.
func (c Columns) CategoryOf(r Record) string { return r.Get(c.Category) }

// StatusOf returns the record's status value.
func (c Columns) StatusOf(r Record) string { return r.Get(c.Status) }

// =============================================================================
// TABLE
// =============================================================================

// Table is a parsed inventory export.
type Table struct {
	// Headers contains the header labels in file order.
	Headers []string `json:"headers"`

	// Columns are the resolved labels of the reserved fields.
	Columns Columns `json:"columns"`

	// Records contains one entry per accepted data row.
	Records []Record `json:"records"`
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize trims and case-folds an identifier for comparison. Stored values
// keep their original casing; only comparisons use the normalized form.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
