// =============================================================================
// Stock Scan - Inventory Filter
// =============================================================================
//
// The filter derives the expected set: the records an operator must confirm.
// A record is expected when
//   - its status equals the accepted status (trimmed, case-insensitive), and
//   - the category filter is empty or the "All" sentinel, or the record's
//     trimmed category equals the filter exactly (case-sensitive).
//
// Categories are enum-like tags, which is why they compare exactly while the
// status compares case-insensitively.
//
// =============================================================================

package inventory

import (
	"sort"
	"strings"
)

// Filter holds the fixed parameters of expected-set derivation.
type Filter struct {
	// Columns resolves the status and category fields of each record.
	Columns Columns

	// AcceptedStatus is the only status value that qualifies.
	AcceptedStatus string

	// AllLabel is the sentinel category filter meaning "every category".
	AllLabel string
}

// IsAll reports whether category selects every category.
func (f Filter) IsAll(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || (f.AllLabel != "" && category == f.AllLabel)
}

// Matches reports whether a single record belongs to the expected set.
func (f Filter) Matches(r Record, category string) bool {
	if Normalize(f.Columns.StatusOf(r)) != Normalize(f.AcceptedStatus) {
		return false
	}
	if f.IsAll(category) {
		return true
	}
	return strings.TrimSpace(f.Columns.CategoryOf(r)) == strings.TrimSpace(category)
}

// Derive returns the expected subset of records for the category filter,
// preserving table order. It is pure: the input slice is not modified.
//
// PARAMETERS:
//   - records: All records of the loaded table.
//   - category: The active category filter ("" or the All sentinel for none).
//
// RETURNS:
//   - The records that must be confirmed, in table order.
func (f Filter) Derive(records []Record, category string) []Record {
	expected := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Matches(r, category) {
			expected = append(expected, r)
		}
	}
	return expected
}

// DistinctCategories returns the unique non-empty category values, sorted
// lexicographically. Values are compared case-sensitively after trimming.
func (f Filter) DistinctCategories(records []Record) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, r := range records {
		value := strings.TrimSpace(f.Columns.CategoryOf(r))
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		unique = append(unique, value)
	}

	sort.Strings(unique)
	return unique
}
