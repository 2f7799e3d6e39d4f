// =============================================================================
// Stock Scan - Export Writer Module
// =============================================================================
//
// This module produces the export artifact of a stock check: one row per
// scanned code, in the order the codes were accepted.
//
// ARTIFACT STRUCTURE:
//
//   | <identifier label> | <category label> | in-expected-set |
//   |--------------------|------------------|-----------------|
//   | A1                 | Ford             | yes             |
//   | b7                 | Kia              | no              |
//
//   The first two header cells reuse the labels of the loaded table, so an
//   export can be loaded back as a table. "in-expected-set" is evaluated
//   against the filter active at export time.
//
// FORMATS:
//   - Delimited text, quoting fields that contain the delimiter, the quote
//     character or a line break (a quote inside a field is doubled)
//   - XLSX workbook
//
// =============================================================================

package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/stock-scan/internal/inventory"
)

// InExpectedSetLabel is the header of the third export column.
const InExpectedSetLabel = "in-expected-set"

// =============================================================================
// SHEET
// =============================================================================

// Row is one exported scan.
type Row struct {
	Identifier    string
	Category      string
	InExpectedSet bool
}

// Sheet is the export artifact before encoding.
type Sheet struct {
	Headers [3]string
	Rows    []Row
}

// Build assembles the export sheet.
//
// PARAMETERS:
//   - table: The loaded table (may be nil when nothing is loaded).
//   - scanned: Accepted codes in insertion order, original casing.
//   - isExpected: Reports whether a code is in the current expected set.
//
// RETURNS:
//   - The sheet, one row per scanned code.
func Build(table *inventory.Table, scanned []string, isExpected func(code string) bool) Sheet {
	sheet := Sheet{Headers: [3]string{"identifier", "category", InExpectedSetLabel}}

	categories := make(map[string]string)
	if table != nil {
		sheet.Headers[0] = table.Columns.Identifier
		sheet.Headers[1] = table.Columns.Category
		for _, r := range table.Records {
			key := inventory.Normalize(table.Columns.IdentifierOf(r))
			if _, seen := categories[key]; !seen {
				categories[key] = table.Columns.CategoryOf(r)
			}
		}
	}

	sheet.Rows = make([]Row, 0, len(scanned))
	for _, code := range scanned {
		sheet.Rows = append(sheet.Rows, Row{
			Identifier:    code,
			Category:      categories[inventory.Normalize(code)],
			InExpectedSet: isExpected != nil && isExpected(code),
		})
	}
	return sheet
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls delimited text encoding.
type Options struct {
	Delimiter rune
	Quote     rune

	// Yes and No render the in-expected-set flag.
	Yes string
	No  string
}

// DefaultOptions returns comma-separated output with double quotes.
func DefaultOptions() Options {
	return Options{Delimiter: ',', Quote: '"', Yes: "yes", No: "no"}
}

func (o Options) flag(v bool) string {
	if v {
		return o.Yes
	}
	return o.No
}

// =============================================================================
// DELIMITED TEXT
// =============================================================================

// WriteCSV encodes the sheet as delimited text with CRLF-free LF line ends.
func WriteCSV(w io.Writer, sheet Sheet, opts Options) error {
	var buffer bytes.Buffer

	writeLine := func(fields ...string) {
		for i, f := range fields {
			if i > 0 {
				buffer.WriteRune(opts.Delimiter)
			}
			buffer.WriteString(escapeField(f, opts.Delimiter, opts.Quote))
		}
		buffer.WriteByte('\n')
	}

	writeLine(sheet.Headers[:]...)
	for _, row := range sheet.Rows {
		writeLine(row.Identifier, row.Category, opts.flag(row.InExpectedSet))
	}

	if _, err := w.Write(buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// escapeField quotes a field when it contains the delimiter, the quote
// character or a line break.
func escapeField(s string, delim, quote rune) string {
	if !strings.ContainsRune(s, delim) && !strings.ContainsRune(s, quote) && !strings.ContainsAny(s, "\r\n") {
		return s
	}

	var buffer bytes.Buffer
	buffer.WriteRune(quote)
	for _, r := range s {
		if r == quote {
			buffer.WriteRune(quote)
		}
		buffer.WriteRune(r)
	}
	buffer.WriteRune(quote)
	return buffer.String()
}

// =============================================================================
// XLSX
// =============================================================================

// SheetName is the worksheet the XLSX export writes to.
const SheetName = "Scanned"

// WriteXLSX encodes the sheet as a workbook.
func WriteXLSX(w io.Writer, sheet Sheet, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	header := []interface{}{sheet.Headers[0], sheet.Headers[1], sheet.Headers[2]}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{row.Identifier, row.Category, opts.flag(row.InExpectedSet)}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
