// =============================================================================
// Stock Scan - XLSX Table Loader
// =============================================================================
//
// Many inventory systems export workbooks instead of delimited text. The
// workbook loader reads the first visible sheet and hands its rows to the
// same header detection and row extraction as the text parser, so both
// formats produce identical tables.
//
// CUSTOMIZATION:
//   Sheets whose names start with "_" are skipped, which lets a workbook carry
//   helper sheets in front of the data.
//
// =============================================================================

package tableparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/stock-scan/internal/inventory"
)

// ParseXLSX reads a workbook and parses its first data sheet.
//
// PARAMETERS:
//   - r: The workbook contents.
//   - opts: Reserved labels (delimiter and quote are ignored).
//
// RETURNS:
//   - The parsed table.
//   - An error if the workbook cannot be opened or has no usable sheet, or
//     any error Parse would return.
func ParseXLSX(r io.Reader, opts Options) (*inventory.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := firstDataSheet(f)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %q: %w", sheetName, err)
	}

	return ParseRows(rows, opts)
}

// firstDataSheet returns the first visible sheet not prefixed with "_".
func firstDataSheet(f *excelize.File) string {
	for _, name := range f.GetSheetList() {
		if strings.HasPrefix(name, "_") {
			continue
		}
		visible, err := f.GetSheetVisible(name)
		if err == nil && !visible {
			continue
		}
		return name
	}
	return ""
}
