// =============================================================================
// Stock Scan - Table Parser Module
// =============================================================================
//
// This module turns inventory exports into an inventory.Table. Exports from
// dealer management systems are messy, so the parser is deliberately lenient:
//   - Report titles and banners above the header row are ignored
//   - The header row is located by searching for the identifier label
//   - Quoted fields may contain the delimiter; "" inside quotes is a literal "
//   - Blank lines are skipped
//   - Rows with an empty identifier (totals, footers) are skipped
//   - Short rows yield "" for the missing trailing columns
//
// HEADER DETECTION:
//   The header is the first line having a field that, once trimmed, equals
//   the identifier label case-insensitively. Substrings do not count, so a
//   banner such as "Stock # report" never becomes the header.
//
// Only two failures abort a load: no header row at all, and a header row that
// lacks one of the reserved labels. Both leave the caller's state untouched
// because nothing is returned.
//
// =============================================================================

package tableparser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/stock-scan/internal/config"
	"github.com/ginjaninja78/stock-scan/internal/inventory"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrHeaderNotFound means no line contains the identifier label.
	ErrHeaderNotFound = errors.New("header row not found")

	// ErrMissingRequiredColumn means the header lacks a reserved label.
	ErrMissingRequiredColumn = errors.New("missing required column")
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls delimiter handling and the reserved column labels.
type Options struct {
	Delimiter rune
	Quote     rune

	IdentifierLabel string
	CategoryLabel   string
	StatusLabel     string
}

// DefaultOptions matches the defaults of the configuration file.
func DefaultOptions() Options {
	return Options{
		Delimiter:       ',',
		Quote:           '"',
		IdentifierLabel: "Stock #",
		CategoryLabel:   "Make",
		StatusLabel:     "Condition",
	}
}

// OptionsFromConfig builds parser options from the table settings.
func OptionsFromConfig(settings config.TableSettings) (Options, error) {
	delim, err := settings.DelimiterRune()
	if err != nil {
		return Options{}, err
	}
	quote, err := settings.QuoteRune()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Delimiter:       delim,
		Quote:           quote,
		IdentifierLabel: settings.IdentifierLabel,
		CategoryLabel:   settings.CategoryLabel,
		StatusLabel:     settings.StatusLabel,
	}, nil
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads an inventory export from disk. Files ending in .xlsx or
// .xlsm are read as workbooks; everything else is delimited text.
func ParseFile(path string, opts Options) (*inventory.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		return ParseXLSX(f, opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(string(data), opts)
}

// ParseReader reads all of r and parses it as delimited text.
func ParseReader(r io.Reader, opts Options) (*inventory.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	return Parse(string(data), opts)
}

// Parse turns delimited text into a table.
//
// PARAMETERS:
//   - text: The raw export, LF or CRLF line endings.
//   - opts: Delimiter, quote character and reserved labels.
//
// RETURNS:
//   - The parsed table.
//   - ErrHeaderNotFound or ErrMissingRequiredColumn (wrapped) on failure.
func Parse(text string, opts Options) (*inventory.Table, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = SplitFields(line, opts.Delimiter, opts.Quote)
	}
	return ParseRows(rows, opts)
}

// ParseRows applies header detection and row extraction to pre-split rows.
// Text and workbook inputs share this step.
func ParseRows(rows [][]string, opts Options) (*inventory.Table, error) {
	headerIndex := findHeaderRow(rows, opts.IdentifierLabel)
	if headerIndex < 0 {
		return nil, fmt.Errorf("%w: no line contains %q", ErrHeaderNotFound, opts.IdentifierLabel)
	}

	headers := cleanHeaders(rows[headerIndex])

	columns, err := resolveColumns(headers, opts)
	if err != nil {
		return nil, err
	}

	idIndex := indexOf(headers, columns.Identifier)

	records := make([]inventory.Record, 0, len(rows)-headerIndex-1)
	for _, row := range rows[headerIndex+1:] {
		if isRowEmpty(row) {
			continue
		}
		if idIndex >= len(row) || strings.TrimSpace(row[idIndex]) == "" {
			// Footer or summary row.
			continue
		}

		record := make(inventory.Record, len(headers))
		for col, header := range headers {
			if col < len(row) {
				record[header] = strings.TrimSpace(row[col])
			} else {
				record[header] = ""
			}
		}
		records = append(records, record)
	}

	return &inventory.Table{
		Headers: headers,
		Columns: columns,
		Records: records,
	}, nil
}

// =============================================================================
// HEADER HANDLING
// =============================================================================

// findHeaderRow returns the index of the first row with a field equal to
// label (trimmed, case-insensitive), or -1.
func findHeaderRow(rows [][]string, label string) int {
	label = strings.TrimSpace(label)
	for i, row := range rows {
		for _, field := range row {
			if strings.EqualFold(strings.TrimSpace(field), label) {
				return i
			}
		}
	}
	return -1
}

// cleanHeaders trims header values and names empty ones by position.
// A repeated header keeps its first position; later copies are renamed
// the same way as empty ones so they never overwrite the first value.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" || seen[header] {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		seen[header] = true
		cleaned[i] = header
	}

	return cleaned
}

// resolveColumns maps each reserved label to the header text it matched.
func resolveColumns(headers []string, opts Options) (inventory.Columns, error) {
	var (
		columns inventory.Columns
		missing []string
	)

	find := func(label string) string {
		for _, h := range headers {
			if strings.EqualFold(h, strings.TrimSpace(label)) {
				return h
			}
		}
		missing = append(missing, label)
		return ""
	}

	columns.Identifier = find(opts.IdentifierLabel)
	columns.Category = find(opts.CategoryLabel)
	columns.Status = find(opts.StatusLabel)

	if len(missing) > 0 {
		return inventory.Columns{}, fmt.Errorf("%w: %s", ErrMissingRequiredColumn, strings.Join(missing, ", "))
	}
	return columns, nil
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// FIELD SPLITTING
// =============================================================================

// SplitFields splits one line on delim while honoring quotes:
//   - a field whose first non-blank character is quote is a quoted field
//   - inside a quoted field, delim is literal and a doubled quote is one quote
//   - a quote in the middle of an unquoted field is literal
//   - an unterminated quoted field runs to the end of the line
//
// Field values are returned untrimmed.
func SplitFields(line string, delim, quote rune) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
		quoted   bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if inQuotes {
			if c == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					field.WriteRune(quote)
					i++
					continue
				}
				inQuotes = false
				continue
			}
			field.WriteRune(c)
			continue
		}

		switch {
		case c == delim:
			fields = append(fields, field.String())
			field.Reset()
			quoted = false
		case c == quote && !quoted && strings.TrimSpace(field.String()) == "":
			field.Reset()
			inQuotes = true
			quoted = true
		default:
			field.WriteRune(c)
		}
	}

	fields = append(fields, field.String())
	return fields
}
