package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/stock-scan/internal/inventory"
	"github.com/ginjaninja78/stock-scan/internal/tableparser"
)

func testTable() *inventory.Table {
	cols := inventory.Columns{Identifier: "Stock #", Category: "Make", Status: "Condition"}
	return &inventory.Table{
		Headers: []string{"Stock #", "Make", "Condition"},
		Columns: cols,
		Records: []inventory.Record{
			{"Stock #": "A1", "Make": "Ford", "Condition": "New"},
			{"Stock #": "B2", "Make": "Kia, Inc", "Condition": "new"},
		},
	}
}

func expectedOf(ids ...string) func(string) bool {
	set := make(map[string]bool)
	for _, id := range ids {
		set[inventory.Normalize(id)] = true
	}
	return func(code string) bool { return set[inventory.Normalize(code)] }
}

func TestBuildUsesTableLabelsAndScanOrder(t *testing.T) {
	sheet := Build(testTable(), []string{"b2", "Z9", "a1"}, expectedOf("A1"))

	assert.Equal(t, [3]string{"Stock #", "Make", InExpectedSetLabel}, sheet.Headers)
	want := []Row{
		{Identifier: "b2", Category: "Kia, Inc", InExpectedSet: false},
		{Identifier: "Z9", Category: "", InExpectedSet: false},
		{Identifier: "a1", Category: "Ford", InExpectedSet: true},
	}
	if diff := cmp.Diff(want, sheet.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildWithoutTable(t *testing.T) {
	sheet := Build(nil, nil, nil)
	assert.Equal(t, [3]string{"identifier", "category", InExpectedSetLabel}, sheet.Headers)
	assert.Empty(t, sheet.Rows)
}

func TestWriteCSVQuotesFields(t *testing.T) {
	sheet := Build(testTable(), []string{"a1", "B2", `x"y`}, expectedOf("A1", "B2"))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sheet, DefaultOptions()))

	want := strings.Join([]string{
		"Stock #,Make,in-expected-set",
		"a1,Ford,yes",
		`B2,"Kia, Inc",yes`,
		`"x""y",,no`,
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVRoundTripsThroughParser(t *testing.T) {
	opts := tableparser.DefaultOptions()
	opts.StatusLabel = InExpectedSetLabel

	var buf bytes.Buffer
	sheet := Build(testTable(), []string{"B2"}, expectedOf("B2"))
	require.NoError(t, WriteCSV(&buf, sheet, DefaultOptions()))

	table, err := tableparser.Parse(buf.String(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Stock #", "Make", InExpectedSetLabel}, table.Headers)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "Kia, Inc", table.Records[0]["Make"])
	assert.Equal(t, "yes", table.Records[0][InExpectedSetLabel])
}

func TestWriteCSVEmptyExportKeepsHeader(t *testing.T) {
	opts := tableparser.DefaultOptions()
	opts.StatusLabel = InExpectedSetLabel

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Build(testTable(), nil, nil), DefaultOptions()))

	table, err := tableparser.Parse(buf.String(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Stock #", "Make", InExpectedSetLabel}, table.Headers)
	assert.Empty(t, table.Records)
}

func TestEscapeField(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		delim rune
		quote rune
		want  string
	}{
		{"plain", "A1", ',', '"', "A1"},
		{"delimiter", "a,b", ',', '"', `"a,b"`},
		{"quote", `a"b`, ',', '"', `"a""b"`},
		{"newline", "a\nb", ',', '"', "\"a\nb\""},
		{"tab delimited comma", "a,b", '\t', '"', "a,b"},
		{"single quote", "it's", ',', '\'', "'it''s'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeField(tt.in, tt.delim, tt.quote))
		})
	}
}

func TestWriteXLSX(t *testing.T) {
	sheet := Build(testTable(), []string{"A1", "Q7"}, expectedOf("A1"))

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sheet, DefaultOptions()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	want := [][]string{
		{"Stock #", "Make", InExpectedSetLabel},
		{"A1", "Ford", "yes"},
		{"Q7", "", "no"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("workbook mismatch (-want +got):\n%s", diff)
	}
}
