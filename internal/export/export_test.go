package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

func sampleResult() (*core.Result, []string) {
	tbl := &core.TableDef{
		Name: "Widgets",
		Columns: []*core.ColumnDef{
			{Name: "id", Type: core.TypeTag{Kind: core.TypeInteger}},
			{Name: "price", Type: core.TypeTag{Kind: core.TypeDecimal, Precision: 5, Scale: 2}},
			{Name: "label", Type: core.TypeTag{Kind: core.TypeVarchar, Length: 20}},
			{Name: "note", Type: core.TypeTag{Kind: core.TypeVarchar, Length: 20}},
		},
	}
	d, _ := decimal.NewFromString("19.5")
	rows := []core.Row{
		{"id": core.IntValue(1), "price": core.DecimalValue(d), "label": core.StringValue("O'Brien"), "note": core.Null},
	}
	result := core.NewResult()
	result.Set("Widgets", &core.GeneratedTable{Table: tbl, Rows: rows})
	return result, []string{"Widgets"}
}

func TestWriteSQLEscapesQuotesAndFormatsDecimalScale(t *testing.T) {
	result, order := sampleResult()
	dir := t.TempDir()
	require.NoError(t, Write(result, order, dir, FormatSQL))

	b, err := os.ReadFile(filepath.Join(dir, "insert.sql"))
	require.NoError(t, err)
	sql := string(b)

	assert.Contains(t, sql, "INSERT INTO Widgets (id, price, label, note) VALUES")
	assert.Contains(t, sql, "(1, 19.50, 'O''Brien', NULL)")
}

func TestWriteCSVWritesHeaderAndEmptyFieldForNull(t *testing.T) {
	result, order := sampleResult()
	dir := t.TempDir()
	require.NoError(t, Write(result, order, dir, FormatCSV))

	b, err := os.ReadFile(filepath.Join(dir, "Widgets.csv"))
	require.NoError(t, err)
	csv := string(b)

	assert.Contains(t, csv, "id,price,label,note")
	assert.Contains(t, csv, "1,19.5,O'Brien,")
}

func TestWriteJSONMarshalsDecimalAsStringAndNullAsNull(t *testing.T) {
	result, order := sampleResult()
	dir := t.TempDir()
	require.NoError(t, Write(result, order, dir, FormatJSON))

	b, err := os.ReadFile(filepath.Join(dir, "Widgets.json"))
	require.NoError(t, err)
	j := string(b)

	assert.Contains(t, j, `"price": "19.5"`)
	assert.Contains(t, j, `"note": null`)
}

func TestBatchInsertsSplitsAtRowLimit(t *testing.T) {
	tbl := &core.TableDef{
		Name:    "T",
		Columns: []*core.ColumnDef{{Name: "id", Type: core.TypeTag{Kind: core.TypeInteger}}},
	}
	rows := make([]core.Row, maxBatchRows+5)
	for i := range rows {
		rows[i] = core.Row{"id": core.IntValue(int64(i))}
	}
	stmts := batchInserts(tbl, []string{"id"}, rows)
	require.Len(t, stmts, 2)
}
