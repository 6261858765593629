package export

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// maxBatchRows and maxBatchBytes bound one INSERT statement's VALUES list,
// per spec.md §4.7: a batch ends at whichever limit is hit first.
const (
	maxBatchRows  = 1000
	maxBatchBytes = 1 << 20
)

// writeSQL concatenates every table's rows as batched INSERT statements
// into a single file, in dependency order, terminating each statement with
// a semicolon and the whole file with a trailing newline.
func writeSQL(result *core.Result, order []string, outDir string) error {
	path := tablePath(outDir, "insert", "sql")
	f, err := os.Create(path)
	if err != nil {
		return &core.ExportError{Mode: string(FormatSQL), Err: err}
	}
	defer f.Close()

	for _, name := range order {
		gt := result.Tables[name]
		if gt == nil || len(gt.Rows) == 0 {
			continue
		}
		cols := columnNames(gt.Table)
		for _, stmt := range batchInserts(gt.Table, cols, gt.Rows) {
			if _, err := f.WriteString(stmt); err != nil {
				return &core.ExportError{Mode: string(FormatSQL), Err: err}
			}
		}
	}
	return nil
}

func columnNames(tbl *core.TableDef) []string {
	names := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		names[i] = c.Name
	}
	return names
}

// batchInserts renders rows as one or more "INSERT INTO ... VALUES ...;"
// statements, splitting a new batch whenever the current one would exceed
// maxBatchRows rows or maxBatchBytes of rendered text.
func batchInserts(tbl *core.TableDef, cols []string, rows []core.Row) []string {
	header := fmt.Sprintf("INSERT INTO %s (%s) VALUES\n", tbl.Name, strings.Join(cols, ", "))

	var stmts []string
	var tuples []string
	size := len(header)

	flush := func() {
		if len(tuples) == 0 {
			return
		}
		stmts = append(stmts, header+strings.Join(tuples, ",\n")+";\n")
		tuples = nil
		size = len(header)
	}

	for _, row := range rows {
		tuple := renderTuple(tbl, cols, row)
		if len(tuples) >= maxBatchRows || size+len(tuple) > maxBatchBytes {
			flush()
		}
		tuples = append(tuples, tuple)
		size += len(tuple)
	}
	flush()
	return stmts
}

func renderTuple(tbl *core.TableDef, cols []string, row core.Row) string {
	parts := make([]string, len(cols))
	for i, name := range cols {
		col, _ := tbl.Column(name)
		parts[i] = formatLiteral(row[name], col)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// formatLiteral renders v as a SQL literal, per spec.md §4.7: bare
// integers, full-scale decimals, single-quoted strings with embedded
// quotes doubled, 'YYYY-MM-DD' dates, and bare NULL.
func formatLiteral(v core.Value, col *core.ColumnDef) string {
	switch v.Kind {
	case core.ValueNull:
		return "NULL"
	case core.ValueInt:
		return strconv.FormatInt(v.I, 10)
	case core.ValueDecimal:
		scale := 0
		if col != nil {
			scale = col.Type.Scale
		}
		return v.D.StringFixed(int32(scale))
	case core.ValueBool:
		if v.B {
			return "TRUE"
		}
		return "FALSE"
	case core.ValueDate:
		return "'" + v.S + "'"
	case core.ValueString:
		return "'" + strings.ReplaceAll(v.S, "'", "''") + "'"
	default:
		return "NULL"
	}
}
