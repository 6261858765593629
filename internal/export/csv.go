package export

import (
	"encoding/csv"
	"os"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// writeCSV writes one RFC-4180 file per table, header row first, NULL
// rendered as an empty field (spec.md §4.7). encoding/csv already handles
// quoting and escaping correctly for every value this module produces, so
// no third-party CSV library is wired here — see DESIGN.md.
func writeCSV(result *core.Result, order []string, outDir string) error {
	for _, name := range order {
		gt := result.Tables[name]
		if gt == nil {
			continue
		}
		if err := writeTableCSV(gt, tablePath(outDir, name, "csv")); err != nil {
			return &core.ExportError{Mode: string(FormatCSV), Err: err}
		}
	}
	return nil
}

func writeTableCSV(gt *core.GeneratedTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	cols := columnNames(gt.Table)
	if err := w.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, row := range gt.Rows {
		for i, name := range cols {
			record[i] = csvField(row[name])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func csvField(v core.Value) string {
	switch v.Kind {
	case core.ValueNull:
		return ""
	case core.ValueString:
		return v.S
	case core.ValueDate:
		return v.S
	case core.ValueBool:
		if v.B {
			return "true"
		}
		return "false"
	case core.ValueInt:
		return formatLiteral(v, nil)
	case core.ValueDecimal:
		return v.D.String()
	default:
		return ""
	}
}
