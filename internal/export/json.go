package export

import (
	"encoding/json"
	"os"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// writeJSONFiles writes one JSON array-of-objects file per table. NULL
// marshals to null; decimals marshal as strings (not JSON numbers) so
// shopspring/decimal's precision survives the round trip, per spec.md
// §4.7.
func writeJSONFiles(result *core.Result, order []string, outDir string) error {
	for _, name := range order {
		gt := result.Tables[name]
		if gt == nil {
			continue
		}
		if err := writeTableJSON(gt, tablePath(outDir, name, "json")); err != nil {
			return &core.ExportError{Mode: string(FormatJSON), Err: err}
		}
	}
	return nil
}

func writeTableJSON(gt *core.GeneratedTable, path string) error {
	cols := columnNames(gt.Table)
	records := make([]map[string]any, len(gt.Rows))
	for i, row := range gt.Rows {
		rec := make(map[string]any, len(cols))
		for _, name := range cols {
			rec[name] = jsonValue(row[name])
		}
		records[i] = rec
	}

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func jsonValue(v core.Value) any {
	switch v.Kind {
	case core.ValueNull:
		return nil
	case core.ValueInt:
		return v.I
	case core.ValueDecimal:
		return v.D.String()
	case core.ValueString:
		return v.S
	case core.ValueBool:
		return v.B
	case core.ValueDate:
		return v.S
	default:
		return nil
	}
}
