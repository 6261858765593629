// Package export writes a generated core.Result out as SQL INSERT batches,
// CSV, or JSON, per spec.md §4.7/§6.3. Every format renders table order
// identically: the dependency order internal/depgraph computed, so a
// human skimming the SQL file (or loading CSVs in order) sees parents
// before the children that reference them.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// Format selects one of the three supported output encodings.
type Format string

const (
	FormatSQL  Format = "sql"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Write renders result in format and writes it to outDir: a single file
// for SQL ("<outDir>/insert.sql"), one file per table for CSV/JSON
// ("<outDir>/<Table>.csv" / ".json"). order lists table names in the order
// they should appear (the dependency order from internal/depgraph.Plan).
func Write(result *core.Result, order []string, outDir string, format Format) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return &core.ExportError{Mode: string(format), Err: err}
	}

	switch format {
	case FormatSQL:
		return writeSQL(result, order, outDir)
	case FormatCSV:
		return writeCSV(result, order, outDir)
	case FormatJSON:
		return writeJSONFiles(result, order, outDir)
	default:
		return &core.ExportError{Mode: string(format), Err: fmt.Errorf("unknown export format %q", format)}
	}
}

func tablePath(outDir, table, ext string) string {
	return filepath.Join(outDir, table+"."+ext)
}
