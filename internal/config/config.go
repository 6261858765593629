// Package config loads the generator's run options from a TOML document:
// row counts, seed, predefined values, column-type-mapping overrides, and
// repair-loop tuning, with table-specific settings overriding global ones.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/expr"
)

// Defaults mirror spec.md §6's documented defaults.
const (
	DefaultNumRows                   = 10
	DefaultThresholdForGuessing      = 80
	DefaultMaxAttemptsPerRow         = 20
	DefaultMaxAttemptsPerValue       = 10
	DefaultMaxTotalAttemptMultiplier = 3
)

// Config is the fully-resolved, defaulted run configuration. A zero-value
// Config (no file given) uses the documented defaults once applyDefaults
// has run, as Default and Parse both do.
type Config struct {
	NumRows                   int                           `toml:"num_rows"`
	NumRowsPerTable           map[string]int                `toml:"num_rows_per_table"`
	PredefinedValues          map[string]map[string][]any   `toml:"predefined_values"`
	ColumnTypeMappings        map[string]map[string]string  `toml:"column_type_mappings"`
	GuessColumnTypeMappings   bool                          `toml:"guess_column_type_mappings"`
	ThresholdForGuessing      int                           `toml:"threshold_for_guessing"`
	Seed                      int64                         `toml:"seed"`
	HasSeed                   bool                          `toml:"-"`
	MaxAttemptsPerRow         int                           `toml:"max_attempts_per_row"`
	MaxAttemptsPerValue       int                           `toml:"max_attempts_per_value"`
	MaxTotalAttemptMultiplier int                           `toml:"max_total_attempt_multiplier"`
}

// Load reads and decodes a TOML config file at path, then applies defaults
// for every unset option.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a TOML document from r.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	meta, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.HasSeed = meta.IsDefined("seed")
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the documented zero-config defaults (spec.md §6, "a
// zero-value Config (no file given) uses the documented defaults").
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.NumRows == 0 {
		c.NumRows = DefaultNumRows
	}
	if c.ThresholdForGuessing == 0 {
		c.ThresholdForGuessing = DefaultThresholdForGuessing
	}
	if c.MaxAttemptsPerRow == 0 {
		c.MaxAttemptsPerRow = DefaultMaxAttemptsPerRow
	}
	if c.MaxAttemptsPerValue == 0 {
		c.MaxAttemptsPerValue = DefaultMaxAttemptsPerValue
	}
	if c.MaxTotalAttemptMultiplier == 0 {
		c.MaxTotalAttemptMultiplier = DefaultMaxTotalAttemptMultiplier
	}
}

func (c *Config) validate() error {
	if c.ThresholdForGuessing < 0 || c.ThresholdForGuessing > 100 {
		return &core.ConfigError{Reason: fmt.Sprintf("threshold_for_guessing must be 0-100, got %d", c.ThresholdForGuessing)}
	}
	if c.NumRows < 0 {
		return &core.ConfigError{Reason: "num_rows must be >= 0"}
	}
	for table, n := range c.NumRowsPerTable {
		if n < 0 {
			return &core.ConfigError{Column: table, Reason: "num_rows_per_table must be >= 0"}
		}
	}
	return nil
}

// ValidateAgainstSchema checks every predefined value against the CHECK
// constraints of the column it is bound to, per spec.md §7: a predefined
// value that violates a CHECK must fail at run start with the offending
// column named, rather than silently degrading to an UnderfilledTable once
// the sampler keeps redrawing the same invalid set. Only CHECKs that
// mention exactly one column are evaluated against a single-column trial
// row — a multi-column CHECK can't be judged without the rest of the row,
// and leaving the other columns NULL would pass trivially under
// three-valued logic instead of catching anything.
func (c *Config) ValidateAgainstSchema(schema *core.Schema, ev *expr.Evaluator) error {
	for _, tbl := range schema.Tables() {
		typeOf := func(column string) core.TypeTag {
			if col, ok := tbl.Column(column); ok {
				return col.Type
			}
			return core.TypeTag{Kind: core.TypeOpaque}
		}
		for col, values := range c.PredefinedValuesFor(tbl.Name, typeOf) {
			for _, v := range values {
				if err := checkPredefinedValue(tbl, col, v, ev); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkPredefinedValue(tbl *core.TableDef, column string, v core.Value, ev *expr.Evaluator) error {
	row := core.Row{column: v}
	for _, check := range tbl.Checks() {
		node, ok := check.Expr.(*expr.Node)
		if !ok || node == nil {
			continue
		}
		for _, leaf := range node.TopLevelConjuncts() {
			refs := leaf.ColumnRefs()
			if len(refs) != 1 || refs[0] != column {
				continue
			}
			if !ev.CheckPasses(leaf, row) {
				return &core.ConfigError{
					Column: column,
					Reason: fmt.Sprintf("predefined value violates a CHECK on table %s", tbl.Name),
				}
			}
		}
	}
	return nil
}

// RowsFor returns the configured row count for table, falling back to
// NumRows when no per-table override is set.
func (c *Config) RowsFor(table string) int {
	if n, ok := c.NumRowsPerTable[table]; ok {
		return n
	}
	return c.NumRows
}

// PredefinedValuesFor converts the TOML-decoded predefined_values mapping
// for one table into core.Value, resolving "global" vs. table-specific
// scoping: a table-specific list for a column replaces the global one
// rather than extending it (spec.md §6).
func (c *Config) PredefinedValuesFor(table string, typeOf func(column string) core.TypeTag) map[string][]core.Value {
	out := map[string][]core.Value{}
	for col, raw := range c.PredefinedValues["global"] {
		out[col] = coerceValues(raw, typeOf(col))
	}
	for col, raw := range c.PredefinedValues[table] {
		out[col] = coerceValues(raw, typeOf(col))
	}
	return out
}

// ColumnTypeMappingsFor resolves the column_type_mappings for one table,
// with table-specific entries replacing global ones per column name.
func (c *Config) ColumnTypeMappingsFor(table string) map[string]string {
	out := map[string]string{}
	for col, name := range c.ColumnTypeMappings["global"] {
		out[col] = name
	}
	for col, name := range c.ColumnTypeMappings[table] {
		out[col] = name
	}
	return out
}

func coerceValues(raw []any, t core.TypeTag) []core.Value {
	out := make([]core.Value, 0, len(raw))
	for _, v := range raw {
		out = append(out, coerceValue(v, t))
	}
	return out
}

func coerceValue(v any, t core.TypeTag) core.Value {
	switch x := v.(type) {
	case int64:
		if t.Kind == core.TypeDecimal {
			return core.DecimalValue(decimalFromInt(x))
		}
		return core.IntValue(x)
	case float64:
		return core.DecimalValue(decimalFromFloat(x))
	case bool:
		return core.BoolValue(x)
	case string:
		if t.Kind == core.TypeDate {
			return core.DateValue(x)
		}
		return core.StringValue(x)
	default:
		return core.Null
	}
}

func decimalFromInt(i int64) decimal.Decimal     { return decimal.NewFromInt(i) }
func decimalFromFloat(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }
