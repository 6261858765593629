package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/ddl"
	"github.com/Kamil-Krawiec/Data-filler/internal/expr"
)

func TestDefaultConfigUsesDocumentedDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultNumRows, cfg.NumRows)
	assert.Equal(t, DefaultThresholdForGuessing, cfg.ThresholdForGuessing)
	assert.Equal(t, DefaultMaxAttemptsPerRow, cfg.MaxAttemptsPerRow)
	assert.Equal(t, DefaultMaxAttemptsPerValue, cfg.MaxAttemptsPerValue)
	assert.Equal(t, DefaultMaxTotalAttemptMultiplier, cfg.MaxTotalAttemptMultiplier)
	assert.False(t, cfg.HasSeed)
}

func TestParseAppliesDefaultsOnPartialDocument(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
		num_rows = 50
		seed = 42
	`))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.NumRows)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.True(t, cfg.HasSeed)
	assert.Equal(t, DefaultThresholdForGuessing, cfg.ThresholdForGuessing)
}

func TestParseRejectsOutOfRangeThreshold(t *testing.T) {
	_, err := Parse(strings.NewReader(`threshold_for_guessing = 150`))
	require.Error(t, err)
	var cerr *core.ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestRowsForFallsBackToGlobalDefault(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
		num_rows = 10
		[num_rows_per_table]
		orders = 100
	`))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.RowsFor("orders"))
	assert.Equal(t, 10, cfg.RowsFor("customers"))
}

func TestPredefinedValuesTableOverridesGlobal(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
		[predefined_values.global]
		status = ["A", "B"]
		[predefined_values.orders]
		status = ["SHIPPED"]
	`))
	require.NoError(t, err)
	vals := cfg.PredefinedValuesFor("orders", func(string) core.TypeTag { return core.TypeTag{Kind: core.TypeVarchar} })
	require.Len(t, vals["status"], 1)
	assert.Equal(t, "SHIPPED", vals["status"][0].S)

	other := cfg.PredefinedValuesFor("other_table", func(string) core.TypeTag { return core.TypeTag{Kind: core.TypeVarchar} })
	require.Len(t, other["status"], 2)
}

func TestColumnTypeMappingsTableOverridesGlobal(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
		[column_type_mappings.global]
		email = "email"
		[column_type_mappings.customers]
		email = "first_name"
	`))
	require.NoError(t, err)
	m := cfg.ColumnTypeMappingsFor("customers")
	assert.Equal(t, "first_name", m["email"])

	other := cfg.ColumnTypeMappingsFor("orders")
	assert.Equal(t, "email", other["email"])
}

func TestValidateAgainstSchemaRejectsPredefinedValueViolatingCheck(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
		[predefined_values.accounts]
		age = [12, 25]
	`))
	require.NoError(t, err)

	schema, err := ddl.ParseMany(`CREATE TABLE accounts(id SERIAL PRIMARY KEY, age INT CHECK (age >= 18));`)
	require.NoError(t, err)

	err = cfg.ValidateAgainstSchema(schema, expr.NewEvaluator())
	require.Error(t, err)
	var cerr *core.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "age", cerr.Column)
}

func TestValidateAgainstSchemaAcceptsConformingPredefinedValues(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
		[predefined_values.accounts]
		age = [18, 25, 99]
	`))
	require.NoError(t, err)

	schema, err := ddl.ParseMany(`CREATE TABLE accounts(id SERIAL PRIMARY KEY, age INT CHECK (age >= 18));`)
	require.NoError(t, err)

	require.NoError(t, cfg.ValidateAgainstSchema(schema, expr.NewEvaluator()))
}
