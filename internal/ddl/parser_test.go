package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/expr"
)

// Scenario A: simple PK + CHECK.
func TestParseSimplePrimaryKeyAndCheck(t *testing.T) {
	tbl, err := Parse(`
		CREATE TABLE people (
			id SERIAL PRIMARY KEY,
			age INT NOT NULL CHECK (age >= 18 AND age <= 30)
		)`)
	require.NoError(t, err)

	assert.Equal(t, "people", tbl.Name)
	require.Len(t, tbl.Columns, 2)

	idCol, ok := tbl.Column("id")
	require.True(t, ok)
	assert.Equal(t, core.TypeSerial, idCol.Type.Kind)
	assert.False(t, idCol.Nullable)

	ageCol, ok := tbl.Column("age")
	require.True(t, ok)
	assert.Equal(t, core.TypeInteger, ageCol.Type.Kind)
	assert.False(t, ageCol.Nullable)

	checks := tbl.Checks()
	require.Len(t, checks, 1)
	node, ok := checks[0].Expr.(*expr.Node)
	require.True(t, ok)
	ev := expr.NewEvaluator()
	assert.True(t, ev.CheckPasses(node, core.Row{"age": core.IntValue(25)}))
	assert.False(t, ev.CheckPasses(node, core.Row{"age": core.IntValue(99)}))
}

// Scenario B: ENUM via IN.
func TestParseEnumColumnAndCheckIn(t *testing.T) {
	tbl, err := Parse(`
		CREATE TABLE orders (
			id SERIAL PRIMARY KEY,
			status VARCHAR(10) NOT NULL CHECK (status IN ('NEW', 'SHIPPED', 'CANCELLED'))
		)`)
	require.NoError(t, err)

	statusCol, ok := tbl.Column("status")
	require.True(t, ok)
	assert.Equal(t, core.TypeVarchar, statusCol.Type.Kind)
	assert.Equal(t, 10, statusCol.Type.Length)

	require.Len(t, statusCol.Attached, 1) // inline CHECK; NOT NULL isn't represented as a TableConstraint
}

// Scenario C: composite FK.
func TestParseCompositeForeignKey(t *testing.T) {
	schema, err := ParseMany(`
		CREATE TABLE countries (
			code CHAR(2),
			region VARCHAR(20),
			PRIMARY KEY (code, region)
		);
		CREATE TABLE cities (
			id SERIAL PRIMARY KEY,
			country_code CHAR(2),
			country_region VARCHAR(20),
			FOREIGN KEY (country_code, country_region) REFERENCES countries(code, region) ON DELETE CASCADE
		);
	`)
	require.NoError(t, err)
	require.Equal(t, 2, schema.Len())

	cities, ok := schema.Table("cities")
	require.True(t, ok)
	fks := cities.ForeignKeys()
	require.Len(t, fks, 1)
	assert.Equal(t, "countries", fks[0].RefTable)
	assert.Equal(t, []string{"code", "region"}, fks[0].RefColumns)
	assert.Equal(t, []string{"country_code", "country_region"}, fks[0].Columns)
	assert.Equal(t, core.ActionCascade, fks[0].OnDelete)
}

// Scenario F: regex-constrained ISBN column plus quoted identifiers.
func TestParseQuotedIdentifiersAndRegexCheck(t *testing.T) {
	tbl, err := Parse("CREATE TABLE `books` (\n" +
		"  `isbn` VARCHAR(20) NOT NULL,\n" +
		"  CHECK (`isbn` ~ '^[0-9]{13}$')\n" +
		")")
	require.NoError(t, err)
	assert.Equal(t, "books", tbl.Name)
	_, ok := tbl.Column("isbn")
	assert.True(t, ok)
	require.Len(t, tbl.Checks(), 1)
}

func TestParseUnsignedIntegerEmitsRangeNarrowedWarning(t *testing.T) {
	tbl, err := Parse(`CREATE TABLE t (n BIGINT UNSIGNED NOT NULL)`)
	require.NoError(t, err)
	require.Len(t, tbl.Warnings, 1)
	_, ok := tbl.Warnings[0].(*core.RangeNarrowedWarning)
	assert.True(t, ok)
}

func TestParseUnknownTypeEmitsUnknownTypeWarning(t *testing.T) {
	tbl, err := Parse(`CREATE TABLE t (geo GEOMETRY)`)
	require.NoError(t, err)
	require.Len(t, tbl.Warnings, 1)
	_, ok := tbl.Warnings[0].(*core.UnknownTypeWarning)
	assert.True(t, ok)
	col, _ := tbl.Column("geo")
	assert.Equal(t, core.TypeOpaque, col.Type.Kind)
}

func TestParseNullableSelfReferentialForeignKey(t *testing.T) {
	tbl, err := Parse(`
		CREATE TABLE employees (
			id SERIAL PRIMARY KEY,
			manager_id INT,
			FOREIGN KEY (manager_id) REFERENCES employees(id)
		)`)
	require.NoError(t, err)
	fks := tbl.ForeignKeys()
	require.Len(t, fks, 1)
	assert.Equal(t, "employees", fks[0].RefTable)
}

func TestParseErrorReportsLineAndColumn(t *testing.T) {
	_, err := Parse("CREATE TABLE t (\n  id INT PRIMARY\n)")
	require.Error(t, err)
	var perr *core.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}

func TestParseManySkipsNonCreateTableStatements(t *testing.T) {
	schema, err := ParseMany(`
		CREATE INDEX idx_foo ON bar(baz);
		CREATE TABLE t (id SERIAL PRIMARY KEY);
	`)
	require.NoError(t, err)
	assert.Equal(t, 1, schema.Len())
	_, ok := schema.Table("t")
	assert.True(t, ok)
}

func TestParseDecimalPrecisionScale(t *testing.T) {
	tbl, err := Parse(`CREATE TABLE t (price DECIMAL(10,2) DEFAULT 0.00)`)
	require.NoError(t, err)
	col, ok := tbl.Column("price")
	require.True(t, ok)
	assert.Equal(t, 10, col.Type.Precision)
	assert.Equal(t, 2, col.Type.Scale)
	require.NotNil(t, col.Default)
	assert.Equal(t, "0.00", *col.Default)
}
