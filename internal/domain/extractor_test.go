package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/ddl"
)

func parseTable(t *testing.T, src string) *core.TableDef {
	t.Helper()
	tbl, err := ddl.Parse(src)
	require.NoError(t, err)
	return tbl
}

func TestDomainNarrowsIntegerRangeFromAndSpine(t *testing.T) {
	tbl := parseTable(t, `CREATE TABLE t (age INT CHECK (age >= 18 AND age <= 30))`)
	col, _ := tbl.Column("age")
	dom := ForColumn(tbl, col)

	require.NotNil(t, dom.Min)
	require.NotNil(t, dom.Max)
	assert.Equal(t, "18", dom.Min.String())
	assert.Equal(t, "30", dom.Max.String())
	assert.True(t, dom.InclusiveMin)
	assert.True(t, dom.InclusiveMax)
}

func TestDomainHandlesConstOpColumn(t *testing.T) {
	tbl := parseTable(t, `CREATE TABLE t (price DECIMAL(10,2) CHECK (0 < price AND 1000 >= price))`)
	col, _ := tbl.Column("price")
	dom := ForColumn(tbl, col)

	assert.Equal(t, "0", dom.Min.String())
	assert.False(t, dom.InclusiveMin)
	assert.Equal(t, "1000", dom.Max.String())
	assert.True(t, dom.InclusiveMax)
}

func TestDomainBetween(t *testing.T) {
	tbl := parseTable(t, `CREATE TABLE t (score INT CHECK (score BETWEEN 0 AND 100))`)
	col, _ := tbl.Column("score")
	dom := ForColumn(tbl, col)
	assert.Equal(t, "0", dom.Min.String())
	assert.Equal(t, "100", dom.Max.String())
}

func TestDomainInListBecomesEnumSet(t *testing.T) {
	tbl := parseTable(t, `CREATE TABLE t (status VARCHAR(10) CHECK (status IN ('A', 'B', 'C')))`)
	col, _ := tbl.Column("status")
	dom := ForColumn(tbl, col)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, dom.EnumSet)
}

func TestDomainRegexCaptured(t *testing.T) {
	tbl := parseTable(t, `CREATE TABLE t (isbn VARCHAR(20) CHECK (isbn ~ '^[0-9]{13}$'))`)
	col, _ := tbl.Column("isbn")
	dom := ForColumn(tbl, col)
	assert.Equal(t, "^[0-9]{13}$", dom.Regex)
}

func TestDomainLengthFunctionNarrowsMaxLength(t *testing.T) {
	tbl := parseTable(t, `CREATE TABLE t (code VARCHAR(20) CHECK (LENGTH(code) <= 5))`)
	col, _ := tbl.Column("code")
	dom := ForColumn(tbl, col)
	assert.Equal(t, 5, dom.MaxLength)
}

func TestDomainDisjunctionIsIgnored(t *testing.T) {
	tbl := parseTable(t, `CREATE TABLE t (n INT CHECK (n = 1 OR n = 2))`)
	col, _ := tbl.Column("n")
	dom := ForColumn(tbl, col)
	// OR is too weak to narrow; type-default bounds remain.
	assert.Equal(t, "-2147483647", dom.Min.String())
	assert.Equal(t, "2147483647", dom.Max.String())
}

func TestDomainTypeDefaultForUnconstrainedVarchar(t *testing.T) {
	tbl := parseTable(t, `CREATE TABLE t (name VARCHAR(40))`)
	col, _ := tbl.Column("name")
	dom := ForColumn(tbl, col)
	assert.Equal(t, 40, dom.MaxLength)
}

func TestAnnotatePopulatesEveryColumn(t *testing.T) {
	schema, err := ddl.ParseMany(`CREATE TABLE t (a INT, b VARCHAR(5));`)
	require.NoError(t, err)
	Annotate(schema)

	tbl, _ := schema.Table("t")
	for _, c := range tbl.Columns {
		assert.NotNil(t, c.Domain)
	}
}
