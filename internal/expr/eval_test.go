package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

func mustParse(t *testing.T, src string) *Node {
	t.Helper()
	n, err := Parse(src)
	require.NoError(t, err)
	return n
}

func TestAgeRangeCheck(t *testing.T) {
	n := mustParse(t, "age >= 18 AND age <= 30")
	ev := NewEvaluator()

	assert.True(t, ev.CheckPasses(n, core.Row{"age": core.IntValue(25)}))
	assert.False(t, ev.CheckPasses(n, core.Row{"age": core.IntValue(17)}))
	assert.False(t, ev.CheckPasses(n, core.Row{"age": core.IntValue(31)}))
}

func TestInEnum(t *testing.T) {
	n := mustParse(t, "country IN ('A', 'B', 'C')")
	ev := NewEvaluator()

	assert.True(t, ev.CheckPasses(n, core.Row{"country": core.StringValue("B")}))
	assert.False(t, ev.CheckPasses(n, core.Row{"country": core.StringValue("Z")}))
}

func TestRegexISBN(t *testing.T) {
	n := mustParse(t, "isbn ~ '^[0-9]{13}$'")
	ev := NewEvaluator()

	assert.True(t, ev.CheckPasses(n, core.Row{"isbn": core.StringValue("1234567890123")}))
	assert.False(t, ev.CheckPasses(n, core.Row{"isbn": core.StringValue("abc")}))
}

func TestNullComparisonIsUnknownAndPasses(t *testing.T) {
	n := mustParse(t, "age > 18")
	ev := NewEvaluator()
	assert.True(t, ev.CheckPasses(n, core.Row{"age": core.Null}))

	v := ev.Eval(n, core.Row{"age": core.Null})
	assert.True(t, v.IsNull())
}

func TestKleeneAndFalseDominates(t *testing.T) {
	n := mustParse(t, "false_col AND unknown_col")
	ev := NewEvaluator()
	row := core.Row{"false_col": core.BoolValue(false)} // unknown_col absent -> NULL
	v := ev.Eval(n, row)
	require.Equal(t, core.ValueBool, v.Kind)
	assert.False(t, v.B)
}

func TestBetweenInclusive(t *testing.T) {
	n := mustParse(t, "price BETWEEN 10 AND 20")
	ev := NewEvaluator()
	assert.True(t, ev.CheckPasses(n, core.Row{"price": core.IntValue(10)}))
	assert.True(t, ev.CheckPasses(n, core.Row{"price": core.IntValue(20)}))
	assert.False(t, ev.CheckPasses(n, core.Row{"price": core.IntValue(21)}))
}

func TestLikeWildcards(t *testing.T) {
	n := mustParse(t, "email LIKE '%@example.com'")
	ev := NewEvaluator()
	assert.True(t, ev.CheckPasses(n, core.Row{"email": core.StringValue("a@example.com")}))
	assert.False(t, ev.CheckPasses(n, core.Row{"email": core.StringValue("a@other.com")}))
}

func TestDivisionByZeroIsUnknown(t *testing.T) {
	n := mustParse(t, "1 / 0 = 1")
	ev := NewEvaluator()
	v := ev.Eval(n, core.Row{})
	assert.True(t, v.IsNull())
}

func TestExtractYear(t *testing.T) {
	n := mustParse(t, "EXTRACT(YEAR FROM DATE '2024-05-01') = 2024")
	ev := NewEvaluator()
	assert.True(t, ev.CheckPasses(n, core.Row{}))
}

func TestLengthFunction(t *testing.T) {
	n := mustParse(t, "LENGTH(isbn) = 13")
	ev := NewEvaluator()
	assert.True(t, ev.CheckPasses(n, core.Row{"isbn": core.StringValue("1234567890123")}))
}

func TestColumnRefsDedup(t *testing.T) {
	n := mustParse(t, "a > b AND a < 100")
	refs := n.ColumnRefs()
	assert.ElementsMatch(t, []string{"a", "b"}, refs)
}

func TestUnsatisfiableRangeEvaluatesFalse(t *testing.T) {
	n := mustParse(t, "price > 100 AND price < 50")
	ev := NewEvaluator()
	assert.False(t, ev.CheckPasses(n, core.Row{"price": core.IntValue(75)}))
}
