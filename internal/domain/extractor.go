// Package domain derives a conservative per-column ValueDomain from the
// CHECK expressions that mention it plus its declared type, per spec.md
// §4.3. The domain only biases sampling; internal/expr's evaluator remains
// the authority on whether a row actually satisfies a CHECK.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/expr"
)

// Annotate derives a ValueDomain for every column of every table in s and
// assigns it to ColumnDef.Domain.
func Annotate(s *core.Schema) {
	for _, tbl := range s.Tables() {
		for _, col := range tbl.Columns {
			col.Domain = ForColumn(tbl, col)
		}
	}
}

// ForColumn computes the ValueDomain for a single column: the type-default
// domain, narrowed by every top-level conjunct of every CHECK that
// mentions only this column (plus constants).
func ForColumn(tbl *core.TableDef, col *core.ColumnDef) *core.ValueDomain {
	dom := typeDefaultDomain(col.Type)
	dom.Nullable = col.Nullable

	for _, check := range tbl.Checks() {
		node, ok := check.Expr.(*expr.Node)
		if !ok || node == nil {
			continue
		}
		for _, leaf := range node.TopLevelConjuncts() {
			narrow(dom, leaf, col.Name)
		}
	}
	return dom
}

// narrow inspects one conjunct leaf and, if it matches one of the
// recognized patterns for column, tightens dom in place.
func narrow(dom *core.ValueDomain, leaf *expr.Node, column string) {
	switch leaf.Kind {
	case expr.KindBetween:
		// Between[0]=expr, [1]=lo, [2]=hi
		if isColumn(leaf.Between[0], column) {
			narrowMin(dom, leaf.Between[1], true)
			narrowMax(dom, leaf.Between[2], true)
		}

	case expr.KindIn:
		if isColumn(leaf.InExpr, column) {
			narrowEnum(dom, leaf.InList)
		}

	case expr.KindRegex:
		if isColumn(leaf.Left, column) {
			dom.Regex = intersectRegex(dom.Regex, leaf.PatternExpr)
		}

	case expr.KindBinary:
		narrowComparison(dom, leaf, column)
	}
}

func isColumn(n *expr.Node, column string) bool {
	return n != nil && n.Kind == expr.KindColumnRef && n.Column == column
}

func literalValue(n *expr.Node) (core.Value, bool) {
	if n == nil || n.Kind != expr.KindLiteral {
		return core.Value{}, false
	}
	return n.Lit, true
}

// narrowComparison handles `col op const`, `const op col`, and
// `LENGTH(col) op const`.
func narrowComparison(dom *core.ValueDomain, n *expr.Node, column string) {
	if !comparisonOps[n.Op] {
		return
	}

	if isLengthOf(n.Left, column) {
		if v, ok := literalValue(n.Right); ok && v.Kind == core.ValueInt {
			applyLengthBound(dom, n.Op, int(v.I))
		}
		return
	}
	if isLengthOf(n.Right, column) {
		if v, ok := literalValue(n.Left); ok && v.Kind == core.ValueInt {
			applyLengthBound(dom, flipOp(n.Op), int(v.I))
		}
		return
	}

	if isColumn(n.Left, column) {
		if v, ok := literalValue(n.Right); ok {
			applyCompareBound(dom, n.Op, v)
		}
		return
	}
	if isColumn(n.Right, column) {
		if v, ok := literalValue(n.Left); ok {
			applyCompareBound(dom, flipOp(n.Op), v)
		}
		return
	}
}

func isLengthOf(n *expr.Node, column string) bool {
	return n != nil && n.Kind == expr.KindFuncCall && n.Func == "LENGTH" &&
		len(n.Args) == 1 && isColumn(n.Args[0], column)
}

var comparisonOps = map[string]bool{"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true}

// flipOp rewrites `const op col` into the equivalent `col op' const`.
func flipOp(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	default:
		return op // = and <> are symmetric
	}
}

func applyLengthBound(dom *core.ValueDomain, op string, n int) {
	switch op {
	case "<=":
		if dom.MaxLength == 0 || n < dom.MaxLength {
			dom.MaxLength = n
		}
	case "<":
		if dom.MaxLength == 0 || n-1 < dom.MaxLength {
			dom.MaxLength = n - 1
		}
	case "=":
		dom.MaxLength = n
	}
}

func applyCompareBound(dom *core.ValueDomain, op string, v core.Value) {
	switch v.Kind {
	case core.ValueInt, core.ValueDecimal:
		d := asDecimal(v)
		switch op {
		case ">", ">=":
			narrowMinDecimal(dom, d, op == ">=")
		case "<", "<=":
			narrowMaxDecimal(dom, d, op == "<=")
		case "=":
			narrowMinDecimal(dom, d, true)
			narrowMaxDecimal(dom, d, true)
		}
	case core.ValueDate:
		switch op {
		case ">", ">=":
			narrowMinDate(dom, v.S)
		case "<", "<=":
			narrowMaxDate(dom, v.S)
		case "=":
			narrowMinDate(dom, v.S)
			narrowMaxDate(dom, v.S)
		}
	}
}

func narrowMin(dom *core.ValueDomain, n *expr.Node, inclusive bool) {
	v, ok := literalValue(n)
	if !ok {
		return
	}
	if v.Kind == core.ValueDate {
		narrowMinDate(dom, v.S)
		return
	}
	narrowMinDecimal(dom, asDecimal(v), inclusive)
}

func narrowMax(dom *core.ValueDomain, n *expr.Node, inclusive bool) {
	v, ok := literalValue(n)
	if !ok {
		return
	}
	if v.Kind == core.ValueDate {
		narrowMaxDate(dom, v.S)
		return
	}
	narrowMaxDecimal(dom, asDecimal(v), inclusive)
}

func narrowMinDecimal(dom *core.ValueDomain, d decimal.Decimal, inclusive bool) {
	if dom.Min == nil || d.GreaterThan(*dom.Min) || (d.Equal(*dom.Min) && inclusive && !dom.InclusiveMin) {
		dom.Min = &d
		dom.InclusiveMin = inclusive
	}
}

func narrowMaxDecimal(dom *core.ValueDomain, d decimal.Decimal, inclusive bool) {
	if dom.Max == nil || d.LessThan(*dom.Max) || (d.Equal(*dom.Max) && inclusive && !dom.InclusiveMax) {
		dom.Max = &d
		dom.InclusiveMax = inclusive
	}
}

func narrowMinDate(dom *core.ValueDomain, s string) {
	if dom.MinDate == nil || s > *dom.MinDate {
		dom.MinDate = &s
	}
}

func narrowMaxDate(dom *core.ValueDomain, s string) {
	if dom.MaxDate == nil || s < *dom.MaxDate {
		dom.MaxDate = &s
	}
}

func narrowEnum(dom *core.ValueDomain, list []*expr.Node) {
	var vals []string
	for _, n := range list {
		v, ok := literalValue(n)
		if !ok {
			return // non-literal member: can't safely intersect, skip entirely
		}
		vals = append(vals, valueText(v))
	}
	if dom.EnumSet == nil {
		dom.EnumSet = vals
		dom.Kind = core.DomainEnum
		return
	}
	dom.EnumSet = intersectStrings(dom.EnumSet, vals)
}

func valueText(v core.Value) string {
	switch v.Kind {
	case core.ValueString:
		return v.S
	case core.ValueInt:
		return decimal.NewFromInt(v.I).String()
	case core.ValueDecimal:
		return v.D.String()
	default:
		return v.S
	}
}

func intersectStrings(a, b []string) []string {
	set := map[string]bool{}
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// intersectRegex keeps the first regex seen; spec.md §4.3 doesn't define a
// sound way to intersect two independent regexes, so a second `col ~
// 'regex'` conjunct on the same column is recorded as an additional bound
// the evaluator will still enforce, but doesn't further narrow sampling.
func intersectRegex(existing string, pat *expr.Node) string {
	if existing != "" {
		return existing
	}
	v, ok := literalValue(pat)
	if !ok || v.Kind != core.ValueString {
		return existing
	}
	return v.S
}

func asDecimal(v core.Value) decimal.Decimal {
	if v.Kind == core.ValueDecimal {
		return v.D
	}
	return decimal.NewFromInt(v.I)
}

// typeDefaultDomain returns the type-default bounds of spec.md §4.3 before
// any CHECK narrowing: INTEGER -> ±2^31-1, DECIMAL(p,s) -> derived from
// precision, DATE -> [1970-01-01, CURRENT_DATE+10y], VARCHAR(n) -> length
// <= n.
func typeDefaultDomain(t core.TypeTag) *core.ValueDomain {
	switch t.Kind {
	case core.TypeInteger, core.TypeSerial:
		minV := decimal.NewFromInt(-2147483647)
		maxV := decimal.NewFromInt(2147483647)
		return &core.ValueDomain{Kind: core.DomainNumeric, Min: &minV, Max: &maxV, InclusiveMin: true, InclusiveMax: true}

	case core.TypeDecimal:
		prec := t.Precision
		if prec <= 0 {
			prec = 10
		}
		scale := t.Scale
		intDigits := prec - scale
		if intDigits < 1 {
			intDigits = 1
		}
		bound := decimal.New(1, int32(intDigits)).Sub(decimal.New(1, int32(-scale)))
		minV := bound.Neg()
		maxV := bound
		return &core.ValueDomain{Kind: core.DomainNumeric, Min: &minV, Max: &maxV, InclusiveMin: true, InclusiveMax: true}

	case core.TypeDate, core.TypeTimestamp:
		minD := "1970-01-01"
		maxD := time.Now().UTC().AddDate(10, 0, 0).Format("2006-01-02")
		return &core.ValueDomain{Kind: core.DomainDate, MinDate: &minD, MaxDate: &maxD}

	case core.TypeVarchar, core.TypeChar:
		n := t.Length
		if n <= 0 {
			n = 255
		}
		return &core.ValueDomain{Kind: core.DomainString, MaxLength: n}

	case core.TypeText:
		return &core.ValueDomain{Kind: core.DomainString, MaxLength: 65535}

	case core.TypeEnum:
		return &core.ValueDomain{Kind: core.DomainEnum, EnumSet: append([]string(nil), t.Values...)}

	case core.TypeBoolean:
		return &core.ValueDomain{Kind: core.DomainEnum, EnumSet: []string{"true", "false"}}

	default:
		return &core.ValueDomain{Kind: core.DomainAny}
	}
}
