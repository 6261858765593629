package expr

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// processStartDate is CURRENT_DATE, frozen once per process for testability
// (spec.md §4.2).
var processStartDate = time.Now().UTC().Format("2006-01-02")

// Evaluator evaluates an ExprAST over a Row context. Type mismatches never
// produce an error: they degrade to UNKNOWN (core.Null), per spec.md §4.2,
// and feed the filler's repair loop rather than aborting a run.
type Evaluator struct{}

func NewEvaluator() *Evaluator { return &Evaluator{} }

// Eval evaluates the expression tree over row and returns its value. A
// boolean result is either True, False, or Null (UNKNOWN in SQL's
// three-valued logic).
func (e *Evaluator) Eval(n *Node, row core.Row) core.Value {
	if n == nil {
		return core.Null
	}
	switch n.Kind {
	case KindLiteral:
		return n.Lit
	case KindColumnRef:
		if v, ok := row[n.Column]; ok {
			return v
		}
		return core.Null
	case KindUnary:
		return e.evalUnary(n, row)
	case KindBinary:
		return e.evalBinary(n, row)
	case KindBetween:
		return e.evalBetween(n, row)
	case KindIn:
		return e.evalIn(n, row)
	case KindLike:
		return e.evalLike(n, row)
	case KindRegex:
		return e.evalRegex(n, row)
	case KindIsNull:
		return e.evalIsNull(n, row)
	case KindFuncCall:
		return e.evalFunc(n, row)
	}
	return core.Null
}

// CheckPasses implements "a CHECK passes unless it evaluates to FALSE"
// (spec.md §4.2): TRUE and UNKNOWN both pass.
func (e *Evaluator) CheckPasses(n *Node, row core.Row) bool {
	v := e.Eval(n, row)
	return !(v.Kind == core.ValueBool && !v.B)
}

func (e *Evaluator) evalUnary(n *Node, row core.Row) core.Value {
	v := e.Eval(n.Left, row)
	switch n.Op {
	case "NOT":
		if v.Kind != core.ValueBool {
			return core.Null
		}
		return core.BoolValue(!v.B)
	case "-":
		switch v.Kind {
		case core.ValueInt:
			return core.IntValue(-v.I)
		case core.ValueDecimal:
			return core.DecimalValue(v.D.Neg())
		}
		return core.Null
	}
	return core.Null
}

func (e *Evaluator) evalBinary(n *Node, row core.Row) core.Value {
	if n.Op == "AND" || n.Op == "OR" {
		return e.evalBoolConnective(n, row)
	}

	l := e.Eval(n.Left, row)
	r := e.Eval(n.Right, row)

	switch n.Op {
	case "+", "-", "*", "/", "%":
		return evalArith(n.Op, l, r)
	case "=", "<>", "<", "<=", ">", ">=":
		return evalCompare(n.Op, l, r)
	}
	return core.Null
}

// evalBoolConnective implements Kleene's three-valued AND/OR: NULL is
// UNKNOWN, and e.g. FALSE AND UNKNOWN is FALSE (not UNKNOWN), matching
// standard SQL semantics.
func (e *Evaluator) evalBoolConnective(n *Node, row core.Row) core.Value {
	l := e.Eval(n.Left, row)
	r := e.Eval(n.Right, row)

	if n.Op == "AND" {
		if isFalse(l) || isFalse(r) {
			return core.BoolValue(false)
		}
		if l.Kind != core.ValueBool || r.Kind != core.ValueBool {
			return core.Null
		}
		return core.BoolValue(l.B && r.B)
	}

	// OR
	if isTrue(l) || isTrue(r) {
		return core.BoolValue(true)
	}
	if l.Kind != core.ValueBool || r.Kind != core.ValueBool {
		return core.Null
	}
	return core.BoolValue(l.B || r.B)
}

func isTrue(v core.Value) bool  { return v.Kind == core.ValueBool && v.B }
func isFalse(v core.Value) bool { return v.Kind == core.ValueBool && !v.B }

func (e *Evaluator) evalBetween(n *Node, row core.Row) core.Value {
	v := e.Eval(n.Between[0], row)
	lo := e.Eval(n.Between[1], row)
	hi := e.Eval(n.Between[2], row)
	geLo := evalCompare(">=", v, lo)
	leHi := evalCompare("<=", v, hi)
	return kleeneAnd(geLo, leHi)
}

// kleeneAnd applies three-valued AND to two already-evaluated boolean
// values, used by BETWEEN (which is defined as `v >= lo AND v <= hi`).
func kleeneAnd(a, b core.Value) core.Value {
	if isFalse(a) || isFalse(b) {
		return core.BoolValue(false)
	}
	if a.Kind != core.ValueBool || b.Kind != core.ValueBool {
		return core.Null
	}
	return core.BoolValue(a.B && b.B)
}

func (e *Evaluator) evalIn(n *Node, row core.Row) core.Value {
	v := e.Eval(n.InExpr, row)
	if v.IsNull() {
		return core.Null
	}
	sawUnknown := false
	for _, item := range n.InList {
		iv := e.Eval(item, row)
		cmp := evalCompare("=", v, iv)
		if cmp.Kind == core.ValueBool && cmp.B {
			return core.BoolValue(true)
		}
		if cmp.Kind != core.ValueBool {
			sawUnknown = true
		}
	}
	if sawUnknown {
		return core.Null
	}
	return core.BoolValue(false)
}

func (e *Evaluator) evalLike(n *Node, row core.Row) core.Value {
	v := e.Eval(n.Left, row)
	p := e.Eval(n.PatternExpr, row)
	if v.Kind != core.ValueString || p.Kind != core.ValueString {
		return core.Null
	}
	re := likeToRegexp(p.S)
	matched := re.MatchString(v.S)
	if n.Negated {
		matched = !matched
	}
	return core.BoolValue(matched)
}

func (e *Evaluator) evalRegex(n *Node, row core.Row) core.Value {
	v := e.Eval(n.Left, row)
	p := e.Eval(n.PatternExpr, row)
	if v.Kind != core.ValueString || p.Kind != core.ValueString {
		return core.Null
	}
	re, err := regexp.Compile(p.S)
	if err != nil {
		return core.Null
	}
	matched := re.MatchString(v.S)
	if n.Negated {
		matched = !matched
	}
	return core.BoolValue(matched)
}

func (e *Evaluator) evalIsNull(n *Node, row core.Row) core.Value {
	v := e.Eval(n.Operand, row)
	return core.BoolValue(v.IsNull())
}

func (e *Evaluator) evalFunc(n *Node, row core.Row) core.Value {
	switch n.Func {
	case "CURRENT_DATE":
		return core.DateValue(processStartDate)
	case "LENGTH":
		if len(n.Args) != 1 {
			return core.Null
		}
		v := e.Eval(n.Args[0], row)
		if v.Kind != core.ValueString {
			return core.Null
		}
		return core.IntValue(int64(len([]rune(v.S))))
	case "DATE":
		if len(n.Args) != 1 {
			return core.Null
		}
		v := e.Eval(n.Args[0], row)
		switch v.Kind {
		case core.ValueDate:
			return v
		case core.ValueString:
			if _, err := time.Parse("2006-01-02", v.S); err == nil {
				return core.DateValue(v.S)
			}
		}
		return core.Null
	case "UPPER":
		v := e.Eval(n.Args[0], row)
		if v.Kind != core.ValueString {
			return core.Null
		}
		return core.StringValue(strings.ToUpper(v.S))
	case "LOWER":
		v := e.Eval(n.Args[0], row)
		if v.Kind != core.ValueString {
			return core.Null
		}
		return core.StringValue(strings.ToLower(v.S))
	case "EXTRACT":
		if len(n.Args) != 2 {
			return core.Null
		}
		part := e.Eval(n.Args[0], row)
		dateVal := e.Eval(n.Args[1], row)
		return extractPart(part.S, dateVal)
	}
	return core.Null
}

func extractPart(part string, v core.Value) core.Value {
	var s string
	switch v.Kind {
	case core.ValueDate, core.ValueString:
		s = v.S
	default:
		return core.Null
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		t, err = time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return core.Null
		}
	}
	switch part {
	case "YEAR":
		return core.IntValue(int64(t.Year()))
	case "MONTH":
		return core.IntValue(int64(t.Month()))
	case "DAY":
		return core.IntValue(int64(t.Day()))
	case "HOUR":
		return core.IntValue(int64(t.Hour()))
	case "MINUTE":
		return core.IntValue(int64(t.Minute()))
	case "SECOND":
		return core.IntValue(int64(t.Second()))
	}
	return core.Null
}

// evalArith implements spec.md §4.2's numeric rules: decimal arithmetic
// when either operand is decimal, otherwise integer; division by zero
// yields UNKNOWN.
func evalArith(op string, l, r core.Value) core.Value {
	if l.IsNull() || r.IsNull() {
		return core.Null
	}
	if l.Kind == core.ValueDecimal || r.Kind == core.ValueDecimal {
		ld, lok := toDecimal(l)
		rd, rok := toDecimal(r)
		if !lok || !rok {
			return core.Null
		}
		switch op {
		case "+":
			return core.DecimalValue(ld.Add(rd))
		case "-":
			return core.DecimalValue(ld.Sub(rd))
		case "*":
			return core.DecimalValue(ld.Mul(rd))
		case "/":
			if rd.IsZero() {
				return core.Null
			}
			return core.DecimalValue(ld.Div(rd))
		case "%":
			if rd.IsZero() {
				return core.Null
			}
			return core.DecimalValue(ld.Mod(rd))
		}
		return core.Null
	}

	if l.Kind != core.ValueInt || r.Kind != core.ValueInt {
		return core.Null
	}
	switch op {
	case "+":
		return core.IntValue(l.I + r.I)
	case "-":
		return core.IntValue(l.I - r.I)
	case "*":
		return core.IntValue(l.I * r.I)
	case "/":
		if r.I == 0 {
			return core.Null
		}
		return core.IntValue(l.I / r.I)
	case "%":
		if r.I == 0 {
			return core.Null
		}
		return core.IntValue(l.I % r.I)
	}
	return core.Null
}

func toDecimal(v core.Value) (decimal.Decimal, bool) {
	switch v.Kind {
	case core.ValueDecimal:
		return v.D, true
	case core.ValueInt:
		return decimal.NewFromInt(v.I), true
	}
	return decimal.Decimal{}, false
}

// evalCompare implements typed equality/ordering; a type mismatch yields
// UNKNOWN rather than FALSE, per spec.md §4.2.
func evalCompare(op string, l, r core.Value) core.Value {
	if l.IsNull() || r.IsNull() {
		return core.Null
	}

	var cmp int
	switch {
	case l.Kind == core.ValueInt && r.Kind == core.ValueInt:
		cmp = compareInt(l.I, r.I)
	case (l.Kind == core.ValueInt || l.Kind == core.ValueDecimal) && (r.Kind == core.ValueInt || r.Kind == core.ValueDecimal):
		ld, _ := toDecimal(l)
		rd, _ := toDecimal(r)
		cmp = ld.Cmp(rd)
	case l.Kind == core.ValueString && r.Kind == core.ValueString:
		cmp = strings.Compare(l.S, r.S)
	case l.Kind == core.ValueDate && r.Kind == core.ValueDate:
		cmp = strings.Compare(l.S, r.S)
	case l.Kind == core.ValueBool && r.Kind == core.ValueBool:
		cmp = compareBool(l.B, r.B)
	default:
		return core.Null
	}

	switch op {
	case "=":
		return core.BoolValue(cmp == 0)
	case "<>":
		return core.BoolValue(cmp != 0)
	case "<":
		return core.BoolValue(cmp < 0)
	case "<=":
		return core.BoolValue(cmp <= 0)
	case ">":
		return core.BoolValue(cmp > 0)
	case ">=":
		return core.BoolValue(cmp >= 0)
	}
	return core.Null
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a && b:
		return -1
	default:
		return 1
	}
}

// likeToRegexp compiles a SQL LIKE pattern ('%' any run, '_' any one
// character) into a case-sensitive anchored regexp, per spec.md §4.2.
func likeToRegexp(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}
