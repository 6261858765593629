// Package expr implements the parser and evaluator for CHECK predicates:
// arithmetic, comparison, boolean connectives, BETWEEN, IN, LIKE, REGEXP,
// EXTRACT, DATE, LENGTH, CURRENT_DATE, and string/date literals (spec.md
// §4.2). The parsed tree is retained (never re-parsed from source text) so
// both evaluation and internal/domain's bound extraction walk the same
// structure, per spec.md's design note.
package expr

import "github.com/Kamil-Krawiec/Data-filler/internal/core"

// Kind tags the variant a Node holds.
type Kind string

const (
	KindLiteral   Kind = "literal"
	KindColumnRef Kind = "column_ref"
	KindUnary     Kind = "unary"
	KindBinary    Kind = "binary"
	KindBetween   Kind = "between"
	KindIn        Kind = "in"
	KindLike      Kind = "like"
	KindRegex     Kind = "regex"
	KindIsNull    Kind = "is_null"
	KindFuncCall  Kind = "func_call"
)

// Node is the recursive ExprAST variant of spec.md §3. Only the fields
// relevant to Kind are populated.
type Node struct {
	Kind Kind

	// KindLiteral
	Lit core.Value

	// KindColumnRef
	Column string

	// KindUnary: Op is "-" or "NOT"; KindBinary: Op is one of
	// + - * / % = <> < <= > >= AND OR
	Op          string
	Left, Right *Node

	// KindBetween
	Between [3]*Node // expr, lo, hi

	// KindIn
	InExpr *Node
	InList []*Node

	// KindLike / KindRegex
	PatternExpr *Node
	Negated     bool

	// KindIsNull
	Operand *Node

	// KindFuncCall: Func is one of EXTRACT, DATE, LENGTH, CURRENT_DATE,
	// UPPER, LOWER. EXTRACT's first arg is the part name ("YEAR", ...).
	Func string
	Args []*Node
}

// ColumnRefs returns every distinct column name the expression mentions,
// used by internal/domain to find which CHECKs apply to a column and by
// the filler's repair heuristic ("lexicographically-last referenced
// column").
func (n *Node) ColumnRefs() []string {
	seen := map[string]bool{}
	var out []string
	var walk func(*Node)
	walk = func(m *Node) {
		if m == nil {
			return
		}
		if m.Kind == KindColumnRef {
			if !seen[m.Column] {
				seen[m.Column] = true
				out = append(out, m.Column)
			}
		}
		walk(m.Left)
		walk(m.Right)
		walk(m.Between[0])
		walk(m.Between[1])
		walk(m.Between[2])
		walk(m.InExpr)
		for _, e := range m.InList {
			walk(e)
		}
		walk(m.PatternExpr)
		walk(m.Operand)
		for _, a := range m.Args {
			walk(a)
		}
	}
	walk(n)
	return out
}

// TopLevelConjuncts flattens the top-level AND spine of n into its leaves.
// A top-level OR (or any other shape) is returned as a single leaf, since
// a disjunction is too weak to treat any of its branches as a universal
// constraint. Shared by internal/domain's bound extraction and
// internal/filler's repair-target search, both of which need to reason
// about one column-mentioning clause at a time.
func (n *Node) TopLevelConjuncts() []*Node {
	if n == nil {
		return nil
	}
	if n.Kind == KindBinary && n.Op == "AND" {
		return append(n.Left.TopLevelConjuncts(), n.Right.TopLevelConjuncts()...)
	}
	return []*Node{n}
}
