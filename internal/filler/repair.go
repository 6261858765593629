package filler

import (
	"math/rand/v2"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/expr"
	"github.com/Kamil-Krawiec/Data-filler/internal/sampler"
)

// violation is one reason a candidate row failed validation: either a bare
// NOT NULL on Column, or a failing CHECK held in Node (Column unset).
type violation struct {
	Column string
	Node   *expr.Node
}

// validate checks row against every NOT NULL and CHECK constraint of tbl.
// ignoreNotNull skips the NOT NULL test for columns a cyclic-group fill has
// deliberately left NULL pending backfill (SPEC_FULL.md §4.5/§4.6 two-phase
// fill); it is nil outside that path.
func (f *Filler) validate(tbl *core.TableDef, row core.Row, ignoreNotNull map[string]bool) []violation {
	var out []violation
	for _, col := range tbl.Columns {
		if col.Nullable || ignoreNotNull[col.Name] {
			continue
		}
		if row[col.Name].IsNull() {
			out = append(out, violation{Column: col.Name})
		}
	}
	for _, chk := range tbl.Checks() {
		node, _ := chk.Expr.(*expr.Node)
		if node == nil {
			continue
		}
		if !f.ev.CheckPasses(node, row) {
			out = append(out, violation{Node: node})
		}
	}
	return out
}

// repairRow resamples the column responsible for each failure up to
// MaxAttemptsPerRow times, then — if still unresolved — switches to
// domain-narrowed sampling for up to MaxAttemptsPerValue further attempts,
// per spec.md §4.6. Once both budgets are spent with the row still
// invalid, the candidate is dropped (ok=false).
func (f *Filler) repairRow(tbl *core.TableDef, row core.Row, rng *rand.Rand, ignoreNotNull map[string]bool) (core.Row, bool) {
	k1 := f.cfg.MaxAttemptsPerRow
	k2 := f.cfg.MaxAttemptsPerValue

	for attempt := 0; attempt < k1+k2; attempt++ {
		fails := f.validate(tbl, row, ignoreNotNull)
		if len(fails) == 0 {
			return row, true
		}
		target := pickRepairTarget(fails)
		if target == "" {
			return nil, false
		}
		col, ok := tbl.Column(target)
		if !ok {
			return nil, false
		}

		if attempt < k1 {
			row[target] = f.reg.For(tbl.Name, col).Sample(rng)
			continue
		}
		if v, ok := narrowedSample(col, fails, rng); ok {
			row[target] = v
		} else {
			row[target] = f.reg.For(tbl.Name, col).Sample(rng)
		}
	}

	if len(f.validate(tbl, row, ignoreNotNull)) == 0 {
		return row, true
	}
	return nil, false
}

// pickRepairTarget chooses which column to resample next: a bare NOT NULL
// failure is unambiguous and wins outright; otherwise, per spec.md §4.6,
// target the lexicographically-last column referenced by a failing CHECK
// (an arbitrary but deterministic tie-break across the columns a
// multi-column predicate mentions).
func pickRepairTarget(fails []violation) string {
	for _, v := range fails {
		if v.Node == nil {
			return v.Column
		}
	}
	best := ""
	for _, v := range fails {
		refs := v.Node.ColumnRefs()
		if len(refs) == 0 {
			continue
		}
		sort.Strings(refs)
		last := refs[len(refs)-1]
		if last > best {
			best = last
		}
	}
	return best
}

// narrowedSample tries to directly sample a value for col that satisfies
// one of the failing checks, by recognizing a "col <op> literal" leaf
// inside its top-level AND spine and drawing from the tightened bound
// instead of blindly resampling. Returns ok=false when no failing check has
// a recognizable shape for col's type, leaving the caller to fall back to
// an ordinary resample.
func narrowedSample(col *core.ColumnDef, fails []violation, rng *rand.Rand) (core.Value, bool) {
	for _, v := range fails {
		if v.Node == nil {
			continue
		}
		for _, conj := range v.Node.TopLevelConjuncts() {
			if val, ok := sampleFromComparison(col, conj, rng); ok {
				return val, true
			}
		}
	}
	return core.Value{}, false
}

func sampleFromComparison(col *core.ColumnDef, n *expr.Node, rng *rand.Rand) (core.Value, bool) {
	if n.Kind != expr.KindBinary {
		return core.Value{}, false
	}
	op := n.Op
	var lit *expr.Node
	switch {
	case n.Left != nil && n.Left.Kind == expr.KindColumnRef && n.Left.Column == col.Name &&
		n.Right != nil && n.Right.Kind == expr.KindLiteral:
		lit = n.Right
	case n.Right != nil && n.Right.Kind == expr.KindColumnRef && n.Right.Column == col.Name &&
		n.Left != nil && n.Left.Kind == expr.KindLiteral:
		lit = n.Left
		op = flipOp(op)
	default:
		return core.Value{}, false
	}

	switch col.Type.Kind {
	case core.TypeInteger, core.TypeSerial, core.TypeDecimal:
		return narrowedNumeric(col, op, lit.Lit, rng)
	default:
		return core.Value{}, false
	}
}

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

// narrowedNumeric tightens col's existing domain with the single "col op
// literal" bound that just failed and draws once from the result,
// reconciling with any existing bound rather than overwriting it so a fix
// for one failing CHECK never reintroduces a violation of another.
func narrowedNumeric(col *core.ColumnDef, op string, lit core.Value, rng *rand.Rand) (core.Value, bool) {
	litDec, ok := asDecimal(lit)
	if !ok {
		return core.Value{}, false
	}

	narrowed := core.ValueDomain{}
	if col.Domain != nil {
		narrowed = *col.Domain
	}

	switch op {
	case ">":
		tightenMin(&narrowed, litDec, false)
	case ">=":
		tightenMin(&narrowed, litDec, true)
	case "<":
		tightenMax(&narrowed, litDec, false)
	case "<=":
		tightenMax(&narrowed, litDec, true)
	case "=":
		narrowed.Min, narrowed.Max = &litDec, &litDec
		narrowed.InclusiveMin, narrowed.InclusiveMax = true, true
	default:
		return core.Value{}, false // <> can't be expressed as a single bound
	}

	s := &sampler.NumericSampler{Domain: &narrowed, Decimal: col.Type.Kind == core.TypeDecimal, Scale: col.Type.Scale}
	return s.Sample(rng), true
}

func tightenMin(d *core.ValueDomain, v decimal.Decimal, inclusive bool) {
	if d.Min == nil || v.GreaterThan(*d.Min) || (v.Equal(*d.Min) && !inclusive && d.InclusiveMin) {
		d.Min = &v
		d.InclusiveMin = inclusive
	}
}

func tightenMax(d *core.ValueDomain, v decimal.Decimal, inclusive bool) {
	if d.Max == nil || v.LessThan(*d.Max) || (v.Equal(*d.Max) && !inclusive && d.InclusiveMax) {
		d.Max = &v
		d.InclusiveMax = inclusive
	}
}

func asDecimal(v core.Value) (decimal.Decimal, bool) {
	switch v.Kind {
	case core.ValueDecimal:
		return v.D, true
	case core.ValueInt:
		return decimal.NewFromInt(v.I), true
	default:
		return decimal.Decimal{}, false
	}
}
