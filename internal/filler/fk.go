package filler

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// buildCandidate assembles one row of tbl: every foreign key first (so its
// columns are excluded from ordinary sampling), then every remaining
// column through the sampler registry. selfRowsSoFar is this table's own
// already-committed rows, used to resolve self-referential foreign keys.
// ok is false when some foreign key has no parent to draw from — the
// candidate must be dropped outright, never repaired.
func (f *Filler) buildCandidate(tbl *core.TableDef, selfRowsSoFar []core.Row, rng *rand.Rand) (core.Row, bool) {
	row := core.Row{}
	fkCols := map[string]bool{}

	for _, fk := range tbl.ForeignKeys() {
		vals, ok := f.resolveForeignKey(tbl, fk, selfRowsSoFar, rng)
		if !ok {
			return nil, false
		}
		for col, v := range vals {
			row[col] = v
			fkCols[col] = true
		}
	}

	for _, col := range tbl.Columns {
		if fkCols[col.Name] {
			continue
		}
		if col.Type.Kind == core.TypeSerial {
			row[col.Name] = core.Null // assigned on commit, see assignSerials
			continue
		}
		row[col.Name] = f.reg.For(tbl.Name, col).Sample(rng)
	}
	return row, true
}

// resolveForeignKey picks the parent row a candidate's fk columns should
// reference and projects its referenced columns onto fk.Columns. FK
// cardinality is uniform per SPEC_FULL.md Open Question 3: every resolved
// parent is drawn with rng.IntN over the full parent set.
func (f *Filler) resolveForeignKey(tbl *core.TableDef, fk *core.TableConstraint, selfRowsSoFar []core.Row, rng *rand.Rand) (map[string]core.Value, bool) {
	if fk.RefTable == tbl.Name {
		return f.resolveSelfReference(tbl, fk, selfRowsSoFar, rng)
	}

	f.mu.RLock()
	parent := f.result.Tables[fk.RefTable]
	f.mu.RUnlock()
	if parent == nil || len(parent.Rows) == 0 {
		return nil, false
	}
	row := parent.Rows[rng.IntN(len(parent.Rows))]
	return project(row, fk.RefColumns, fk.Columns), true
}

// resolveSelfReference implements spec.md §4.6's self-referential foreign
// key rule: once the table has at least one committed row, draw uniformly
// from them like any other parent. For the table's very first row, there
// is nothing to draw from yet — NULL if the column allows it, otherwise the
// row must point at its own, not-yet-assigned key, which only works when
// that key is the table's sole SERIAL primary key (dense ids make its
// eventual value predictable: "1 + however many rows are already
// committed"). Any other shape (non-serial self-referencing PK with no
// committed rows and a NOT NULL column) can't be resolved and the
// candidate is dropped.
func (f *Filler) resolveSelfReference(tbl *core.TableDef, fk *core.TableConstraint, selfRowsSoFar []core.Row, rng *rand.Rand) (map[string]core.Value, bool) {
	if len(selfRowsSoFar) > 0 {
		row := selfRowsSoFar[rng.IntN(len(selfRowsSoFar))]
		return project(row, fk.RefColumns, fk.Columns), true
	}

	if allColumnsNullable(tbl, fk.Columns) {
		return nullValues(fk.Columns), true
	}

	if v, ok := predictOwnSerialPK(tbl, fk, len(selfRowsSoFar)); ok {
		return v, true
	}
	return nil, false
}

// predictOwnSerialPK returns the foreign-key column values a row should
// carry to reference its own, not-yet-committed primary key, when that key
// is the table's single SERIAL column. committedSoFar is the count of rows
// already committed to this table; dense-id assignment means the next
// committed row receives committedSoFar+1.
func predictOwnSerialPK(tbl *core.TableDef, fk *core.TableConstraint, committedSoFar int) (map[string]core.Value, bool) {
	if len(fk.Columns) != 1 || len(fk.RefColumns) != 1 {
		return nil, false
	}
	pk := tbl.PrimaryKey()
	if pk == nil || len(pk.Columns) != 1 || !strings.EqualFold(pk.Columns[0], fk.RefColumns[0]) {
		return nil, false
	}
	col, ok := tbl.Column(pk.Columns[0])
	if !ok || col.Type.Kind != core.TypeSerial {
		return nil, false
	}
	return map[string]core.Value{fk.Columns[0]: core.IntValue(int64(committedSoFar + 1))}, true
}

func allColumnsNullable(tbl *core.TableDef, cols []string) bool {
	for _, name := range cols {
		c, ok := tbl.Column(name)
		if !ok || !c.Nullable {
			return false
		}
	}
	return true
}

func nullValues(cols []string) map[string]core.Value {
	out := make(map[string]core.Value, len(cols))
	for _, c := range cols {
		out[c] = core.Null
	}
	return out
}

func project(row core.Row, fromCols, toCols []string) map[string]core.Value {
	out := make(map[string]core.Value, len(toCols))
	for i, from := range fromCols {
		if i >= len(toCols) {
			break
		}
		out[toCols[i]] = row[from]
	}
	return out
}

// uniqueIndex tracks the committed tuples of every PRIMARY KEY/UNIQUE
// constraint on a table so fillSimpleTable can reject a colliding candidate
// in O(1) instead of rescanning every committed row. A tuple containing any
// NULL never collides with another, matching SQL's nullable-unique
// semantics (spec.md §3 uniqueness invariant).
type uniqueIndex struct {
	constraints [][]string
	seen        []map[string]bool
}

func newUniqueIndex(tbl *core.TableDef) *uniqueIndex {
	idx := &uniqueIndex{}
	for _, uc := range tbl.UniqueConstraints() {
		idx.constraints = append(idx.constraints, uc.Columns)
		idx.seen = append(idx.seen, map[string]bool{})
	}
	return idx
}

func (idx *uniqueIndex) collides(row core.Row) bool {
	for i, cols := range idx.constraints {
		key, ok := tupleKey(row, cols)
		if !ok {
			continue // a NULL participant can never collide
		}
		if idx.seen[i][key] {
			return true
		}
	}
	return false
}

func (idx *uniqueIndex) add(row core.Row) {
	for i, cols := range idx.constraints {
		key, ok := tupleKey(row, cols)
		if !ok {
			continue
		}
		idx.seen[i][key] = true
	}
}

func tupleKey(row core.Row, cols []string) (string, bool) {
	var sb strings.Builder
	for i, c := range cols {
		v := row[c]
		if v.IsNull() {
			return "", false
		}
		if i > 0 {
			sb.WriteByte('\x1f')
		}
		sb.WriteString(valueText(v))
	}
	return sb.String(), true
}

func valueText(v core.Value) string {
	switch v.Kind {
	case core.ValueInt:
		return "i:" + strconv.FormatInt(v.I, 10)
	case core.ValueDecimal:
		return "d:" + v.D.String()
	case core.ValueString:
		return "s:" + v.S
	case core.ValueBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case core.ValueDate:
		return "t:" + v.S
	default:
		return "n:"
	}
}
