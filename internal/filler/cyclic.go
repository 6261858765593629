package filler

import (
	"math/rand/v2"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// pendingBackfill is one foreign key a cyclic group's phase-1 pass left
// NULL because its target sibling hadn't been generated yet, to be
// resolved once every member of the group has rows.
type pendingBackfill struct {
	table      string
	rowIndex   int
	columns    []string
	refTable   string
	refColumns []string
}

// fillCyclicGroup generates every table in a true foreign-key cycle as one
// unit, per spec.md §4.5/§4.6's two-phase fill: phase 1 generates each
// member in a fixed (alphabetical) order, nulling out any foreign key that
// points at a sibling not yet generated (legal only because depgraph
// already proved at least one such edge is nullable); phase 2 backfills
// those NULLs once every member has rows to draw from. A non-nullable
// foreign key that still can't be resolved during phase 1 (an intra-cycle
// edge other than the breaking one) causes that candidate to be dropped,
// which can underfill the table — reported like any other drop, never
// silently ignored.
func (f *Filler) fillCyclicGroup(members []string) {
	order := sortedCopy(members)
	inGroup := map[string]bool{}
	for _, m := range order {
		inGroup[m] = true
	}

	local := map[string]*core.GeneratedTable{}
	idxByTable := map[string]*uniqueIndex{}
	rngs := map[string]*rand.Rand{}
	requested := map[string]int{}
	lastFailuresByTable := map[string][]string{}
	var pending []pendingBackfill

	for _, name := range order {
		tbl, _ := f.schema.Table(name)
		n := f.cfg.RowsFor(name)
		requested[name] = n
		rng := rngFor(f.cfg.Seed, name)
		rngs[name] = rng

		maxTotal := n * f.cfg.MaxTotalAttemptMultiplier
		if maxTotal < n {
			maxTotal = n
		}
		idx := newUniqueIndex(tbl)
		committed := make([]core.Row, 0, n)
		var lastFailures []string

		attempts := 0
		for len(committed) < n && attempts < maxTotal {
			attempts++

			row := core.Row{}
			fkCols := map[string]bool{}
			rowPending := []pendingBackfill{}
			ok := true

			for _, fk := range tbl.ForeignKeys() {
				if fk.RefTable == name {
					vals, rok := f.resolveSelfReference(tbl, fk, committed, rng)
					if !rok {
						ok = false
						break
					}
					for c, v := range vals {
						row[c] = v
						fkCols[c] = true
					}
					continue
				}

				if inGroup[fk.RefTable] {
					if sibling, done := local[fk.RefTable]; done && len(sibling.Rows) > 0 {
						parentRow := sibling.Rows[rng.IntN(len(sibling.Rows))]
						for c, v := range project(parentRow, fk.RefColumns, fk.Columns) {
							row[c] = v
							fkCols[c] = true
						}
						continue
					}
					if !allColumnsNullable(tbl, fk.Columns) {
						ok = false
						break
					}
					for _, c := range fk.Columns {
						row[c] = core.Null
						fkCols[c] = true
					}
					rowPending = append(rowPending, pendingBackfill{
						table: name, columns: fk.Columns,
						refTable: fk.RefTable, refColumns: fk.RefColumns,
					})
					continue
				}

				f.mu.RLock()
				parent := f.result.Tables[fk.RefTable]
				f.mu.RUnlock()
				if parent == nil || len(parent.Rows) == 0 {
					ok = false
					break
				}
				parentRow := parent.Rows[rng.IntN(len(parent.Rows))]
				for c, v := range project(parentRow, fk.RefColumns, fk.Columns) {
					row[c] = v
					fkCols[c] = true
				}
			}
			if !ok {
				lastFailures = appendCapped(lastFailures, "foreign key parent set empty")
				continue
			}

			for _, col := range tbl.Columns {
				if fkCols[col.Name] || col.Type.Kind == core.TypeSerial {
					continue
				}
				row[col.Name] = f.reg.For(name, col).Sample(rng)
			}

			ignoreNotNull := map[string]bool{}
			for _, p := range rowPending {
				for _, c := range p.columns {
					ignoreNotNull[c] = true
				}
			}

			repaired, rok := f.repairRow(tbl, row, rng, ignoreNotNull)
			if !rok {
				lastFailures = appendCapped(lastFailures, "check constraint unsatisfiable after repair")
				continue
			}
			if idx.collides(repaired) {
				lastFailures = appendCapped(lastFailures, "uniqueness collision")
				continue
			}

			assignSerials(tbl, repaired, len(committed)+1)
			idx.add(repaired)
			committed = append(committed, repaired)
			for _, p := range rowPending {
				p.rowIndex = len(committed) - 1
				pending = append(pending, p)
			}
		}

		local[name] = &core.GeneratedTable{Table: tbl, Rows: committed}
		idxByTable[name] = idx
		lastFailuresByTable[name] = lastFailures
	}

	// Phase 2: every member now has rows, so each NULLed breaking edge can
	// be resolved the same way an ordinary foreign key would be.
	affected := map[string]map[int]bool{}
	for _, p := range pending {
		sibling := local[p.refTable]
		if sibling == nil || len(sibling.Rows) == 0 {
			continue // no parent to draw from; column stays NULL
		}
		gt := local[p.table]
		rng := rngs[p.table]
		parentRow := sibling.Rows[rng.IntN(len(sibling.Rows))]
		vals := project(parentRow, p.refColumns, p.columns)
		for c, v := range vals {
			gt.Rows[p.rowIndex][c] = v
		}
		if affected[p.table] == nil {
			affected[p.table] = map[int]bool{}
		}
		affected[p.table][p.rowIndex] = true
	}

	// A backfilled value can turn a row that passed phase 1 into one that
	// now fails a CHECK referencing the backfilled column, or collides
	// with another row under a UNIQUE constraint the NULL placeholder
	// trivially satisfied. Re-validate every row a backfill touched and
	// drop it rather than publish a row that no longer satisfies the
	// schema.
	dropped := map[string]map[int]bool{}
	for name, rows := range affected {
		gt := local[name]
		// The phase-1 index already holds each affected row's own tuples, so
		// rebuild it from the untouched rows; otherwise every backfilled row
		// would collide with itself.
		idx := newUniqueIndex(gt.Table)
		for i, row := range gt.Rows {
			if !rows[i] {
				idx.add(row)
			}
		}
		for i := range rows {
			row := gt.Rows[i]
			if len(f.validate(gt.Table, row, nil)) > 0 {
				lastFailuresByTable[name] = appendCapped(lastFailuresByTable[name], "check constraint failed after cyclic backfill")
				markDropped(dropped, name, i)
				continue
			}
			if idx.collides(row) {
				lastFailuresByTable[name] = appendCapped(lastFailuresByTable[name], "uniqueness collision after cyclic backfill")
				markDropped(dropped, name, i)
				continue
			}
			idx.add(row)
		}
	}
	for name, rows := range dropped {
		gt := local[name]
		kept := gt.Rows[:0]
		for i, row := range gt.Rows {
			if !rows[i] {
				kept = append(kept, row)
			}
		}
		gt.Rows = kept
	}

	// Publish into the shared result now that every row in the group is
	// final. SERIAL ids were already assigned at phase-1 commit time (not
	// renumbered here): a sibling row resolved during phase 1 or the phase-2
	// backfill above may already hold a copy of an id via a foreign key, so
	// renumbering post-drop would turn that copy into a dangling reference.
	// A table that loses a row to the post-backfill revalidation above can
	// therefore end up with a gap in its SERIAL sequence instead of the
	// dense numbering fillSimpleTable guarantees outside a cycle.
	for _, name := range order {
		gt := local[name]
		f.rep.RecordTable(name, len(gt.Rows), requested[name])
		if len(gt.Rows) < requested[name] {
			f.rep.Add(&core.UnderfilledTable{
				Table: name, Produced: len(gt.Rows), Requested: requested[name],
				LastFailures: lastFailuresByTable[name],
			})
		}
		f.mu.Lock()
		f.result.Set(name, gt)
		f.mu.Unlock()
	}
}

func markDropped(dropped map[string]map[int]bool, table string, rowIndex int) {
	if dropped[table] == nil {
		dropped[table] = map[int]bool{}
	}
	dropped[table][rowIndex] = true
}
