// Package depgraph computes a dependency-aware generation order over a
// schema's foreign keys, per spec.md §4.5: Tarjan's SCC to find foreign-key
// cycles, reverse-topological levels over the condensation, and a
// two-phase nullable-first fill plan for any true cycle that has at least
// one nullable FK edge to break it.
package depgraph

import (
	"sort"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// Edge is one foreign-key reference: FromTable depends on ToTable.
type Edge struct {
	FromTable  string
	ToTable    string
	Constraint *core.TableConstraint
	Nullable   bool // true iff every column in Constraint.Columns is nullable
}

// Plan is the generation order: Levels[0] holds tables with no
// unresolved dependency, and each subsequent level depends only on
// earlier levels. A level can hold more than one table (they're
// independent of each other and can be filled concurrently); a level can
// also be a true cycle, named in CyclicGroups, which internal/filler must
// fill in two passes (nullable FKs NULL first, then backfilled).
type Plan struct {
	Levels       [][]string
	CyclicGroups map[string][]string // representative table -> its SCC's members
	Edges        map[string][]Edge   // table -> its outbound (child->parent) edges
}

// Build computes the Plan for s, or a *core.CyclicDependencyError if some
// strongly connected component has no nullable FK edge to break it.
func Build(s *core.Schema) (*Plan, error) {
	edges := collectEdges(s)

	g := newGraph(s.Order)
	for from, es := range edges {
		for _, e := range es {
			g.addEdge(from, e.ToTable)
		}
	}

	sccs := g.tarjanSCCs()

	for _, scc := range sccs {
		// A singleton "cycle" is either an isolated table or a
		// self-referential FK; internal/filler handles self-references
		// specially (first row points at its own generated key) rather
		// than treating them as a cross-table cycle requiring a nullable
		// break, per spec.md §4.6.
		if len(scc) < 2 {
			continue
		}
		if !sccHasNullableBreak(scc, edges) {
			sorted := append([]string(nil), scc...)
			sort.Strings(sorted)
			return nil, &core.CyclicDependencyError{Tables: sorted}
		}
	}

	levels, cyclic := levelize(s.Order, edges, sccs)
	return &Plan{Levels: levels, CyclicGroups: cyclic, Edges: edges}, nil
}

// sccHasNullableBreak reports whether at least one FK edge inside the SCC
// is fully nullable, letting internal/filler null it out on the first pass
// and backfill later (spec.md §4.5/§4.6 two-phase fill).
func sccHasNullableBreak(scc []string, edges map[string][]Edge) bool {
	members := map[string]bool{}
	for _, t := range scc {
		members[t] = true
	}
	for _, t := range scc {
		for _, e := range edges[t] {
			if members[e.ToTable] && e.Nullable {
				return true
			}
		}
	}
	return false
}

// collectEdges builds the from->[]Edge map from every table's foreign keys.
func collectEdges(s *core.Schema) map[string][]Edge {
	edges := map[string][]Edge{}
	for _, tbl := range s.Tables() {
		for _, fk := range tbl.ForeignKeys() {
			edges[tbl.Name] = append(edges[tbl.Name], Edge{
				FromTable:  tbl.Name,
				ToTable:    fk.RefTable,
				Constraint: fk,
				Nullable:   allColumnsNullable(tbl, fk.Columns),
			})
		}
	}
	return edges
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

// levelize assigns each table (or, for a true cycle, the whole SCC as one
// unit) to the earliest level at which every dependency is already
// resolved: level 0 holds tables with no FK to another table (or only
// self-references), and level k+1 holds tables whose every non-self,
// non-intra-cycle FK target lies in level <= k.
func levelize(order []string, edges map[string][]Edge, sccs [][]string) ([][]string, map[string][]string) {
	sccOf := map[string]string{} // table -> representative
	cyclic := map[string][]string{}
	for _, scc := range sccs {
		sorted := append([]string(nil), scc...)
		sort.Strings(sorted)
		rep := sorted[0]
		for _, t := range scc {
			sccOf[t] = rep
		}
		if len(scc) > 1 {
			cyclic[rep] = sorted
		}
	}

	// Build a condensation graph: rep -> set of dependency reps (excluding
	// self and intra-SCC edges).
	depReps := map[string]map[string]bool{}
	for _, t := range order {
		rep := sccOf[t]
		if depReps[rep] == nil {
			depReps[rep] = map[string]bool{}
		}
		for _, e := range edges[t] {
			toRep := sccOf[e.ToTable]
			if toRep != rep {
				depReps[rep][toRep] = true
			}
		}
	}

	level := map[string]int{}
	var resolve func(rep string, visiting map[string]bool) int
	resolve = func(rep string, visiting map[string]bool) int {
		if l, ok := level[rep]; ok {
			return l
		}
		if visiting[rep] {
			return 0 // shouldn't happen: condensation is acyclic by construction
		}
		visiting[rep] = true
		max := -1
		for dep := range depReps[rep] {
			l := resolve(dep, visiting)
			if l > max {
				max = l
			}
		}
		level[rep] = max + 1
		return level[rep]
	}

	reps := make([]string, 0, len(depReps))
	for rep := range depReps {
		reps = append(reps, rep)
	}
	sort.Strings(reps)
	for _, rep := range reps {
		resolve(rep, map[string]bool{})
	}

	maxLevel := -1
	for _, l := range level {
		if l > maxLevel {
			maxLevel = l
		}
	}
	levels := make([][]string, maxLevel+1)
	repMembers := map[string][]string{}
	for _, t := range order {
		rep := sccOf[t]
		repMembers[rep] = append(repMembers[rep], t)
	}
	for _, rep := range reps {
		levels[level[rep]] = append(levels[level[rep]], repMembers[rep]...)
	}
	return levels, cyclic
}
