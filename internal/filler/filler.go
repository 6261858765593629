// Package filler implements the row generator and repair loop of
// SPEC_FULL.md §4.6: for each table, in foreign-key dependency order, build
// a candidate row, validate it against NOT NULL and CHECK constraints,
// repair the offending column in place on failure, and drop the candidate
// once the attempt budget is exhausted. Tables within one dependency level
// fill concurrently; a true foreign-key cycle fills as one unit in two
// passes (internal/depgraph confirms the cycle has a nullable edge; this
// package leaves such edges NULL on the first pass and backfills them once
// every member has rows).
package filler

import (
	"runtime"
	"sort"
	"sync"

	"github.com/Kamil-Krawiec/Data-filler/internal/config"
	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/depgraph"
	"github.com/Kamil-Krawiec/Data-filler/internal/domain"
	"github.com/Kamil-Krawiec/Data-filler/internal/expr"
	"github.com/Kamil-Krawiec/Data-filler/internal/report"
	"github.com/Kamil-Krawiec/Data-filler/internal/sampler"
)

// Filler holds everything a single run needs once: the annotated schema,
// its dependency plan, the resolved config, the sampler registry, and the
// shared evaluator. One Filler serves the whole run; per-table state
// (PRNG, in-progress rows) lives in the fill functions, not here.
type Filler struct {
	schema *core.Schema
	plan   *depgraph.Plan
	cfg    *config.Config
	reg    *sampler.Registry
	ev     *expr.Evaluator
	rep    *report.Report

	memberOfGroup map[string]string // table -> cyclic-group representative

	mu     sync.RWMutex
	result *core.Result
}

// Run executes the full pipeline over schema: structural validation,
// predefined-value validation, domain annotation, dependency resolution,
// then level-by-level concurrent generation. A dangling foreign key or a
// constraint on a nonexistent column fails schema.Validate() and is
// returned immediately, before any row generation starts; a predefined
// value that violates the CHECK on its column fails
// cfg.ValidateAgainstSchema() the same way, naming the offending column.
// It also returns a *core.CyclicDependencyError if the schema has a
// foreign-key cycle with no nullable edge to break it; every other failure
// mode (underfilled tables, unsatisfiable checks) is non-fatal and
// surfaced through rep instead.
func Run(schema *core.Schema, cfg *config.Config, reg *sampler.Registry, rep *report.Report) (*core.Result, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	ev := expr.NewEvaluator()
	if err := cfg.ValidateAgainstSchema(schema, ev); err != nil {
		return nil, err
	}

	domain.Annotate(schema)

	plan, err := depgraph.Build(schema)
	if err != nil {
		return nil, err
	}

	f := &Filler{
		schema:        schema,
		plan:          plan,
		cfg:           cfg,
		reg:           reg,
		ev:            ev,
		rep:           rep,
		memberOfGroup: map[string]string{},
		result:        core.NewResult(),
	}
	for rep, members := range plan.CyclicGroups {
		for _, m := range members {
			f.memberOfGroup[m] = rep
		}
	}

	for _, level := range plan.Levels {
		f.fillLevel(level)
	}
	return f.result, nil
}

// fillLevel generates every table in level concurrently: independent
// tables each get their own goroutine, and each distinct cyclic group
// appearing in the level is filled once, as a unit, by a single goroutine.
// depgraph guarantees tables in the same level never depend on each other
// except within a shared cyclic group, so no further coordination is
// needed between the goroutines launched here.
func (f *Filler) fillLevel(level []string) {
	width := runtime.GOMAXPROCS(0)
	sem := make(chan struct{}, width)
	var wg sync.WaitGroup

	seen := map[string]bool{}
	for _, name := range level {
		if seen[name] {
			continue
		}
		if rep, ok := f.memberOfGroup[name]; ok {
			members := f.plan.CyclicGroups[rep]
			for _, m := range members {
				seen[m] = true
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(members []string) {
				defer wg.Done()
				defer func() { <-sem }()
				f.fillCyclicGroup(members)
			}(members)
			continue
		}
		seen[name] = true
		wg.Add(1)
		sem <- struct{}{}
		go func(name string) {
			defer wg.Done()
			defer func() { <-sem }()
			f.fillSimpleTable(name)
		}(name)
	}
	wg.Wait()
}

// fillSimpleTable generates a table with no unresolved cyclic dependency:
// every foreign key it carries either targets itself or an already-complete
// earlier level.
func (f *Filler) fillSimpleTable(name string) {
	tbl, _ := f.schema.Table(name)
	n := f.cfg.RowsFor(name)
	rng := rngFor(f.cfg.Seed, name)

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

		candidate, ok := f.buildCandidate(tbl, committed, rng)
		if !ok {
			lastFailures = appendCapped(lastFailures, "foreign key parent set empty")
			continue
		}

		repaired, ok := f.repairRow(tbl, candidate, rng, nil)
		if !ok {
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
	}

	f.mu.Lock()
	f.result.Set(name, &core.GeneratedTable{Table: tbl, Rows: committed})
	f.mu.Unlock()

	f.rep.RecordTable(name, len(committed), n)
	if len(committed) < n {
		f.rep.Add(&core.UnderfilledTable{Table: name, Produced: len(committed), Requested: n, LastFailures: lastFailures})
	}
}

func appendCapped(fails []string, reason string) []string {
	if len(fails) >= 10 {
		return fails
	}
	return append(fails, reason)
}

// assignSerials fills every SERIAL column of row with position, the row's
// 1-based commit order — the dense-ID scheme of SPEC_FULL.md Open Question
// 2: the counter only exists implicitly as "how many rows have committed so
// far", so a dropped candidate never consumes an id.
func assignSerials(tbl *core.TableDef, row core.Row, position int) {
	for _, col := range tbl.Columns {
		if col.Type.Kind == core.TypeSerial {
			row[col.Name] = core.IntValue(int64(position))
		}
	}
}

// sortedCopy returns a sorted copy of ss without mutating the input.
func sortedCopy(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}
