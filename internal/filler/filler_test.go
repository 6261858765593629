package filler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamil-Krawiec/Data-filler/internal/config"
	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/ddl"
	"github.com/Kamil-Krawiec/Data-filler/internal/report"
	"github.com/Kamil-Krawiec/Data-filler/internal/sampler"
)

func run(t *testing.T, src string, cfg *config.Config) (*core.Result, *core.Schema) {
	t.Helper()
	schema, err := ddl.ParseMany(src)
	require.NoError(t, err)
	reg := sampler.NewRegistry(sampler.Config{})
	rep := report.New(nil)
	result, err := Run(schema, cfg, reg, rep)
	require.NoError(t, err)
	return result, schema
}

// Scenario A: simple PK + CHECK.
func TestScenarioSimplePrimaryKeyAndCheck(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 42
	cfg.NumRows = 5

	result, _ := run(t, `CREATE TABLE T(id SERIAL PRIMARY KEY, age INT CHECK (age >= 18 AND age <= 30));`, cfg)

	gt := result.Tables["T"]
	require.Len(t, gt.Rows, 5)
	for i, row := range gt.Rows {
		assert.Equal(t, int64(i+1), row["id"].I)
		age := row["age"].I
		assert.GreaterOrEqual(t, age, int64(18))
		assert.LessOrEqual(t, age, int64(30))
	}
}

// Scenario B: ENUM via IN.
func TestScenarioEnumViaIn(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 42
	cfg.NumRows = 20

	result, _ := run(t, `CREATE TABLE T(id SERIAL PRIMARY KEY, country VARCHAR(20) CHECK (country IN ('A','B','C')));`, cfg)

	gt := result.Tables["T"]
	require.Len(t, gt.Rows, 20)
	for _, row := range gt.Rows {
		assert.Contains(t, []string{"A", "B", "C"}, row["country"].S)
	}
}

// Scenario C: composite FK referential integrity + tuple uniqueness.
func TestScenarioCompositeForeignKey(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 42
	cfg.NumRowsPerTable = map[string]int{"Theaters": 3, "Seats": 60}

	src := `
CREATE TABLE Theaters (theater_id SERIAL PRIMARY KEY, name VARCHAR(30));
CREATE TABLE Seats (
  row INT,
  seat INT,
  theater_id INT,
  PRIMARY KEY (row, seat, theater_id),
  FOREIGN KEY (theater_id) REFERENCES Theaters(theater_id)
);`
	result, _ := run(t, src, cfg)

	theaters := result.Tables["Theaters"]
	seats := result.Tables["Seats"]
	require.Len(t, theaters.Rows, 3)

	ids := map[int64]bool{}
	for _, row := range theaters.Rows {
		ids[row["theater_id"].I] = true
	}

	seen := map[string]bool{}
	for _, row := range seats.Rows {
		assert.True(t, ids[row["theater_id"].I], "seat references an existing theater")
		key := fmt.Sprintf("%d,%d,%d", row["row"].I, row["seat"].I, row["theater_id"].I)
		assert.False(t, seen[key], "no duplicate (row,seat,theater_id) tuples")
		seen[key] = true
	}
	assert.LessOrEqual(t, len(seats.Rows), 60)
}

// Scenario D: unsatisfiable CHECK reports UnderfilledTable with produced=0
// and the run still completes.
func TestScenarioUnsatisfiableCheckUnderfills(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 42
	cfg.NumRows = 10

	schema, err := ddl.ParseMany(`CREATE TABLE T(price DECIMAL(5,2) CHECK (price > 100 AND price < 50));`)
	require.NoError(t, err)
	reg := sampler.NewRegistry(sampler.Config{})
	rep := report.New(nil)
	result, err := Run(schema, cfg, reg, rep)
	require.NoError(t, err)

	gt := result.Tables["T"]
	assert.Len(t, gt.Rows, 0)
	require.Len(t, rep.Warnings, 1)
	uf, ok := rep.Warnings[0].(*core.UnderfilledTable)
	require.True(t, ok)
	assert.Equal(t, 0, uf.Produced)
	assert.Equal(t, 10, uf.Requested)
}

// Scenario E: cycle with nullable FKs in both directions fills both tables
// and leaves every generated FK value consistent with its parent table.
func TestScenarioCyclicNullableForeignKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 42
	cfg.NumRowsPerTable = map[string]int{"A": 10, "B": 10}

	src := `
CREATE TABLE A (id SERIAL PRIMARY KEY, b_id INT NULL, FOREIGN KEY (b_id) REFERENCES B(id));
CREATE TABLE B (id SERIAL PRIMARY KEY, a_id INT NULL, FOREIGN KEY (a_id) REFERENCES A(id));`
	result, _ := run(t, src, cfg)

	a := result.Tables["A"]
	b := result.Tables["B"]
	require.Len(t, a.Rows, 10)
	require.Len(t, b.Rows, 10)

	bIDs := map[int64]bool{}
	for _, row := range b.Rows {
		bIDs[row["id"].I] = true
	}
	aIDs := map[int64]bool{}
	for _, row := range a.Rows {
		aIDs[row["id"].I] = true
	}
	for _, row := range a.Rows {
		if !row["b_id"].IsNull() {
			assert.True(t, bIDs[row["b_id"].I])
		}
	}
	for _, row := range b.Rows {
		if !row["a_id"].IsNull() {
			assert.True(t, aIDs[row["a_id"].I])
		}
	}
}

// Scenario F: regex constraint forces every value to match exactly.
func TestScenarioRegexConstraint(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 42
	cfg.NumRows = 15

	result, _ := run(t, `CREATE TABLE T(isbn VARCHAR(13) CHECK (isbn ~ '^[0-9]{13}$'));`, cfg)

	gt := result.Tables["T"]
	require.Len(t, gt.Rows, 15)
	for _, row := range gt.Rows {
		s := row["isbn"].S
		require.Len(t, s, 13)
		for _, r := range s {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}

// Self-referential FK: first row with no committed siblings must either be
// NULL (if nullable) or point at its own freshly-assigned key, never be
// treated as a cyclic-dependency error.
func TestSelfReferentialForeignKeyFirstRow(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 42
	cfg.NumRows = 8

	result, _ := run(t, `CREATE TABLE Employees (
  id SERIAL PRIMARY KEY,
  manager_id INT NULL,
  FOREIGN KEY (manager_id) REFERENCES Employees(id)
);`, cfg)

	gt := result.Tables["Employees"]
	require.Len(t, gt.Rows, 8)
	ids := map[int64]bool{}
	for _, row := range gt.Rows {
		ids[row["id"].I] = true
	}
	for _, row := range gt.Rows {
		if !row["manager_id"].IsNull() {
			assert.True(t, ids[row["manager_id"].I])
		}
	}
}

// Determinism: two runs with the same schema, config, and seed produce
// byte-identical rows.
func TestDeterministicAcrossRuns(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 7
	cfg.NumRows = 12

	src := `CREATE TABLE T(id SERIAL PRIMARY KEY, age INT CHECK (age BETWEEN 18 AND 65), name VARCHAR(30));`
	r1, _ := run(t, src, cfg)
	r2, _ := run(t, src, cfg)

	g1, g2 := r1.Tables["T"], r2.Tables["T"]
	require.Len(t, g1.Rows, len(g2.Rows))
	for i := range g1.Rows {
		assert.Equal(t, g1.Rows[i]["age"].I, g2.Rows[i]["age"].I)
		assert.Equal(t, g1.Rows[i]["name"].S, g2.Rows[i]["name"].S)
	}
}

// Run must reject structurally invalid schemas before generating any rows:
// a foreign key to a table that doesn't exist violates the §3 structural
// invariant and should surface as an error, not an underfilled table.
func TestRunRejectsDanglingForeignKey(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 1
	cfg.NumRows = 3

	schema, err := ddl.ParseMany(`CREATE TABLE orders(id SERIAL PRIMARY KEY, customer_id INT, FOREIGN KEY (customer_id) REFERENCES customers(id));`)
	require.NoError(t, err)

	reg := sampler.NewRegistry(sampler.Config{})
	rep := report.New(nil)
	_, err = Run(schema, cfg, reg, rep)
	require.Error(t, err)
}

// A predefined value that violates its column's CHECK must fail the run at
// start, naming the offending column, rather than silently degrading to an
// UnderfilledTable once the sampler keeps redrawing the same invalid value.
func TestRunRejectsPredefinedValueViolatingCheck(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 1
	cfg.NumRows = 3
	cfg.PredefinedValues = map[string]map[string][]any{
		"accounts": {"age": {int64(12)}},
	}

	schema, err := ddl.ParseMany(`CREATE TABLE accounts(id SERIAL PRIMARY KEY, age INT CHECK (age >= 18));`)
	require.NoError(t, err)

	reg := sampler.NewRegistry(sampler.Config{})
	rep := report.New(nil)
	_, err = Run(schema, cfg, reg, rep)
	require.Error(t, err)
	var cerr *core.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "age", cerr.Column)
}

// A cyclic group's phase-2 backfill can turn a row that passed phase 1
// (FK left NULL) into one that now fails a CHECK written against the
// backfilled column. Such a row must be dropped, not published: since every
// B.id is a positive SERIAL, every row A's phase 1 left pending is
// guaranteed to fail this CHECK once backfilled, so A must come back
// underfilled with the drop recorded, and no published row may carry a
// value the CHECK forbids.
func TestCyclicBackfillViolatingCheckIsDropped(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 3
	cfg.NumRowsPerTable = map[string]int{"A": 5, "B": 5}

	src := `
CREATE TABLE A (id SERIAL PRIMARY KEY, b_id INT NULL CHECK (b_id IS NULL OR b_id < 0), FOREIGN KEY (b_id) REFERENCES B(id));
CREATE TABLE B (id SERIAL PRIMARY KEY, a_id INT NULL, FOREIGN KEY (a_id) REFERENCES A(id));`

	schema, err := ddl.ParseMany(src)
	require.NoError(t, err)
	reg := sampler.NewRegistry(sampler.Config{})
	rep := report.New(nil)
	result, err := Run(schema, cfg, reg, rep)
	require.NoError(t, err)

	a := result.Tables["A"]
	require.Less(t, len(a.Rows), 5)
	for _, row := range a.Rows {
		if !row["b_id"].IsNull() {
			assert.Negative(t, row["b_id"].I)
		}
	}

	require.NotEmpty(t, rep.Warnings)
	uf, ok := rep.Warnings[0].(*core.UnderfilledTable)
	require.True(t, ok)
	assert.Equal(t, "A", uf.Table)
	assert.Contains(t, uf.LastFailures, "check constraint failed after cyclic backfill")
}
