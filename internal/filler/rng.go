package filler

import (
	"hash/fnv"
	"math/rand/v2"
)

// rngFor derives a per-table PRNG from the run seed and the table name, per
// SPEC_FULL.md §4.6/§5: two runs with the same seed against the same schema
// produce byte-identical output, and tables don't perturb each other's
// streams regardless of the order concurrent goroutines happen to run in.
func rngFor(seed int64, table string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(table))
	tableHash := h.Sum64()
	return rand.New(rand.NewPCG(uint64(seed), tableHash))
}
