// Package report aggregates the non-fatal issues a generation run
// collects (unknown types, narrowed ranges, underfilled tables) and emits
// them as structured log entries via logrus, in the style of the
// denisvmedia-inventario pack's internal/log wrapper.
package report

import (
	"sort"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// Report collects every warning produced while ingesting DDL and
// generating rows, in the order they were added, plus per-table row counts
// for the final summary. Add and RecordTable are safe to call from
// concurrently filling tables.
type Report struct {
	Warnings     []error
	RowsProduced map[string]int
	RowsRequested map[string]int

	mu  sync.Mutex
	log *logrus.Logger
}

// New returns a Report that logs through l. Passing nil uses
// logrus.StandardLogger().
func New(l *logrus.Logger) *Report {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Report{
		RowsProduced:  map[string]int{},
		RowsRequested: map[string]int{},
		log:           l,
	}
}

// Add records one warning and logs it immediately at the appropriate
// level: UnderfilledTable at Warn, everything else at Info (since
// unknown-type/range-narrowing warnings are expected noise on
// heterogeneous dialects, not generation failures).
func (r *Report) Add(err error) {
	r.mu.Lock()
	r.Warnings = append(r.Warnings, err)
	r.mu.Unlock()

	entry := r.log.WithField("component", "datafiller")
	switch w := err.(type) {
	case *core.UnderfilledTable:
		entry.WithFields(logrus.Fields{
			"table":     w.Table,
			"produced":  w.Produced,
			"requested": w.Requested,
		}).Warn(w.Error())
	case *core.UnknownTypeWarning:
		entry.WithFields(logrus.Fields{"table": w.Table, "column": w.Column, "raw_type": w.RawType}).Info(w.Error())
	case *core.RangeNarrowedWarning:
		entry.WithFields(logrus.Fields{"table": w.Table, "column": w.Column, "raw_type": w.RawType}).Info(w.Error())
	default:
		entry.Warn(err.Error())
	}
}

// RecordTable stores the produced/requested row counts for table, used in
// the final Summary.
func (r *Report) RecordTable(table string, produced, requested int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RowsProduced[table] = produced
	r.RowsRequested[table] = requested
}

// Summary returns a deterministic, human-readable rundown of every
// table's fill outcome, in table-name order.
func (r *Report) Summary() string {
	tables := make([]string, 0, len(r.RowsRequested))
	for t := range r.RowsRequested {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	out := ""
	for _, t := range tables {
		out += t + ": " + strconv.Itoa(r.RowsProduced[t]) + "/" + strconv.Itoa(r.RowsRequested[t]) + " rows\n"
	}
	return out
}
