package report

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

func TestAddCollectsWarnings(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	r := New(l)
	r.Add(&core.UnderfilledTable{Table: "orders", Produced: 8, Requested: 10})
	r.Add(&core.UnknownTypeWarning{Table: "orders", Column: "geo", RawType: "GEOMETRY"})
	require.Len(t, r.Warnings, 2)
}

func TestRecordTableAndSummary(t *testing.T) {
	r := New(nil)
	r.RecordTable("orders", 8, 10)
	r.RecordTable("customers", 10, 10)
	summary := r.Summary()
	assert.Contains(t, summary, "customers: 10/10 rows")
	assert.Contains(t, summary, "orders: 8/10 rows")
}
