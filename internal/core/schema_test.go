package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaPreservesInsertionOrder(t *testing.T) {
	s := NewSchema()
	s.AddTable(&TableDef{Name: "Theaters"})
	s.AddTable(&TableDef{Name: "Seats"})
	s.AddTable(&TableDef{Name: "Theaters"}) // re-add, should not move position

	assert.Equal(t, []string{"Theaters", "Seats"}, s.Order)
	assert.Equal(t, 2, s.Len())
}

func TestTableColumnCaseInsensitive(t *testing.T) {
	tbl := &TableDef{Columns: []*ColumnDef{{Name: "Age"}}}
	c, ok := tbl.Column("age")
	require.True(t, ok)
	assert.Equal(t, "Age", c.Name)
}

func TestValidateUnknownColumnInConstraint(t *testing.T) {
	s := NewSchema()
	s.AddTable(&TableDef{
		Name:    "T",
		Columns: []*ColumnDef{{Name: "id"}},
		Constraints: []*TableConstraint{
			{Kind: ConstraintUnique, Columns: []string{"missing"}},
		},
	})
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestValidateUnknownForeignTable(t *testing.T) {
	s := NewSchema()
	s.AddTable(&TableDef{
		Name:    "T",
		Columns: []*ColumnDef{{Name: "parent_id"}},
		Constraints: []*TableConstraint{
			{Kind: ConstraintForeignKey, Columns: []string{"parent_id"}, RefTable: "Missing", RefColumns: []string{"id"}},
		},
	})
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing")
}

func TestValidateSelfReferenceOnNonNullableColumnIsAllowed(t *testing.T) {
	s := NewSchema()
	s.AddTable(&TableDef{
		Name: "Employees",
		Columns: []*ColumnDef{
			{Name: "id", Nullable: false},
			{Name: "manager_id", Nullable: false},
		},
		Constraints: []*TableConstraint{
			{Kind: ConstraintForeignKey, Columns: []string{"manager_id"}, RefTable: "Employees", RefColumns: []string{"id"}},
		},
	})
	assert.NoError(t, s.Validate())
}
