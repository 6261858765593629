package core

import "fmt"

// Validate checks the structural invariants spec.md §3 requires of a
// TableDef: every column referenced by a constraint or foreign key exists,
// and FK-referenced tables and columns exist. A self-referencing FK is
// accepted whether or not its columns are nullable; internal/filler
// resolves the first row of such a table (see validateForeignKeys).
//
// Mirrors the teacher's Database.Validate orchestration: one exported entry
// point delegating to small, focused checks.
func (s *Schema) Validate() error {
	for _, t := range s.Tables() {
		if err := t.validateColumnRefs(); err != nil {
			return err
		}
		if err := t.validateForeignKeys(s); err != nil {
			return err
		}
	}
	return nil
}

func (t *TableDef) validateColumnRefs() error {
	for _, c := range t.Constraints {
		for _, col := range c.Columns {
			if _, ok := t.Column(col); !ok {
				return fmt.Errorf("table %s: constraint %s references unknown column %q", t.Name, c.Kind, col)
			}
		}
	}
	return nil
}

func (t *TableDef) validateForeignKeys(s *Schema) error {
	for _, fk := range t.ForeignKeys() {
		ref, ok := s.Table(fk.RefTable)
		if !ok {
			return fmt.Errorf("table %s: foreign key references unknown table %q", t.Name, fk.RefTable)
		}
		for _, col := range fk.RefColumns {
			if _, ok := ref.Column(col); !ok {
				return fmt.Errorf("table %s: foreign key references unknown column %s.%s", t.Name, fk.RefTable, col)
			}
		}
		// Self-references (fk.RefTable == t.Name) are structurally legal
		// here even on a non-nullable column: internal/filler's row 1
		// special-cases them by pointing the FK at the row's own freshly
		// generated key (spec.md §4.6 "self-referential FKs").
	}
	return nil
}
