// Package core holds the dialect-independent schema representation that the
// DDL parser produces and every downstream component (evaluator, domain
// extractor, filler, exporter) consumes.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Schema is the normalized, dialect-independent representation of a set of
// CREATE TABLE statements. Table names are case-preserved and compared
// case-sensitively; insertion order is kept in Order so replay is
// deterministic regardless of Go's randomized map iteration.
type Schema struct {
	tables map[string]*TableDef
	Order  []string
}

// NewSchema returns an empty Schema ready to receive tables.
func NewSchema() *Schema {
	return &Schema{tables: make(map[string]*TableDef)}
}

// AddTable registers a table, preserving first-seen order. A later call with
// the same name overwrites the earlier definition but keeps its original
// position in Order.
func (s *Schema) AddTable(t *TableDef) {
	if _, exists := s.tables[t.Name]; !exists {
		s.Order = append(s.Order, t.Name)
	}
	s.tables[t.Name] = t
}

// Table looks up a table by its case-preserved name.
func (s *Schema) Table(name string) (*TableDef, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Tables returns every table in insertion order.
func (s *Schema) Tables() []*TableDef {
	out := make([]*TableDef, 0, len(s.Order))
	for _, name := range s.Order {
		out = append(out, s.tables[name])
	}
	return out
}

// Len reports how many tables the schema holds.
func (s *Schema) Len() int { return len(s.Order) }

// TableDef is an ordered sequence of columns plus the constraints and
// foreign keys declared on the table.
type TableDef struct {
	Name        string
	Columns     []*ColumnDef
	Constraints []*TableConstraint
	// Warnings accumulates non-fatal issues found while parsing this table's
	// DDL (unrecognized type names, narrowed integer ranges); surfaced in
	// the run report rather than aborting ingestion.
	Warnings []error
}

// Column looks up a column by case-insensitive name, matching SQL identifier
// comparison semantics for unquoted references inside expressions.
func (t *TableDef) Column(name string) (*ColumnDef, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// PrimaryKey returns the table's PRIMARY KEY constraint, if any.
func (t *TableDef) PrimaryKey() *TableConstraint {
	for _, c := range t.Constraints {
		if c.Kind == ConstraintPrimaryKey {
			return c
		}
	}
	return nil
}

// ForeignKeys returns every FOREIGN KEY constraint declared on the table.
func (t *TableDef) ForeignKeys() []*TableConstraint {
	var fks []*TableConstraint
	for _, c := range t.Constraints {
		if c.Kind == ConstraintForeignKey {
			fks = append(fks, c)
		}
	}
	return fks
}

// Checks returns every CHECK constraint declared on the table.
func (t *TableDef) Checks() []*TableConstraint {
	var checks []*TableConstraint
	for _, c := range t.Constraints {
		if c.Kind == ConstraintCheck {
			checks = append(checks, c)
		}
	}
	return checks
}

// UniqueConstraints returns every UNIQUE and PRIMARY KEY constraint, since
// both require tuple-level uniqueness during generation.
func (t *TableDef) UniqueConstraints() []*TableConstraint {
	var uniq []*TableConstraint
	for _, c := range t.Constraints {
		if c.Kind == ConstraintUnique || c.Kind == ConstraintPrimaryKey {
			uniq = append(uniq, c)
		}
	}
	return uniq
}

// ColumnDef is a single column of a table.
type ColumnDef struct {
	Name     string
	Type     TypeTag
	Nullable bool
	Default  *string

	// Attached is the subset of the table's constraints that name exactly
	// this column, inline or table-level (CHECK, UNIQUE/PK, FK). An inline
	// NOT NULL is recorded in Nullable, not here.
	Attached []*TableConstraint

	// Domain is filled in once, after parsing, by internal/domain.
	Domain *ValueDomain
}

// TypeTag is the normalized column type. Kind selects which of the
// type-specific fields apply; DECIMAL carries Precision/Scale, VARCHAR/CHAR
// carry Length, ENUM carries Values.
type TypeTag struct {
	Kind      TypeKind
	Precision int
	Scale     int
	Length    int
	Values    []string // ENUM value set, in declared order
}

type TypeKind string

const (
	TypeInteger   TypeKind = "INTEGER"
	TypeDecimal   TypeKind = "DECIMAL"
	TypeVarchar   TypeKind = "VARCHAR"
	TypeChar      TypeKind = "CHAR"
	TypeText      TypeKind = "TEXT"
	TypeDate      TypeKind = "DATE"
	TypeTime      TypeKind = "TIME"
	TypeTimestamp TypeKind = "TIMESTAMP"
	TypeBoolean   TypeKind = "BOOLEAN"
	TypeSerial    TypeKind = "SERIAL"
	TypeEnum      TypeKind = "ENUM"
	TypeOpaque    TypeKind = "OPAQUE"
)

func (t TypeTag) String() string {
	switch t.Kind {
	case TypeDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case TypeVarchar:
		return fmt.Sprintf("VARCHAR(%d)", t.Length)
	case TypeChar:
		return fmt.Sprintf("CHAR(%d)", t.Length)
	case TypeEnum:
		return fmt.Sprintf("ENUM(%s)", strings.Join(t.Values, ","))
	default:
		return string(t.Kind)
	}
}

// ConstraintKind tags the variant a TableConstraint holds.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "PRIMARY KEY"
	ConstraintUnique     ConstraintKind = "UNIQUE"
	ConstraintNotNull    ConstraintKind = "NOT NULL"
	ConstraintCheck      ConstraintKind = "CHECK"
	ConstraintForeignKey ConstraintKind = "FOREIGN KEY"
)

// ReferentialAction mirrors the ON DELETE / ON UPDATE clause of a foreign key.
type ReferentialAction string

const (
	ActionNone       ReferentialAction = ""
	ActionCascade    ReferentialAction = "CASCADE"
	ActionSetNull    ReferentialAction = "SET NULL"
	ActionRestrict   ReferentialAction = "RESTRICT"
	ActionNoAction   ReferentialAction = "NO ACTION"
	ActionSetDefault ReferentialAction = "SET DEFAULT"
)

// TableConstraint is the tagged variant described in spec.md §3. Only the
// fields relevant to Kind are populated; the rest stay zero.
type TableConstraint struct {
	Name string
	Kind ConstraintKind

	// PrimaryKey / Unique / NotNull / ForeignKey; for Check, the column an
	// inline CHECK is declared on, or the single column a table-level CHECK
	// mentions (empty when it mentions several)
	Columns []string

	// Check
	Expr any // *expr.Node, typed as `any` here to avoid an import cycle;
	// internal/expr defines the concrete AST and internal/domain,
	// internal/filler import both packages directly.

	// ForeignKey
	RefTable   string
	RefColumns []string
	OnDelete   ReferentialAction
	OnUpdate   ReferentialAction
}

// ValueDomain is the conservative per-column value set derived by
// internal/domain, described in spec.md §3/§4.3.
type ValueDomain struct {
	Kind DomainKind

	Min, Max         *decimal.Decimal
	InclusiveMin     bool
	InclusiveMax     bool
	MinDate, MaxDate *string // YYYY-MM-DD, inclusive
	EnumSet          []string
	Regex            string
	MaxLength        int
	Nullable         bool
}

type DomainKind string

const (
	DomainNumeric DomainKind = "numeric"
	DomainString  DomainKind = "string"
	DomainDate    DomainKind = "date"
	DomainEnum    DomainKind = "enum"
	DomainAny     DomainKind = "any"
)

// ValueKind tags the payload carried by a Value.
type ValueKind string

const (
	ValueNull    ValueKind = "null"
	ValueInt     ValueKind = "int"
	ValueDecimal ValueKind = "decimal"
	ValueString  ValueKind = "string"
	ValueBool    ValueKind = "bool"
	ValueDate    ValueKind = "date" // stored as "YYYY-MM-DD"
)

// Value is the tagged variant a generated cell holds. NULL is a distinct
// tag, never an absent map entry — see Row.
type Value struct {
	Kind ValueKind
	I    int64
	D    decimal.Decimal
	S    string
	B    bool
}

// Null is the canonical NULL value.
var Null = Value{Kind: ValueNull}

func (v Value) IsNull() bool { return v.Kind == ValueNull }

func IntValue(i int64) Value        { return Value{Kind: ValueInt, I: i} }
func DecimalValue(d decimal.Decimal) Value { return Value{Kind: ValueDecimal, D: d} }
func StringValue(s string) Value    { return Value{Kind: ValueString, S: s} }
func BoolValue(b bool) Value        { return Value{Kind: ValueBool, B: b} }
func DateValue(s string) Value      { return Value{Kind: ValueDate, S: s} }

// Row maps column name to Value for one record of a table being populated.
type Row map[string]Value

// GeneratedTable is the append-only, ordered result of generating one
// table's rows.
type GeneratedTable struct {
	Table *TableDef
	Rows  []Row
}

func (g *GeneratedTable) Append(r Row) { g.Rows = append(g.Rows, r) }

// Result is the full output of a run: every table's generated rows, with
// Order listing table names in the order they were first set. Non-fatal
// warnings are not held here; internal/report collects them.
type Result struct {
	Tables map[string]*GeneratedTable
	Order  []string
}

func NewResult() *Result {
	return &Result{Tables: make(map[string]*GeneratedTable)}
}

func (r *Result) Set(name string, gt *GeneratedTable) {
	if _, exists := r.Tables[name]; !exists {
		r.Order = append(r.Order, name)
	}
	r.Tables[name] = gt
}
