package ddl

import (
	"fmt"
	"strings"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/expr"
)

// Parser consumes the token stream produced by lexer.tokenize and builds a
// core.Schema from one or more CREATE TABLE statements.
type Parser struct {
	toks []token
	pos  int
	src  []rune // original source, used to slice CHECK bodies verbatim
}

// ParseMany parses a whole dump: zero or more CREATE TABLE statements
// separated by ';'. Statements the grammar doesn't recognize (CREATE INDEX,
// ALTER TABLE, COMMENT ON, ...) are skipped up to their terminating ';',
// since spec.md §4.1 scopes this parser to CREATE TABLE only.
func ParseMany(src string) (*core.Schema, error) {
	lx := newLexer(src)
	toks, err := lx.tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks, src: lx.src}
	schema := core.NewSchema()

	for p.cur().kind != tEOF {
		if p.isKeyword("CREATE") && p.peekIsKeyword(1, "TABLE") {
			tbl, err := p.parseCreateTable()
			if err != nil {
				return nil, err
			}
			schema.AddTable(tbl)
			continue
		}
		// Not a CREATE TABLE statement: skip to the next ';'.
		p.skipStatement()
	}
	return schema, nil
}

// Parse parses a single CREATE TABLE statement.
func Parse(src string) (*core.TableDef, error) {
	lx := newLexer(src)
	toks, err := lx.tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks, src: lx.src}
	return p.parseCreateTable()
}

func (p *Parser) cur() token { return p.toks[p.pos] }

func (p *Parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tIdent && t.text == kw
}

func (p *Parser) peekIsKeyword(offset int, kw string) bool {
	idx := p.pos + offset
	if idx >= len(p.toks) {
		return false
	}
	t := p.toks[idx]
	return t.kind == tIdent && t.text == kw
}

func (p *Parser) isPunct(s string) bool {
	t := p.cur()
	return t.kind == tPunct && t.text == s
}

func (p *Parser) advancePunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf("%q", s)
	}
	p.advance()
	return nil
}

func (p *Parser) errorf(expected string, args ...any) error {
	t := p.cur()
	return &core.ParseError{
		Line:     t.line,
		Column:   t.col,
		Expected: fmt.Sprintf(expected, args...),
		Found:    t.raw,
	}
}

func (p *Parser) skipStatement() {
	for p.cur().kind != tEOF && !p.isPunct(";") {
		p.advance()
	}
	if p.isPunct(";") {
		p.advance()
	}
}

// parseCreateTable parses:
//
//	CREATE TABLE [IF NOT EXISTS] name (
//	  column_def | table_constraint [, ...]
//	) [table_options] ;
func (p *Parser) parseCreateTable() (*core.TableDef, error) {
	if !p.isKeyword("CREATE") {
		return nil, p.errorf("CREATE TABLE")
	}
	p.advance()
	if !p.isKeyword("TABLE") {
		return nil, p.errorf("TABLE")
	}
	p.advance()

	if p.isKeyword("IF") {
		p.advance()
		if !p.isKeyword("NOT") {
			return nil, p.errorf("NOT")
		}
		p.advance()
		if !p.isKeyword("EXISTS") {
			return nil, p.errorf("EXISTS")
		}
		p.advance()
	}

	if p.cur().kind != tIdent {
		return nil, p.errorf("table name")
	}
	name := p.advance().raw

	tbl := &core.TableDef{Name: name}

	if err := p.advancePunct("("); err != nil {
		return nil, err
	}

	for {
		if p.isPunct(")") {
			break
		}
		if err := p.parseTableItem(tbl); err != nil {
			return nil, err
		}
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.advancePunct(")"); err != nil {
		return nil, err
	}

	// Trailing table options (ENGINE=..., CHARSET=..., COMMENT '...', etc.)
	// are not semantically relevant to data generation; skip to ';' or EOF.
	for p.cur().kind != tEOF && !p.isPunct(";") {
		p.advance()
	}
	if p.isPunct(";") {
		p.advance()
	}

	attachConstraints(tbl)
	return tbl, nil
}

// attachConstraints fills each column's Attached slice with the
// single-column constraints (inline or table-level) that reference it, so
// internal/domain and internal/filler don't need to re-scan tbl.Constraints
// per column.
func attachConstraints(tbl *core.TableDef) {
	for _, c := range tbl.Constraints {
		if len(c.Columns) != 1 {
			continue
		}
		col, ok := tbl.Column(c.Columns[0])
		if !ok {
			continue
		}
		col.Attached = append(col.Attached, c)
	}
}

// parseTableItem parses one comma-separated element inside the CREATE TABLE
// parens: either a table-level constraint (starts with a keyword: PRIMARY,
// UNIQUE, CHECK, FOREIGN, CONSTRAINT) or a column definition.
func (p *Parser) parseTableItem(tbl *core.TableDef) error {
	switch {
	case p.isKeyword("PRIMARY"), p.isKeyword("UNIQUE"), p.isKeyword("CHECK"),
		p.isKeyword("FOREIGN"), p.isKeyword("CONSTRAINT"), p.isKeyword("KEY"),
		p.isKeyword("INDEX"):
		c, skip, err := p.parseTableConstraint()
		if err != nil {
			return err
		}
		if !skip {
			tbl.Constraints = append(tbl.Constraints, c)
		}
		return nil
	default:
		return p.parseColumnDef(tbl)
	}
}

// parseTableConstraint parses a table-level constraint clause. skip is true
// for constructs recognized but not representable as a core.TableConstraint
// (bare KEY/INDEX definitions, which carry no semantic weight for the
// generator beyond the uniqueness already captured by inline UNIQUE/PK).
func (p *Parser) parseTableConstraint() (*core.TableConstraint, bool, error) {
	var constraintName string
	if p.isKeyword("CONSTRAINT") {
		p.advance()
		if p.cur().kind == tIdent {
			constraintName = p.advance().raw
		}
	}

	switch {
	case p.isKeyword("PRIMARY"):
		p.advance()
		if !p.isKeyword("KEY") {
			return nil, false, p.errorf("KEY")
		}
		p.advance()
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, false, err
		}
		return &core.TableConstraint{Name: constraintName, Kind: core.ConstraintPrimaryKey, Columns: cols}, false, nil

	case p.isKeyword("UNIQUE"):
		p.advance()
		if p.isKeyword("KEY") || p.isKeyword("INDEX") {
			p.advance()
		}
		if p.cur().kind == tIdent && !p.isPunct("(") {
			p.advance() // optional index name
		}
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, false, err
		}
		return &core.TableConstraint{Name: constraintName, Kind: core.ConstraintUnique, Columns: cols}, false, nil

	case p.isKeyword("CHECK"):
		p.advance()
		body, err := p.readParenBody()
		if err != nil {
			return nil, false, err
		}
		node, perr := expr.Parse(body)
		if perr != nil {
			return nil, false, fmt.Errorf("CHECK constraint: %w", perr)
		}
		var cols []string
		if refs := node.ColumnRefs(); len(refs) == 1 {
			cols = refs
		}
		return &core.TableConstraint{Name: constraintName, Kind: core.ConstraintCheck, Columns: cols, Expr: node}, false, nil

	case p.isKeyword("FOREIGN"):
		p.advance()
		if !p.isKeyword("KEY") {
			return nil, false, p.errorf("KEY")
		}
		p.advance()
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, false, err
		}
		fk, err := p.parseReferencesClause(cols)
		if err != nil {
			return nil, false, err
		}
		fk.Name = constraintName
		return fk, false, nil

	case p.isKeyword("KEY"), p.isKeyword("INDEX"):
		p.advance()
		if p.cur().kind == tIdent && !p.isPunct("(") {
			p.advance()
		}
		if _, err := p.parseColumnList(); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}
	return nil, false, p.errorf("table constraint")
}

func (p *Parser) parseColumnList() ([]string, error) {
	if err := p.advancePunct("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		if p.cur().kind != tIdent {
			return nil, p.errorf("column name")
		}
		cols = append(cols, p.advance().raw)
		// USING BTREE / length subparts / ASC|DESC on index columns, skip.
		for !p.isPunct(",") && !p.isPunct(")") && p.cur().kind != tEOF {
			p.advance()
		}
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.advancePunct(")"); err != nil {
		return nil, err
	}
	return cols, nil
}

func (p *Parser) parseReferencesClause(cols []string) (*core.TableConstraint, error) {
	if !p.isKeyword("REFERENCES") {
		return nil, p.errorf("REFERENCES")
	}
	p.advance()
	if p.cur().kind != tIdent {
		return nil, p.errorf("referenced table name")
	}
	refTable := p.advance().raw
	refCols, err := p.parseColumnList()
	if err != nil {
		return nil, err
	}

	fk := &core.TableConstraint{
		Kind:       core.ConstraintForeignKey,
		Columns:    cols,
		RefTable:   refTable,
		RefColumns: refCols,
		OnDelete:   core.ActionNone,
		OnUpdate:   core.ActionNone,
	}

	for {
		switch {
		case p.isKeyword("ON") && p.peekIsKeyword(1, "DELETE"):
			p.advance()
			p.advance()
			action, err := p.parseReferentialAction()
			if err != nil {
				return nil, err
			}
			fk.OnDelete = action
		case p.isKeyword("ON") && p.peekIsKeyword(1, "UPDATE"):
			p.advance()
			p.advance()
			action, err := p.parseReferentialAction()
			if err != nil {
				return nil, err
			}
			fk.OnUpdate = action
		default:
			return fk, nil
		}
	}
}

func (p *Parser) parseReferentialAction() (core.ReferentialAction, error) {
	switch {
	case p.isKeyword("CASCADE"):
		p.advance()
		return core.ActionCascade, nil
	case p.isKeyword("RESTRICT"):
		p.advance()
		return core.ActionRestrict, nil
	case p.isKeyword("NO"):
		p.advance()
		if !p.isKeyword("ACTION") {
			return core.ActionNone, p.errorf("ACTION")
		}
		p.advance()
		return core.ActionNoAction, nil
	case p.isKeyword("SET"):
		p.advance()
		switch {
		case p.isKeyword("NULL"):
			p.advance()
			return core.ActionSetNull, nil
		case p.isKeyword("DEFAULT"):
			p.advance()
			return core.ActionSetDefault, nil
		}
		return core.ActionNone, p.errorf("NULL or DEFAULT")
	}
	return core.ActionNone, p.errorf("referential action")
}

// readParenBody scans a balanced-paren expression body starting at the
// current '(' token and returns the verbatim source text between the
// parens, handing the result to internal/expr.Parse. The text is sliced
// directly from the original source by rune offset rather than
// reassembled from this lexer's tokens: this lexer only tokenizes single
// punctuation runes (it has no notion of multi-char operators like >=, <>,
// <=), so rejoining tokens with inserted spaces would split those operators
// apart. Slicing verbatim hands internal/expr's own lexer the real text.
func (p *Parser) readParenBody() (string, error) {
	if !p.isPunct("(") {
		return "", p.errorf("%q", "(")
	}
	bodyStart := p.cur().end
	p.advance()

	depth := 1
	var bodyEnd int
	for {
		t := p.cur()
		if t.kind == tEOF {
			return "", p.errorf("')'")
		}
		if t.kind == tPunct && t.text == "(" {
			depth++
		} else if t.kind == tPunct && t.text == ")" {
			depth--
			if depth == 0 {
				bodyEnd = t.start
				p.advance()
				break
			}
		}
		p.advance()
	}
	return string(p.src[bodyStart:bodyEnd]), nil
}

func tokenSpelling(t token) string {
	if t.kind == tString {
		return "'" + strings.ReplaceAll(t.raw, "'", "''") + "'"
	}
	return t.raw
}

// parseColumnDef parses one column definition:
//
//	name type [column_constraint...]
func (p *Parser) parseColumnDef(tbl *core.TableDef) error {
	if p.cur().kind != tIdent {
		return p.errorf("column name or table constraint")
	}
	name := p.advance().raw

	typeTag, known, narrowed, raw := p.parseType()
	col := &core.ColumnDef{Name: name, Type: typeTag, Nullable: true}
	if !known {
		tbl.Warnings = append(tbl.Warnings, &core.UnknownTypeWarning{Table: tbl.Name, Column: name, RawType: raw})
	}
	if narrowed {
		tbl.Warnings = append(tbl.Warnings, &core.RangeNarrowedWarning{Table: tbl.Name, Column: name, RawType: raw})
	}
	if typeTag.Kind == core.TypeSerial {
		col.Nullable = false
	}

	for {
		switch {
		case p.isKeyword("NOT") && p.peekIsKeyword(1, "NULL"):
			p.advance()
			p.advance()
			col.Nullable = false

		case p.isKeyword("NULL"):
			p.advance()
			col.Nullable = true

		case p.isKeyword("PRIMARY"):
			p.advance()
			if !p.isKeyword("KEY") {
				return p.errorf("KEY")
			}
			p.advance()
			col.Nullable = false
			tbl.Constraints = append(tbl.Constraints, &core.TableConstraint{
				Kind: core.ConstraintPrimaryKey, Columns: []string{name},
			})

		case p.isKeyword("UNIQUE"):
			p.advance()
			tbl.Constraints = append(tbl.Constraints, &core.TableConstraint{
				Kind: core.ConstraintUnique, Columns: []string{name},
			})

		case p.isKeyword("AUTO_INCREMENT"):
			p.advance()
			col.Type = core.TypeTag{Kind: core.TypeSerial}
			col.Nullable = false

		case p.isKeyword("CHECK"):
			p.advance()
			body, err := p.readParenBody()
			if err != nil {
				return err
			}
			node, perr := expr.Parse(body)
			if perr != nil {
				return fmt.Errorf("CHECK constraint on %s.%s: %w", tbl.Name, name, perr)
			}
			tbl.Constraints = append(tbl.Constraints, &core.TableConstraint{
				Kind: core.ConstraintCheck, Columns: []string{name}, Expr: node,
			})

		case p.isKeyword("DEFAULT"):
			p.advance()
			defText, err := p.readDefaultExpr()
			if err != nil {
				return err
			}
			col.Default = &defText

		case p.isKeyword("REFERENCES"):
			fk, err := p.parseReferencesClause([]string{name})
			if err != nil {
				return err
			}
			tbl.Constraints = append(tbl.Constraints, fk)

		case p.isKeyword("COMMENT"):
			p.advance()
			if p.cur().kind != tString {
				return p.errorf("comment string")
			}
			p.advance()

		default:
			tbl.Columns = append(tbl.Columns, col)
			return nil
		}
	}
}

// readDefaultExpr reads the token(s) making up a DEFAULT value: a single
// literal/function-call token run, stopping at the next column/table
// constraint keyword or a ',' / ')'.
func (p *Parser) readDefaultExpr() (string, error) {
	if p.isPunct("(") {
		body, err := p.readParenBody()
		if err != nil {
			return "", err
		}
		return "(" + body + ")", nil
	}
	t := p.advance()
	text := tokenSpelling(t)
	// Function-style defaults, e.g. CURRENT_TIMESTAMP(3) or NOW().
	if p.isPunct("(") {
		body, err := p.readParenBody()
		if err != nil {
			return "", err
		}
		text += "(" + body + ")"
	}
	return text, nil
}
