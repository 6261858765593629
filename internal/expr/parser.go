package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// funcNames is the closed set of function calls spec.md §3/§4.2 allows.
var funcNames = map[string]bool{
	"EXTRACT": true, "DATE": true, "LENGTH": true, "CURRENT_DATE": true,
	"UPPER": true, "LOWER": true,
}

// Parse parses a CHECK predicate body (already lifted from between the
// outer parentheses of `CHECK (...)`) into an ExprAST. Parse errors here
// are fatal to DDL ingestion, per spec.md §4.2.
func Parse(src string) (*Node, error) {
	lx := newLexer(src)
	toks, err := lx.tokenize()
	if err != nil {
		return nil, fmt.Errorf("expression parse error: %w", err)
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("expression parse error: %w", err)
	}
	if p.cur().kind != tokEOF {
		return nil, fmt.Errorf("expression parse error: unexpected trailing token %q", p.cur().text)
	}
	return n, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && t.text == kw
}

func (p *parser) expectOp(op string) error {
	t := p.cur()
	if t.kind != tokOp || t.text != op {
		return fmt.Errorf("expected %q, found %q", op, t.text)
	}
	p.advance()
	return nil
}

// parseOr: OR-separated parseAnd terms (lowest precedence).
func (p *parser) parseOr() (*Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinary, Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (*Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinary, Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (*Node, error) {
	if p.isKeyword("NOT") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindUnary, Op: "NOT", Left: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) parseComparison() (*Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	negated := false
	if p.isKeyword("NOT") {
		// lookahead: NOT only introduces BETWEEN/IN/LIKE/REGEXP here
		save := p.pos
		p.advance()
		if p.isKeyword("BETWEEN") || p.isKeyword("IN") || p.isKeyword("LIKE") || p.isKeyword("REGEXP") {
			negated = true
		} else {
			p.pos = save
		}
	}

	switch {
	case p.cur().kind == tokOp && comparisonOps[p.cur().text]:
		op := p.advance().text
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindBinary, Op: op, Left: left, Right: right}, nil

	case p.isKeyword("BETWEEN"):
		p.advance()
		lo, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if !p.isKeyword("AND") {
			return nil, fmt.Errorf("expected AND in BETWEEN, found %q", p.cur().text)
		}
		p.advance()
		hi, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		n := &Node{Kind: KindBetween, Between: [3]*Node{left, lo, hi}}
		return negateIf(n, negated), nil

	case p.isKeyword("IN"):
		p.advance()
		list, err := p.parseInList()
		if err != nil {
			return nil, err
		}
		n := &Node{Kind: KindIn, InExpr: left, InList: list}
		return negateIf(n, negated), nil

	case p.isKeyword("LIKE"):
		p.advance()
		pat, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindLike, Left: left, PatternExpr: pat, Negated: negated}, nil

	case p.isKeyword("REGEXP"):
		p.advance()
		pat, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindRegex, Left: left, PatternExpr: pat, Negated: negated}, nil

	case p.cur().kind == tokOp && p.cur().text == "~":
		p.advance()
		pat, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindRegex, Left: left, PatternExpr: pat}, nil

	case p.isKeyword("IS"):
		p.advance()
		isNeg := false
		if p.isKeyword("NOT") {
			p.advance()
			isNeg = true
		}
		if !p.isKeyword("NULL") {
			return nil, fmt.Errorf("expected NULL after IS [NOT], found %q", p.cur().text)
		}
		p.advance()
		n := &Node{Kind: KindIsNull, Operand: left}
		return negateIf(n, isNeg), nil
	}

	return left, nil
}

func negateIf(n *Node, negate bool) *Node {
	if !negate {
		return n
	}
	return &Node{Kind: KindUnary, Op: "NOT", Left: n}
}

func (p *parser) parseInList() ([]*Node, error) {
	if err := expectLParen(p); err != nil {
		return nil, err
	}
	var list []*Node
	for {
		e, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if err := expectRParen(p); err != nil {
		return nil, err
	}
	return list, nil
}

func expectLParen(p *parser) error {
	if p.cur().kind != tokLParen {
		return fmt.Errorf("expected '(', found %q", p.cur().text)
	}
	p.advance()
	return nil
}

func expectRParen(p *parser) error {
	if p.cur().kind != tokRParen {
		return fmt.Errorf("expected ')', found %q", p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) parseAdditive() (*Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && (p.cur().text == "+" || p.cur().text == "-") {
		op := p.advance().text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && (p.cur().text == "*" || p.cur().text == "/" || p.cur().text == "%") {
		op := p.advance().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (*Node, error) {
	if p.cur().kind == tokOp && p.cur().text == "-" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindUnary, Op: "-", Left: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*Node, error) {
	t := p.cur()
	switch {
	case t.kind == tokLParen:
		p.advance()
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := expectRParen(p); err != nil {
			return nil, err
		}
		return n, nil

	case t.kind == tokNumber:
		p.advance()
		return numberLiteral(t.text), nil

	case t.kind == tokString:
		p.advance()
		return &Node{Kind: KindLiteral, Lit: core.StringValue(t.raw)}, nil

	case t.kind == tokIdent && t.text == "NULL":
		p.advance()
		return &Node{Kind: KindLiteral, Lit: core.Null}, nil

	case t.kind == tokIdent && (t.text == "TRUE" || t.text == "FALSE"):
		p.advance()
		return &Node{Kind: KindLiteral, Lit: core.BoolValue(t.text == "TRUE")}, nil

	case t.kind == tokIdent && t.text == "DATE" && p.peekIsString():
		p.advance()
		s := p.advance()
		return &Node{Kind: KindLiteral, Lit: core.DateValue(s.raw)}, nil

	case t.kind == tokIdent && funcNames[t.text]:
		return p.parseFuncCall()

	case t.kind == tokIdent:
		p.advance()
		return &Node{Kind: KindColumnRef, Column: t.raw}, nil
	}
	return nil, fmt.Errorf("unexpected token %q", t.text)
}

func (p *parser) peekIsString() bool {
	return p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == tokString
}

func (p *parser) parseFuncCall() (*Node, error) {
	name := p.advance().text
	if name == "CURRENT_DATE" && p.cur().kind != tokLParen {
		return &Node{Kind: KindFuncCall, Func: name}, nil
	}
	if err := expectLParen(p); err != nil {
		return nil, err
	}

	var args []*Node
	if name == "EXTRACT" {
		part := p.advance()
		args = append(args, &Node{Kind: KindLiteral, Lit: core.StringValue(strings.ToUpper(part.text))})
		if !p.isKeyword("FROM") {
			return nil, fmt.Errorf("expected FROM in EXTRACT(), found %q", p.cur().text)
		}
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	} else {
		for p.cur().kind != tokRParen {
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if err := expectRParen(p); err != nil {
		return nil, err
	}
	return &Node{Kind: KindFuncCall, Func: name, Args: args}, nil
}

func numberLiteral(text string) *Node {
	if strings.Contains(text, ".") {
		d, err := decimal.NewFromString(text)
		if err != nil {
			return &Node{Kind: KindLiteral, Lit: core.Null}
		}
		return &Node{Kind: KindLiteral, Lit: core.DecimalValue(d)}
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		d, derr := decimal.NewFromString(text)
		if derr != nil {
			return &Node{Kind: KindLiteral, Lit: core.Null}
		}
		return &Node{Kind: KindLiteral, Lit: core.DecimalValue(d)}
	}
	return &Node{Kind: KindLiteral, Lit: core.IntValue(i)}
}
