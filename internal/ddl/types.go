package ddl

import (
	"strconv"
	"strings"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// parseType consumes the type-name tokens (and optional (n) / (p,s) /
// ('a','b',...) suffix) starting at p.pos and returns the normalized
// TypeTag, per spec.md §4.1's type-normalization table. It also reports
// whether the raw type name was recognized at all, and the raw spelling
// (used for UnknownTypeWarning / RangeNarrowedWarning).
func (p *Parser) parseType() (core.TypeTag, bool, bool, string) {
	nameParts := []string{p.cur().text}
	p.advance()

	// Multi-word type names: DOUBLE PRECISION, CHARACTER VARYING, etc.
	for p.cur().kind == tIdent && isTypeContinuation(nameParts[len(nameParts)-1], p.cur().text) {
		nameParts = append(nameParts, p.cur().text)
		p.advance()
	}
	raw := strings.Join(nameParts, " ")
	name := nameParts[0]

	switch name {
	case "SERIAL", "BIGSERIAL", "SMALLSERIAL":
		return core.TypeTag{Kind: core.TypeSerial}, true, false, raw

	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT":
		unsigned := p.skipUnsignedZerofill()
		p.skipParenArgs() // e.g. INT(11) display width, semantically irrelevant
		return core.TypeTag{Kind: core.TypeInteger}, true, unsigned, raw

	case "DECIMAL", "NUMERIC", "DEC":
		prec, scale := p.parsePrecisionScale(10, 0)
		return core.TypeTag{Kind: core.TypeDecimal, Precision: prec, Scale: scale}, true, false, raw

	case "FLOAT", "DOUBLE", "REAL":
		p.skipParenArgs()
		return core.TypeTag{Kind: core.TypeDecimal, Precision: 38, Scale: 9}, true, false, raw

	case "VARCHAR", "CHARACTER", "NVARCHAR", "VARCHAR2":
		n := p.parseSingleIntArg(255)
		return core.TypeTag{Kind: core.TypeVarchar, Length: n}, true, false, raw

	case "CHAR":
		n := p.parseSingleIntArg(1)
		return core.TypeTag{Kind: core.TypeChar, Length: n}, true, false, raw

	case "TEXT", "LONGTEXT", "MEDIUMTEXT", "TINYTEXT", "CLOB":
		return core.TypeTag{Kind: core.TypeText}, true, false, raw

	case "DATE":
		return core.TypeTag{Kind: core.TypeDate}, true, false, raw

	case "TIME":
		p.skipParenArgs()
		return core.TypeTag{Kind: core.TypeTime}, true, false, raw

	case "TIMESTAMP", "DATETIME":
		p.skipParenArgs()
		return core.TypeTag{Kind: core.TypeTimestamp}, true, false, raw

	case "BOOL", "BOOLEAN":
		return core.TypeTag{Kind: core.TypeBoolean}, true, false, raw

	case "ENUM":
		values := p.parseEnumValues()
		return core.TypeTag{Kind: core.TypeEnum, Values: values}, true, false, raw
	}

	return core.TypeTag{Kind: core.TypeOpaque}, false, false, raw
}

// isTypeContinuation recognizes the handful of two-word type spellings the
// subset grammar supports.
func isTypeContinuation(first, next string) bool {
	switch {
	case first == "DOUBLE" && next == "PRECISION":
		return true
	case first == "CHARACTER" && next == "VARYING":
		return true
	}
	return false
}

// skipUnsignedZerofill consumes UNSIGNED/ZEROFILL modifiers and reports
// whether UNSIGNED was present, since core.TypeInteger is always signed
// (SPEC_FULL.md Open Question 1: RangeNarrowedWarning on UNSIGNED columns).
func (p *Parser) skipUnsignedZerofill() bool {
	unsigned := false
	for p.cur().kind == tIdent && (p.cur().text == "UNSIGNED" || p.cur().text == "ZEROFILL") {
		if p.cur().text == "UNSIGNED" {
			unsigned = true
		}
		p.advance()
	}
	return unsigned
}

// skipParenArgs consumes an optional (n[,n...]) suffix without interpreting
// it (display width, float precision not tracked by TypeTag).
func (p *Parser) skipParenArgs() {
	if !p.isPunct("(") {
		return
	}
	p.advance()
	for !p.isPunct(")") && p.cur().kind != tEOF {
		p.advance()
	}
	p.advancePunct(")")
}

func (p *Parser) parseSingleIntArg(def int) int {
	if !p.isPunct("(") {
		return def
	}
	p.advance()
	n := def
	if p.cur().kind == tNumber {
		if v, err := strconv.Atoi(p.cur().text); err == nil {
			n = v
		}
		p.advance()
	}
	p.advancePunct(")")
	return n
}

func (p *Parser) parsePrecisionScale(defPrec, defScale int) (int, int) {
	if !p.isPunct("(") {
		return defPrec, defScale
	}
	p.advance()
	prec, scale := defPrec, defScale
	if p.cur().kind == tNumber {
		prec, _ = strconv.Atoi(p.cur().text)
		p.advance()
	}
	if p.isPunct(",") {
		p.advance()
		if p.cur().kind == tNumber {
			scale, _ = strconv.Atoi(p.cur().text)
			p.advance()
		}
	}
	p.advancePunct(")")
	return prec, scale
}

func (p *Parser) parseEnumValues() []string {
	var values []string
	if !p.isPunct("(") {
		return values
	}
	p.advance()
	for {
		if p.cur().kind == tString {
			values = append(values, p.cur().raw)
			p.advance()
		}
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	p.advancePunct(")")
	return values
}
